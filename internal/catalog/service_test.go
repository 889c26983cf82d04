package catalog

import (
	"context"
	"testing"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
)

type fakeRepo struct {
	products []models.Product
}

func (f *fakeRepo) ListActive(context.Context) ([]models.Product, error) {
	return f.products, nil
}

func (f *fakeRepo) FindByID(_ context.Context, productID string) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].ID == productID {
			return &f.products[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(&fakeRepo{products: []models.Product{
		{ID: "netflix-1m", Name: "Netflix Premium", PriceCents: 5000000, Position: 0},
		{ID: "spotify-1m", Name: "Spotify Family", PriceCents: 2500000, Position: 1},
	}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestResolveByOrdinal(t *testing.T) {
	service := newTestService(t)
	product, err := service.Resolve(context.Background(), "2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if product.ID != "spotify-1m" {
		t.Fatalf("expected second product, got %s", product.ID)
	}
}

func TestResolveByID(t *testing.T) {
	service := newTestService(t)
	product, err := service.Resolve(context.Background(), "netflix-1m")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if product.Name != "Netflix Premium" {
		t.Fatalf("unexpected product %s", product.Name)
	}
}

func TestResolveByNameCaseInsensitive(t *testing.T) {
	service := newTestService(t)
	product, err := service.Resolve(context.Background(), "  spotify family ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if product.ID != "spotify-1m" {
		t.Fatalf("unexpected product %s", product.ID)
	}
}

func TestResolveOutOfRangeOrdinal(t *testing.T) {
	service := newTestService(t)
	if _, err := service.Resolve(context.Background(), "5"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := service.Resolve(context.Background(), "0"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for zero ordinal, got %v", err)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	service := newTestService(t)
	if _, err := service.Resolve(context.Background(), "   "); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveUnknownName(t *testing.T) {
	service := newTestService(t)
	if _, err := service.Resolve(context.Background(), "hulu"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
