package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
)

// Lister is the read surface the engine browses against.
type Lister interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, productID string) (*models.Product, error)
}

// Service resolves customer input against the active catalog.
type Service struct {
	repo Lister
}

// NewService wires a catalog service.
func NewService(repo Lister) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Service{repo: repo}, nil
}

// List returns the active products in display order.
func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListActive(ctx)
}

// Find loads a product by id.
func (s *Service) Find(ctx context.Context, productID string) (*models.Product, error) {
	return s.repo.FindByID(ctx, productID)
}

// Resolve maps customer input onto a product: a 1-based ordinal into the
// displayed list, an exact id, or an exact (case-insensitive) name.
func (s *Service) Resolve(ctx context.Context, input string) (*models.Product, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product choice is required")
	}

	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if ordinal, err := strconv.Atoi(trimmed); err == nil {
		if ordinal < 1 || ordinal > len(products) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no product at that number")
		}
		product := products[ordinal-1]
		return &product, nil
	}

	lowered := strings.ToLower(trimmed)
	for i := range products {
		if products[i].ID == trimmed || strings.ToLower(products[i].Name) == lowered {
			product := products[i]
			return &product, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}
