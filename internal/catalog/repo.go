package catalog

import (
	"context"
	"errors"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"gorm.io/gorm"
)

// Repository persists catalog products.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns active products in display order.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("position asc, id asc").
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

// FindByID loads one product regardless of active state.
func (r *Repository) FindByID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find product")
	}
	return &product, nil
}

// Upsert creates or updates a product row.
func (r *Repository) Upsert(ctx context.Context, product *models.Product) error {
	if product == nil || product.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product with id is required")
	}
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
	}
	return nil
}
