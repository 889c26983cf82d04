package delivery

import (
	"context"

	"github.com/google/uuid"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"gorm.io/gorm"
)

// Repository appends to the fulfilled-order audit table.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record appends one fulfilled-order row. Rows are never updated.
func (r *Repository) Record(ctx context.Context, order *models.FulfilledOrder) error {
	if order == nil || order.OrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "fulfilled order with order id is required")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record fulfilled order")
	}
	return nil
}

// ListByCustomer returns the customer's fulfilment history, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]models.FulfilledOrder, error) {
	var orders []models.FulfilledOrder
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("delivered_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fulfilled orders")
	}
	return orders, nil
}
