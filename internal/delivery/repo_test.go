package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDeliveryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	fulfilled := `
CREATE TABLE IF NOT EXISTS fulfilled_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  invoice_id TEXT,
  payment_method TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  credential_count INTEGER NOT NULL,
  delivered_at DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(fulfilled).Error)
	return db
}

func TestRecordAssignsIDAndPersists(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := &models.FulfilledOrder{
		OrderID:         "order-1",
		CustomerID:      "cust-1",
		InvoiceID:       "inv-1",
		PaymentMethod:   enums.PaymentMethodGateway,
		AmountCents:     5000000,
		CredentialCount: 1,
		DeliveredAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Record(ctx, order))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", order.ID.String())

	orders, err := repo.ListByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].OrderID)
}

func TestRecordRejectsMissingOrderID(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewRepository(db)

	require.Error(t, repo.Record(context.Background(), &models.FulfilledOrder{CustomerID: "cust-1"}))
	require.Error(t, repo.Record(context.Background(), nil))
}

func TestListByCustomerNewestFirst(t *testing.T) {
	db := setupDeliveryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()
	require.NoError(t, repo.Record(ctx, &models.FulfilledOrder{
		OrderID: "order-old", CustomerID: "cust-1", PaymentMethod: enums.PaymentMethodBank,
		AmountCents: 100, CredentialCount: 1, DeliveredAt: older,
	}))
	require.NoError(t, repo.Record(ctx, &models.FulfilledOrder{
		OrderID: "order-new", CustomerID: "cust-1", PaymentMethod: enums.PaymentMethodBank,
		AmountCents: 100, CredentialCount: 1, DeliveredAt: newer,
	}))
	require.NoError(t, repo.Record(ctx, &models.FulfilledOrder{
		OrderID: "order-other", CustomerID: "cust-2", PaymentMethod: enums.PaymentMethodBank,
		AmountCents: 100, CredentialCount: 1, DeliveredAt: newer,
	}))

	orders, err := repo.ListByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-new", orders[0].OrderID)
	assert.Equal(t, "order-old", orders[1].OrderID)
}
