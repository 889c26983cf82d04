package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
)

// FulfilledOrder is one append-only row per completed delivery. Credentials
// themselves are never stored here, only how many went out.
type FulfilledOrder struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         string              `gorm:"column:order_id;not null;index"`
	CustomerID      string              `gorm:"column:customer_id;not null;index"`
	InvoiceID       string              `gorm:"column:invoice_id"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null"`
	AmountCents     int64               `gorm:"column:amount_cents;not null"`
	CredentialCount int64               `gorm:"column:credential_count;not null"`
	DeliveredAt     time.Time           `gorm:"column:delivered_at;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}
