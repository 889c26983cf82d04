package models

import "time"

// Product is one sellable catalog entry. The id doubles as the
// credential-file name in the inventory vault and the stock counter key.
type Product struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	Position    int       `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
