package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acctbay/storefront-backend/pkg/enums"
)

// OrderItemSnapshot freezes a cart line at the moment checkout was handed to
// the hosted payment page.
type OrderItemSnapshot struct {
	ProductID         uuid.UUID       `json:"product_id"`
	VariantID         *uuid.UUID      `json:"variant_id,omitempty"`
	Name              string          `json:"name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	SellAuthProductID int64           `json:"sellauth_product_id"`
	SellAuthVariantID *int64          `json:"sellauth_variant_id,omitempty"`
}

// Order records a checkout hand-off. Fulfillment happens on the payment
// provider's side, so rows start pending and are reconciled later.
type Order struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status      enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	ItemCount   int                 `gorm:"column:item_count;not null"`
	TotalPrice  decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	Items       []OrderItemSnapshot `gorm:"column:items;type:jsonb;serializer:json"`
	CheckoutRef *string             `gorm:"column:checkout_ref"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
