package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a user's cart. A (user, product, variant) tuple is
// unique, with a NULL variant treated as its own slot.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Variant   *ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// UnitPrice resolves the payable price variant-first. A missing or zero sale
// price falls through to the next source, ending at zero.
func (c CartItem) UnitPrice() decimal.Decimal {
	if v := c.Variant; v != nil {
		if v.SalePrice.Valid && !v.SalePrice.Decimal.IsZero() {
			return v.SalePrice.Decimal
		}
	}
	if p := c.Product; p != nil {
		if p.SalePrice.Valid && !p.SalePrice.Decimal.IsZero() {
			return p.SalePrice.Decimal
		}
	}
	return decimal.Zero
}
