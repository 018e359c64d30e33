package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is an orderable option under a product. Variant-level payment
// identifiers fall back to the parent product's when unset.
type ProductVariant struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	Name              string              `gorm:"column:name;not null"`
	Description       *string             `gorm:"column:description"`
	ImageURL          *string             `gorm:"column:image_url"`
	Price             decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice         decimal.NullDecimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Stock             int                 `gorm:"column:stock;not null;default:0"`
	SellAuthProductID *int64              `gorm:"column:sellauth_product_id"`
	SellAuthVariantID *int64              `gorm:"column:sellauth_variant_id"`
	SortOrder         int                 `gorm:"column:sort_order;not null;default:0"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
