package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a storefront listing. Pricing is resolved variant-first:
// a variant's sale price wins over the product's, which wins over zero. Stock
// is only authoritative when HasVariants is false.
type Product struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string              `gorm:"column:name;not null"`
	Slug              string              `gorm:"column:slug;not null;uniqueIndex"`
	Category          *string             `gorm:"column:category"`
	Description       *string             `gorm:"column:description"`
	ImageURL          *string             `gorm:"column:image_url"`
	Price             decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice         decimal.NullDecimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Stock             int                 `gorm:"column:stock;not null;default:0"`
	SellAuthProductID *int64              `gorm:"column:sellauth_product_id"`
	HasVariants       bool                `gorm:"column:has_variants;not null;default:false"`
	Featured          bool                `gorm:"column:featured;not null;default:false"`
	IsActive          bool                `gorm:"column:is_active;not null;default:true"`
	Variants          []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveSalePrice returns the product-level sale price or zero when unset.
func (p Product) EffectiveSalePrice() decimal.Decimal {
	if p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return decimal.Zero
}
