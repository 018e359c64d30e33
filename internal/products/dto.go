package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acctbay/storefront-backend/pkg/db/models"
)

// ProductDTO is the public catalog shape for a product.
type ProductDTO struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	Slug              string           `json:"slug"`
	Category          *string          `json:"category,omitempty"`
	Description       *string          `json:"description,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty"`
	Price             decimal.Decimal  `json:"price"`
	SalePrice         *decimal.Decimal `json:"sale_price,omitempty"`
	Stock             int              `json:"stock"`
	HasVariants       bool             `json:"has_variants"`
	Featured          bool             `json:"featured"`
	SellAuthProductID *int64           `json:"sellauth_product_id,omitempty"`
	Variants          []VariantDTO     `json:"variants"`
}

// VariantDTO is the public catalog shape for a product variant.
type VariantDTO struct {
	ID                uuid.UUID        `json:"id"`
	ProductID         uuid.UUID        `json:"product_id"`
	Name              string           `json:"name"`
	Description       *string          `json:"description,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty"`
	Price             decimal.Decimal  `json:"price"`
	SalePrice         *decimal.Decimal `json:"sale_price,omitempty"`
	Stock             int              `json:"stock"`
	SortOrder         int              `json:"sort_order"`
	SellAuthProductID *int64           `json:"sellauth_product_id,omitempty"`
	SellAuthVariantID *int64           `json:"sellauth_variant_id,omitempty"`
}

// CreateProductRequest is the admin payload for a new product.
type CreateProductRequest struct {
	Name              string           `json:"name" validate:"required"`
	Slug              string           `json:"slug" validate:"required,lowercase"`
	Category          *string          `json:"category,omitempty"`
	Description       *string          `json:"description,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	Price             decimal.Decimal  `json:"price"`
	SalePrice         *decimal.Decimal `json:"sale_price,omitempty"`
	Stock             int              `json:"stock" validate:"gte=0"`
	HasVariants       bool             `json:"has_variants"`
	Featured          bool             `json:"featured"`
	IsActive          *bool            `json:"is_active,omitempty"`
	SellAuthProductID *int64           `json:"sellauth_product_id,omitempty"`
}

// UpdateProductRequest is the admin payload for editing a product. All fields
// are applied as given; it is a full replace, not a patch.
type UpdateProductRequest = CreateProductRequest

// CreateVariantRequest is the admin payload for a new variant.
type CreateVariantRequest struct {
	Name              string           `json:"name" validate:"required"`
	Description       *string          `json:"description,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	Price             decimal.Decimal  `json:"price"`
	SalePrice         *decimal.Decimal `json:"sale_price,omitempty"`
	Stock             int              `json:"stock" validate:"gte=0"`
	SortOrder         int              `json:"sort_order"`
	SellAuthProductID *int64           `json:"sellauth_product_id,omitempty"`
	SellAuthVariantID *int64           `json:"sellauth_variant_id,omitempty"`
}

// UpdateVariantRequest mirrors the create payload as a full replace.
type UpdateVariantRequest = CreateVariantRequest

func nullDecimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// FromModel maps a product row (and its preloaded variants) to the public DTO.
func FromModel(product models.Product) ProductDTO {
	dto := ProductDTO{
		ID:                product.ID,
		Name:              product.Name,
		Slug:              product.Slug,
		Category:          product.Category,
		Description:       product.Description,
		ImageURL:          product.ImageURL,
		Price:             product.Price,
		SalePrice:         nullDecimalPtr(product.SalePrice),
		Stock:             product.Stock,
		HasVariants:       product.HasVariants,
		Featured:          product.Featured,
		SellAuthProductID: product.SellAuthProductID,
		Variants:          make([]VariantDTO, 0, len(product.Variants)),
	}
	for _, variant := range product.Variants {
		dto.Variants = append(dto.Variants, VariantFromModel(variant))
	}
	return dto
}

// VariantFromModel maps a variant row to the public DTO.
func VariantFromModel(variant models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:                variant.ID,
		ProductID:         variant.ProductID,
		Name:              variant.Name,
		Description:       variant.Description,
		ImageURL:          variant.ImageURL,
		Price:             variant.Price,
		SalePrice:         nullDecimalPtr(variant.SalePrice),
		Stock:             variant.Stock,
		SortOrder:         variant.SortOrder,
		SellAuthProductID: variant.SellAuthProductID,
		SellAuthVariantID: variant.SellAuthVariantID,
	}
}
