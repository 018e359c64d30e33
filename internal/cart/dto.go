package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acctbay/storefront-backend/pkg/db/models"
)

// AddItemRequest adds a product (optionally a specific variant) to the cart.
type AddItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
}

// UpdateQuantityRequest changes a cart line's quantity. Zero and below removes
// the line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ItemDTO is a cart line joined with its product and variant.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	Name        string          `json:"name"`
	VariantName string          `json:"variant_name,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartDTO is the whole cart with derived totals.
type CartDTO struct {
	Items      []ItemDTO       `json:"items"`
	ItemCount  int             `json:"item_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// AddItemResponse reports whether the line merged into an existing one.
type AddItemResponse struct {
	Merged bool    `json:"merged"`
	Cart   CartDTO `json:"cart"`
}

func itemFromModel(item models.CartItem) ItemDTO {
	dto := ItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice(),
	}
	if item.Product != nil {
		dto.Name = item.Product.Name
		dto.ImageURL = item.Product.ImageURL
	}
	if item.Variant != nil {
		dto.VariantName = item.Variant.Name
	}
	dto.LineTotal = dto.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return dto
}

func cartFromModels(items []models.CartItem) CartDTO {
	dto := CartDTO{Items: make([]ItemDTO, 0, len(items)), TotalPrice: decimal.Zero}
	for _, item := range items {
		line := itemFromModel(item)
		dto.Items = append(dto.Items, line)
		dto.ItemCount += line.Quantity
		dto.TotalPrice = dto.TotalPrice.Add(line.LineTotal)
	}
	return dto
}
