package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acctbay/storefront-backend/pkg/db/models"
	"github.com/acctbay/storefront-backend/pkg/enums"
)

// OrderDTO is the API shape for an order snapshot.
type OrderDTO struct {
	ID          uuid.UUID                  `json:"id"`
	UserID      uuid.UUID                  `json:"user_id"`
	Status      enums.OrderStatus          `json:"status"`
	ItemCount   int                        `json:"item_count"`
	TotalPrice  decimal.Decimal            `json:"total_price"`
	Items       []models.OrderItemSnapshot `json:"items"`
	CheckoutRef *string                    `json:"checkout_ref,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// UpdateStatusRequest moves an order to a new status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// FromModel maps an order row to its DTO.
func FromModel(order models.Order) OrderDTO {
	items := order.Items
	if items == nil {
		items = []models.OrderItemSnapshot{}
	}
	return OrderDTO{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		ItemCount:   order.ItemCount,
		TotalPrice:  order.TotalPrice,
		Items:       items,
		CheckoutRef: order.CheckoutRef,
		CreatedAt:   order.CreatedAt,
	}
}
