package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/pkg/db/models"
	"github.com/acctbay/storefront-backend/pkg/enums"
)

// Repository exposes order persistence. Orders are write-once snapshots taken
// when a checkout settles; only status moves afterwards.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the order snapshot.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Find loads one order.
func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the user's orders newest-first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns all orders newest-first, capped at limit when positive.
func (r *Repository) List(ctx context.Context, limit int) ([]models.Order, error) {
	tx := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var out []models.Order
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves an order to the given status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// HasPurchase reports whether any order of the user contains the product.
// Items are stored as a JSON snapshot, so the check scans the user's orders.
func (r *Repository) HasPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	orders, err := r.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, order := range orders {
		for _, item := range order.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}
