package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/pkg/db/models"
)

// Repository exposes review persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a reviews repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a review row.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// Find loads one review.
func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// List returns reviews newest-first, capped at limit when positive.
func (r *Repository) List(ctx context.Context, limit int) ([]models.Review, error) {
	tx := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var out []models.Review
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByProduct returns a product's reviews newest-first, capped at limit when
// positive.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.Review, error) {
	tx := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var out []models.Review
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a review row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id).Error
}

// Aggregate returns the review count and average rating across all reviews.
func (r *Repository) Aggregate(ctx context.Context) (int64, float64, error) {
	var row struct {
		Total int64
		Avg   *float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS total, AVG(rating) AS avg").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	avg := 0.0
	if row.Avg != nil {
		avg = *row.Avg
	}
	return row.Total, avg, nil
}
