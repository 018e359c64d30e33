package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/acctbay/storefront-backend/pkg/db/models"
)

// Repository exposes site setting persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a settings repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get loads one setting row.
func (r *Repository) Get(ctx context.Context, key string) (*models.SiteSetting, error) {
	var setting models.SiteSetting
	if err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// List returns all setting rows.
func (r *Repository) List(ctx context.Context) ([]models.SiteSetting, error) {
	var out []models.SiteSetting
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert writes the value for a key, inserting or overwriting.
func (r *Repository) Upsert(ctx context.Context, key, value string) error {
	setting := models.SiteSetting{Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
}

// Delete removes a setting row.
func (r *Repository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&models.SiteSetting{}, "key = ?", key).Error
}
