package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/pkg/db/models"
)

// Repository exposes catalog persistence for products and their variants.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func withVariants(db *gorm.DB) *gorm.DB {
	return db.Preload("Variants", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sort_order ASC")
	})
}

// Find loads one product with its variants in display order.
func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := withVariants(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads one active product by its slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := withVariants(r.db.WithContext(ctx)).
		First(&product, "slug = ? AND is_active = ?", slug, true).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListActive returns all active products ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := withVariants(r.db.WithContext(ctx)).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListFeatured returns active featured products ordered by name.
func (r *Repository) ListFeatured(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := withVariants(r.db.WithContext(ctx)).
		Where("is_active = ? AND featured = ?", true, true).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update saves the full product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("*").
		Omit("id", "created_at", "Variants").
		Updates(product).Error
}

// Delete removes the product. Variants and cart lines cascade in the schema.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// FindVariant loads one variant row.
func (r *Repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListVariants returns a product's variants in display order.
func (r *Repository) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var out []models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sort_order ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateVariant inserts a variant row.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

// UpdateVariant saves the full variant row.
func (r *Repository) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variant.ID).
		Select("*").
		Omit("id", "product_id", "created_at").
		Updates(variant).Error
}

// DeleteVariant removes a variant row.
func (r *Repository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductVariant{}, "id = ?", id).Error
}

// CountActive returns the number of active products.
func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Count(&n).Error
	return n, err
}
