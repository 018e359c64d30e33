package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/pkg/db/models"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  category TEXT,
  description TEXT,
  image_url TEXT,
  price NUMERIC NOT NULL,
  sale_price NUMERIC,
  stock INTEGER NOT NULL DEFAULT 0,
  sellauth_product_id INTEGER,
  has_variants INTEGER NOT NULL DEFAULT 0,
  featured INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  image_url TEXT,
  price NUMERIC NOT NULL,
  sale_price NUMERIC,
  stock INTEGER NOT NULL DEFAULT 0,
  sellauth_product_id INTEGER,
  sellauth_variant_id INTEGER,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`

	for _, stmt := range []string{products, variants, cartItems} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		db.Exec("DROP TABLE IF EXISTS cart_items")
		db.Exec("DROP TABLE IF EXISTS product_variants")
		db.Exec("DROP TABLE IF EXISTS products")
	})

	return db
}

func seedCartProduct(t *testing.T, db *gorm.DB) (*models.Product, *models.ProductVariant) {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		Name:      "Premium Account",
		Slug:      "premium-account-" + uuid.NewString(),
		Price:     decimal.NewFromInt(25),
		SalePrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(10), Valid: true},
		IsActive:  true,
	}
	require.NoError(t, db.Create(product).Error)

	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      "1 Month",
		Price:     decimal.NewFromInt(20),
		SalePrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(15), Valid: true},
	}
	require.NoError(t, db.Create(variant).Error)

	return product, variant
}

func TestRepositoryCreateAndListByUser(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product, variant := seedCartProduct(t, db)
	userID := uuid.New()

	first := &models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  1,
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: product.ID,
		VariantID: &variant.ID,
		Quantity:  2,
	}
	require.NoError(t, repo.Create(ctx, second))

	// A different user's line must not leak in.
	other := &models.CartItem{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ProductID: product.ID,
		Quantity:  9,
	}
	require.NoError(t, repo.Create(ctx, other))

	items, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	for _, item := range items {
		require.NotNil(t, item.Product)
		assert.Equal(t, product.Name, item.Product.Name)
		if item.VariantID != nil {
			require.NotNil(t, item.Variant)
			assert.Equal(t, variant.Name, item.Variant.Name)
		}
	}
}

func TestRepositoryUpdateQuantity(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product, _ := seedCartProduct(t, db)
	userID := uuid.New()

	item := &models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  1,
	}
	require.NoError(t, repo.Create(ctx, item))
	require.NoError(t, repo.UpdateQuantity(ctx, item.ID, 7))

	items, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)
}

func TestRepositoryDeleteAndDeleteByUser(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product, variant := seedCartProduct(t, db)
	userID := uuid.New()

	first := &models.CartItem{ID: uuid.New(), UserID: userID, ProductID: product.ID, Quantity: 1}
	second := &models.CartItem{ID: uuid.New(), UserID: userID, ProductID: product.ID, VariantID: &variant.ID, Quantity: 2}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.Delete(ctx, first.ID))

	items, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, second.ID, items[0].ID)

	require.NoError(t, repo.DeleteByUser(ctx, userID))
	items, err = repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Clearing an empty cart succeeds.
	require.NoError(t, repo.DeleteByUser(ctx, userID))
}
