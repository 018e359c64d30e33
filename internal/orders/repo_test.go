package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/pkg/db/models"
	"github.com/acctbay/storefront-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	stmt := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  item_count INTEGER NOT NULL,
  total_price NUMERIC NOT NULL,
  items TEXT,
  checkout_ref TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(stmt).Error)

	t.Cleanup(func() {
		db.Exec("DROP TABLE IF EXISTS orders")
	})

	return db
}

func makeOrder(userID uuid.UUID, items ...models.OrderItemSnapshot) *models.Order {
	count := 0
	total := decimal.Zero
	for _, item := range items {
		count += item.Quantity
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return &models.Order{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     enums.OrderStatusPending,
		ItemCount:  count,
		TotalPrice: total,
		Items:      items,
	}
}

func TestRepositoryCreateAndFindRoundTripsItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	productID := uuid.New()
	variantID := uuid.New()
	sellAuthVariant := int64(99)
	order := makeOrder(uuid.New(), models.OrderItemSnapshot{
		ProductID:         productID,
		VariantID:         &variantID,
		Name:              "Premium Account - 1 Month",
		Quantity:          2,
		UnitPrice:         decimal.NewFromInt(15),
		SellAuthProductID: 42,
		SellAuthVariantID: &sellAuthVariant,
	})
	require.NoError(t, repo.Create(ctx, order))

	found, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, productID, found.Items[0].ProductID)
	require.NotNil(t, found.Items[0].VariantID)
	assert.Equal(t, variantID, *found.Items[0].VariantID)
	assert.EqualValues(t, 42, found.Items[0].SellAuthProductID)
	assert.True(t, found.TotalPrice.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, enums.OrderStatusPending, found.Status)
}

func TestRepositoryListByUserNewestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	older := makeOrder(userID)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := makeOrder(userID)
	newer.CreatedAt = time.Now()
	foreign := makeOrder(uuid.New())

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, foreign))

	rows, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := makeOrder(uuid.New())
	require.NoError(t, repo.Create(ctx, order))
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted))

	found, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, found.Status)
}

func TestRepositoryHasPurchase(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	purchased := uuid.New()
	order := makeOrder(userID, models.OrderItemSnapshot{
		ProductID: purchased,
		Name:      "Premium Account",
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(10),
	})
	require.NoError(t, repo.Create(ctx, order))

	ok, err := repo.HasPurchase(ctx, userID, purchased)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasPurchase(ctx, userID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.HasPurchase(ctx, uuid.New(), purchased)
	require.NoError(t, err)
	assert.False(t, ok)
}
