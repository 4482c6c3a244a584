package catalog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/food-orders/internal/catalog"
	"github.com/fjod/food-orders/internal/domain"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	repo, err := catalog.NewRepository(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations("./migrations"))
	return repo
}

func TestListCategories_SeededMenu(t *testing.T) {
	repo := setupTestDB(t)

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Pizza", categories[0].Name)
}

func TestListItemsByCategory(t *testing.T) {
	repo := setupTestDB(t)

	items, err := repo.ListItemsByCategory(context.Background(), "Burgers")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Classic Burger", items[0].Name)
	assert.Equal(t, "Burgers", items[0].CategoryName)
	assert.Equal(t, "5.00", items[0].Price.StringFixed(2))
	assert.True(t, items[0].Available)
	assert.False(t, items[1].Available)
}

func TestListItemsByCategory_UnknownCategory(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.ListItemsByCategory(context.Background(), "Sushi")
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetItem(t *testing.T) {
	repo := setupTestDB(t)

	item, err := repo.GetItem(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Lemonade", item.Name)
	assert.Equal(t, "3.50", item.Price.StringFixed(2))

	_, err = repo.GetItem(context.Background(), 999)
	assert.ErrorIs(t, err, catalog.ErrItemNotFound)
}

func TestProduct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	p, err := repo.Product(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "Margherita", p.Name)
	assert.Equal(t, "8.50", p.Price.StringFixed(2))

	var ve *domain.ValidationError
	_, err = repo.Product(ctx, "4")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "product_id", ve.Field)

	_, err = repo.Product(ctx, "abc")
	require.ErrorAs(t, err, &ve)

	_, err = repo.Product(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCategories_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListCategories(ctx)
	assert.ErrorContains(t, err, "failed to query categories")
}
