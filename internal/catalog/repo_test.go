package catalog

import (
	"context"
	"testing"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	return db
}

func TestListActiveOrdersByPosition(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "spotify-1m", Name: "Spotify", PriceCents: 2500000, IsActive: true, Position: 2}))
	require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "netflix-1m", Name: "Netflix", PriceCents: 5000000, IsActive: true, Position: 1}))
	require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "retired", Name: "Old", PriceCents: 100, IsActive: false, Position: 0}))

	products, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "netflix-1m", products[0].ID)
	assert.Equal(t, "spotify-1m", products[1].ID)
}

func TestFindByIDIncludesInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "retired", Name: "Old", PriceCents: 100, IsActive: false}))

	product, err := repo.FindByID(ctx, "retired")
	require.NoError(t, err)
	assert.Equal(t, "Old", product.Name)
}

func TestFindByIDNotFound(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "netflix-1m", Name: "Netflix", PriceCents: 5000000, IsActive: true}))
	require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "netflix-1m", Name: "Netflix Premium", PriceCents: 6000000, IsActive: true}))

	product, err := repo.FindByID(ctx, "netflix-1m")
	require.NoError(t, err)
	assert.Equal(t, "Netflix Premium", product.Name)
	assert.Equal(t, int64(6000000), product.PriceCents)
}
