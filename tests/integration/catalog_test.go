package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navyaJuicesAPI/services"
	"navyaJuicesAPI/tests/helpers"
)

func TestStorefrontAndProductLookup(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	catalogService := services.NewCatalogService(pool)
	productID := helpers.SeedProduct(t, pool, "Test Green Detox", 24900)

	ctx := context.Background()

	storefront, err := catalogService.GetStorefront(ctx)
	require.NoError(t, err)

	var found bool
	var slug string
	for _, p := range storefront.Products {
		if p.ID == productID {
			found = true
			slug = p.Slug
		}
	}
	require.True(t, found, "seeded product should appear in the storefront")

	p, err := catalogService.GetProductBySlug(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, productID, p.ID)
	assert.Equal(t, 24900, p.PriceCents)
	assert.NotNil(t, p.Benefits)

	_, err = catalogService.GetProductBySlug(ctx, "no-such-slug")
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestHiddenProductsStayHidden(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	catalogService := services.NewCatalogService(pool)
	productID := helpers.SeedProduct(t, pool, "Test Seasonal Special", 17900)

	ctx := context.Background()
	_, err := pool.Exec(ctx, `UPDATE products SET is_active = false WHERE id = $1`, productID)
	require.NoError(t, err)

	p, err := catalogService.GetProduct(ctx, productID)
	require.NoError(t, err)

	_, err = catalogService.GetProductBySlug(ctx, p.Slug)
	assert.ErrorIs(t, err, services.ErrProductNotFound, "inactive products are invisible on the storefront")

	storefront, err := catalogService.GetStorefront(ctx)
	require.NoError(t, err)
	for _, sp := range storefront.Products {
		assert.NotEqual(t, productID, sp.ID)
	}
}
