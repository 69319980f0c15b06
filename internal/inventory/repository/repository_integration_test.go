package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/pharmalink/pharmalink-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func createProduct(t *testing.T, ctx context.Context, tenantID string, opts ...func(*repository.Product)) *repository.Product {
	t.Helper()
	repo := repository.NewProductRepository(suite.DB)
	product := suite.Fixtures.Product(tenantID, opts...)
	require.NoError(t, repo.Create(ctx, product))
	return product
}

func TestProductRepository_CreateSetsNameKey(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)

	product := createProduct(t, ctx, tenant, func(p *repository.Product) {
		p.Name = "Dolo  650"
	})

	repo := repository.NewProductRepository(suite.DB)
	found, err := repo.FindByNameKey(ctx, tenant, "dolo650")
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)
}

func TestProductRepository_SkuUniquePerTenant(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)
	otherTenant := suite.NewTenant(t)

	createProduct(t, ctx, tenant, func(p *repository.Product) { p.SKU = "SKU-1" })

	repo := repository.NewProductRepository(suite.DB)

	// Same SKU in the same tenant collides.
	dup := suite.Fixtures.Product(tenant, func(p *repository.Product) { p.SKU = "SKU-1" })
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	// Same SKU in another tenant is fine.
	other := suite.Fixtures.Product(otherTenant, func(p *repository.Product) { p.SKU = "SKU-1" })
	assert.NoError(t, repo.Create(ctx, other))
}

func TestProductRepository_EmptySkuNeverCollides(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)

	createProduct(t, ctx, tenant)
	createProduct(t, ctx, tenant)

	repo := repository.NewProductRepository(suite.DB)
	products, total, err := repo.List(ctx, tenant, 1, 50, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, products, 2)
}

func TestProductRepository_TenantIsolation(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)
	otherTenant := suite.NewTenant(t)

	product := createProduct(t, ctx, tenant)

	repo := repository.NewProductRepository(suite.DB)
	_, err := repo.GetByID(ctx, otherTenant, product.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestProductRepository_UpdateRenamesMatchingKey(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)

	product := createProduct(t, ctx, tenant, func(p *repository.Product) {
		p.Name = "Dolo 650"
	})

	repo := repository.NewProductRepository(suite.DB)
	product.Name = "Calpol  500"
	require.NoError(t, repo.Update(ctx, product))

	// The product now matches under the new name only.
	found, err := repo.FindByNameKey(ctx, tenant, "calpol500")
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)

	_, err = repo.FindByNameKey(ctx, tenant, "dolo650")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTrendRepository_GetByID(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)
	otherTenant := suite.NewTenant(t)

	trendRepo := repository.NewTrendRepository(suite.DB)
	trend := suite.Fixtures.Trend(tenant, 1.3, "Cold & Flu,Analgesic")
	require.NoError(t, trendRepo.Create(ctx, trend))

	found, err := trendRepo.GetByID(ctx, tenant, trend.ID)
	require.NoError(t, err)
	assert.Equal(t, trend.Name, found.Name)
	assert.Equal(t, []string{"Cold & Flu", "Analgesic"}, found.Categories())

	_, err = trendRepo.GetByID(ctx, otherTenant, trend.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestBatchRepository_ListForAllocation_ExpiryAscending(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)
	product := createProduct(t, ctx, tenant)

	batchRepo := repository.NewBatchRepository(suite.DB)
	now := time.Now().UTC()

	// Insert out of order; the late expiry first.
	for _, months := range []int{6, 1, 3} {
		batch := suite.Fixtures.Batch(tenant, product.ID, func(b *repository.Batch) {
			b.ExpiryDate = now.AddDate(0, months, 0)
		})
		require.NoError(t, batchRepo.Create(ctx, batch))
	}

	err := suite.DB.Transaction(ctx, func(txCtx context.Context) error {
		batches, err := batchRepo.ListForAllocation(txCtx, tenant, product.ID)
		require.NoError(t, err)
		require.Len(t, batches, 3)
		assert.True(t, batches[0].ExpiryDate.Before(batches[1].ExpiryDate))
		assert.True(t, batches[1].ExpiryDate.Before(batches[2].ExpiryDate))
		return nil
	})
	require.NoError(t, err)
}

func TestBatchRepository_QuantityCannotGoNegative(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)
	product := createProduct(t, ctx, tenant)

	batchRepo := repository.NewBatchRepository(suite.DB)
	batch := suite.Fixtures.Batch(tenant, product.ID)
	require.NoError(t, batchRepo.Create(ctx, batch))

	err := batchRepo.SetQuantity(ctx, tenant, batch.ID, -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestBatchRepository_GetTotalStock_IgnoresEmptyBatches(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)
	product := createProduct(t, ctx, tenant)

	batchRepo := repository.NewBatchRepository(suite.DB)
	full := suite.Fixtures.Batch(tenant, product.ID, func(b *repository.Batch) { b.Quantity = 40 })
	require.NoError(t, batchRepo.Create(ctx, full))
	empty := suite.Fixtures.Batch(tenant, product.ID, func(b *repository.Batch) { b.Quantity = 60 })
	require.NoError(t, batchRepo.Create(ctx, empty))
	require.NoError(t, batchRepo.SetQuantity(ctx, tenant, empty.ID, 0))

	stock, err := batchRepo.GetTotalStock(ctx, tenant, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, stock)
}

func TestBatchRepository_GetExpiringBatches(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)
	product := createProduct(t, ctx, tenant)

	batchRepo := repository.NewBatchRepository(suite.DB)
	now := time.Now().UTC()

	soon := suite.Fixtures.Batch(tenant, product.ID, func(b *repository.Batch) {
		b.ExpiryDate = now.AddDate(0, 0, 30)
	})
	require.NoError(t, batchRepo.Create(ctx, soon))
	far := suite.Fixtures.Batch(tenant, product.ID, func(b *repository.Batch) {
		b.ExpiryDate = now.AddDate(2, 0, 0)
	})
	require.NoError(t, batchRepo.Create(ctx, far))

	expiring, err := batchRepo.GetExpiringBatches(ctx, tenant, 180)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soon.ID, expiring[0].ID)
}

func TestTrendRepository_ArchiveRemovesFromActive(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	tenant := suite.NewTenant(t)

	trendRepo := repository.NewTrendRepository(suite.DB)
	trend := suite.Fixtures.Trend(tenant, 1.5, "Cold & Flu")
	require.NoError(t, trendRepo.Create(ctx, trend))

	active, err := trendRepo.ListActive(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, trendRepo.Archive(ctx, tenant, trend.ID))

	active, err = trendRepo.ListActive(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Still visible in the full listing.
	all, err := trendRepo.List(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
