package service

import (
	"context"
	"time"

	"github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
)

// LedgerService is the durable record of products and expiry-dated batches
// per tenant. All stock mutation goes through the allocator or the transfer
// coordinator; the ledger itself performs no implicit writes.
type LedgerService struct {
	productRepo *repository.ProductRepository
	batchRepo   *repository.BatchRepository
	trendRepo   *repository.TrendRepository
	logger      *logger.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	productRepo *repository.ProductRepository,
	batchRepo *repository.BatchRepository,
	trendRepo *repository.TrendRepository,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		productRepo: productRepo,
		batchRepo:   batchRepo,
		trendRepo:   trendRepo,
		logger:      log,
	}
}

// ProductWithStock is a product enriched with its batches and stock status
type ProductWithStock struct {
	*repository.Product
	Batches       []*repository.Batch `json:"batches,omitempty"`
	TotalStock    int                 `json:"total_stock"`
	Status        string              `json:"status"`
	NearestExpiry *time.Time          `json:"nearest_expiry,omitempty"`
}

// CreateProduct creates a new product in the tenant's ledger
func (s *LedgerService) CreateProduct(ctx context.Context, product *repository.Product) error {
	product.IsActive = true
	return s.productRepo.Create(ctx, product)
}

// UpdateProduct rewrites a product's attributes. The matching key is
// recomputed from the new name, so a renamed product matches counterparts
// under its new name only.
func (s *LedgerService) UpdateProduct(ctx context.Context, product *repository.Product) (*repository.Product, error) {
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return s.productRepo.GetByID(ctx, product.TenantID, product.ID)
}

// GetProduct gets a product with its batches and total stock
func (s *LedgerService) GetProduct(ctx context.Context, tenantID, productID string) (*ProductWithStock, error) {
	product, err := s.productRepo.GetByID(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	batches, err := s.batchRepo.ListByProduct(ctx, tenantID, productID, false)
	if err != nil {
		return nil, err
	}

	return s.enrich(product, batches), nil
}

// ListProducts lists the tenant's products with stock annotations
func (s *LedgerService) ListProducts(ctx context.Context, tenantID string, page, perPage int, category string) ([]*ProductWithStock, int64, error) {
	products, total, err := s.productRepo.List(ctx, tenantID, page, perPage, category)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*ProductWithStock, len(products))
	for i, product := range products {
		batches, err := s.batchRepo.ListByProduct(ctx, tenantID, product.ID, true)
		if err != nil {
			return nil, 0, err
		}
		result[i] = s.enrich(product, batches)
	}

	return result, total, nil
}

// CreateBatch records a new lot of stock for a product. The product must
// exist in the same tenant's ledger.
func (s *LedgerService) CreateBatch(ctx context.Context, batch *repository.Batch) error {
	if _, err := s.productRepo.GetByID(ctx, batch.TenantID, batch.ProductID); err != nil {
		return err
	}
	return s.batchRepo.Create(ctx, batch)
}

// BatchesFor lists a product's batches sorted by expiry date ascending
func (s *LedgerService) BatchesFor(ctx context.Context, tenantID, productID string, onlyPositive bool) ([]*repository.Batch, error) {
	if _, err := s.productRepo.GetByID(ctx, tenantID, productID); err != nil {
		return nil, err
	}
	return s.batchRepo.ListByProduct(ctx, tenantID, productID, onlyPositive)
}

// TotalStock sums remaining quantity across a product's batches
func (s *LedgerService) TotalStock(ctx context.Context, tenantID, productID string) (int, error) {
	if _, err := s.productRepo.GetByID(ctx, tenantID, productID); err != nil {
		return 0, err
	}
	return s.batchRepo.GetTotalStock(ctx, tenantID, productID)
}

// CreateTrend records a demand-boost rule for the tenant
func (s *LedgerService) CreateTrend(ctx context.Context, trend *repository.Trend) error {
	trend.IsActive = true
	return s.trendRepo.Create(ctx, trend)
}

// GetTrend gets a single trend within the tenant
func (s *LedgerService) GetTrend(ctx context.Context, tenantID, trendID string) (*repository.Trend, error) {
	return s.trendRepo.GetByID(ctx, tenantID, trendID)
}

// ListTrends lists the tenant's trends, newest first
func (s *LedgerService) ListTrends(ctx context.Context, tenantID string) ([]*repository.Trend, error) {
	return s.trendRepo.List(ctx, tenantID)
}

// ArchiveTrend deactivates a trend so the demand engine stops applying it
func (s *LedgerService) ArchiveTrend(ctx context.Context, tenantID, trendID string) error {
	return s.trendRepo.Archive(ctx, tenantID, trendID)
}

func (s *LedgerService) enrich(product *repository.Product, batches []*repository.Batch) *ProductWithStock {
	result := &ProductWithStock{
		Product: product,
		Batches: batches,
	}

	var nearestExpiry *time.Time
	for _, b := range batches {
		result.TotalStock += b.Quantity
		if b.Quantity > 0 {
			if nearestExpiry == nil || b.ExpiryDate.Before(*nearestExpiry) {
				expiry := b.ExpiryDate
				nearestExpiry = &expiry
			}
		}
	}
	result.NearestExpiry = nearestExpiry

	switch {
	case result.TotalStock == 0:
		result.Status = "Out of Stock"
	case result.TotalStock < product.MinStockLevel/2:
		result.Status = "Critical"
	case result.TotalStock < product.MinStockLevel:
		result.Status = "Low Stock"
	default:
		result.Status = "In Stock"
	}

	return result
}
