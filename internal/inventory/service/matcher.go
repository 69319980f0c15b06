package service

import (
	"context"

	"github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
)

// DefaultMinStockLevel is applied to products the matcher creates on the
// buyer side; the buyer tunes it later.
const DefaultMinStockLevel = 10

// MatcherService resolves an incoming order line (a product named by the
// seller) to a product in the buyer's ledger. Tenants never share product
// identities, so the match is by name: whitespace-stripped, case-insensitive,
// via an indexed normalized-key lookup rather than a dynamically built
// pattern. Spelling variants and synonyms are intentionally NOT matched.
type MatcherService struct {
	productRepo *repository.ProductRepository
	logger      *logger.Logger
}

// NewMatcherService creates a new matcher service
func NewMatcherService(productRepo *repository.ProductRepository, log *logger.Logger) *MatcherService {
	return &MatcherService{
		productRepo: productRepo,
		logger:      log,
	}
}

// ResolveOrCreate finds the buyer-side product for a line item name, or
// creates one copying descriptive attributes from the seller's source
// product. First match wins; names differing only by whitespace never
// produce duplicates.
func (s *MatcherService) ResolveOrCreate(ctx context.Context, buyerTenantID, lineItemName string, source *repository.Product) (*repository.Product, error) {
	nameKey := repository.NormalizeName(lineItemName)
	if nameKey == "" {
		return nil, errors.BadRequest("line item name must not be empty")
	}

	existing, err := s.productRepo.FindByNameKey(ctx, buyerTenantID, nameKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	product := &repository.Product{
		TenantID:      buyerTenantID,
		Name:          lineItemName,
		MinStockLevel: DefaultMinStockLevel,
		IsActive:      true,
	}
	if source != nil {
		product.Description = source.Description
		product.Category = source.Category
		product.Manufacturer = source.Manufacturer
		product.Unit = source.Unit
		product.GstRate = source.GstRate
		product.Seasonality = source.Seasonality
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tenant_id", buyerTenantID).
		Str("product_id", product.ID).
		Str("name", lineItemName).
		Msg("created buyer-side product for transferred line item")

	return product, nil
}
