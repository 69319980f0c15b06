package service

import (
	"context"
	"fmt"
	"time"

	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	invservice "github.com/pharmalink/pharmalink-backend/internal/inventory/service"
	"github.com/pharmalink/pharmalink-backend/internal/order/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/config"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// TransferService moves stock from the seller's ledger into the buyer's when
// a delivery is confirmed. For each line item it deducts the seller's
// batches FIFO, resolves or creates the matching buyer product, and records
// a new buyer batch.
//
// Execute must run inside the delivery transition's transaction: all line
// items commit together or not at all. Insufficient stock discovered on any
// line rolls back every allocation and batch creation already performed.
type TransferService struct {
	allocator *invservice.AllocatorService
	matcher   *invservice.MatcherService
	prodRepo  *invrepo.ProductRepository
	batchRepo *invrepo.BatchRepository
	policy    config.TransferPolicy
	logger    *logger.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(
	allocator *invservice.AllocatorService,
	matcher *invservice.MatcherService,
	prodRepo *invrepo.ProductRepository,
	batchRepo *invrepo.BatchRepository,
	policy config.TransferPolicy,
	log *logger.Logger,
) *TransferService {
	return &TransferService{
		allocator: allocator,
		matcher:   matcher,
		prodRepo:  prodRepo,
		batchRepo: batchRepo,
		policy:    policy,
		logger:    log,
	}
}

// Execute performs the physical stock move for every line item of the order,
// within the ambient transaction. It returns the total units moved; the
// caller announces the transfer only after its transaction commits.
func (s *TransferService) Execute(ctx context.Context, order *repository.Order) (int, error) {
	if len(order.Items) == 0 {
		return 0, errors.BadRequest("order has no line items to transfer")
	}

	totalUnits := 0
	for i, item := range order.Items {
		// Seller side: FIFO deduction from the soonest-expiring batches.
		if _, err := s.allocator.Allocate(ctx, order.DistributorID, item.ProductID, item.Quantity); err != nil {
			return 0, err
		}

		// Buyer side: resolve the product by name; the seller's catalog
		// seeds descriptive attributes when a new product is created.
		source, err := s.prodRepo.GetByID(ctx, order.DistributorID, item.ProductID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return 0, err
		}

		buyerProduct, err := s.matcher.ResolveOrCreate(ctx, order.PharmacyID, item.Name, source)
		if err != nil {
			return 0, err
		}

		sellerID := order.DistributorID
		batch := &invrepo.Batch{
			TenantID:     order.PharmacyID,
			ProductID:    buyerProduct.ID,
			BatchNumber:  transferBatchNumber(order.ID, i+1),
			ExpiryDate:   time.Now().UTC().AddDate(0, s.policy.DefaultExpiryMonths, 0),
			Quantity:     item.Quantity,
			MRP:          item.UnitPrice.Mul(decimal.NewFromFloat(s.policy.DefaultMarkup)),
			PurchaseRate: item.UnitPrice,
			SupplierID:   &sellerID,
		}
		if err := s.batchRepo.Create(ctx, batch); err != nil {
			return 0, err
		}

		totalUnits += item.Quantity
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("seller_id", order.DistributorID).
		Str("buyer_id", order.PharmacyID).
		Int("line_items", len(order.Items)).
		Int("total_units", totalUnits).
		Msg("stock transferred between tenants")

	return totalUnits, nil
}

// transferBatchNumber synthesizes a buyer-side batch number for a transferred
// line. The original seller batch numbers are not propagated with the order.
func transferBatchNumber(orderID string, line int) string {
	prefix := orderID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("TRF-%s-%d", prefix, line)
}
