package service

import (
	"context"

	"github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
)

// Allocation records how much was taken from one batch
type Allocation struct {
	BatchID       string `json:"batch_id"`
	BatchNumber   string `json:"batch_number"`
	QuantityTaken int    `json:"quantity_taken"`
}

// AllocatorService deducts stock FIFO by expiry: the soonest-expiring batch
// is drained first, minimizing future write-off risk. It must be called
// inside the caller's transaction scope; on InsufficientStock the caller's
// transaction rolls back and no batch is left partially deducted.
type AllocatorService struct {
	batchRepo *repository.BatchRepository
	logger    *logger.Logger
}

// NewAllocatorService creates a new allocator service
func NewAllocatorService(batchRepo *repository.BatchRepository, log *logger.Logger) *AllocatorService {
	return &AllocatorService{
		batchRepo: batchRepo,
		logger:    log,
	}
}

// Allocate deducts quantityNeeded units of the product from the tenant's
// batches. Batch rows are locked for the ambient transaction, the total is
// validated before any mutation, then each batch quantity is decremented and
// persisted individually.
func (s *AllocatorService) Allocate(ctx context.Context, tenantID, productID string, quantityNeeded int) ([]Allocation, error) {
	if quantityNeeded <= 0 {
		return nil, errors.BadRequest("allocation quantity must be positive")
	}

	batches, err := s.batchRepo.ListForAllocation(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	plan, err := planAllocation(batches, productID, quantityNeeded)
	if err != nil {
		return nil, err
	}

	for _, step := range plan {
		if err := s.batchRepo.SetQuantity(ctx, tenantID, step.BatchID, step.remaining); err != nil {
			return nil, err
		}
	}

	allocations := make([]Allocation, len(plan))
	for i, step := range plan {
		allocations[i] = step.Allocation
	}

	s.logger.Debug().
		Str("tenant_id", tenantID).
		Str("product_id", productID).
		Int("quantity", quantityNeeded).
		Int("batches_touched", len(allocations)).
		Msg("stock allocated")

	return allocations, nil
}

type allocationStep struct {
	Allocation
	// remaining is the batch quantity after the deduction
	remaining int
}

// planAllocation walks the expiry-ascending batch sequence and decides how
// much to take from each. Total availability is checked up front so a short
// allocation never starts mutating batches.
func planAllocation(batches []*repository.Batch, productID string, quantityNeeded int) ([]allocationStep, error) {
	available := 0
	for _, b := range batches {
		available += b.Quantity
	}
	if available < quantityNeeded {
		return nil, errors.InsufficientStock(productID, quantityNeeded, available)
	}

	remaining := quantityNeeded
	var plan []allocationStep
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		plan = append(plan, allocationStep{
			Allocation: Allocation{
				BatchID:       b.ID,
				BatchNumber:   b.BatchNumber,
				QuantityTaken: take,
			},
			remaining: b.Quantity - take,
		})
		remaining -= take
	}

	return plan, nil
}
