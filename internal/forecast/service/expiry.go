package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pharmalink/pharmalink-backend/internal/forecast/repository"
	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/config"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Recommended actions for an at-risk batch, by urgency
const (
	ActionLiquidate      = "Liquidate"
	ActionDiscountWindow = "Discount Window"
	ActionTransferBranch = "Transfer to Branch"
)

// ExpiryRiskItem is one batch projected to expire before it sells through
type ExpiryRiskItem struct {
	BatchID       string          `json:"batch_id"`
	BatchNumber   string          `json:"batch_number"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	DaysToExpiry  int             `json:"days_to_expiry"`
	DaysToSell    int             `json:"days_to_sell"`
	EstimatedLoss decimal.Decimal `json:"estimated_loss"`
	Action        string          `json:"action"`
}

// HeatmapBucket aggregates at-risk value for one expiry month
type HeatmapBucket struct {
	Month       string          `json:"month"`
	BatchCount  int             `json:"batch_count"`
	UnitsAtRisk int             `json:"units_at_risk"`
	ValueAtRisk decimal.Decimal `json:"value_at_risk"`
}

// ExpiryRiskReport is the full expiry-risk output for a tenant
type ExpiryRiskReport struct {
	Items   []*ExpiryRiskItem `json:"items"`
	Heatmap []*HeatmapBucket  `json:"heatmap"`
}

// ExpiryService flags stock that will expire before current sales velocity
// can move it.
type ExpiryService struct {
	productRepo *invrepo.ProductRepository
	batchRepo   *invrepo.BatchRepository
	salesRepo   *repository.SalesRepository
	policy      config.ForecastPolicy
	logger      *logger.Logger
}

// NewExpiryService creates a new expiry-risk service
func NewExpiryService(
	productRepo *invrepo.ProductRepository,
	batchRepo *invrepo.BatchRepository,
	salesRepo *repository.SalesRepository,
	policy config.ForecastPolicy,
	log *logger.Logger,
) *ExpiryService {
	return &ExpiryService{
		productRepo: productRepo,
		batchRepo:   batchRepo,
		salesRepo:   salesRepo,
		policy:      policy,
		logger:      log,
	}
}

// Report computes the at-risk batches within the configured horizon, sorted
// by estimated loss descending, plus a by-month heatmap of at-risk value.
func (s *ExpiryService) Report(ctx context.Context, tenantID string) (*ExpiryRiskReport, error) {
	batches, err := s.batchRepo.GetExpiringBatches(ctx, tenantID, s.policy.ExpiryHorizonDays)
	if err != nil {
		return nil, err
	}

	sales, err := s.salesRepo.UnitsSoldByProduct(ctx, tenantID, s.policy.SalesWindowDays)
	if err != nil {
		return nil, err
	}

	productNames := map[string]string{}
	now := time.Now().UTC()
	items := make([]*ExpiryRiskItem, 0, len(batches))
	for _, batch := range batches {
		velocity := 0.0
		if s.policy.SalesWindowDays > 0 {
			velocity = float64(sales[batch.ProductID]) / float64(s.policy.SalesWindowDays)
		}

		item := assessBatch(batch, velocity, s.policy.ZeroVelocitySentinel, now)
		if item == nil {
			continue
		}

		name, ok := productNames[batch.ProductID]
		if !ok {
			product, err := s.productRepo.GetByID(ctx, tenantID, batch.ProductID)
			if err != nil {
				return nil, err
			}
			name = product.Name
			productNames[batch.ProductID] = name
		}
		item.ProductName = name
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].EstimatedLoss.GreaterThan(items[j].EstimatedLoss)
	})

	s.logger.Debug().
		Str("tenant_id", tenantID).
		Int("batches_scanned", len(batches)).
		Int("at_risk", len(items)).
		Msg("expiry risk computed")

	return &ExpiryRiskReport{
		Items:   items,
		Heatmap: buildHeatmap(items),
	}, nil
}

// assessBatch decides whether a single batch is at risk. A batch is at risk
// when, at current velocity, it cannot sell through before its expiry date.
// Returns nil for batches projected to sell out in time.
func assessBatch(batch *invrepo.Batch, velocity float64, zeroVelocitySentinel int, now time.Time) *ExpiryRiskItem {
	daysToExpiry := int(batch.ExpiryDate.Sub(now).Hours() / 24)
	if daysToExpiry < 0 {
		daysToExpiry = 0
	}

	// Round up: a batch needing 3.3 days to sell is not gone after day 3.
	daysToSell := zeroVelocitySentinel
	if velocity > 0 {
		daysToSell = int(math.Ceil(float64(batch.Quantity) / velocity))
	}

	if daysToSell <= daysToExpiry {
		return nil
	}

	return &ExpiryRiskItem{
		BatchID:       batch.ID,
		BatchNumber:   batch.BatchNumber,
		ProductID:     batch.ProductID,
		Quantity:      batch.Quantity,
		ExpiryDate:    batch.ExpiryDate,
		DaysToExpiry:  daysToExpiry,
		DaysToSell:    daysToSell,
		EstimatedLoss: batch.PurchaseRate.Mul(decimal.NewFromInt(int64(batch.Quantity))),
		Action:        recommendedAction(daysToExpiry),
	}
}

// recommendedAction escalates with proximity to expiry
func recommendedAction(daysToExpiry int) string {
	switch {
	case daysToExpiry < 30:
		return ActionLiquidate
	case daysToExpiry < 60:
		return ActionDiscountWindow
	default:
		return ActionTransferBranch
	}
}

// buildHeatmap buckets at-risk value by expiry month, chronological order
func buildHeatmap(items []*ExpiryRiskItem) []*HeatmapBucket {
	byMonth := map[string]*HeatmapBucket{}
	for _, item := range items {
		key := item.ExpiryDate.Format("2006-01")
		bucket, ok := byMonth[key]
		if !ok {
			bucket = &HeatmapBucket{Month: key, ValueAtRisk: decimal.Zero}
			byMonth[key] = bucket
		}
		bucket.BatchCount++
		bucket.UnitsAtRisk += item.Quantity
		bucket.ValueAtRisk = bucket.ValueAtRisk.Add(item.EstimatedLoss)
	}

	buckets := make([]*HeatmapBucket, 0, len(byMonth))
	for _, bucket := range byMonth {
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month < buckets[j].Month
	})
	return buckets
}
