package service

import (
	"testing"
	"time"

	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sentinel = 9999

func testBatch(quantity, daysToExpiry int, purchaseRate int64, now time.Time) *invrepo.Batch {
	return &invrepo.Batch{
		ID:           "batch-1",
		ProductID:    "prod-1",
		BatchNumber:  "BT-0001",
		Quantity:     quantity,
		ExpiryDate:   now.AddDate(0, 0, daysToExpiry),
		PurchaseRate: decimal.NewFromInt(purchaseRate),
	}
}

func TestAssessBatch_ZeroVelocityAlwaysAtRisk(t *testing.T) {
	now := time.Now().UTC()

	item := assessBatch(testBatch(50, 90, 35, now), 0, sentinel, now)

	require.NotNil(t, item)
	assert.Equal(t, sentinel, item.DaysToSell)
	assert.Equal(t, 90, item.DaysToExpiry)
}

func TestAssessBatch_FastMoverNotAtRisk(t *testing.T) {
	now := time.Now().UTC()

	// 50 units at 2/day sell in 25 days, expiry is 90 days out.
	item := assessBatch(testBatch(50, 90, 35, now), 2, sentinel, now)

	assert.Nil(t, item)
}

func TestAssessBatch_SlowMoverAtRisk(t *testing.T) {
	now := time.Now().UTC()

	// 100 units at 0.5/day need 200 days, expiry is 90 days out.
	item := assessBatch(testBatch(100, 90, 35, now), 0.5, sentinel, now)

	require.NotNil(t, item)
	assert.Equal(t, 200, item.DaysToSell)
	assert.True(t, item.EstimatedLoss.Equal(decimal.NewFromInt(3500)))
}

func TestAssessBatch_FractionalSellThroughRoundsUp(t *testing.T) {
	now := time.Now().UTC()

	// 10 units at 3/day need 3.33 days; expiry in 3 days cannot absorb that.
	item := assessBatch(testBatch(10, 3, 35, now), 3, sentinel, now)

	require.NotNil(t, item)
	assert.Equal(t, 4, item.DaysToSell)
}

func TestAssessBatch_PastExpiryClampedToZero(t *testing.T) {
	now := time.Now().UTC()

	item := assessBatch(testBatch(10, -5, 35, now), 0, sentinel, now)

	require.NotNil(t, item)
	assert.Equal(t, 0, item.DaysToExpiry)
	assert.Equal(t, ActionLiquidate, item.Action)
}

func TestRecommendedAction(t *testing.T) {
	tests := []struct {
		daysToExpiry int
		want         string
	}{
		{0, ActionLiquidate},
		{29, ActionLiquidate},
		{30, ActionDiscountWindow},
		{59, ActionDiscountWindow},
		{60, ActionTransferBranch},
		{179, ActionTransferBranch},
	}

	for _, tt := range tests {
		if got := recommendedAction(tt.daysToExpiry); got != tt.want {
			t.Errorf("recommendedAction(%d) = %s, want %s", tt.daysToExpiry, got, tt.want)
		}
	}
}

func TestBuildHeatmap_BucketsByExpiryMonth(t *testing.T) {
	items := []*ExpiryRiskItem{
		{ExpiryDate: time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), Quantity: 10, EstimatedLoss: decimal.NewFromInt(350)},
		{ExpiryDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), Quantity: 5, EstimatedLoss: decimal.NewFromInt(150)},
		{ExpiryDate: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), Quantity: 8, EstimatedLoss: decimal.NewFromInt(400)},
	}

	buckets := buildHeatmap(items)

	require.Len(t, buckets, 2)
	assert.Equal(t, "2026-10", buckets[0].Month)
	assert.Equal(t, 2, buckets[0].BatchCount)
	assert.Equal(t, 15, buckets[0].UnitsAtRisk)
	assert.True(t, buckets[0].ValueAtRisk.Equal(decimal.NewFromInt(500)))

	assert.Equal(t, "2026-12", buckets[1].Month)
	assert.Equal(t, 1, buckets[1].BatchCount)
}

func TestBuildHeatmap_Empty(t *testing.T) {
	assert.Empty(t, buildHeatmap(nil))
}
