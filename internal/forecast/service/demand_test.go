package service

import (
	"testing"
	"time"

	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/stretchr/testify/assert"
)

var (
	april   = time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)
	august  = time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	january = time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
)

func testProduct(seasonality, category string) *invrepo.Product {
	return &invrepo.Product{
		ID:          "prod-1",
		Name:        "Test Product",
		Category:    category,
		Seasonality: seasonality,
	}
}

func TestComputeDemand_BaselineNoBoost(t *testing.T) {
	// 90 units over 90 days = 1/day, next 30 days = 30 units.
	f := computeDemand(testProduct(invrepo.SeasonAllYear, "General"), 90, 90, 10, nil, january)

	assert.InDelta(t, 1.0, f.AvgDailySales, 1e-9)
	assert.Equal(t, 1.0, f.Boost)
	assert.Equal(t, 30, f.PredictedDemand)
	assert.Equal(t, 20, f.ReorderQty)
	assert.True(t, f.Reorder)
	assert.Empty(t, f.Reasons)
}

func TestComputeDemand_NoSales(t *testing.T) {
	f := computeDemand(testProduct(invrepo.SeasonAllYear, "General"), 0, 90, 5, nil, january)

	assert.Equal(t, 0, f.PredictedDemand)
	assert.Equal(t, 0, f.ReorderQty)
}

func TestComputeDemand_SeasonBoost(t *testing.T) {
	tests := []struct {
		name        string
		seasonality string
		now         time.Time
		wantBoost   float64
	}{
		{"summer product in April", invrepo.SeasonSummer, april, 1.2},
		{"summer product in August", invrepo.SeasonSummer, august, 1.0},
		{"monsoon product in August", invrepo.SeasonMonsoon, august, 1.2},
		{"winter product in January", invrepo.SeasonWinter, january, 1.2},
		{"all-year product never boosted", invrepo.SeasonAllYear, april, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := computeDemand(testProduct(tt.seasonality, "General"), 90, 90, 0, nil, tt.now)
			assert.InDelta(t, tt.wantBoost, f.Boost, 1e-9)
		})
	}
}

func TestComputeDemand_TrendBoost(t *testing.T) {
	trends := []*invrepo.Trend{
		{Name: "Flu outbreak", AffectedCategories: "Cold & Flu,Immunity", BoostFactor: 1.5, IsActive: true},
		{Name: "Unrelated", AffectedCategories: "Dermatology", BoostFactor: 2.0, IsActive: true},
	}

	f := computeDemand(testProduct(invrepo.SeasonAllYear, "Cold & Flu"), 90, 90, 0, trends, january)

	// Only the matching trend applies: 1.0 + (1.5 - 1.0).
	assert.InDelta(t, 1.5, f.Boost, 1e-9)
	assert.Equal(t, 45, f.PredictedDemand)
	assert.Len(t, f.Reasons, 1)
	assert.Contains(t, f.Reasons[0], "Flu outbreak")
}

func TestComputeDemand_SeasonAndTrendStack(t *testing.T) {
	trends := []*invrepo.Trend{
		{Name: "Flu outbreak", AffectedCategories: "Cold & Flu", BoostFactor: 1.5, IsActive: true},
	}

	f := computeDemand(testProduct(invrepo.SeasonWinter, "Cold & Flu"), 90, 90, 0, trends, january)

	// Additive stacking: 1.0 + 0.2 + 0.5.
	assert.InDelta(t, 1.7, f.Boost, 1e-9)
	assert.Equal(t, 51, f.PredictedDemand)
	assert.Len(t, f.Reasons, 2)
}

func TestComputeDemand_ReorderMonotoneInStock(t *testing.T) {
	prev := int(^uint(0) >> 1)
	for stock := 0; stock <= 60; stock += 10 {
		f := computeDemand(testProduct(invrepo.SeasonAllYear, "General"), 90, 90, stock, nil, january)
		assert.LessOrEqual(t, f.ReorderQty, prev, "stock %d", stock)
		prev = f.ReorderQty
	}
}

func TestComputeDemand_StockCoversDemand(t *testing.T) {
	f := computeDemand(testProduct(invrepo.SeasonAllYear, "General"), 90, 90, 100, nil, january)

	assert.Equal(t, 30, f.PredictedDemand)
	assert.Equal(t, 0, f.ReorderQty)
	assert.False(t, f.Reorder)

	// Moving stock stays in the report even when nothing needs reordering.
	assert.True(t, worthReporting(f))
}

func TestWorthReporting_OmitsOnlyDeadStock(t *testing.T) {
	dead := computeDemand(testProduct(invrepo.SeasonAllYear, "General"), 0, 90, 50, nil, january)
	assert.False(t, worthReporting(dead))

	selling := computeDemand(testProduct(invrepo.SeasonAllYear, "General"), 90, 90, 100, nil, january)
	assert.True(t, worthReporting(selling))
	assert.False(t, selling.Reorder)

	short := computeDemand(testProduct(invrepo.SeasonAllYear, "General"), 90, 90, 10, nil, january)
	assert.True(t, worthReporting(short))
	assert.True(t, short.Reorder)
}

func TestCurrentSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, invrepo.SeasonWinter},
		{time.February, invrepo.SeasonWinter},
		{time.March, invrepo.SeasonSummer},
		{time.June, invrepo.SeasonSummer},
		{time.July, invrepo.SeasonMonsoon},
		{time.October, invrepo.SeasonMonsoon},
		{time.November, invrepo.SeasonWinter},
		{time.December, invrepo.SeasonWinter},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			now := time.Date(2026, tt.month, 10, 0, 0, 0, 0, time.UTC)
			if got := currentSeason(now); got != tt.want {
				t.Errorf("currentSeason(%s) = %s, want %s", tt.month, got, tt.want)
			}
		})
	}
}
