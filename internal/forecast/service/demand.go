package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pharmalink/pharmalink-backend/internal/forecast/repository"
	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/config"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
)

// DemandForecast is one product's demand projection. Only products with zero
// predicted demand AND nothing to reorder are omitted from the output; a
// well-stocked seller still sees what is moving.
type DemandForecast struct {
	ProductID       string   `json:"product_id"`
	ProductName     string   `json:"product_name"`
	Category        string   `json:"category"`
	AvgDailySales   float64  `json:"avg_daily_sales"`
	Boost           float64  `json:"boost"`
	PredictedDemand int      `json:"predicted_demand"`
	CurrentStock    int      `json:"current_stock"`
	ReorderQty      int      `json:"reorder_qty"`
	Reorder         bool     `json:"reorder"`
	Reasons         []string `json:"reasons"`
}

// DemandService predicts next-month demand per product from the tenant's
// recent sales, seasonality, and active market trends.
type DemandService struct {
	productRepo *invrepo.ProductRepository
	batchRepo   *invrepo.BatchRepository
	trendRepo   *invrepo.TrendRepository
	salesRepo   *repository.SalesRepository
	policy      config.ForecastPolicy
	logger      *logger.Logger
}

// NewDemandService creates a new demand forecast service
func NewDemandService(
	productRepo *invrepo.ProductRepository,
	batchRepo *invrepo.BatchRepository,
	trendRepo *invrepo.TrendRepository,
	salesRepo *repository.SalesRepository,
	policy config.ForecastPolicy,
	log *logger.Logger,
) *DemandService {
	return &DemandService{
		productRepo: productRepo,
		batchRepo:   batchRepo,
		trendRepo:   trendRepo,
		salesRepo:   salesRepo,
		policy:      policy,
		logger:      log,
	}
}

// Forecast computes reorder recommendations for every active product of the
// tenant, sorted by reorder quantity descending.
func (s *DemandService) Forecast(ctx context.Context, tenantID string) ([]*DemandForecast, error) {
	products, err := s.productRepo.GetAllActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	sales, err := s.salesRepo.UnitsSoldByProduct(ctx, tenantID, s.policy.SalesWindowDays)
	if err != nil {
		return nil, err
	}

	trends, err := s.trendRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	forecasts := make([]*DemandForecast, 0, len(products))
	for _, product := range products {
		stock, err := s.batchRepo.GetTotalStock(ctx, tenantID, product.ID)
		if err != nil {
			return nil, err
		}

		f := computeDemand(product, sales[product.ID], s.policy.SalesWindowDays, stock, trends, now)
		if worthReporting(f) {
			forecasts = append(forecasts, f)
		}
	}

	sort.Slice(forecasts, func(i, j int) bool {
		return forecasts[i].ReorderQty > forecasts[j].ReorderQty
	})

	s.logger.Debug().
		Str("tenant_id", tenantID).
		Int("products", len(products)).
		Int("recommendations", len(forecasts)).
		Msg("demand forecast computed")

	return forecasts, nil
}

// computeDemand projects one product's demand for the next 30 days.
//
// boost starts at 1.0, gains 0.2 when the product's seasonality matches the
// calendar season, and gains (factor - 1) for each active trend covering the
// product's category. Boosts therefore compound additively, never
// multiplicatively.
func computeDemand(product *invrepo.Product, unitsSold, windowDays, stock int, trends []*invrepo.Trend, now time.Time) *DemandForecast {
	avg := 0.0
	if windowDays > 0 {
		avg = float64(unitsSold) / float64(windowDays)
	}

	boost := 1.0
	reasons := []string{}

	if product.Seasonality != "" && product.Seasonality != invrepo.SeasonAllYear &&
		product.Seasonality == currentSeason(now) {
		boost += 0.2
		reasons = append(reasons, fmt.Sprintf("%s seasonal demand", product.Seasonality))
	}

	for _, trend := range trends {
		if !trend.Affects(product.Category) {
			continue
		}
		boost += trend.BoostFactor - 1.0
		reasons = append(reasons, fmt.Sprintf("trend: %s (%.1fx)", trend.Name, trend.BoostFactor))
	}

	predicted := int(math.Ceil(avg * 30 * boost))
	reorder := predicted - stock
	if reorder < 0 {
		reorder = 0
	}

	return &DemandForecast{
		ProductID:       product.ID,
		ProductName:     product.Name,
		Category:        product.Category,
		AvgDailySales:   avg,
		Boost:           boost,
		PredictedDemand: predicted,
		CurrentStock:    stock,
		ReorderQty:      reorder,
		Reorder:         stock < predicted,
		Reasons:         reasons,
	}
}

// worthReporting keeps every product with movement: predicted demand or an
// open reorder need. Dead stock with no sales drops out.
func worthReporting(f *DemandForecast) bool {
	return f.PredictedDemand > 0 || f.ReorderQty > 0
}

// currentSeason maps the calendar month onto the subcontinental seasons used
// by product seasonality. Mar-Jun Summer, Jul-Oct Monsoon, Nov-Feb Winter.
func currentSeason(now time.Time) string {
	switch m := now.Month(); {
	case m >= time.March && m <= time.June:
		return invrepo.SeasonSummer
	case m >= time.July && m <= time.October:
		return invrepo.SeasonMonsoon
	default:
		return invrepo.SeasonWinter
	}
}
