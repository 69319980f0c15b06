package repository

import (
	"context"

	"github.com/pharmalink/pharmalink-backend/pkg/database"
)

// ProductSales aggregates how much of a product the tenant sold in a window
type ProductSales struct {
	ProductID string `db:"product_id"`
	UnitsSold int    `db:"units_sold"`
}

// SalesRepository aggregates the tenant's outbound sales from delivered
// orders. Forecast reads are analytics: they are not required to be
// linearizable with in-flight transfers.
type SalesRepository struct {
	db *database.DB
}

// NewSalesRepository creates a new sales repository
func NewSalesRepository(db *database.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

// UnitsSoldByProduct sums delivered order line quantities per product for
// the seller tenant over the trailing window.
func (r *SalesRepository) UnitsSoldByProduct(ctx context.Context, tenantID string, windowDays int) (map[string]int, error) {
	var rows []ProductSales
	query := `
		SELECT oi.product_id, SUM(oi.quantity) AS units_sold
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.distributor_id = $1
		AND o.status = 'DELIVERED'
		AND o.updated_at >= NOW() - INTERVAL '1 day' * $2
		GROUP BY oi.product_id
	`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, windowDays); err != nil {
		return nil, err
	}

	sales := make(map[string]int, len(rows))
	for _, row := range rows {
		sales[row.ProductID] = row.UnitsSold
	}
	return sales, nil
}
