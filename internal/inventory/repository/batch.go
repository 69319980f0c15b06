package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/pharmalink-backend/pkg/database"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Batch represents an expiry-dated lot of a product. It is the unit of FIFO
// allocation; a batch with quantity zero is inert but retained for audit and
// expiry history.
type Batch struct {
	ID           string          `db:"id" json:"id"`
	TenantID     string          `db:"tenant_id" json:"tenant_id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	BatchNumber  string          `db:"batch_number" json:"batch_number"`
	ExpiryDate   time.Time       `db:"expiry_date" json:"expiry_date"`
	Quantity     int             `db:"quantity" json:"quantity"`
	MRP          decimal.Decimal `db:"mrp" json:"mrp"`
	PurchaseRate decimal.Decimal `db:"purchase_rate" json:"purchase_rate"`
	SupplierID   *string         `db:"supplier_id" json:"supplier_id,omitempty"`
	ReceivedDate time.Time       `db:"received_date" json:"received_date"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// BatchRepository handles batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.ReceivedDate.IsZero() {
		batch.ReceivedDate = time.Now().UTC()
	}

	query := `
		INSERT INTO batches (
			id, tenant_id, product_id, batch_number, expiry_date, quantity,
			mrp, purchase_rate, supplier_id, received_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		batch.ID, batch.TenantID, batch.ProductID, batch.BatchNumber,
		batch.ExpiryDate, batch.Quantity, batch.MRP, batch.PurchaseRate,
		batch.SupplierID, batch.ReceivedDate,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a batch by ID within the tenant
func (r *BatchRepository) GetByID(ctx context.Context, tenantID, id string) (*Batch, error) {
	var batch Batch
	query := `SELECT * FROM batches WHERE tenant_id = $1 AND id = $2`
	if err := r.db.GetContext(ctx, &batch, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListByProduct lists batches for a product, soonest expiry first.
// With onlyPositive, exhausted batches are filtered out.
func (r *BatchRepository) ListByProduct(ctx context.Context, tenantID, productID string, onlyPositive bool) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE tenant_id = $1 AND product_id = $2 AND ($3 = false OR quantity > 0)
		ORDER BY expiry_date
	`
	if err := r.db.SelectContext(ctx, &batches, query, tenantID, productID, onlyPositive); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListForAllocation loads the positive batches for a product in FIFO order
// (soonest expiry first) and locks the rows for the ambient transaction, so
// no concurrent allocation can double-spend a batch.
func (r *BatchRepository) ListForAllocation(ctx context.Context, tenantID, productID string) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE tenant_id = $1 AND product_id = $2 AND quantity > 0
		ORDER BY expiry_date
		FOR UPDATE
	`
	if err := r.db.SelectContext(ctx, &batches, query, tenantID, productID); err != nil {
		return nil, err
	}
	return batches, nil
}

// SetQuantity persists a batch's new quantity. Each deduction is written
// individually to keep partial-fulfillment traceability.
func (r *BatchRepository) SetQuantity(ctx context.Context, tenantID, id string, quantity int) error {
	query := `UPDATE batches SET quantity = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id, quantity)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}
	return nil
}

// GetTotalStock sums the remaining quantity across a product's batches
func (r *BatchRepository) GetTotalStock(ctx context.Context, tenantID, productID string) (int, error) {
	var total sql.NullInt64
	query := `SELECT SUM(quantity) FROM batches WHERE tenant_id = $1 AND product_id = $2 AND quantity > 0`
	if err := r.db.GetContext(ctx, &total, query, tenantID, productID); err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return int(total.Int64), nil
}

// GetExpiringBatches gets positive batches expiring within the given days
func (r *BatchRepository) GetExpiringBatches(ctx context.Context, tenantID string, withinDays int) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE tenant_id = $1 AND quantity > 0
		AND expiry_date <= NOW() + INTERVAL '1 day' * $2
		ORDER BY expiry_date
	`
	if err := r.db.SelectContext(ctx, &batches, query, tenantID, withinDays); err != nil {
		return nil, err
	}
	return batches, nil
}

// GetAllPositive gets all batches with remaining stock for the tenant
func (r *BatchRepository) GetAllPositive(ctx context.Context, tenantID string) ([]*Batch, error) {
	var batches []*Batch
	query := `SELECT * FROM batches WHERE tenant_id = $1 AND quantity > 0 ORDER BY expiry_date`
	if err := r.db.SelectContext(ctx, &batches, query, tenantID); err != nil {
		return nil, err
	}
	return batches, nil
}
