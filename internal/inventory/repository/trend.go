package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/pharmalink-backend/pkg/database"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
)

// Trend is a tenant-scoped demand-boost rule, e.g. a flu outbreak lifting
// demand for the "Cold & Flu" category. Consumed read-only by the demand
// forecast engine.
type Trend struct {
	ID                 string    `db:"id" json:"id"`
	TenantID           string    `db:"tenant_id" json:"tenant_id"`
	Name               string    `db:"name" json:"name"`
	AffectedCategories string    `db:"affected_categories" json:"-"`
	BoostFactor        float64   `db:"boost_factor" json:"boost_factor"`
	IsActive           bool      `db:"is_active" json:"is_active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Categories returns the affected categories as a slice
func (t *Trend) Categories() []string {
	if t.AffectedCategories == "" {
		return nil
	}
	parts := strings.Split(t.AffectedCategories, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Affects reports whether the trend covers the given product category
func (t *Trend) Affects(category string) bool {
	for _, c := range t.Categories() {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// TrendRepository handles trend persistence
type TrendRepository struct {
	db *database.DB
}

// NewTrendRepository creates a new trend repository
func NewTrendRepository(db *database.DB) *TrendRepository {
	return &TrendRepository{db: db}
}

// Create creates a new trend
func (r *TrendRepository) Create(ctx context.Context, trend *Trend) error {
	if trend.ID == "" {
		trend.ID = uuid.New().String()
	}

	query := `
		INSERT INTO trends (id, tenant_id, name, affected_categories, boost_factor, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		trend.ID, trend.TenantID, trend.Name, trend.AffectedCategories,
		trend.BoostFactor, trend.IsActive,
	).Scan(&trend.CreatedAt)
}

// List lists all trends for the tenant, newest first
func (r *TrendRepository) List(ctx context.Context, tenantID string) ([]*Trend, error) {
	var trends []*Trend
	query := `SELECT * FROM trends WHERE tenant_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &trends, query, tenantID); err != nil {
		return nil, err
	}
	return trends, nil
}

// ListActive lists the active trends for the tenant
func (r *TrendRepository) ListActive(ctx context.Context, tenantID string) ([]*Trend, error) {
	var trends []*Trend
	query := `SELECT * FROM trends WHERE tenant_id = $1 AND is_active = true ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &trends, query, tenantID); err != nil {
		return nil, err
	}
	return trends, nil
}

// Archive deactivates a trend; archived trends no longer boost forecasts
func (r *TrendRepository) Archive(ctx context.Context, tenantID, id string) error {
	query := `UPDATE trends SET is_active = false WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("trend")
	}
	return nil
}

// GetByID gets a trend by ID within the tenant
func (r *TrendRepository) GetByID(ctx context.Context, tenantID, id string) (*Trend, error) {
	var trend Trend
	query := `SELECT * FROM trends WHERE tenant_id = $1 AND id = $2`
	if err := r.db.GetContext(ctx, &trend, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("trend")
		}
		return nil, err
	}
	return &trend, nil
}
