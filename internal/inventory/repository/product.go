package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/pharmalink/pharmalink-backend/pkg/database"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Seasonality values a product may carry
const (
	SeasonSummer  = "Summer"
	SeasonMonsoon = "Monsoon"
	SeasonWinter  = "Winter"
	SeasonAllYear = "AllYear"
)

// Product represents a tenant-owned product
type Product struct {
	ID            string          `db:"id" json:"id"`
	TenantID      string          `db:"tenant_id" json:"tenant_id"`
	Name          string          `db:"name" json:"name"`
	NameKey       string          `db:"name_key" json:"-"`
	SKU           string          `db:"sku" json:"sku,omitempty"`
	Description   *string         `db:"description" json:"description,omitempty"`
	Category      string          `db:"category" json:"category"`
	Manufacturer  *string         `db:"manufacturer" json:"manufacturer,omitempty"`
	Unit          string          `db:"unit" json:"unit"`
	GstRate       decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	MinStockLevel int             `db:"min_stock_level" json:"min_stock_level"`
	Seasonality   string          `db:"seasonality" json:"seasonality"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// NormalizeName reduces a product name to its matching key: every whitespace
// rune removed, lowercased. Matching is deliberately tolerant only to
// whitespace variation, never to typos or synonyms.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ProductRepository handles product persistence
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product for the tenant
func (r *ProductRepository) Create(ctx context.Context, product *Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.NameKey = NormalizeName(product.Name)
	if product.Seasonality == "" {
		product.Seasonality = SeasonAllYear
	}

	query := `
		INSERT INTO products (
			id, tenant_id, name, name_key, sku, description, category,
			manufacturer, unit, gst_rate, min_stock_level, seasonality, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		product.ID, product.TenantID, product.Name, product.NameKey, product.SKU,
		product.Description, product.Category, product.Manufacturer, product.Unit,
		product.GstRate, product.MinStockLevel, product.Seasonality, product.IsActive,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a product by ID within the tenant
func (r *ProductRepository) GetByID(ctx context.Context, tenantID, id string) (*Product, error) {
	var product Product
	query := `SELECT * FROM products WHERE tenant_id = $1 AND id = $2`
	if err := r.db.GetContext(ctx, &product, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &product, nil
}

// FindByNameKey looks a product up by its normalized name key. The oldest
// match wins when several rows share a key (pre-normalization data).
func (r *ProductRepository) FindByNameKey(ctx context.Context, tenantID, nameKey string) (*Product, error) {
	var product Product
	query := `
		SELECT * FROM products
		WHERE tenant_id = $1 AND name_key = $2 AND is_active = true
		ORDER BY created_at
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &product, query, tenantID, nameKey); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &product, nil
}

// List lists active products for the tenant with pagination
func (r *ProductRepository) List(ctx context.Context, tenantID string, page, perPage int, category string) ([]*Product, int64, error) {
	offset := (page - 1) * perPage

	countQuery := `SELECT COUNT(*) FROM products WHERE tenant_id = $1 AND is_active = true AND ($2 = '' OR category = $2)`
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, tenantID, category); err != nil {
		return nil, 0, err
	}

	var products []*Product
	query := `
		SELECT * FROM products
		WHERE tenant_id = $1 AND is_active = true AND ($2 = '' OR category = $2)
		ORDER BY name
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &products, query, tenantID, category, perPage, offset); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetAllActive gets all active products for the tenant
func (r *ProductRepository) GetAllActive(ctx context.Context, tenantID string) ([]*Product, error) {
	var products []*Product
	query := `SELECT * FROM products WHERE tenant_id = $1 AND is_active = true ORDER BY name`
	if err := r.db.SelectContext(ctx, &products, query, tenantID); err != nil {
		return nil, err
	}
	return products, nil
}

// Update updates a product's mutable attributes
func (r *ProductRepository) Update(ctx context.Context, product *Product) error {
	product.NameKey = NormalizeName(product.Name)

	query := `
		UPDATE products SET
			name = $3, name_key = $4, sku = $5, description = $6, category = $7,
			manufacturer = $8, unit = $9, gst_rate = $10, min_stock_level = $11,
			seasonality = $12, is_active = $13, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		product.TenantID, product.ID, product.Name, product.NameKey, product.SKU,
		product.Description, product.Category, product.Manufacturer, product.Unit,
		product.GstRate, product.MinStockLevel, product.Seasonality, product.IsActive,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("product")
	}

	return nil
}
