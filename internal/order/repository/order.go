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

// Order statuses
const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusPacked    = "PACKED"
	StatusShipped   = "SHIPPED"
	StatusDelivered = "DELIVERED"
	StatusRejected  = "REJECTED"
)

// Timeline-only markers for delivery agent changes. These are events on
// assigned_to, not order statuses.
const (
	TimelineAssigned   = "ASSIGNED"
	TimelineUnassigned = "UNASSIGNED"
)

// Order is a cross-tenant B2B order between a pharmacy (buyer) and a
// distributor (seller). It is jointly referenced by both tenants but mutated
// only through the state machine.
type Order struct {
	ID            string          `db:"id" json:"id"`
	PharmacyID    string          `db:"pharmacy_id" json:"pharmacy_id"`
	DistributorID string          `db:"distributor_id" json:"distributor_id"`
	Status        string          `db:"status" json:"status"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	DeliveryOtp   *string         `db:"delivery_otp" json:"-"`
	AssignedTo    *string         `db:"assigned_to" json:"assigned_to,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	Items    []*OrderItem     `db:"-" json:"items,omitempty"`
	Timeline []*TimelineEntry `db:"-" json:"timeline,omitempty"`
}

// OrderItem is one line of an order. ProductID references the SELLER's
// product; the buyer side resolves its own product by name at delivery.
type OrderItem struct {
	ID         string          `db:"id" json:"id"`
	OrderID    string          `db:"order_id" json:"order_id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	Name       string          `db:"name" json:"name"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
}

// TimelineEntry is one append-only status event on an order
type TimelineEntry struct {
	ID        string    `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	Status    string    `db:"status" json:"status"`
	Remark    string    `db:"remark" json:"remark,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderRepository handles order persistence
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists an order with its line items and the initial timeline
// entry, inside the ambient transaction.
func (r *OrderRepository) Create(ctx context.Context, order *Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	query := `
		INSERT INTO orders (id, pharmacy_id, distributor_id, status, total_amount, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		order.ID, order.PharmacyID, order.DistributorID, order.Status,
		order.TotalAmount, order.AssignedTo,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	for _, item := range order.Items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = order.ID

		itemQuery := `
			INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := r.db.ExecContext(ctx, itemQuery,
			item.ID, item.OrderID, item.ProductID, item.Name,
			item.Quantity, item.UnitPrice, item.TotalPrice,
		); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
	}

	return nil
}

// GetByID loads an order with items and timeline
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	var order Order
	query := `SELECT * FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("order")
		}
		return nil, err
	}

	if err := r.loadChildren(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate loads an order with its row locked for the ambient
// transaction. Concurrent transitions on the same order serialize here, so
// two delivery confirmations can never both observe SHIPPED.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*Order, error) {
	var order Order
	query := `SELECT * FROM orders WHERE id = $1 FOR UPDATE`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("order")
		}
		return nil, err
	}

	if err := r.loadChildren(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) loadChildren(ctx context.Context, order *Order) error {
	itemsQuery := `SELECT * FROM order_items WHERE order_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &order.Items, itemsQuery, order.ID); err != nil {
		return err
	}

	timelineQuery := `SELECT * FROM order_timeline WHERE order_id = $1 ORDER BY created_at, id`
	return r.db.SelectContext(ctx, &order.Timeline, timelineQuery, order.ID)
}

// ListForTenant lists orders where the tenant is buyer or seller
func (r *OrderRepository) ListForTenant(ctx context.Context, tenantID, status string, page, perPage int) ([]*Order, int64, error) {
	offset := (page - 1) * perPage

	countQuery := `
		SELECT COUNT(*) FROM orders
		WHERE (pharmacy_id = $1 OR distributor_id = $1) AND ($2 = '' OR status = $2)
	`
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, tenantID, status); err != nil {
		return nil, 0, err
	}

	var orders []*Order
	query := `
		SELECT * FROM orders
		WHERE (pharmacy_id = $1 OR distributor_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &orders, query, tenantID, status, perPage, offset); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus sets the order status, and the delivery OTP when one is
// supplied (at acceptance). The OTP is written once and never regenerated.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string, deliveryOtp *string) error {
	var result sql.Result
	var err error
	if deliveryOtp != nil {
		query := `UPDATE orders SET status = $2, delivery_otp = $3, updated_at = NOW() WHERE id = $1`
		result, err = r.db.ExecContext(ctx, query, id, status, *deliveryOtp)
	} else {
		query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`
		result, err = r.db.ExecContext(ctx, query, id, status)
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("order")
	}
	return nil
}

// SetAssignedTo sets or clears the delivery agent reference
func (r *OrderRepository) SetAssignedTo(ctx context.Context, id string, agentID *string) error {
	query := `UPDATE orders SET assigned_to = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, agentID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("order")
	}
	return nil
}

// AppendTimeline appends one status event. The timeline is append-only and
// ordered by occurrence; entries are never updated or pruned.
func (r *OrderRepository) AppendTimeline(ctx context.Context, entry *TimelineEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO order_timeline (id, order_id, status, remark)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		entry.ID, entry.OrderID, entry.Status, entry.Remark,
	).Scan(&entry.CreatedAt)
}
