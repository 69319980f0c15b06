package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	orderrepo "github.com/pharmalink/pharmalink-backend/internal/order/repository"
	"github.com/shopspring/decimal"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Product creates a product fixture with defaults
func (f *FixtureFactory) Product(tenantID string, opts ...func(*invrepo.Product)) *invrepo.Product {
	seq := f.nextSeq()

	product := &invrepo.Product{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Name:          fmt.Sprintf("Test Product %d", seq),
		Category:      "General",
		Unit:          "strip",
		GstRate:       decimal.NewFromInt(12),
		MinStockLevel: 10,
		Seasonality:   invrepo.SeasonAllYear,
		IsActive:      true,
	}

	for _, opt := range opts {
		opt(product)
	}
	return product
}

// Batch creates a batch fixture with defaults. Expiry is a year out unless
// overridden.
func (f *FixtureFactory) Batch(tenantID, productID string, opts ...func(*invrepo.Batch)) *invrepo.Batch {
	seq := f.nextSeq()

	batch := &invrepo.Batch{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		ProductID:    productID,
		BatchNumber:  fmt.Sprintf("BT-%04d", seq),
		ExpiryDate:   time.Now().UTC().AddDate(1, 0, 0),
		Quantity:     100,
		MRP:          decimal.NewFromInt(50),
		PurchaseRate: decimal.NewFromInt(35),
	}

	for _, opt := range opts {
		opt(batch)
	}
	return batch
}

// Order creates a pending order fixture between two tenants
func (f *FixtureFactory) Order(pharmacyID, distributorID string, opts ...func(*orderrepo.Order)) *orderrepo.Order {
	order := &orderrepo.Order{
		ID:            uuid.New().String(),
		PharmacyID:    pharmacyID,
		DistributorID: distributorID,
		Status:        orderrepo.StatusPending,
		TotalAmount:   decimal.Zero,
	}

	for _, opt := range opts {
		opt(order)
	}
	return order
}

// OrderItem creates an order line fixture for a seller product
func (f *FixtureFactory) OrderItem(orderID, productID, name string, quantity int, unitPrice decimal.Decimal) *orderrepo.OrderItem {
	return &orderrepo.OrderItem{
		ID:         uuid.New().String(),
		OrderID:    orderID,
		ProductID:  productID,
		Name:       name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Connection creates an approved tenant connection fixture
func (f *FixtureFactory) Connection(pharmacyID, distributorID string) *orderrepo.TenantConnection {
	return &orderrepo.TenantConnection{
		ID:            uuid.New().String(),
		PharmacyID:    pharmacyID,
		DistributorID: distributorID,
		Status:        orderrepo.ConnectionApproved,
	}
}

// Trend creates an active trend fixture covering the given categories
func (f *FixtureFactory) Trend(tenantID string, boost float64, categories string) *invrepo.Trend {
	seq := f.nextSeq()

	return &invrepo.Trend{
		ID:                 uuid.New().String(),
		TenantID:           tenantID,
		Name:               fmt.Sprintf("Trend %d", seq),
		AffectedCategories: categories,
		BoostFactor:        boost,
		IsActive:           true,
	}
}
