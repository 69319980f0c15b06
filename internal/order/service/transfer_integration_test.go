package service_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	invservice "github.com/pharmalink/pharmalink-backend/internal/inventory/service"
	orderrepo "github.com/pharmalink/pharmalink-backend/internal/order/repository"
	"github.com/pharmalink/pharmalink-backend/internal/order/service"
	"github.com/pharmalink/pharmalink-backend/pkg/config"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func newOrderService() *service.OrderService {
	lg := logger.New("test", "test")
	productRepo := invrepo.NewProductRepository(suite.DB)
	batchRepo := invrepo.NewBatchRepository(suite.DB)
	orderRepo := orderrepo.NewOrderRepository(suite.DB)
	connRepo := orderrepo.NewConnectionRepository(suite.DB)

	allocator := invservice.NewAllocatorService(batchRepo, lg)
	matcher := invservice.NewMatcherService(productRepo, lg)
	policy := config.TransferPolicy{DefaultExpiryMonths: 24, DefaultMarkup: 1.5}

	// No event publisher needed for these tests.
	transfer := service.NewTransferService(allocator, matcher, productRepo, batchRepo, policy, lg)
	return service.NewOrderService(orderRepo, connRepo, productRepo, transfer, nil, suite.DB, lg)
}

// sellerCatalog creates a product with batches on the seller side and
// returns the product. Batch expiries ascend in the order given.
func sellerCatalog(t *testing.T, ctx context.Context, sellerID, name string, quantities ...int) *invrepo.Product {
	t.Helper()

	productRepo := invrepo.NewProductRepository(suite.DB)
	batchRepo := invrepo.NewBatchRepository(suite.DB)

	product := suite.Fixtures.Product(sellerID, func(p *invrepo.Product) {
		p.Name = name
		p.Category = "Analgesic"
	})
	require.NoError(t, productRepo.Create(ctx, product))

	for i, q := range quantities {
		batch := suite.Fixtures.Batch(sellerID, product.ID, func(b *invrepo.Batch) {
			b.Quantity = q
			b.ExpiryDate = time.Now().UTC().AddDate(0, i+1, 0)
		})
		require.NoError(t, batchRepo.Create(ctx, batch))
	}

	return product
}

func connect(t *testing.T, ctx context.Context, pharmacyID, distributorID string) {
	t.Helper()
	connRepo := orderrepo.NewConnectionRepository(suite.DB)
	require.NoError(t, connRepo.Upsert(ctx, suite.Fixtures.Connection(pharmacyID, distributorID)))
}

// shipOrder walks a pending order to SHIPPED and returns it with the OTP set
func shipOrder(t *testing.T, ctx context.Context, svc *service.OrderService, sellerID, orderID string) *orderrepo.Order {
	t.Helper()

	for _, status := range []string{orderrepo.StatusAccepted, orderrepo.StatusPacked, orderrepo.StatusShipped} {
		_, err := svc.Transition(ctx, sellerID, orderID, status, "", "")
		require.NoError(t, err)
	}

	order, err := svc.GetOrder(ctx, sellerID, orderID)
	require.NoError(t, err)
	require.NotNil(t, order.DeliveryOtp)
	return order
}

func TestPlaceOrder_RequiresApprovedConnection(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	buyer := suite.NewTenant(t)
	seller := suite.NewTenant(t)
	product := sellerCatalog(t, ctx, seller, "Dolo 650", 100)

	svc := newOrderService()
	_, err := svc.PlaceOrder(ctx, buyer, seller, []service.PlaceOrderLine{
		{ProductID: product.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(20)},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotConnected))
}

func TestOrderLifecycle_DeliveryTransfersStock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	buyer := suite.NewTenant(t)
	seller := suite.NewTenant(t)
	product := sellerCatalog(t, ctx, seller, "Dolo 650", 5, 100)
	connect(t, ctx, buyer, seller)

	svc := newOrderService()
	placed, err := svc.PlaceOrder(ctx, buyer, seller, []service.PlaceOrderLine{
		{ProductID: product.ID, Quantity: 8, UnitPrice: decimal.NewFromInt(20)},
	})
	require.NoError(t, err)
	assert.Equal(t, orderrepo.StatusPending, placed.Status)
	assert.True(t, placed.TotalAmount.Equal(decimal.NewFromInt(160)))

	shipped := shipOrder(t, ctx, svc, seller, placed.ID)

	delivered, err := svc.Transition(ctx, seller, placed.ID, orderrepo.StatusDelivered, "", *shipped.DeliveryOtp)
	require.NoError(t, err)
	assert.Equal(t, orderrepo.StatusDelivered, delivered.Status)

	// Seller side drained FIFO: the soonest-expiring batch empties first.
	batchRepo := invrepo.NewBatchRepository(suite.DB)
	sellerBatches, err := batchRepo.ListByProduct(ctx, seller, product.ID, false)
	require.NoError(t, err)
	require.Len(t, sellerBatches, 2)
	assert.Equal(t, 0, sellerBatches[0].Quantity)
	assert.Equal(t, 97, sellerBatches[1].Quantity)

	// Buyer side received a matching product and a synthesized batch.
	productRepo := invrepo.NewProductRepository(suite.DB)
	buyerProduct, err := productRepo.FindByNameKey(ctx, buyer, invrepo.NormalizeName("Dolo 650"))
	require.NoError(t, err)
	assert.Equal(t, product.Category, buyerProduct.Category)

	buyerBatches, err := batchRepo.ListByProduct(ctx, buyer, buyerProduct.ID, false)
	require.NoError(t, err)
	require.Len(t, buyerBatches, 1)
	assert.Equal(t, 8, buyerBatches[0].Quantity)
	assert.Contains(t, buyerBatches[0].BatchNumber, "TRF-")
	assert.True(t, buyerBatches[0].PurchaseRate.Equal(decimal.NewFromInt(20)))
	assert.True(t, buyerBatches[0].MRP.Equal(decimal.NewFromInt(30)))
	require.NotNil(t, buyerBatches[0].SupplierID)
	assert.Equal(t, seller, *buyerBatches[0].SupplierID)

	// One timeline entry per successful transition.
	assert.Len(t, delivered.Timeline, 5)
}

func TestDeliver_WrongOtpLeavesEverythingUntouched(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	buyer := suite.NewTenant(t)
	seller := suite.NewTenant(t)
	product := sellerCatalog(t, ctx, seller, "Crocin Advance", 50)
	connect(t, ctx, buyer, seller)

	svc := newOrderService()
	placed, err := svc.PlaceOrder(ctx, buyer, seller, []service.PlaceOrderLine{
		{ProductID: product.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(15)},
	})
	require.NoError(t, err)
	shipOrder(t, ctx, svc, seller, placed.ID)

	_, err = svc.Transition(ctx, seller, placed.ID, orderrepo.StatusDelivered, "", "000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidOtp))

	// Order still SHIPPED, seller stock intact.
	order, err := svc.GetOrder(ctx, seller, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, orderrepo.StatusShipped, order.Status)

	batchRepo := invrepo.NewBatchRepository(suite.DB)
	stock, err := batchRepo.GetTotalStock(ctx, seller, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stock)
}

func TestDeliver_ShortStockRollsBackAllLines(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	buyer := suite.NewTenant(t)
	seller := suite.NewTenant(t)
	productA := sellerCatalog(t, ctx, seller, "Product A", 5)
	productB := sellerCatalog(t, ctx, seller, "Product B", 10)
	connect(t, ctx, buyer, seller)

	svc := newOrderService()
	placed, err := svc.PlaceOrder(ctx, buyer, seller, []service.PlaceOrderLine{
		{ProductID: productA.ID, Quantity: 5, UnitPrice: decimal.NewFromInt(10)},
		{ProductID: productB.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)
	shipped := shipOrder(t, ctx, svc, seller, placed.ID)

	// Stock for line 2 disappears between shipping and delivery.
	batchRepo := invrepo.NewBatchRepository(suite.DB)
	batchesB, err := batchRepo.ListByProduct(ctx, seller, productB.ID, false)
	require.NoError(t, err)
	require.NoError(t, batchRepo.SetQuantity(ctx, seller, batchesB[0].ID, 3))

	_, err = svc.Transition(ctx, seller, placed.ID, orderrepo.StatusDelivered, "", *shipped.DeliveryOtp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	// Line 1's allocation rolled back with everything else.
	stockA, err := batchRepo.GetTotalStock(ctx, seller, productA.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stockA)

	// Nothing landed on the buyer side.
	buyerBatches, err := batchRepo.GetAllPositive(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, buyerBatches)

	order, err := svc.GetOrder(ctx, seller, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, orderrepo.StatusShipped, order.Status)
}

func TestDeliver_MatcherReusesWhitespaceVariant(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	buyer := suite.NewTenant(t)
	seller := suite.NewTenant(t)
	product := sellerCatalog(t, ctx, seller, "Dolo 650", 50)
	connect(t, ctx, buyer, seller)

	// The buyer already stocks the product under a double-spaced name.
	productRepo := invrepo.NewProductRepository(suite.DB)
	existing := suite.Fixtures.Product(buyer, func(p *invrepo.Product) {
		p.Name = "Dolo  650"
	})
	require.NoError(t, productRepo.Create(ctx, existing))

	svc := newOrderService()
	placed, err := svc.PlaceOrder(ctx, buyer, seller, []service.PlaceOrderLine{
		{ProductID: product.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(20)},
	})
	require.NoError(t, err)
	shipped := shipOrder(t, ctx, svc, seller, placed.ID)

	_, err = svc.Transition(ctx, seller, placed.ID, orderrepo.StatusDelivered, "", *shipped.DeliveryOtp)
	require.NoError(t, err)

	// Stock landed on the existing product; no duplicate was created.
	batchRepo := invrepo.NewBatchRepository(suite.DB)
	batches, err := batchRepo.ListByProduct(ctx, buyer, existing.ID, true)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 10, batches[0].Quantity)

	products, _, err := productRepo.List(ctx, buyer, 1, 50, "")
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestTransition_OnlySellerMayAct(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	buyer := suite.NewTenant(t)
	seller := suite.NewTenant(t)
	product := sellerCatalog(t, ctx, seller, "Product C", 50)
	connect(t, ctx, buyer, seller)

	svc := newOrderService()
	placed, err := svc.PlaceOrder(ctx, buyer, seller, []service.PlaceOrderLine{
		{ProductID: product.ID, Quantity: 5, UnitPrice: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, buyer, placed.ID, orderrepo.StatusAccepted, "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestTransition_RejectIsTerminal(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	buyer := suite.NewTenant(t)
	seller := suite.NewTenant(t)
	product := sellerCatalog(t, ctx, seller, "Product D", 50)
	connect(t, ctx, buyer, seller)

	svc := newOrderService()
	placed, err := svc.PlaceOrder(ctx, buyer, seller, []service.PlaceOrderLine{
		{ProductID: product.ID, Quantity: 5, UnitPrice: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)

	rejected, err := svc.Transition(ctx, seller, placed.ID, orderrepo.StatusRejected, "out of stock", "")
	require.NoError(t, err)
	assert.Equal(t, orderrepo.StatusRejected, rejected.Status)

	_, err = svc.Transition(ctx, seller, placed.ID, orderrepo.StatusAccepted, "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

func TestAssignAgent_TimelineAndStateRules(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	buyer := suite.NewTenant(t)
	seller := suite.NewTenant(t)
	product := sellerCatalog(t, ctx, seller, "Product E", 50)
	connect(t, ctx, buyer, seller)

	svc := newOrderService()
	placed, err := svc.PlaceOrder(ctx, buyer, seller, []service.PlaceOrderLine{
		{ProductID: product.ID, Quantity: 5, UnitPrice: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)

	agent := "11111111-2222-3333-4444-555555555555"

	// No assignment while PENDING.
	_, err = svc.AssignAgent(ctx, seller, placed.ID, &agent)
	require.Error(t, err)

	_, err = svc.Transition(ctx, seller, placed.ID, orderrepo.StatusAccepted, "", "")
	require.NoError(t, err)

	assigned, err := svc.AssignAgent(ctx, seller, placed.ID, &agent)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, agent, *assigned.AssignedTo)

	unassigned, err := svc.AssignAgent(ctx, seller, placed.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedTo)

	var statuses []string
	for _, entry := range unassigned.Timeline {
		statuses = append(statuses, entry.Status)
	}
	assert.Contains(t, statuses, orderrepo.TimelineAssigned)
	assert.Contains(t, statuses, orderrepo.TimelineUnassigned)
}
