package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	"github.com/pharmalink/pharmalink-backend/internal/order/events"
	"github.com/pharmalink/pharmalink-backend/internal/order/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/database"
	"github.com/pharmalink/pharmalink-backend/pkg/errors"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// validTransitions is the full order state machine. DELIVERED and REJECTED
// are terminal.
var validTransitions = map[string][]string{
	repository.StatusPending:  {repository.StatusAccepted, repository.StatusRejected},
	repository.StatusAccepted: {repository.StatusPacked},
	repository.StatusPacked:   {repository.StatusShipped},
	repository.StatusShipped:  {repository.StatusDelivered},
}

// TransitionAllowed reports whether an order may move from one status to
// another.
func TransitionAllowed(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderService owns the lifecycle of a B2B order between a pharmacy (buyer)
// and a distributor (seller). All mutation goes through the state machine;
// neither tenant's ledger code touches orders directly.
type OrderService struct {
	orderRepo   *repository.OrderRepository
	connRepo    *repository.ConnectionRepository
	productRepo *invrepo.ProductRepository
	transfer    *TransferService
	publisher   *events.OrderEventPublisher
	db          *database.DB
	logger      *logger.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo *repository.OrderRepository,
	connRepo *repository.ConnectionRepository,
	productRepo *invrepo.ProductRepository,
	transfer *TransferService,
	publisher *events.OrderEventPublisher,
	db *database.DB,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		connRepo:    connRepo,
		productRepo: productRepo,
		transfer:    transfer,
		publisher:   publisher,
		db:          db,
		logger:      log,
	}
}

// PlaceOrderLine is one requested line of a new order
type PlaceOrderLine struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

// PlaceOrder records a PENDING order from the pharmacy to the distributor.
// Requires an approved connection between the two tenants.
func (s *OrderService) PlaceOrder(ctx context.Context, pharmacyID, distributorID string, lines []PlaceOrderLine) (*repository.Order, error) {
	if len(lines) == 0 {
		return nil, errors.BadRequest("order must have at least one line item")
	}

	approved, err := s.connRepo.IsApproved(ctx, pharmacyID, distributorID)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, errors.NotConnected("no approved connection with this distributor; request a connection first")
	}

	order := &repository.Order{
		PharmacyID:    pharmacyID,
		DistributorID: distributorID,
		Status:        repository.StatusPending,
	}

	total := decimal.Zero
	for _, line := range lines {
		// Line items reference the SELLER's product catalog.
		product, err := s.productRepo.GetByID(ctx, distributorID, line.ProductID)
		if err != nil {
			return nil, err
		}
		if line.Quantity <= 0 {
			return nil, errors.BadRequest("line quantity must be positive")
		}

		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Items = append(order.Items, &repository.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	order.TotalAmount = total

	err = s.db.Transaction(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return err
		}
		return s.orderRepo.AppendTimeline(txCtx, &repository.TimelineEntry{
			OrderID: order.ID,
			Status:  repository.StatusPending,
			Remark:  "Order placed",
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishOrderPlaced(ctx, order)

	return s.orderRepo.GetByID(ctx, order.ID)
}

// GetOrder loads an order visible to the tenant (buyer or seller side)
func (s *OrderService) GetOrder(ctx context.Context, tenantID, orderID string) (*repository.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PharmacyID != tenantID && order.DistributorID != tenantID {
		return nil, errors.NotFound("order")
	}
	return order, nil
}

// ListOrders lists the tenant's orders, optionally filtered by status
func (s *OrderService) ListOrders(ctx context.Context, tenantID, status string, page, perPage int) ([]*repository.Order, int64, error) {
	return s.orderRepo.ListForTenant(ctx, tenantID, status, page, perPage)
}

// Transition moves the order to targetStatus on behalf of the seller tenant.
//
// The order row is locked for the whole transition, so concurrent delivery
// confirmations serialize: the second caller finds the order already
// DELIVERED and fails the state check. For SHIPPED -> DELIVERED the physical
// stock transfer executes inside the same transaction, BEFORE the status is
// committed; a transfer failure leaves the order SHIPPED and the ledgers
// untouched.
func (s *OrderService) Transition(ctx context.Context, actorTenantID, orderID, targetStatus, remark, otp string) (*repository.Order, error) {
	var fromStatus string
	var order *repository.Order
	var unitsMoved int

	err := s.db.SerializableTransaction(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}

		if order.DistributorID != actorTenantID {
			return errors.Forbidden("only the seller may transition this order")
		}

		fromStatus = order.Status
		if !TransitionAllowed(order.Status, targetStatus) {
			return errors.InvalidTransition(order.Status, targetStatus)
		}

		var newOtp *string
		switch targetStatus {
		case repository.StatusAccepted:
			code, err := generateDeliveryOtp()
			if err != nil {
				return err
			}
			newOtp = &code
			if remark == "" {
				remark = "Order accepted"
			}

		case repository.StatusDelivered:
			if order.DeliveryOtp == nil {
				return errors.Internal("order has no delivery otp")
			}
			if strings.TrimSpace(otp) != strings.TrimSpace(*order.DeliveryOtp) {
				return errors.InvalidOtp()
			}
			// Move the goods before committing the status. A failure here
			// aborts the whole transaction.
			units, err := s.transfer.Execute(txCtx, order)
			if err != nil {
				return err
			}
			unitsMoved = units
			if remark == "" {
				remark = "Delivery confirmed, stock transferred"
			}

		case repository.StatusRejected:
			if remark == "" {
				remark = "Order rejected"
			}
		}

		if err := s.orderRepo.UpdateStatus(txCtx, orderID, targetStatus, newOtp); err != nil {
			return err
		}
		return s.orderRepo.AppendTimeline(txCtx, &repository.TimelineEntry{
			OrderID: orderID,
			Status:  targetStatus,
			Remark:  remark,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStatusChanged(ctx, updated, fromStatus, remark)
	switch targetStatus {
	case repository.StatusAccepted:
		// The only channel that carries the delivery confirmation code.
		s.publisher.PublishOrderAccepted(ctx, updated)
	case repository.StatusRejected:
		s.publisher.PublishOrderRejected(ctx, updated, remark)
	case repository.StatusDelivered:
		s.publisher.PublishOrderDelivered(ctx, updated)
		s.publisher.PublishStockTransferred(ctx, updated, unitsMoved)
	}

	return updated, nil
}

// AssignAgent sets or clears the delivery agent while the order is being
// prepared (ACCEPTED or PACKED). Each change appends a timeline entry.
func (s *OrderService) AssignAgent(ctx context.Context, actorTenantID, orderID string, agentID *string) (*repository.Order, error) {
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.GetByIDForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}

		if order.DistributorID != actorTenantID {
			return errors.Forbidden("only the seller may assign agents to this order")
		}

		if order.Status != repository.StatusAccepted && order.Status != repository.StatusPacked {
			return errors.InvalidTransition(order.Status, "agent assignment")
		}

		if err := s.orderRepo.SetAssignedTo(txCtx, orderID, agentID); err != nil {
			return err
		}

		entry := &repository.TimelineEntry{OrderID: orderID}
		if agentID != nil {
			entry.Status = repository.TimelineAssigned
			entry.Remark = "Delivery agent assigned"
		} else {
			entry.Status = repository.TimelineUnassigned
			entry.Remark = "Delivery agent unassigned"
		}
		return s.orderRepo.AppendTimeline(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishAgentChanged(ctx, updated)

	return updated, nil
}

// generateDeliveryOtp returns a random 6-digit code. Generated once at
// acceptance, consumed at delivery, never regenerated.
func generateDeliveryOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate delivery otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
