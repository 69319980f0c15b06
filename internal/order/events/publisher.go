package events

import (
	"context"

	"github.com/pharmalink/pharmalink-backend/internal/order/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/messaging"
)

// OrderEventPublisher publishes order lifecycle events. These are
// notification requests: delivery to users is an external concern.
type OrderEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewOrderEventPublisher creates a new order event publisher
func NewOrderEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*OrderEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeCommerceEvents, "commerce-service", log)
	if err != nil {
		return nil, err
	}

	return &OrderEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishOrderPlaced publishes an order placed event
func (p *OrderEventPublisher) PublishOrderPlaced(ctx context.Context, order *repository.Order) {
	if p == nil {
		return
	}
	data := messaging.OrderPlacedEvent{
		OrderID:       order.ID,
		PharmacyID:    order.PharmacyID,
		DistributorID: order.DistributorID,
		ItemCount:     len(order.Items),
		TotalAmount:   order.TotalAmount.String(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderPlaced, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order placed event")
	}
}

// PublishOrderAccepted publishes the acceptance notification request carrying
// the delivery confirmation code for the buyer
func (p *OrderEventPublisher) PublishOrderAccepted(ctx context.Context, order *repository.Order) {
	if p == nil {
		return
	}
	data := newOrderAcceptedEvent(order)

	if err := p.publisher.Publish(ctx, messaging.EventOrderAccepted, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order accepted event")
	}
}

func newOrderAcceptedEvent(order *repository.Order) messaging.OrderAcceptedEvent {
	data := messaging.OrderAcceptedEvent{
		OrderID:       order.ID,
		PharmacyID:    order.PharmacyID,
		DistributorID: order.DistributorID,
	}
	if order.DeliveryOtp != nil {
		data.DeliveryOtp = *order.DeliveryOtp
	}
	return data
}

// PublishStatusChanged publishes a status change event
func (p *OrderEventPublisher) PublishStatusChanged(ctx context.Context, order *repository.Order, fromStatus, remark string) {
	if p == nil {
		return
	}
	data := messaging.OrderStatusChangedEvent{
		OrderID:       order.ID,
		PharmacyID:    order.PharmacyID,
		DistributorID: order.DistributorID,
		FromStatus:    fromStatus,
		ToStatus:      order.Status,
		Remark:        remark,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish status changed event")
	}
}

// PublishOrderRejected publishes a rejection notification request for the buyer
func (p *OrderEventPublisher) PublishOrderRejected(ctx context.Context, order *repository.Order, remark string) {
	if p == nil {
		return
	}
	data := messaging.OrderStatusChangedEvent{
		OrderID:       order.ID,
		PharmacyID:    order.PharmacyID,
		DistributorID: order.DistributorID,
		FromStatus:    repository.StatusPending,
		ToStatus:      repository.StatusRejected,
		Remark:        remark,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderRejected, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order rejected event")
	}
}

// PublishOrderDelivered publishes a delivery confirmation event
func (p *OrderEventPublisher) PublishOrderDelivered(ctx context.Context, order *repository.Order) {
	if p == nil {
		return
	}
	data := messaging.OrderStatusChangedEvent{
		OrderID:       order.ID,
		PharmacyID:    order.PharmacyID,
		DistributorID: order.DistributorID,
		FromStatus:    repository.StatusShipped,
		ToStatus:      repository.StatusDelivered,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderDelivered, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order delivered event")
	}
}

// PublishAgentChanged publishes an agent assigned/unassigned event
func (p *OrderEventPublisher) PublishAgentChanged(ctx context.Context, order *repository.Order) {
	if p == nil {
		return
	}
	eventType := messaging.EventOrderAgentUnassigned
	data := messaging.OrderAgentEvent{OrderID: order.ID}
	if order.AssignedTo != nil {
		eventType = messaging.EventOrderAgentAssigned
		data.AgentID = *order.AssignedTo
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish agent change event")
	}
}

// PublishStockTransferred publishes the ledger movement that accompanied a
// delivery confirmation
func (p *OrderEventPublisher) PublishStockTransferred(ctx context.Context, order *repository.Order, totalUnits int) {
	if p == nil {
		return
	}
	data := messaging.StockTransferredEvent{
		OrderID:       order.ID,
		SellerID:      order.DistributorID,
		BuyerID:       order.PharmacyID,
		LineItemCount: len(order.Items),
		TotalUnits:    totalUnits,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockTransferred, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish stock transferred event")
	}
}
