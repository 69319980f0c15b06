package consumers

import (
	"context"

	"github.com/pharmalink/pharmalink-backend/internal/order/repository"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/messaging"
)

// ConnectionEventConsumer keeps the local tenant-connection cache in sync
// with the external connection directory. Order placement reads the cache;
// the core never mutates connections itself.
type ConnectionEventConsumer struct {
	consumer *messaging.Consumer
	connRepo *repository.ConnectionRepository
	logger   *logger.Logger
}

// NewConnectionEventConsumer creates a new connection event consumer
func NewConnectionEventConsumer(rmq *messaging.RabbitMQ, connRepo *repository.ConnectionRepository, log *logger.Logger) (*ConnectionEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "commerce-service.directory-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeDirectoryEvents, "directory.connection.#"); err != nil {
		return nil, err
	}

	c := &ConnectionEventConsumer{
		consumer: consumer,
		connRepo: connRepo,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventConnectionApproved, c.handleConnectionApproved)
	consumer.RegisterHandler(messaging.EventConnectionRevoked, c.handleConnectionRevoked)

	return c, nil
}

// Start starts consuming messages
func (c *ConnectionEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *ConnectionEventConsumer) handleConnectionApproved(ctx context.Context, event *messaging.Event) error {
	var data messaging.ConnectionEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("pharmacy_id", data.PharmacyID).
		Str("distributor_id", data.DistributorID).
		Msg("received connection approved event")

	return c.connRepo.Upsert(ctx, &repository.TenantConnection{
		ID:            data.ConnectionID,
		PharmacyID:    data.PharmacyID,
		DistributorID: data.DistributorID,
		Status:        repository.ConnectionApproved,
	})
}

func (c *ConnectionEventConsumer) handleConnectionRevoked(ctx context.Context, event *messaging.Event) error {
	var data messaging.ConnectionEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("pharmacy_id", data.PharmacyID).
		Str("distributor_id", data.DistributorID).
		Msg("received connection revoked event")

	return c.connRepo.Upsert(ctx, &repository.TenantConnection{
		ID:            data.ConnectionID,
		PharmacyID:    data.PharmacyID,
		DistributorID: data.DistributorID,
		Status:        repository.ConnectionRevoked,
	})
}
