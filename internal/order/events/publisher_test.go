package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalink/pharmalink-backend/internal/order/repository"
)

func TestNewOrderAcceptedEvent_CarriesDeliveryOtp(t *testing.T) {
	otp := "042371"
	order := &repository.Order{
		ID:            "order-1",
		PharmacyID:    "pharmacy-1",
		DistributorID: "distributor-1",
		Status:        repository.StatusAccepted,
		DeliveryOtp:   &otp,
	}

	data := newOrderAcceptedEvent(order)

	assert.Equal(t, "order-1", data.OrderID)
	assert.Equal(t, "pharmacy-1", data.PharmacyID)
	assert.Equal(t, "distributor-1", data.DistributorID)
	assert.Equal(t, "042371", data.DeliveryOtp)

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"delivery_otp":"042371"`)
}

func TestNewOrderAcceptedEvent_NilOtp(t *testing.T) {
	order := &repository.Order{
		ID:            "order-1",
		PharmacyID:    "pharmacy-1",
		DistributorID: "distributor-1",
		Status:        repository.StatusAccepted,
	}

	data := newOrderAcceptedEvent(order)

	assert.Empty(t, data.DeliveryOtp)
}

// The accepted event is the only place the code leaves the service. The order
// itself must never serialize it.
func TestOrderJSON_OmitsDeliveryOtp(t *testing.T) {
	otp := "042371"
	order := &repository.Order{
		ID:          "order-1",
		Status:      repository.StatusAccepted,
		DeliveryOtp: &otp,
	}

	payload, err := json.Marshal(order)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "042371")
	assert.NotContains(t, string(payload), "delivery_otp")
}

func TestPublisher_NilReceiverIsNoop(t *testing.T) {
	var p *OrderEventPublisher
	order := &repository.Order{ID: "order-1"}

	assert.NotPanics(t, func() {
		p.PublishOrderPlaced(context.Background(), order)
		p.PublishOrderAccepted(context.Background(), order)
		p.PublishStatusChanged(context.Background(), order, repository.StatusPending, "")
		p.PublishOrderRejected(context.Background(), order, "")
		p.PublishOrderDelivered(context.Background(), order)
		p.PublishAgentChanged(context.Background(), order)
		p.PublishStockTransferred(context.Background(), order, 0)
	})
}
