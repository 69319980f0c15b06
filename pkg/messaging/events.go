package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Order events. These double as notification requests: the core emits
	// them, an external dispatcher decides who gets told and how.
	EventOrderPlaced          = "order.placed"
	EventOrderAccepted        = "order.accepted"
	EventOrderStatusChanged   = "order.status.changed"
	EventOrderRejected        = "order.rejected"
	EventOrderDelivered       = "order.delivered"
	EventOrderAgentAssigned   = "order.agent.assigned"
	EventOrderAgentUnassigned = "order.agent.unassigned"

	// Inventory events
	EventStockTransferred = "stock.transferred"

	// Directory events (consumed, not published: the connection directory
	// is an external collaborator)
	EventConnectionApproved = "directory.connection.approved"
	EventConnectionRevoked  = "directory.connection.revoked"
)

// Exchange names
const (
	ExchangeCommerceEvents  = "commerce.events"
	ExchangeDirectoryEvents = "directory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Order Events

// OrderPlacedEvent is published when a pharmacy places an order with a distributor
type OrderPlacedEvent struct {
	OrderID       string `json:"order_id"`
	PharmacyID    string `json:"pharmacy_id"`
	DistributorID string `json:"distributor_id"`
	ItemCount     int    `json:"item_count"`
	TotalAmount   string `json:"total_amount"`
}

// OrderAcceptedEvent is published when the seller accepts an order. It is the
// only channel carrying the delivery confirmation code: the external
// dispatcher relays it to the buyer out of band, and no API response ever
// includes it.
type OrderAcceptedEvent struct {
	OrderID       string `json:"order_id"`
	PharmacyID    string `json:"pharmacy_id"`
	DistributorID string `json:"distributor_id"`
	DeliveryOtp   string `json:"delivery_otp"`
}

// OrderStatusChangedEvent is published on every successful order transition
type OrderStatusChangedEvent struct {
	OrderID       string `json:"order_id"`
	PharmacyID    string `json:"pharmacy_id"`
	DistributorID string `json:"distributor_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	Remark        string `json:"remark,omitempty"`
}

// OrderAgentEvent is published when a delivery agent is assigned or unassigned
type OrderAgentEvent struct {
	OrderID string `json:"order_id"`
	AgentID string `json:"agent_id,omitempty"`
}

// StockTransferredEvent is published after a delivery confirmation moved
// stock from the seller's ledger into the buyer's
type StockTransferredEvent struct {
	OrderID       string `json:"order_id"`
	SellerID      string `json:"seller_id"`
	BuyerID       string `json:"buyer_id"`
	LineItemCount int    `json:"line_item_count"`
	TotalUnits    int    `json:"total_units"`
}

// Directory Events

// ConnectionEvent announces an approved or revoked buyer-seller pairing.
// Consumed to keep the local connection cache current.
type ConnectionEvent struct {
	ConnectionID  string `json:"connection_id"`
	PharmacyID    string `json:"pharmacy_id"`
	DistributorID string `json:"distributor_id"`
	Status        string `json:"status"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
