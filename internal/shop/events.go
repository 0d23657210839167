package shop

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderDelivered = "OrderDelivered"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // one of the consts above
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`    // e.g. "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- per-event payloads ----

type OrderCreatedPayload struct {
	OrderID    string     `json:"order_id"`
	CustomerID string     `json:"customer_id"`
	Items      []LineItem `json:"items"`
	TotalCents int        `json:"total_cents"`
}

type OrderDeliveredPayload struct {
	OrderID string `json:"order_id"`
}

type OrderCancelledPayload struct {
	OrderID  string     `json:"order_id"`
	Restored []LineItem `json:"restored"` // quantities put back on the shelf
}

// StatusForEvent maps an event type to the order status it announces.
func StatusForEvent(eventType string) (Status, bool) {
	switch eventType {
	case EventOrderCreated:
		return StatusPending, true
	case EventOrderDelivered:
		return StatusDelivered, true
	case EventOrderCancelled:
		return StatusCancelled, true
	}
	return "", false
}
