package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names an order change.
type Type string

const (
	TypeStatusChanged Type = "order.status_changed"
	TypeDeleted       Type = "order.deleted"
)

// OrderEvent is the payload sent from the dashboard to the audit worker.
type OrderEvent struct {
	EventID    string    `json:"event_id"`
	Type       Type      `json:"type"`
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStatusChanged builds an event for a successful status change.
func NewStatusChanged(orderID, status, actor string) OrderEvent {
	return newEvent(TypeStatusChanged, orderID, status, actor)
}

// NewDeleted builds an event for a successful delete.
func NewDeleted(orderID, actor string) OrderEvent {
	return newEvent(TypeDeleted, orderID, "", actor)
}

func newEvent(typ Type, orderID, status, actor string) OrderEvent {
	return OrderEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		OrderID:    orderID,
		Status:     status,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}
