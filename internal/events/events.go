// Package events carries order lifecycle events from the outbox table to Kafka.
//
// Events are written to the outbox in the same transaction as the order
// change they describe; Relay publishes them afterwards, at least once.
package events

import (
	"strconv"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/webstore/store-api/internal/domain/order"
)

// Event types. Each is also the default Kafka topic of the event.
const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	OrderDeleted = "order.deleted"
)

// Event is one order state change.
type Event struct {
	ID            uuid.UUID
	Type          string
	OrderID       int64
	UserID        int64
	PaymentStatus string
	OrderStatus   string
	OccurredAt    time.Time
}

// ForOrder builds an event of type typ describing o.
func ForOrder(typ string, o *order.Order, at time.Time) Event {
	return Event{
		ID:            uuid.New(),
		Type:          typ,
		OrderID:       o.ID,
		UserID:        o.UserID,
		PaymentStatus: o.PaymentStatus,
		OrderStatus:   o.OrderStatus,
		OccurredAt:    at.UTC(),
	}
}

// Key partitions events by order so one order's events stay ordered.
func (ev Event) Key() string {
	return strconv.FormatInt(ev.OrderID, 10)
}

// Payload encodes the event body as JSON.
func (ev Event) Payload() []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Int64(ev.OrderID) })
		e.Field("userId", func(e *jx.Encoder) { e.Int64(ev.UserID) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(ev.PaymentStatus) })
		e.Field("orderStatus", func(e *jx.Encoder) { e.Str(ev.OrderStatus) })
		e.Field("occurredAt", func(e *jx.Encoder) { e.Str(ev.OccurredAt.Format(time.RFC3339Nano)) })
	})
	return e.Bytes()
}

// Record is a stored outbox row.
type Record struct {
	ID        int64
	EventID   uuid.UUID
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}
