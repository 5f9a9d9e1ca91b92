package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event types published after a committed state change.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventInvoiceGenerated   = "invoice.generated"
	EventInvoiceVoided      = "invoice.voided"
	EventInventoryAdjusted  = "inventory.adjusted"
	EventInventoryCritical  = "inventory.critical"
)

// Event is a domain notification. Payload must be JSON-serialisable.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// EventPublisher delivers events to interested parties outside the process.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// OrderStatusChanged is the payload of order.status_changed.
type OrderStatusChanged struct {
	OrderID int         `json:"order_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
	Comment string      `json:"comment"`
	ActorID int         `json:"actor_id,omitempty"`
}

// InventoryAdjusted is the payload of inventory.adjusted and inventory.critical.
type InventoryAdjusted struct {
	RecordID          int          `json:"record_id"`
	ArticleID         int          `json:"article_id"`
	MovementType      MovementType `json:"movement_type"`
	QuantityDelta     int          `json:"quantity_delta"`
	QuantityAvailable int          `json:"quantity_available"`
	QuantityMinimum   int          `json:"quantity_minimum"`
	Reason            string       `json:"reason"`
}

// notifier publishes events best-effort. The transaction has already
// committed when it runs, so failures are logged and never returned.
type notifier struct {
	publisher EventPublisher
	logger    *zap.Logger
}

func newNotifier(publisher EventPublisher, logger *zap.Logger) notifier {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return notifier{publisher: publisher, logger: logger}
}

func (n notifier) notify(ctx context.Context, eventType string, payload any) {
	event := Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Warn("event publish failed",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
