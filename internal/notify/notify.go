// Package notify delivers order lifecycle events to a sink without ever
// blocking the checkout path.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// EventType names an order lifecycle event.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderConfirmed     EventType = "order.confirmed"
	EventOrderCancelled     EventType = "order.cancelled"
	EventOrderPaymentFailed EventType = "order.payment_failed"
	EventOrderStatusChanged EventType = "order.status_changed"
)

// Event is a single notification.
type Event struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	UserID      uuid.UUID      `json:"userId"`
	OrderID     uuid.UUID      `json:"orderId"`
	OrderNumber string         `json:"orderNumber"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
}

// Sink delivers events to their destination.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

const emitTimeout = 5 * time.Second

// Notifier queues events in a bounded buffer and hands them to a sink from a
// single worker goroutine.
type Notifier struct {
	sink   Sink
	queue  chan Event
	done   chan struct{}
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewNotifier starts a notifier with room for bufferSize pending events.
func NewNotifier(sink Sink, bufferSize int, logger zerolog.Logger) *Notifier {
	n := &Notifier{
		sink:   sink,
		queue:  make(chan Event, max(bufferSize, 1)),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "notifier").Logger(),
	}
	go n.run()
	return n
}

// Notify enqueues event. It never blocks: a full buffer or a closed notifier
// drops the event with a warning.
func (n *Notifier) Notify(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.logger.Warn().Str("event_type", string(event.Type)).Msg("notifier closed, dropping event")
		return
	}

	select {
	case n.queue <- event:
	default:
		n.logger.Warn().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Str("order_id", event.OrderID.String()).
			Msg("notification buffer full, dropping event")
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to end.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) run() {
	defer close(n.done)

	for event := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		if err := n.sink.Emit(ctx, event); err != nil {
			n.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Str("order_id", event.OrderID.String()).
				Msg("failed to emit notification")
		}
		cancel()
	}
}
