// Package event carries storefront state changes to in-process subscribers
// and, when brokers are configured, to Kafka.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

// Event types published by the storefront.
const (
	TypeCartUpdated       = "cart.updated"
	TypeCartCleared       = "cart.cleared"
	TypeOrderPlaced       = "order.placed"
	TypeCustomerLoggedIn  = "customer.logged_in"
	TypeCustomerLoggedOut = "customer.logged_out"
)

// All subscribes a handler to every event type.
const All = "*"

// Event is a state change observed in one storefront session.
type Event struct {
	Type       string
	SessionID  string
	CustomerID string
	CartID     string

	// Version is the snapshot version for cart events.
	Version uint64
	Cart    *domain.Cart
	Order   *domain.Order

	OccurredAt time.Time
}

// Handler receives published events. It runs on the publisher's goroutine
// and must not block.
type Handler func(ctx context.Context, e Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous in-process publish/subscribe hub.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers h for eventType (or All) and returns a function that
// removes the subscription.
func (b *Bus) Subscribe(eventType string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to the handlers subscribed to its type and to All.
// A panicking handler is logged and does not stop delivery.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs[e.Type])+len(b.subs[All]))
	targets = append(targets, b.subs[e.Type]...)
	targets = append(targets, b.subs[All]...)
	b.mu.RUnlock()

	for _, s := range targets {
		b.deliver(ctx, s.handler, e)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, e Event) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.ErrorContext(ctx, "event handler panicked",
				slog.String("event_type", e.Type),
				slog.Any("panic", rec),
			)
		}
	}()
	h(ctx, e)
}
