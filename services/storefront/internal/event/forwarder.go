package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pkgkafka "github.com/utafrali/jewelrycommerce/pkg/kafka"
	"github.com/utafrali/jewelrycommerce/pkg/logger"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
)

// Kafka topics for storefront events.
var (
	TopicCartEvents     = pkgkafka.Topic("cart", "events")
	TopicOrderEvents    = pkgkafka.Topic("order", "events")
	TopicCustomerEvents = pkgkafka.Topic("customer", "events")
)

// SourceStorefront identifies events published by this service.
const SourceStorefront = "storefront-service"

// CartData is the payload of cart events.
type CartData struct {
	SessionID  string         `json:"session_id"`
	CartID     string         `json:"cart_id"`
	CustomerID string         `json:"customer_id,omitempty"`
	Version    uint64         `json:"version"`
	Items      []CartItemData `json:"items"`
	ItemCount  int            `json:"item_count"`
	Subtotal   int64          `json:"subtotal"`
	Total      int64          `json:"total"`
	Currency   string         `json:"currency"`
}

// CartItemData is one line item within CartData.
type CartItemData struct {
	LineItemID string `json:"line_item_id"`
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id"`
	Size       string `json:"size,omitempty"`
	Title      string `json:"title"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
}

// OrderData is the payload of order.placed.
type OrderData struct {
	SessionID string `json:"session_id"`
	CartID    string `json:"cart_id"`
	OrderID   string `json:"order_id"`
	DisplayID int    `json:"display_id"`
	Email     string `json:"email"`
	Total     int64  `json:"total"`
	Currency  string `json:"currency"`
}

// CustomerData is the payload of customer events.
type CustomerData struct {
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
}

// Publisher sends envelopes to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Forwarder defaults.
const (
	DefaultQueueSize      = 256
	DefaultPublishTimeout = 5 * time.Second
)

// Forwarder republishes bus events to Kafka.
type Forwarder struct {
	publisher Publisher
	logger    *slog.Logger
	queueSize int
	timeout   time.Duration
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithQueueSize sets how many events may wait for the broker before new ones
// are dropped.
func WithQueueSize(n int) ForwarderOption {
	return func(f *Forwarder) {
		if n > 0 {
			f.queueSize = n
		}
	}
}

// WithPublishTimeout bounds each queued publish.
func WithPublishTimeout(d time.Duration) ForwarderOption {
	return func(f *Forwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewForwarder creates a forwarder writing through publisher.
func NewForwarder(publisher Publisher, logger *slog.Logger, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		publisher: publisher,
		logger:    logger,
		queueSize: DefaultQueueSize,
		timeout:   DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type outbound struct {
	ctx       context.Context
	eventType string
	topic     string
	envelope  *pkgkafka.Event
}

// Attach subscribes the forwarder to every event on bus. Events are queued
// and published from a background goroutine, so bus publishers never wait on
// the broker; when the queue is full the event is dropped. The returned
// function unsubscribes and waits for queued events to be published.
func (f *Forwarder) Attach(bus *Bus) func() {
	queue := make(chan outbound, f.queueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for out := range queue {
			f.send(out)
		}
	}()

	var (
		mu     sync.Mutex
		closed bool
	)
	unsubscribe := bus.Subscribe(All, func(ctx context.Context, e Event) {
		topic, envelope, err := f.envelope(ctx, e)
		if err != nil {
			f.logger.WarnContext(ctx, "failed to forward storefront event",
				slog.String("event_type", e.Type),
				slog.String("error", err.Error()),
			)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case queue <- outbound{ctx: context.WithoutCancel(ctx), eventType: e.Type, topic: topic, envelope: envelope}:
		default:
			f.logger.WarnContext(ctx, "event queue full, dropping storefront event",
				slog.String("event_type", e.Type),
				slog.Int("queue_size", f.queueSize),
			)
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(queue)
			mu.Unlock()
			<-done
		})
	}
}

func (f *Forwarder) send(out outbound) {
	ctx, cancel := context.WithTimeout(out.ctx, f.timeout)
	defer cancel()
	if err := f.publisher.Publish(ctx, out.topic, out.envelope); err != nil {
		f.logger.WarnContext(ctx, "failed to forward storefront event",
			slog.String("event_type", out.eventType),
			slog.String("topic", out.topic),
			slog.String("error", err.Error()),
		)
	}
}

// Forward converts e to an envelope and publishes it synchronously.
func (f *Forwarder) Forward(ctx context.Context, e Event) error {
	topic, envelope, err := f.envelope(ctx, e)
	if err != nil {
		return err
	}
	if err := f.publisher.Publish(ctx, topic, envelope); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

func (f *Forwarder) envelope(ctx context.Context, e Event) (string, *pkgkafka.Event, error) {
	topic, aggregateType, aggregateID, data := envelopeFor(e)
	if topic == "" {
		return "", nil, fmt.Errorf("unknown event type %q", e.Type)
	}

	envelope, err := pkgkafka.NewEvent(e.Type, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return "", nil, fmt.Errorf("create %s event: %w", e.Type, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		envelope.WithCorrelationID(id)
	}
	envelope.WithMetadata("session_id", e.SessionID)
	if e.Version > 0 {
		envelope.Version = int(e.Version)
	}
	return topic, envelope, nil
}

func envelopeFor(e Event) (topic, aggregateType, aggregateID string, data any) {
	switch e.Type {
	case TypeCartUpdated, TypeCartCleared:
		return TopicCartEvents, "cart", e.CartID, cartData(e)
	case TypeOrderPlaced:
		d := OrderData{SessionID: e.SessionID, CartID: e.CartID}
		if o := e.Order; o != nil {
			d.OrderID, d.DisplayID, d.Email = o.ID, o.DisplayID, o.Email
			d.Total, d.Currency = o.Total, o.CurrencyCode
		}
		return TopicOrderEvents, "order", d.OrderID, d
	case TypeCustomerLoggedIn, TypeCustomerLoggedOut:
		return TopicCustomerEvents, "customer", e.CustomerID,
			CustomerData{SessionID: e.SessionID, CustomerID: e.CustomerID}
	}
	return "", "", "", nil
}

func cartData(e Event) CartData {
	d := CartData{
		SessionID:  e.SessionID,
		CartID:     e.CartID,
		CustomerID: e.CustomerID,
		Version:    e.Version,
		Items:      []CartItemData{},
	}
	c := e.Cart
	if c == nil {
		return d
	}
	for _, item := range c.Items {
		d.Items = append(d.Items, itemData(item))
	}
	d.ItemCount = c.ItemCount()
	d.Subtotal, d.Total = c.Subtotal, c.Total
	d.Currency = c.CurrencyCode()
	return d
}

func itemData(item domain.LineItem) CartItemData {
	key := item.Key()
	return CartItemData{
		LineItemID: item.ID,
		ProductID:  key.ProductID,
		VariantID:  item.VariantID,
		Size:       key.Size,
		Title:      item.Title,
		UnitPrice:  item.UnitPrice,
		Quantity:   item.Quantity,
	}
}
