package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/jewelrycommerce/pkg/kafka"
	"github.com/utafrali/jewelrycommerce/pkg/logger"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
)

// Kafka topics for catalog domain events.
var (
	TopicProductEvents = pkgkafka.Topic("catalog", "products")
	TopicOrderEvents   = pkgkafka.Topic("catalog", "orders")
)

// Event types.
const (
	ProductCreated     = "catalog.product.created"
	OrderCreated       = "catalog.order.created"
	OrderStatusChanged = "catalog.order.status_changed"
)

// Aggregate types.
const (
	AggregateTypeProduct = "product"
	AggregateTypeOrder   = "order"
)

// SourceCatalogService identifies events originating from the catalog service.
const SourceCatalogService = "catalog-service"

// ProductCreatedData is the payload for a catalog.product.created event.
type ProductCreatedData struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	InStock  bool   `json:"in_stock"`
}

// OrderCreatedData is the payload for a catalog.order.created event.
type OrderCreatedData struct {
	ID            string `json:"id"`
	CustomerEmail string `json:"customer_email"`
	ItemCount     int    `json:"item_count"`
	TotalAmount   int64  `json:"total_amount"`
	Status        string `json:"status"`
}

// OrderStatusChangedData is the payload for a catalog.order.status_changed event.
type OrderStatusChangedData struct {
	ID        string `json:"id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Publisher is the part of *pkgkafka.Producer the catalog uses.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog domain events. A Producer without a publisher
// drops every event.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer. publisher may be nil.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishProductCreated publishes a catalog.product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductEvents, ProductCreated, product.ID, AggregateTypeProduct, ProductCreatedData{
		ID:       product.ID,
		Handle:   product.Handle,
		Name:     product.Name,
		Category: product.Category,
		Price:    product.Price,
		InStock:  product.InStock,
	})
}

// PublishOrderCreated publishes a catalog.order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderEvents, OrderCreated, order.ID, AggregateTypeOrder, OrderCreatedData{
		ID:            order.ID,
		CustomerEmail: order.CustomerEmail,
		ItemCount:     len(order.Items),
		TotalAmount:   order.TotalAmount,
		Status:        order.Status,
	})
}

// PublishOrderStatusChanged publishes a catalog.order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error {
	return p.publish(ctx, TopicOrderEvents, OrderStatusChanged, orderID, AggregateTypeOrder, OrderStatusChangedData{
		ID:        orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	if p.publisher == nil {
		return nil
	}
	evt, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	return p.publisher.Publish(ctx, topic, evt)
}
