package event

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/utafrali/jewelrycommerce/pkg/kafka"
	"github.com/utafrali/jewelrycommerce/pkg/logger"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProducer_PublishOrderCreated(t *testing.T) {
	pub := &mockPublisher{}
	var captured *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicOrderEvents, mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	p := NewProducer(pub, testLogger())
	ctx := logger.WithCorrelationID(context.Background(), "req-42")
	order := &domain.Order{
		ID: "o1", CustomerEmail: "sari@example.com", TotalAmount: 1800000, Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
	}
	require.NoError(t, p.PublishOrderCreated(ctx, order))

	require.NotNil(t, captured)
	assert.Equal(t, OrderCreated, captured.EventType)
	assert.Equal(t, "o1", captured.AggregateID)
	assert.Equal(t, SourceCatalogService, captured.Source)
	assert.Equal(t, "req-42", captured.CorrelationID)

	var data OrderCreatedData
	require.NoError(t, captured.UnmarshalData(&data))
	assert.Equal(t, 1, data.ItemCount)
	assert.Equal(t, int64(1800000), data.TotalAmount)
	pub.AssertExpectations(t)
}

func TestProducer_PublishOrderStatusChanged(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, TopicOrderEvents, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		var data OrderStatusChangedData
		return e.EventType == OrderStatusChanged && e.UnmarshalData(&data) == nil &&
			data.OldStatus == "pending" && data.NewStatus == "shipped"
	})).Return(nil)

	p := NewProducer(pub, testLogger())
	require.NoError(t, p.PublishOrderStatusChanged(context.Background(), "o1", "pending", "shipped"))
	pub.AssertExpectations(t)
}

func TestProducer_PublishProductCreated(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, TopicProductEvents, mock.AnythingOfType("*kafka.Event")).Return(assert.AnError)

	p := NewProducer(pub, testLogger())
	err := p.PublishProductCreated(context.Background(), &domain.Product{ID: "p1", Handle: "ring"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestProducer_NilPublisherDrops(t *testing.T) {
	p := NewProducer(nil, testLogger())
	assert.NoError(t, p.PublishProductCreated(context.Background(), &domain.Product{ID: "p1"}))
	assert.NoError(t, p.PublishOrderStatusChanged(context.Background(), "o1", "a", "b"))
}
