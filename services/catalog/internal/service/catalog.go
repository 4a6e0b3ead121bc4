package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/pkg/slug"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/event"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/payment"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/repository"
)

// CatalogService implements the business logic of the demo catalog.
type CatalogService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	producer *event.Producer
	payments *payment.Simulator
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a CatalogService.
type Option func(*CatalogService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) { s.now = now }
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	producer *event.Producer,
	payments *payment.Simulator,
	logger *slog.Logger,
	opts ...Option,
) *CatalogService {
	s := &CatalogService{
		products: products,
		orders:   orders,
		producer: producer,
		payments: payments,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed stores the sample products when the catalog is empty and returns how
// many were added.
func (s *CatalogService) Seed(ctx context.Context) (int, error) {
	_, total, err := s.products.List(ctx, domain.ProductFilter{Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if total > 0 {
		return 0, nil
	}

	samples := domain.SampleProducts()
	base := s.now().UTC()
	for i := range samples {
		p := &samples[i]
		p.ID = uuid.NewString()
		p.Handle = slug.Generate(p.Name)
		// Distinct timestamps keep the seed order stable in listings.
		p.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := s.products.Create(ctx, p); err != nil {
			return i, fmt.Errorf("seed product %q: %w", p.Name, err)
		}
	}
	s.logger.InfoContext(ctx, "catalog seeded", slog.Int("products", len(samples)))
	return len(samples), nil
}

// ListProducts returns a page of products and the total match count.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// GetProduct retrieves a product by UUID or by handle.
func (s *CatalogService) GetProduct(ctx context.Context, idOrHandle string) (*domain.Product, error) {
	var (
		product *domain.Product
		err     error
	)
	if _, parseErr := uuid.Parse(idOrHandle); parseErr == nil {
		product, err = s.products.GetByID(ctx, idOrHandle)
	} else {
		product, err = s.products.GetByHandle(ctx, idOrHandle)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	Price       int64
	Category    string
	ImageURL    string
	Images      []string
	Material    string
	IsPreOrder  bool
	InStock     bool
	Sizes       []string
}

// CreateProduct stores a new product. Its handle comes from the name; a
// taken handle gets a short id suffix.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	handle := slug.Generate(name)
	if handle == "" {
		return nil, apperrors.InvalidInput("product name must contain letters or digits")
	}

	images := input.Images
	if len(images) == 0 && input.ImageURL != "" {
		images = []string{input.ImageURL}
	}

	product := &domain.Product{
		ID:          uuid.NewString(),
		Handle:      handle,
		Name:        name,
		Description: input.Description,
		Price:       input.Price,
		Category:    strings.ToLower(strings.TrimSpace(input.Category)),
		ImageURL:    input.ImageURL,
		Images:      images,
		Material:    input.Material,
		IsPreOrder:  input.IsPreOrder,
		InStock:     input.InStock,
		Sizes:       input.Sizes,
		CreatedAt:   s.now().UTC(),
	}

	err := s.products.Create(ctx, product)
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		product.Handle = handle + "-" + product.ID[:8]
		err = s.products.Create(ctx, product)
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("handle", product.Handle),
	)
	return product, nil
}

// ListOrders returns a page of orders, newest first.
func (s *CatalogService) ListOrders(ctx context.Context, limit, offset int) ([]domain.Order, int, error) {
	orders, total, err := s.orders.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrder retrieves an order by its ID.
func (s *CatalogService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// CreateOrderInput holds the parameters for placing an order.
type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	PaymentMethod   string
	Items           []OrderItemInput
}

// OrderItemInput is one requested product line.
type OrderItemInput struct {
	ProductID string
	Quantity  int
	Size      string
}

// CreateOrder places a pending order. Names and prices are taken from the
// catalog and the total is their sum.
func (s *CatalogService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Quantity < 1 {
			return nil, apperrors.InvalidInput("item quantity must be at least 1")
		}
		product, err := s.GetProduct(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Purchasable() {
			return nil, apperrors.Conflict(fmt.Sprintf("%s is out of stock", product.Name))
		}
		if !product.HasSize(in.Size) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("size %q is not offered for %s", in.Size, product.Name))
		}
		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  in.Quantity,
			Size:      in.Size,
		})
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:              uuid.NewString(),
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerEmail:   strings.ToLower(strings.TrimSpace(input.CustomerEmail)),
		CustomerPhone:   input.CustomerPhone,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		Items:           items,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.TotalAmount = order.ItemsTotal()

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}

// UpdateOrderStatus sets an order's status.
func (s *CatalogService) UpdateOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, apperrors.InvalidInput("status must not be empty")
	}

	current, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	updated, err := s.orders.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if current.Status != status {
		if err := s.producer.PublishOrderStatusChanged(ctx, id, current.Status, status); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order status event",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", current.Status),
		slog.String("new_status", status),
	)
	return updated, nil
}

// PaymentInput is a simulated charge request. When OrderID is set the order
// must exist, a zero Amount charges the order total, and a successful charge
// marks the order paid.
type PaymentInput struct {
	Amount  int64
	OrderID string
}

// SimulatePayment runs a charge through the payment simulator.
func (s *CatalogService) SimulatePayment(ctx context.Context, input PaymentInput) (*payment.Result, error) {
	if input.Amount < 0 {
		return nil, apperrors.InvalidInput("amount must not be negative")
	}

	amount := input.Amount
	if input.OrderID != "" {
		order, err := s.GetOrder(ctx, input.OrderID)
		if err != nil {
			return nil, err
		}
		if amount == 0 {
			amount = order.TotalAmount
		}
	}

	result, err := s.payments.Process(ctx, payment.Charge{Amount: amount, OrderID: input.OrderID})
	if err != nil {
		s.logger.WarnContext(ctx, "simulated payment declined",
			slog.String("order_id", input.OrderID),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if input.OrderID != "" {
		if _, err := s.UpdateOrderStatus(ctx, input.OrderID, domain.OrderStatusPaid); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "simulated payment succeeded",
		slog.String("transaction_id", result.TransactionID),
		slog.String("order_id", input.OrderID),
	)
	return result, nil
}
