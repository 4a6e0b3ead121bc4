package repository

import (
	"context"
	"time"

	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
)

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product. A duplicate handle is ErrAlreadyExists.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByHandle retrieves a product by its URL handle.
	GetByHandle(ctx context.Context, handle string) (*domain.Product, error)

	// List returns products matching the filter, oldest first, along with
	// the total count before paging.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders newest first with the total count.
	List(ctx context.Context, limit, offset int) ([]domain.Order, int, error)

	// UpdateStatus sets an order's status and returns the updated order.
	UpdateStatus(ctx context.Context, id, status string, at time.Time) (*domain.Order, error)
}
