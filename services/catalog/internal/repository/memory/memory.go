// Package memory holds map-backed repositories. Data is lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/repository"
)

var (
	_ repository.ProductRepository = (*ProductRepository)(nil)
	_ repository.OrderRepository   = (*OrderRepository)(nil)
)

// ProductRepository implements repository.ProductRepository in memory.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	order    []string // ids in insertion order
}

// NewProductRepository creates an empty product repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*domain.Product)}
}

func cloneProduct(p *domain.Product) *domain.Product {
	c := *p
	c.Images = slices.Clone(p.Images)
	c.Sizes = slices.Clone(p.Sizes)
	return &c
}

// Create stores a copy of p.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; ok {
		return apperrors.AlreadyExists("product", "id", p.ID)
	}
	for _, existing := range r.products {
		if existing.Handle == p.Handle {
			return apperrors.AlreadyExists("product", "handle", p.Handle)
		}
	}
	r.products[p.ID] = cloneProduct(p)
	r.order = append(r.order, p.ID)
	return nil
}

// GetByID returns a copy of the product with the given id.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return cloneProduct(p), nil
}

// GetByHandle returns a copy of the product with the given handle.
func (r *ProductRepository) GetByHandle(_ context.Context, handle string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.Handle == handle {
			return cloneProduct(p), nil
		}
	}
	return nil, apperrors.NotFound("product", handle)
}

// List returns the filtered products in insertion order.
func (r *ProductRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Product
	for _, id := range r.order {
		if p := r.products[id]; filter.Matches(p) {
			matched = append(matched, *cloneProduct(p))
		}
	}
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

// OrderRepository implements repository.OrderRepository in memory.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	order  []string
}

// NewOrderRepository creates an empty order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}

// Create stores a copy of o.
func (r *OrderRepository) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return apperrors.AlreadyExists("order", "id", o.ID)
	}
	r.orders[o.ID] = cloneOrder(o)
	r.order = append(r.order, o.ID)
	return nil
}

// GetByID returns a copy of the order with the given id.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	return cloneOrder(o), nil
}

// List returns orders newest first.
func (r *OrderRepository) List(_ context.Context, limit, offset int) ([]domain.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Order, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		all = append(all, *cloneOrder(r.orders[r.order[i]]))
	}
	return page(all, limit, offset), len(all), nil
}

// UpdateStatus sets the status of an existing order.
func (r *OrderRepository) UpdateStatus(_ context.Context, id, status string, at time.Time) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	o.Status = status
	o.UpdatedAt = at
	return cloneOrder(o), nil
}

// page applies an offset window. A non-positive limit returns everything
// from offset on.
func page[T any](items []T, limit, offset int) []T {
	offset = min(max(offset, 0), len(items))
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
