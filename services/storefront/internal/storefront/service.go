// Package storefront holds per-session storefront state: the cart snapshot
// reconciled against the commerce backend, the signed-in customer and the
// active region.
package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/event"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
)

// MaxQuantityPerItem bounds the quantity of a single line item.
const MaxQuantityPerItem = 100

// DefaultRegionCacheTTL is how long the region list is reused.
const DefaultRegionCacheTTL = 5 * time.Minute

// Commerce is the part of the commerce backend the storefront drives.
// *medusa.Client implements it.
type Commerce interface {
	CreateCart(ctx context.Context, regionID string) (*domain.Cart, error)
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	UpdateCart(ctx context.Context, cartID string, update medusa.CartUpdate) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (*domain.Cart, error)
	UpdateLineItem(ctx context.Context, cartID, lineItemID string, quantity int) (*domain.Cart, error)
	RemoveLineItem(ctx context.Context, cartID, lineItemID string) (*domain.Cart, error)
	ApplyDiscount(ctx context.Context, cartID, code string) (*domain.Cart, error)
	RemoveDiscount(ctx context.Context, cartID, code string) (*domain.Cart, error)

	ListShippingOptions(ctx context.Context, cartID string) ([]domain.ShippingOption, error)
	AddShippingMethod(ctx context.Context, cartID, optionID string) (*domain.Cart, error)
	CreatePaymentSessions(ctx context.Context, cartID string) (*domain.Cart, error)
	SelectPaymentSession(ctx context.Context, cartID, providerID string) (*domain.Cart, error)
	UpdatePaymentSession(ctx context.Context, cartID, providerID string, data map[string]any) (*domain.Cart, error)
	CompleteCart(ctx context.Context, cartID string) (*domain.Order, error)

	Register(ctx context.Context, reg domain.Registration) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context) error
	GetSession(ctx context.Context) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, update domain.CustomerUpdate) (*domain.Customer, error)
	AddAddress(ctx context.Context, addr domain.Address) (*domain.Customer, error)
	UpdateAddress(ctx context.Context, addressID string, addr domain.Address) (*domain.Customer, error)
	DeleteAddress(ctx context.Context, addressID string) (*domain.Customer, error)
	ListOrders(ctx context.Context, limit, offset int) (*domain.OrderList, error)

	ListRegions(ctx context.Context) ([]domain.Region, error)
}

// Service hands out Session containers. Containers are cached per session
// id so concurrent requests of one browser share a snapshot and a lock;
// the persisted state lives in the session store.
type Service struct {
	commerce Commerce
	store    session.Store
	bus      *event.Bus
	logger   *slog.Logger

	regionTTL time.Duration
	now       func() time.Time

	regionsMu sync.Mutex
	regions   []domain.Region
	regionsAt time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option customises a Service.
type Option func(*Service)

// WithRegionCacheTTL sets how long the region list is cached.
func WithRegionCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.regionTTL = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service. bus may be nil.
func NewService(commerce Commerce, store session.Store, bus *event.Bus, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		commerce:  commerce,
		store:     store,
		bus:       bus,
		logger:    logger,
		regionTTL: DefaultRegionCacheTTL,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns the initialised container for sessionID.
func (svc *Service) Open(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	svc.mu.Lock()
	s, ok := svc.sessions[sessionID]
	if !ok {
		s = newSession(svc, sessionID)
		svc.sessions[sessionID] = s
	}
	s.lastUsed = svc.now()
	svc.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep drops containers unused for longer than idle and returns how many
// were dropped. Their persisted state is kept.
func (svc *Service) Sweep(idle time.Duration) int {
	cutoff := svc.now().Add(-idle)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	n := 0
	for id, s := range svc.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(svc.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (svc *Service) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.Sweep(idle); n > 0 {
				svc.logger.Debug("swept idle storefront sessions", slog.Int("count", n))
			}
		}
	}
}

// Regions returns the regions offered by the backend.
func (svc *Service) Regions(ctx context.Context) ([]domain.Region, error) {
	svc.regionsMu.Lock()
	defer svc.regionsMu.Unlock()

	if svc.regions != nil && svc.now().Sub(svc.regionsAt) < svc.regionTTL {
		return svc.regions, nil
	}
	regions, err := svc.commerce.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	svc.regions = regions
	svc.regionsAt = svc.now()
	return regions, nil
}

func (svc *Service) publish(ctx context.Context, e event.Event) {
	if svc.bus == nil {
		return
	}
	svc.bus.Publish(ctx, e)
}
