package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/pkg/httpclient"
	"github.com/utafrali/jewelrycommerce/pkg/logger"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/event"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
)

// CartState is the reconciliation state of a session's cart.
type CartState string

// Cart states.
const (
	StateUninitialized CartState = "uninitialized"
	StateLoading       CartState = "loading"
	StateEmpty         CartState = "empty"
	StatePopulated     CartState = "populated"
	StateError         CartState = "error"
)

// CartView is a read-only snapshot of a session's cart. Cart is nil when the
// session has no cart and must not be modified.
type CartView struct {
	State   CartState
	Cart    *domain.Cart
	Version uint64
	Err     error
}

// ItemCount returns the total quantity in the cart.
func (v CartView) ItemCount() int {
	return v.Cart.ItemCount()
}

func stateFor(c *domain.Cart) CartState {
	if c.IsEmpty() {
		return StateEmpty
	}
	return StatePopulated
}

// Session is the storefront container of one browser session.
//
// Mutations hold mu for their whole remote round-trip, so they apply in
// order. Every remote fetch draws a sequence number first; a result is
// applied only when its number is newer than the last applied one.
type Session struct {
	id     string
	svc    *Service
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool

	seq atomic.Uint64

	stateMu  sync.RWMutex
	applied  uint64
	version  uint64
	state    CartState
	cart     *domain.Cart
	cartID   string
	lastErr  error
	token    string
	customer *domain.Customer
	regionID string

	// guarded by svc.mu
	lastUsed time.Time
}

func newSession(svc *Service, id string) *Session {
	return &Session{
		id:     id,
		svc:    svc,
		logger: svc.logger.With(slog.String("session_id", id)),
		state:  StateUninitialized,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Init loads the persisted region preference, customer token and cart.
// It runs once per container; a failing store leaves the container
// uninitialised so the next request retries.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	regionID, _, err := s.svc.store.Get(ctx, s.id, session.KeyRegionID)
	if err != nil {
		return fmt.Errorf("load region preference: %w", err)
	}
	s.stateMu.Lock()
	s.regionID = regionID
	s.stateMu.Unlock()

	if err := s.initCustomer(ctx); err != nil {
		return err
	}
	if err := s.initCart(ctx); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

// View returns the current cart snapshot.
func (s *Session) View() CartView {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return CartView{State: s.state, Cart: s.cart, Version: s.version, Err: s.lastErr}
}

// State returns the cart state.
func (s *Session) State() CartState {
	return s.View().State
}

// CartID returns the persisted cart id, or "".
func (s *Session) CartID() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.cartID
}

func (s *Session) log(ctx context.Context) *slog.Logger {
	if logger.SessionIDFromContext(ctx) == s.id {
		return logger.WithContext(ctx, s.svc.logger)
	}
	return logger.WithContext(ctx, s.logger)
}

// remote returns ctx carrying the customer's bearer token, if any.
func (s *Session) remote(ctx context.Context) context.Context {
	s.stateMu.RLock()
	token := s.token
	s.stateMu.RUnlock()
	if token == "" {
		return ctx
	}
	return medusa.WithToken(ctx, token)
}

func (s *Session) setLoading() {
	s.stateMu.Lock()
	s.state = StateLoading
	s.stateMu.Unlock()
}

// apply installs cart as the snapshot unless a newer fetch already landed.
func (s *Session) apply(ctx context.Context, seq uint64, cart *domain.Cart) bool {
	s.stateMu.Lock()
	if seq <= s.applied {
		s.stateMu.Unlock()
		s.log(ctx).DebugContext(ctx, "discarded stale cart snapshot", slog.Uint64("seq", seq))
		return false
	}
	s.applied = seq
	s.version++
	s.cart = cart
	s.cartID = cart.ID
	s.state = stateFor(cart)
	s.lastErr = nil
	version, customerID := s.version, s.customerIDLocked()
	s.stateMu.Unlock()

	s.svc.publish(ctx, event.Event{
		Type:       event.TypeCartUpdated,
		SessionID:  s.id,
		CustomerID: customerID,
		CartID:     cart.ID,
		Version:    version,
		Cart:       cart,
	})
	return true
}

// reset empties the snapshot and forgets cartID if it is still current.
func (s *Session) reset(ctx context.Context, seq uint64, cartID string) {
	s.stateMu.Lock()
	if seq > s.applied {
		s.applied = seq
	}
	if cartID != "" && s.cartID != cartID {
		s.stateMu.Unlock()
		return
	}
	s.version++
	s.cart = nil
	s.cartID = ""
	s.state = StateEmpty
	s.lastErr = nil
	version, customerID := s.version, s.customerIDLocked()
	s.stateMu.Unlock()

	if cartID == "" {
		return
	}
	s.svc.publish(ctx, event.Event{
		Type:       event.TypeCartCleared,
		SessionID:  s.id,
		CustomerID: customerID,
		CartID:     cartID,
		Version:    version,
	})
}

// forgetCart removes the persisted cart id and empties the snapshot.
func (s *Session) forgetCart(ctx context.Context, seq uint64, cartID string) error {
	err := s.svc.store.Delete(ctx, s.id, session.KeyCartID)
	s.reset(ctx, seq, cartID)
	if err != nil {
		return fmt.Errorf("forget cart id: %w", err)
	}
	return nil
}

func (s *Session) markError(err error) {
	s.stateMu.Lock()
	s.state = StateError
	s.lastErr = err
	s.stateMu.Unlock()
}

func (s *Session) customerIDLocked() string {
	if s.customer == nil {
		return ""
	}
	return s.customer.ID
}

// isLocal reports whether err was raised before reaching the backend
// because the request itself was unusable.
func isLocal(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && !appErr.Remote && httpclient.IsClientError(appErr.Status)
}

// isGone reports whether the backend no longer knows the resource.
func isGone(err error) bool {
	if !medusa.IsRemote(err) {
		return false
	}
	status := medusa.StatusOf(err)
	return status == http.StatusNotFound || status == http.StatusGone
}
