package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/event"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
)

var errNotAuthenticated = apperrors.Unauthorized("not logged in")

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never treated as expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

func (s *Session) initCustomer(ctx context.Context) error {
	token, ok, err := s.svc.store.Get(ctx, s.id, session.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("load auth token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}
	if tokenExpired(token, s.svc.now()) {
		s.log(ctx).InfoContext(ctx, "dropping expired customer token")
		return s.dropToken(ctx)
	}

	customer, err := s.svc.commerce.GetSession(medusa.WithToken(ctx, token))
	if err != nil {
		s.log(ctx).InfoContext(ctx, "customer session could not be restored",
			slog.String("error", err.Error()),
		)
		return s.dropToken(ctx)
	}
	s.setCustomer(token, customer)
	return nil
}

func (s *Session) dropToken(ctx context.Context) error {
	s.setCustomer("", nil)
	if err := s.svc.store.Delete(ctx, s.id, session.KeyAuthToken); err != nil {
		return fmt.Errorf("delete auth token: %w", err)
	}
	return nil
}

func (s *Session) setCustomer(token string, c *domain.Customer) {
	s.stateMu.Lock()
	s.token = token
	s.customer = c
	s.stateMu.Unlock()
}

// Customer returns the signed-in customer, or nil.
func (s *Session) Customer() *domain.Customer {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.customer
}

// Authenticated reports whether a customer is signed in.
func (s *Session) Authenticated() bool {
	return s.Customer() != nil
}

// Login signs a customer in, persists the token and refetches the cart so
// it reflects the customer's pricing.
func (s *Session) Login(ctx context.Context, email, password string) (*domain.Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	token, err := s.svc.commerce.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	customer, err := s.svc.commerce.GetSession(medusa.WithToken(ctx, token))
	if err != nil {
		return nil, err
	}
	if err := s.svc.store.Set(ctx, s.id, session.KeyAuthToken, token); err != nil {
		return nil, fmt.Errorf("persist auth token: %w", err)
	}
	s.setCustomer(token, customer)

	s.log(ctx).InfoContext(ctx, "customer logged in", slog.String("customer_id", customer.ID))
	s.svc.publish(ctx, event.Event{
		Type:       event.TypeCustomerLoggedIn,
		SessionID:  s.id,
		CustomerID: customer.ID,
	})

	if _, err := s.Refresh(ctx); err != nil {
		s.log(ctx).WarnContext(ctx, "cart refetch after login failed", slog.String("error", err.Error()))
	}
	return customer, nil
}

// Register creates an account and signs it in.
func (s *Session) Register(ctx context.Context, reg domain.Registration) (*domain.Customer, error) {
	if _, err := s.svc.commerce.Register(ctx, reg); err != nil {
		return nil, err
	}
	return s.Login(ctx, reg.Email, reg.Password)
}

// Logout ends the remote session, ignoring backend errors, and always
// forgets the local token and customer.
func (s *Session) Logout(ctx context.Context) error {
	s.stateMu.RLock()
	token, customerID := s.token, s.customerIDLocked()
	s.stateMu.RUnlock()

	if token != "" {
		if err := s.svc.commerce.Logout(medusa.WithToken(ctx, token)); err != nil {
			s.log(ctx).DebugContext(ctx, "remote logout failed", slog.String("error", err.Error()))
		}
	}
	err := s.dropToken(ctx)

	if customerID != "" {
		s.svc.publish(ctx, event.Event{
			Type:       event.TypeCustomerLoggedOut,
			SessionID:  s.id,
			CustomerID: customerID,
		})
	}
	return err
}

// authed returns ctx carrying the token, or errNotAuthenticated.
func (s *Session) authed(ctx context.Context) (context.Context, error) {
	s.stateMu.RLock()
	token := s.token
	s.stateMu.RUnlock()
	if token == "" {
		return nil, errNotAuthenticated
	}
	return medusa.WithToken(ctx, token), nil
}

func (s *Session) updateCustomer(ctx context.Context, fn func(context.Context) (*domain.Customer, error)) (*domain.Customer, error) {
	rctx, err := s.authed(ctx)
	if err != nil {
		return nil, err
	}
	customer, err := fn(rctx)
	if err != nil {
		return nil, err
	}
	s.stateMu.Lock()
	if s.token != "" {
		s.customer = customer
	}
	s.stateMu.Unlock()
	return customer, nil
}

// UpdateProfile changes the customer's profile.
func (s *Session) UpdateProfile(ctx context.Context, update domain.CustomerUpdate) (*domain.Customer, error) {
	return s.updateCustomer(ctx, func(ctx context.Context) (*domain.Customer, error) {
		return s.svc.commerce.UpdateCustomer(ctx, update)
	})
}

// AddAddress adds a shipping address.
func (s *Session) AddAddress(ctx context.Context, addr domain.Address) (*domain.Customer, error) {
	return s.updateCustomer(ctx, func(ctx context.Context) (*domain.Customer, error) {
		return s.svc.commerce.AddAddress(ctx, addr)
	})
}

// UpdateAddress replaces a shipping address.
func (s *Session) UpdateAddress(ctx context.Context, addressID string, addr domain.Address) (*domain.Customer, error) {
	return s.updateCustomer(ctx, func(ctx context.Context) (*domain.Customer, error) {
		return s.svc.commerce.UpdateAddress(ctx, addressID, addr)
	})
}

// DeleteAddress removes a shipping address.
func (s *Session) DeleteAddress(ctx context.Context, addressID string) (*domain.Customer, error) {
	return s.updateCustomer(ctx, func(ctx context.Context) (*domain.Customer, error) {
		return s.svc.commerce.DeleteAddress(ctx, addressID)
	})
}

// Orders returns a page of the customer's order history.
func (s *Session) Orders(ctx context.Context, limit, offset int) (*domain.OrderList, error) {
	rctx, err := s.authed(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.commerce.ListOrders(rctx, limit, offset)
}
