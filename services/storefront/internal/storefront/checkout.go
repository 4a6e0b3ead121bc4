package storefront

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/event"
)

// DefaultPaymentProvider is used when InitPayment is given no provider.
const DefaultPaymentProvider = "manual"

// ShippingOptions lists the shipping options for the session's cart.
func (s *Session) ShippingOptions(ctx context.Context) ([]domain.ShippingOption, error) {
	cartID := s.CartID()
	if cartID == "" {
		return nil, errNoCart
	}
	return s.svc.commerce.ListShippingOptions(s.remote(ctx), cartID)
}

// SelectShippingOption attaches a shipping option to the cart.
func (s *Session) SelectShippingOption(ctx context.Context, optionID string) (CartView, error) {
	if strings.TrimSpace(optionID) == "" {
		return s.View(), apperrors.InvalidInput("shipping option id is required")
	}
	return s.mutate(ctx, "select_shipping", false, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		_, err := s.svc.commerce.AddShippingMethod(ctx, cartID, optionID)
		return err
	})
}

// InitPayment creates the cart's payment sessions and selects provider.
func (s *Session) InitPayment(ctx context.Context, provider string) (CartView, error) {
	if provider = strings.TrimSpace(provider); provider == "" {
		provider = DefaultPaymentProvider
	}
	return s.mutate(ctx, "init_payment", false, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		if _, err := s.svc.commerce.CreatePaymentSessions(ctx, cartID); err != nil {
			return err
		}
		_, err := s.svc.commerce.SelectPaymentSession(ctx, cartID, provider)
		return err
	})
}

// UpdatePayment sends provider data for the selected payment session.
func (s *Session) UpdatePayment(ctx context.Context, provider string, data map[string]any) (CartView, error) {
	if provider = strings.TrimSpace(provider); provider == "" {
		provider = DefaultPaymentProvider
	}
	return s.mutate(ctx, "update_payment", false, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		_, err := s.svc.commerce.UpdatePaymentSession(ctx, cartID, provider, data)
		return err
	})
}

// Complete places the order and forgets the cart.
func (s *Session) Complete(ctx context.Context) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cartID := s.CartID()
	if cartID == "" {
		return nil, errNoCart
	}
	rctx := s.remote(ctx)
	order, err := s.svc.commerce.CompleteCart(rctx, cartID)
	if err != nil {
		_, err = s.fail(rctx, "complete", cartID, err)
		return nil, err
	}

	if err := s.forgetCart(ctx, s.seq.Add(1), cartID); err != nil {
		s.log(ctx).ErrorContext(ctx, "order placed but cart id could not be forgotten",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	s.log(ctx).InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.Int("display_id", order.DisplayID),
	)

	s.stateMu.RLock()
	customerID := s.customerIDLocked()
	s.stateMu.RUnlock()
	s.svc.publish(ctx, event.Event{
		Type:       event.TypeOrderPlaced,
		SessionID:  s.id,
		CustomerID: customerID,
		CartID:     cartID,
		Order:      order,
	})
	return order, nil
}
