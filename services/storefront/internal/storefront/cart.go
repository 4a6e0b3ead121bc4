package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
)

var errNoCart = apperrors.PreconditionFailed("no active cart")

// mutation performs one remote cart change. current is the snapshot at the
// time the lock was taken and may be nil.
type mutation func(ctx context.Context, cartID string, current *domain.Cart) error

// InitCart loads the persisted cart. A cart the backend cannot return is
// forgotten and the session starts empty.
func (s *Session) InitCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initCart(ctx)
}

func (s *Session) initCart(ctx context.Context) error {
	s.setLoading()
	seq := s.seq.Add(1)

	cartID, ok, err := s.svc.store.Get(ctx, s.id, session.KeyCartID)
	if err != nil {
		s.reset(ctx, seq, "")
		return fmt.Errorf("load cart id: %w", err)
	}
	if !ok || cartID == "" {
		s.reset(ctx, seq, "")
		return nil
	}

	cart, err := s.svc.commerce.GetCart(s.remote(ctx), cartID)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "persisted cart could not be loaded, starting empty",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
		s.stateMu.Lock()
		s.cartID = cartID
		s.stateMu.Unlock()
		if err := s.forgetCart(ctx, seq, cartID); err != nil {
			s.log(ctx).WarnContext(ctx, "stale cart id not removed from session store",
				slog.String("cart_id", cartID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	s.apply(ctx, seq, cart)
	return nil
}

// mutate runs fn against the session's cart and replaces the snapshot with a
// fresh fetch. When create is set a missing cart is created first in the
// active region; otherwise a missing cart is a precondition failure.
func (s *Session) mutate(ctx context.Context, op string, create bool, fn mutation) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = s.remote(ctx)

	cartID := s.CartID()
	if cartID == "" {
		if !create {
			return s.View(), errNoCart
		}
		id, err := s.createCart(ctx)
		if err != nil {
			return s.fail(ctx, op, "", err)
		}
		cartID = id
	}

	if err := fn(ctx, cartID, s.View().Cart); err != nil {
		return s.fail(ctx, op, cartID, err)
	}
	return s.refetch(ctx, op, cartID)
}

func (s *Session) createCart(ctx context.Context) (string, error) {
	regionID := ""
	if region, err := s.ActiveRegion(ctx); err == nil {
		regionID = region.ID
	} else {
		s.log(ctx).WarnContext(ctx, "creating cart without region", slog.String("error", err.Error()))
	}

	seq := s.seq.Add(1)
	cart, err := s.svc.commerce.CreateCart(ctx, regionID)
	if err != nil {
		return "", err
	}
	if err := s.svc.store.Set(ctx, s.id, session.KeyCartID, cart.ID); err != nil {
		return "", fmt.Errorf("persist cart id: %w", err)
	}
	s.apply(ctx, seq, cart)
	s.log(ctx).InfoContext(ctx, "cart created",
		slog.String("cart_id", cart.ID),
		slog.String("region_id", cart.RegionID),
	)
	return cart.ID, nil
}

func (s *Session) refetch(ctx context.Context, op, cartID string) (CartView, error) {
	seq := s.seq.Add(1)
	cart, err := s.svc.commerce.GetCart(ctx, cartID)
	if err != nil {
		if isGone(err) {
			_ = s.forgetCart(ctx, seq, cartID)
			return s.View(), err
		}
		s.markError(err)
		s.log(ctx).WarnContext(ctx, "cart refetch failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return s.View(), err
	}
	s.apply(ctx, seq, cart)
	return s.View(), nil
}

// fail records a failed mutation. Requests rejected locally leave the state
// untouched. When the backend reports the cart itself as gone, the cart id
// is forgotten so the next mutation starts a new cart.
func (s *Session) fail(ctx context.Context, op, cartID string, err error) (CartView, error) {
	if isLocal(err) {
		return s.View(), err
	}
	if cartID != "" && isGone(err) {
		seq := s.seq.Add(1)
		if _, getErr := s.svc.commerce.GetCart(ctx, cartID); isGone(getErr) {
			_ = s.forgetCart(ctx, seq, cartID)
			return s.View(), err
		}
	}
	s.markError(err)
	s.log(ctx).WarnContext(ctx, "cart mutation failed",
		slog.String("operation", op),
		slog.String("cart_id", cartID),
		slog.String("error", err.Error()),
	)
	return s.View(), err
}

// Refresh refetches the cart without taking the mutation lock. A result
// older than an already applied snapshot is dropped.
func (s *Session) Refresh(ctx context.Context) (CartView, error) {
	cartID := s.CartID()
	if cartID == "" {
		return s.View(), nil
	}
	seq := s.seq.Add(1)
	cart, err := s.svc.commerce.GetCart(s.remote(ctx), cartID)
	if err != nil {
		if isGone(err) {
			return s.View(), s.forgetCart(ctx, seq, cartID)
		}
		s.markError(err)
		return s.View(), err
	}
	s.apply(ctx, seq, cart)
	return s.View(), nil
}

func checkQuantity(qty int) error {
	if qty > MaxQuantityPerItem {
		return apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}
	return nil
}

// AddItem adds qty units of a variant, creating the cart when needed.
func (s *Session) AddItem(ctx context.Context, variantID string, qty int) (CartView, error) {
	if strings.TrimSpace(variantID) == "" {
		return s.View(), apperrors.InvalidInput("variant id is required")
	}
	if qty < 1 {
		return s.View(), apperrors.InvalidInput("quantity must be greater than 0")
	}
	if err := checkQuantity(qty); err != nil {
		return s.View(), err
	}
	return s.mutate(ctx, "add_item", true, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		_, err := s.svc.commerce.AddLineItem(ctx, cartID, variantID, qty)
		return err
	})
}

// UpdateItem sets a line item's quantity. A quantity of zero or less
// removes the item.
func (s *Session) UpdateItem(ctx context.Context, lineItemID string, qty int) (CartView, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, lineItemID)
	}
	if err := checkQuantity(qty); err != nil {
		return s.View(), err
	}
	return s.mutate(ctx, "update_item", false, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		_, err := s.svc.commerce.UpdateLineItem(ctx, cartID, lineItemID, qty)
		return err
	})
}

// RemoveItem deletes a line item.
func (s *Session) RemoveItem(ctx context.Context, lineItemID string) (CartView, error) {
	return s.mutate(ctx, "remove_item", false, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		_, err := s.svc.commerce.RemoveLineItem(ctx, cartID, lineItemID)
		return err
	})
}

// UpdateItemByKey is UpdateItem for the line item identified by key.
func (s *Session) UpdateItemByKey(ctx context.Context, key domain.LineItemKey, qty int) (CartView, error) {
	if err := checkQuantity(qty); err != nil {
		return s.View(), err
	}
	return s.mutate(ctx, "update_item", false, func(ctx context.Context, cartID string, current *domain.Cart) error {
		item, ok := current.FindItem(key)
		if !ok {
			return apperrors.NotFound("line item", keyString(key))
		}
		if qty <= 0 {
			_, err := s.svc.commerce.RemoveLineItem(ctx, cartID, item.ID)
			return err
		}
		_, err := s.svc.commerce.UpdateLineItem(ctx, cartID, item.ID, qty)
		return err
	})
}

// RemoveItemByKey is RemoveItem for the line item identified by key.
func (s *Session) RemoveItemByKey(ctx context.Context, key domain.LineItemKey) (CartView, error) {
	return s.UpdateItemByKey(ctx, key, 0)
}

func keyString(k domain.LineItemKey) string {
	if k.Size == "" {
		return k.ProductID
	}
	return k.ProductID + "/" + k.Size
}

// Clear forgets the session's cart. The remote cart is left as is.
func (s *Session) Clear(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cartID := s.CartID()
	err := s.forgetCart(ctx, s.seq.Add(1), cartID)
	if err == nil && cartID != "" {
		s.log(ctx).InfoContext(ctx, "cart cleared", slog.String("cart_id", cartID))
	}
	return s.View(), err
}

// ApplyDiscount applies a discount code.
func (s *Session) ApplyDiscount(ctx context.Context, code string) (CartView, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return s.View(), apperrors.InvalidInput("discount code is required")
	}
	return s.mutate(ctx, "apply_discount", false, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		_, err := s.svc.commerce.ApplyDiscount(ctx, cartID, code)
		return err
	})
}

// RemoveDiscount removes a discount code.
func (s *Session) RemoveDiscount(ctx context.Context, code string) (CartView, error) {
	return s.mutate(ctx, "remove_discount", false, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		_, err := s.svc.commerce.RemoveDiscount(ctx, cartID, code)
		return err
	})
}

// SetEmail sets the cart's contact email.
func (s *Session) SetEmail(ctx context.Context, email string) (CartView, error) {
	return s.updateCart(ctx, "set_email", medusa.CartUpdate{Email: email})
}

// SetShippingAddress sets the cart's shipping address.
func (s *Session) SetShippingAddress(ctx context.Context, addr domain.Address) (CartView, error) {
	return s.updateCart(ctx, "set_shipping_address", medusa.CartUpdate{ShippingAddress: &addr})
}

// SetBillingAddress sets the cart's billing address.
func (s *Session) SetBillingAddress(ctx context.Context, addr domain.Address) (CartView, error) {
	return s.updateCart(ctx, "set_billing_address", medusa.CartUpdate{BillingAddress: &addr})
}

func (s *Session) updateCart(ctx context.Context, op string, update medusa.CartUpdate) (CartView, error) {
	return s.mutate(ctx, op, false, func(ctx context.Context, cartID string, _ *domain.Cart) error {
		_, err := s.svc.commerce.UpdateCart(ctx, cartID, update)
		return err
	})
}
