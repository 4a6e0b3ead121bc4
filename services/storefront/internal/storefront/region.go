package storefront

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/money"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
)

// ActiveRegion returns the preferred region when the backend still lists
// it, otherwise the first listed region.
func (s *Session) ActiveRegion(ctx context.Context) (*domain.Region, error) {
	regions, err := s.svc.Regions(ctx)
	if err != nil {
		return nil, err
	}
	s.stateMu.RLock()
	preferred := s.regionID
	s.stateMu.RUnlock()

	region, ok := domain.ResolveRegion(regions, preferred)
	if !ok {
		return nil, apperrors.ServiceUnavailable("no regions are configured")
	}
	return region, nil
}

// SetRegion persists the region preference and moves an existing cart to
// the region.
func (s *Session) SetRegion(ctx context.Context, regionID string) (*domain.Region, CartView, error) {
	regions, err := s.svc.Regions(ctx)
	if err != nil {
		return nil, s.View(), err
	}
	region, ok := domain.ResolveRegion(regions, regionID)
	if !ok || region.ID != regionID {
		return nil, s.View(), apperrors.NotFound("region", regionID)
	}

	if err := s.svc.store.Set(ctx, s.id, session.KeyRegionID, regionID); err != nil {
		return nil, s.View(), fmt.Errorf("persist region: %w", err)
	}
	s.stateMu.Lock()
	s.regionID = regionID
	s.stateMu.Unlock()

	if s.CartID() == "" {
		return region, s.View(), nil
	}
	view, err := s.updateCart(ctx, "set_region", medusa.CartUpdate{RegionID: regionID})
	if errors.Is(err, errNoCart) {
		return region, view, nil
	}
	return region, view, err
}

// Currency returns the currency of the cart, or of the active region when
// the session has no cart.
func (s *Session) Currency(ctx context.Context) (string, error) {
	if code := s.View().Cart.CurrencyCode(); code != "" {
		return code, nil
	}
	region, err := s.ActiveRegion(ctx)
	if err != nil {
		return "", err
	}
	return region.CurrencyCode, nil
}

// FormatPrice formats a minor-unit amount in the session's currency.
func (s *Session) FormatPrice(ctx context.Context, amount int64) (string, error) {
	code, err := s.Currency(ctx)
	if err != nil {
		return "", err
	}
	return money.Format(amount, code), nil
}
