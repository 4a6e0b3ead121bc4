package storefront

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	pkgkafka "github.com/utafrali/jewelrycommerce/pkg/kafka"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/event"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa/medusatest"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
)

func TestOpen_WithoutPersistedCartIsEmpty(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, "s1")

	view := s.View()
	assert.Equal(t, StateEmpty, view.State)
	assert.Nil(t, view.Cart)
	assert.Empty(t, f.srv.Requests())
}

func TestAddItem_CreatesCartAndPersistsID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	view, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)

	assert.Equal(t, StatePopulated, view.State)
	require.NotNil(t, view.Cart)
	assert.Equal(t, 1, view.ItemCount())
	assert.Equal(t, "idr", view.Cart.CurrencyCode())

	id, ok := f.persisted(t, "s1", session.KeyCartID)
	require.True(t, ok)
	assert.Equal(t, view.Cart.ID, id)
	assert.Equal(t, 1, f.srv.CountRequests(http.MethodPost, "/store/carts"))
	assert.Equal(t, 1, f.srv.CountRequests(http.MethodGet, "/store/carts/"+id))
}

// stalledBroker holds every publish until release is closed.
type stalledBroker struct {
	release chan struct{}
}

func (b stalledBroker) Publish(ctx context.Context, _ string, _ *pkgkafka.Event) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestAddItem_NotDelayedBySlowEventForwarding(t *testing.T) {
	f := newFixture(t)
	broker := stalledBroker{release: make(chan struct{})}
	detach := event.NewForwarder(broker, discard()).Attach(f.bus)
	s := f.open(t, "s1")

	type result struct {
		view CartView
		err  error
	}
	done := make(chan result, 1)
	go func() {
		view, err := s.AddItem(context.Background(), "variant_ring_7", 1)
		done <- result{view, err}
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, StatePopulated, res.view.State)
	case <-time.After(2 * time.Second):
		t.Fatal("cart mutation waited on the event broker")
	}
	assert.NotEmpty(t, f.events.ofType(event.TypeCartUpdated))

	close(broker.release)
	detach()
}

func TestAddItem_ReusesExistingCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	_, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)
	view, err := s.AddItem(ctx, "variant_necklace", 2)
	require.NoError(t, err)

	assert.Len(t, view.Cart.Items, 2)
	assert.Equal(t, 3, view.ItemCount())
	assert.Equal(t, 1, f.srv.CountRequests(http.MethodPost, "/store/carts"))
}

func TestAddItem_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	tests := []struct {
		name    string
		variant string
		qty     int
	}{
		{"missing variant", " ", 1},
		{"zero quantity", "variant_necklace", 0},
		{"quantity above limit", "variant_necklace", MaxQuantityPerItem + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddItem(ctx, tt.variant, tt.qty)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
	assert.Empty(t, f.srv.Requests())
	assert.Equal(t, StateEmpty, s.State())
}

func TestUpdateItem_NonPositiveQuantityRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		f := newFixture(t)
		ctx := context.Background()
		s := f.open(t, "s1")

		view, err := s.AddItem(ctx, "variant_ring_7", 2)
		require.NoError(t, err)
		cartID, lineID := view.Cart.ID, view.Cart.Items[0].ID

		view, err = s.UpdateItem(ctx, lineID, qty)
		require.NoError(t, err)

		assert.Equal(t, StateEmpty, view.State)
		assert.Empty(t, view.Cart.Items)
		assert.Equal(t, 1, f.srv.CountRequests(http.MethodDelete, "/store/carts/"+cartID+"/line-items/"+lineID))
		assert.Zero(t, f.srv.CountRequests(http.MethodPost, "/store/carts/"+cartID+"/line-items/"+lineID))
	}
}

func TestUpdateItem_SetsQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	view, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)

	view, err = s.UpdateItem(ctx, view.Cart.Items[0].ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.ItemCount())

	_, err = s.UpdateItem(ctx, view.Cart.Items[0].ID, MaxQuantityPerItem+1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestItemsByKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	_, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "variant_ring_8", 1)
	require.NoError(t, err)

	view, err := s.UpdateItemByKey(ctx, domain.LineItemKey{ProductID: medusatest.ProductRing, Size: "8"}, 3)
	require.NoError(t, err)
	item, ok := view.Cart.FindItem(domain.LineItemKey{ProductID: medusatest.ProductRing, Size: "8"})
	require.True(t, ok)
	assert.Equal(t, 3, item.Quantity)

	view, err = s.RemoveItemByKey(ctx, domain.LineItemKey{ProductID: medusatest.ProductRing, Size: "7"})
	require.NoError(t, err)
	require.Len(t, view.Cart.Items, 1)
	assert.Equal(t, "8", view.Cart.Items[0].Size())

	before := s.View()
	_, err = s.UpdateItemByKey(ctx, domain.LineItemKey{ProductID: medusatest.ProductNecklace}, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.False(t, medusa.IsRemote(err))
	assert.Equal(t, before, s.View())
}

func TestMutationsWithoutCart_ArePreconditionFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")
	addr := domain.Address{FirstName: "Sari", Address1: "Jl. Melati 1", City: "Bandung", CountryCode: "id"}

	ops := map[string]func() error{
		"update item": func() error { _, err := s.UpdateItem(ctx, "item_01", 2); return err },
		"remove item": func() error { _, err := s.RemoveItem(ctx, "item_01"); return err },
		"update by key": func() error {
			_, err := s.UpdateItemByKey(ctx, domain.LineItemKey{ProductID: "prod_ring"}, 2)
			return err
		},
		"remove by key":   func() error { _, err := s.RemoveItemByKey(ctx, domain.LineItemKey{ProductID: "prod_ring"}); return err },
		"apply discount":  func() error { _, err := s.ApplyDiscount(ctx, medusatest.DiscountCode); return err },
		"remove discount": func() error { _, err := s.RemoveDiscount(ctx, medusatest.DiscountCode); return err },
		"set email":       func() error { _, err := s.SetEmail(ctx, "a@b.c"); return err },
		"shipping addr":   func() error { _, err := s.SetShippingAddress(ctx, addr); return err },
		"billing addr":    func() error { _, err := s.SetBillingAddress(ctx, addr); return err },
		"shipping method": func() error { _, err := s.SelectShippingOption(ctx, medusatest.ShippingStandard); return err },
		"init payment":    func() error { _, err := s.InitPayment(ctx, ""); return err },
		"update payment":  func() error { _, err := s.UpdatePayment(ctx, "", nil); return err },
		"shipping list":   func() error { _, err := s.ShippingOptions(ctx); return err },
		"complete":        func() error { _, err := s.Complete(ctx); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			require.Error(t, err)
			assert.True(t, apperrors.IsPrecondition(err))
			assert.Equal(t, http.StatusPreconditionFailed, apperrors.HTTPStatus(err))
			assert.False(t, medusa.IsRemote(err))
		})
	}
	assert.Equal(t, StateEmpty, s.State())
	assert.Empty(t, f.srv.Requests())
}

func TestClear_ForgetsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	view, err := s.AddItem(ctx, "variant_necklace", 1)
	require.NoError(t, err)
	cartID := view.Cart.ID

	view, err = s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, view.State)
	assert.Nil(t, view.Cart)
	assert.Empty(t, s.CartID())

	_, ok := f.persisted(t, "s1", session.KeyCartID)
	assert.False(t, ok)
	_, remote := f.srv.Cart(cartID)
	assert.True(t, remote)

	cleared := f.events.ofType(event.TypeCartCleared)
	require.Len(t, cleared, 1)
	assert.Equal(t, cartID, cleared[0].CartID)

	restarted, err := f.service(f.client).Open(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, restarted.State())
}

func TestInit_RestoresPersistedCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.open(t, "s1").AddItem(ctx, "variant_ring_6", 2)
	require.NoError(t, err)

	s, err := f.service(f.client).Open(ctx, "s1")
	require.NoError(t, err)

	restored := s.View()
	assert.Equal(t, StatePopulated, restored.State)
	assert.Equal(t, view.Cart.ID, restored.Cart.ID)
	assert.Equal(t, 2, restored.ItemCount())
}

func TestInit_UnknownCartIDStartsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "s1", session.KeyCartID, "cart_expired"))

	s := f.open(t, "s1")

	assert.Equal(t, StateEmpty, s.State())
	assert.Empty(t, s.CartID())
	_, ok := f.persisted(t, "s1", session.KeyCartID)
	assert.False(t, ok)
}

// deleteFailingStore is a session store whose deletes always fail.
type deleteFailingStore struct {
	session.Store
}

func (deleteFailingStore) Delete(context.Context, string, session.Key) error {
	return errors.New("store unavailable")
}

func TestInit_StaleCartIDStoreDeleteFailureStillStartsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "s1", session.KeyCartID, "cart_expired"))
	svc := NewService(f.client, deleteFailingStore{Store: f.store}, f.bus, discard(), WithClock(f.clock.Now))

	s, err := svc.Open(ctx, "s1")

	require.NoError(t, err)
	assert.Equal(t, StateEmpty, s.State())
	assert.Empty(t, s.CartID())
}

func TestInit_BackendFailureStartsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view, err := f.open(t, "s1").AddItem(ctx, "variant_necklace", 1)
	require.NoError(t, err)
	f.srv.FailNext(http.MethodGet, "/store/carts/"+view.Cart.ID, http.StatusServiceUnavailable, "unexpected_state", "down")

	s, err := f.service(f.client).Open(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, StateEmpty, s.State())
	_, ok := f.persisted(t, "s1", session.KeyCartID)
	assert.False(t, ok)
}

func TestFailedMutation_KeepsLastSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	view, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)
	good := view.Cart
	f.srv.FailNext(http.MethodPost, "/store/carts/"+good.ID+"/line-items", http.StatusInternalServerError, "unknown_error", "boom")

	view, err = s.AddItem(ctx, "variant_necklace", 1)
	require.Error(t, err)
	assert.True(t, medusa.IsRemote(err))
	assert.Equal(t, http.StatusInternalServerError, medusa.StatusOf(err))

	assert.Equal(t, StateError, view.State)
	assert.Same(t, good, view.Cart)
	assert.Equal(t, err, view.Err)

	view, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePopulated, view.State)
	assert.NoError(t, view.Err)
}

func TestFailedRefetch_SetsErrorKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	view, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)
	cartID, lineID := view.Cart.ID, view.Cart.Items[0].ID
	f.srv.FailNext(http.MethodGet, "/store/carts/"+cartID, http.StatusBadGateway, "unknown_error", "gateway")

	view, err = s.UpdateItem(ctx, lineID, 3)
	require.Error(t, err)
	assert.Equal(t, StateError, view.State)
	assert.Equal(t, 1, view.ItemCount())

	remote, _ := f.srv.Cart(cartID)
	assert.Equal(t, 3, remote.ItemCount())
}

func TestRemoteDiscountRejection_MovesToError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	_, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)

	view, err := s.ApplyDiscount(ctx, "NOPE")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, medusa.StatusOf(err))
	assert.Equal(t, StateError, view.State)
	assert.NotEmpty(t, s.CartID())
}

func TestMutation_RemotelyDeletedCartIsForgotten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	view, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)
	oldID := view.Cart.ID
	f.srv.DeleteCart(oldID)

	view, err = s.UpdateItem(ctx, view.Cart.Items[0].ID, 2)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, medusa.StatusOf(err))
	assert.Equal(t, StateEmpty, view.State)
	assert.Empty(t, s.CartID())
	_, ok := f.persisted(t, "s1", session.KeyCartID)
	assert.False(t, ok)

	view, err = s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)
	assert.NotEqual(t, oldID, view.Cart.ID)
}

func TestRefresh_RemotelyDeletedCartIsForgotten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	view, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)
	f.srv.DeleteCart(view.Cart.ID)

	view, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, view.State)
	assert.Nil(t, view.Cart)
}

func TestDiscountAndContactDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	_, err := s.AddItem(ctx, "variant_necklace", 1)
	require.NoError(t, err)

	view, err := s.ApplyDiscount(ctx, " "+medusatest.DiscountCode+" ")
	require.NoError(t, err)
	assert.Equal(t, int64(18000000), view.Cart.DiscountTotal)

	view, err = s.RemoveDiscount(ctx, medusatest.DiscountCode)
	require.NoError(t, err)
	assert.Zero(t, view.Cart.DiscountTotal)

	_, err = s.ApplyDiscount(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	view, err = s.SetEmail(ctx, "sari@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sari@example.com", view.Cart.Email)

	addr := domain.Address{FirstName: "Sari", Address1: "Jl. Melati 1", City: "Bandung", CountryCode: "id", PostalCode: "40115"}
	view, err = s.SetShippingAddress(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, view.Cart.ShippingAddress)
	assert.Equal(t, "Bandung", view.Cart.ShippingAddress.City)

	view, err = s.SetBillingAddress(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, view.Cart.BillingAddress)
	assert.Equal(t, "40115", view.Cart.BillingAddress.PostalCode)
}

func TestCartEvents_VersionsIncrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	_, err := s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)
	view, err := s.AddItem(ctx, "variant_necklace", 1)
	require.NoError(t, err)

	updates := f.events.ofType(event.TypeCartUpdated)
	require.GreaterOrEqual(t, len(updates), 3)
	for i := 1; i < len(updates); i++ {
		assert.Greater(t, updates[i].Version, updates[i-1].Version)
	}
	last := updates[len(updates)-1]
	assert.Equal(t, view.Version, last.Version)
	assert.Equal(t, "s1", last.SessionID)
	assert.Equal(t, view.Cart.ID, last.CartID)
}

// gatedCommerce holds the first armed GetCart answer until release is closed.
type gatedCommerce struct {
	Commerce

	mu      sync.Mutex
	armed   bool
	fetched chan struct{}
	release chan struct{}
}

func (g *gatedCommerce) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.fetched = make(chan struct{})
	g.release = make(chan struct{})
}

func (g *gatedCommerce) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	fetched, release := g.fetched, g.release
	g.mu.Unlock()

	cart, err := g.Commerce.GetCart(ctx, cartID)
	if armed {
		close(fetched)
		<-release
	}
	return cart, err
}

func TestRefresh_StaleSnapshotIsDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gated := &gatedCommerce{Commerce: f.client}
	svc := f.service(gated)
	s, err := svc.Open(ctx, "s1")
	require.NoError(t, err)

	_, err = s.AddItem(ctx, "variant_ring_7", 1)
	require.NoError(t, err)

	gated.arm()
	type result struct {
		view CartView
		err  error
	}
	done := make(chan result, 1)
	go func() {
		v, err := s.Refresh(ctx)
		done <- result{v, err}
	}()
	<-gated.fetched

	latest, err := s.AddItem(ctx, "variant_necklace", 1)
	require.NoError(t, err)
	require.Len(t, latest.Cart.Items, 2)

	close(gated.release)
	res := <-done
	require.NoError(t, res.err)

	assert.Len(t, res.view.Cart.Items, 2)
	assert.Equal(t, latest.Version, s.View().Version)
	assert.Len(t, s.View().Cart.Items, 2)
}

func TestConcurrentMutations_AllApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")

	var wg sync.WaitGroup
	for _, variant := range []string{"variant_ring_5", "variant_ring_6", "variant_bracelet_S", "variant_necklace"} {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			_, err := s.AddItem(ctx, v, 1)
			assert.NoError(t, err)
		}(variant)
	}
	wg.Wait()

	view := s.View()
	assert.Equal(t, StatePopulated, view.State)
	assert.Len(t, view.Cart.Items, 4)
	assert.Equal(t, 1, f.srv.CountRequests(http.MethodPost, "/store/carts"))
}
