package storefront

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/jewelrycommerce/pkg/httpclient"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/event"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa/medusatest"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func (l *eventLog) record(_ context.Context, e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(typ string) []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []event.Event
	for _, e := range l.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	srv    *medusatest.Server
	client *medusa.Client
	store  *session.MemoryStore
	bus    *event.Bus
	events *eventLog
	clock  *fakeClock
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := medusatest.NewServer(t)
	transport := httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxConnsPerHost: 4})
	f := &fixture{
		srv:    srv,
		client: medusa.New(medusa.Config{BaseURL: srv.URL}, transport, discard()),
		store:  session.NewMemoryStore(0),
		bus:    event.NewBus(discard()),
		events: &eventLog{},
		clock:  &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.bus.Subscribe(event.All, f.events.record)
	f.svc = f.service(f.client)
	return f
}

// service builds a fresh Service over the fixture's store, as a new process would.
func (f *fixture) service(commerce Commerce) *Service {
	return NewService(commerce, f.store, f.bus, discard(), WithClock(f.clock.Now))
}

func (f *fixture) open(t *testing.T, sessionID string) *Session {
	t.Helper()
	s, err := f.svc.Open(context.Background(), sessionID)
	require.NoError(t, err)
	return s
}

func (f *fixture) persisted(t *testing.T, sessionID string, key session.Key) (string, bool) {
	t.Helper()
	v, ok, err := f.store.Get(context.Background(), sessionID, key)
	require.NoError(t, err)
	return v, ok
}

func TestOpen_RequiresSessionID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Open(context.Background(), "")
	require.Error(t, err)
}

func TestOpen_ReturnsSameContainer(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, "s1")
	b := f.open(t, "s1")
	c := f.open(t, "s2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "s1", a.ID())
}

func TestSweep_DropsIdleContainersKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t, "s1")
	_, err := s.AddItem(ctx, "variant_necklace", 1)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	f.open(t, "s2")

	assert.Equal(t, 1, f.svc.Sweep(time.Hour))

	reopened := f.open(t, "s1")
	assert.NotSame(t, s, reopened)
	assert.Equal(t, StatePopulated, reopened.State())
	assert.Equal(t, s.CartID(), reopened.CartID())
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunSweeper(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := medusatest.NewServer(t)

	assert.True(t, tokenExpired(srv.IssueToken("a@b.c", now.Add(-time.Minute)), now))
	assert.False(t, tokenExpired(srv.IssueToken("a@b.c", now.Add(time.Minute)), now))
	assert.False(t, tokenExpired("opaque-session-token", now))
}

func TestCartView_ItemCountNilCart(t *testing.T) {
	assert.Equal(t, 0, CartView{}.ItemCount())
	v := CartView{Cart: &domain.Cart{Items: []domain.LineItem{{Quantity: 2}, {Quantity: 3}}}}
	assert.Equal(t, 5, v.ItemCount())
}
