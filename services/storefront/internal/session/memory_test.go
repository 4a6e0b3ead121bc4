package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s", KeyAuthToken, "tok"))
	got, ok, err := store.Get(ctx, "s", KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", got)

	require.NoError(t, store.Delete(ctx, "s", KeyAuthToken))
	_, ok, _ = store.Get(ctx, "s", KeyAuthToken)
	assert.False(t, ok)
}

func TestMemoryStore_SlidingExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s", KeyCartID, "cart_01"))

	now = now.Add(50 * time.Minute)
	_, ok, _ := store.Get(ctx, "s", KeyCartID)
	require.True(t, ok)

	now = now.Add(50 * time.Minute)
	_, ok, _ = store.Get(ctx, "s", KeyCartID)
	require.True(t, ok, "read should have extended the expiry")

	now = now.Add(61 * time.Minute)
	_, ok, _ = store.Get(ctx, "s", KeyCartID)
	assert.False(t, ok)
}
