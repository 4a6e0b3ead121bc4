// Package session persists per-browser-session storefront state: the cart
// id, the customer's bearer token and the preferred region.
package session

import "context"

// Key names one value held for a session.
type Key string

// Keys persisted per session.
const (
	KeyCartID    Key = "cart_id"
	KeyAuthToken Key = "auth_token"
	KeyRegionID  Key = "region_id"
)

// Store defines session persistence. Get reports false when the key is
// absent or expired.
type Store interface {
	Get(ctx context.Context, sessionID string, key Key) (string, bool, error)
	Set(ctx context.Context, sessionID string, key Key, value string) error
	Delete(ctx context.Context, sessionID string, key Key) error
}
