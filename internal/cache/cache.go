package cache

import (
	"context"
	"errors"

	"github.com/fjod/food-orders/internal/domain"
)

// CartCache is a read-through copy of the ledger. Every Delete bumps the
// session's version; Set only lands while the version read before the
// durable load is still current, so a slow fill cannot resurrect a ledger
// that was changed or cleared in the meantime.
type CartCache interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Version(ctx context.Context, sessionID string) (int64, error)
	Set(ctx context.Context, sessionID string, cart *domain.Cart, version int64) error
	Delete(ctx context.Context, sessionID string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleFill is returned by Set when the cart was invalidated after the
	// version was read.
	ErrStaleFill = errors.New("cart changed since version was read")
)
