package ports

import (
	"context"
	"time"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// LockoutStore persists login bookkeeping per browser context.
type LockoutStore interface {
	Load(ctx context.Context, client string) (domain.LockoutState, error)
	// RecordFailure increments the attempt counter and returns the new count.
	RecordFailure(ctx context.Context, client string) (int, error)
	Lock(ctx context.Context, client string, until time.Time) error
	Reset(ctx context.Context, client string) error
}

// ConsentAckStore remembers a browser context's answer to the cookie notice.
type ConsentAckStore interface {
	// Get returns nil when the notice has not been answered yet.
	Get(ctx context.Context, client string) (*bool, error)
	Set(ctx context.Context, client string, accepted bool) error
}
