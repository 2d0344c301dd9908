package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// LockoutPolicy configures the login attempt bookkeeping.
type LockoutPolicy struct {
	WarnAfter   int
	MaxAttempts int
	Duration    time.Duration
}

// DefaultLockoutPolicy warns after 3 failures and locks for 15 minutes after 5.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{WarnAfter: 3, MaxAttempts: 5, Duration: 15 * time.Minute}
}

// Attempt describes the bookkeeping after a failed login.
type Attempt struct {
	Attempts    int       `json:"attempts"`
	Remaining   int       `json:"remaining"`
	Warn        bool      `json:"warn"`
	Locked      bool      `json:"locked"`
	LockedUntil time.Time `json:"locked_until,omitempty"`
}

// LoginGuard counts failed logins per browser context and imposes a temporary
// lockout. The lockout is advisory: it only blocks the gateway's submit path.
type LoginGuard struct {
	store   ports.LockoutStore
	policy  LockoutPolicy
	enabled bool
	now     func() time.Time
	log     zerolog.Logger
}

// NewLoginGuard returns an active guard backed by store.
func NewLoginGuard(store ports.LockoutStore, policy LockoutPolicy, log zerolog.Logger) *LoginGuard {
	def := DefaultLockoutPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.WarnAfter <= 0 || policy.WarnAfter > policy.MaxAttempts {
		policy.WarnAfter = min(def.WarnAfter, policy.MaxAttempts)
	}
	if policy.Duration <= 0 {
		policy.Duration = def.Duration
	}
	return &LoginGuard{store: store, policy: policy, enabled: true, now: time.Now, log: log}
}

// DisabledLoginGuard returns a guard whose every call is a no-op (mock mode).
func DisabledLoginGuard() *LoginGuard {
	return &LoginGuard{policy: DefaultLockoutPolicy(), now: time.Now, log: zerolog.Nop()}
}

// Enabled reports whether bookkeeping is active.
func (g *LoginGuard) Enabled() bool { return g.enabled }

// Policy returns the effective policy.
func (g *LoginGuard) Policy() LockoutPolicy { return g.policy }

// Status returns the current state, clearing it first when a lockout has elapsed.
func (g *LoginGuard) Status(ctx context.Context, client string) (domain.LockoutState, error) {
	if !g.enabled {
		return domain.LockoutState{}, nil
	}
	state, err := g.store.Load(ctx, client)
	if err != nil {
		return domain.LockoutState{}, fmt.Errorf("load lockout: %w", err)
	}
	if state.Expired(g.now()) {
		if err := g.store.Reset(ctx, client); err != nil {
			return domain.LockoutState{}, fmt.Errorf("clear expired lockout: %w", err)
		}
		g.log.Debug().Str("client", client).Msg("lockout expired, attempts cleared")
		return domain.LockoutState{}, nil
	}
	return state, nil
}

// Check returns a *domain.LockoutError while submissions are blocked.
func (g *LoginGuard) Check(ctx context.Context, client string) error {
	state, err := g.Status(ctx, client)
	if err != nil {
		return err
	}
	now := g.now()
	if state.Locked(now) {
		return &domain.LockoutError{Until: state.LockedUntil, Remaining: state.Remaining(now)}
	}
	return nil
}

// RecordFailure counts a failed login and locks the client once the policy
// limit is reached.
func (g *LoginGuard) RecordFailure(ctx context.Context, client string) (Attempt, error) {
	if !g.enabled {
		return Attempt{}, nil
	}
	n, err := g.store.RecordFailure(ctx, client)
	if err != nil {
		return Attempt{}, fmt.Errorf("record login failure: %w", err)
	}

	a := Attempt{Attempts: n, Remaining: max(g.policy.MaxAttempts-n, 0)}
	switch {
	case n >= g.policy.MaxAttempts:
		until := g.now().Add(g.policy.Duration)
		if err := g.store.Lock(ctx, client, until); err != nil {
			return Attempt{}, fmt.Errorf("lock client: %w", err)
		}
		a.Locked = true
		a.LockedUntil = until
		g.log.Warn().Str("client", client).Int("attempts", n).Time("locked_until", until).Msg("login locked after repeated failures")
	case n >= g.policy.WarnAfter:
		a.Warn = true
	}
	return a, nil
}

// RecordSuccess clears the client's bookkeeping.
func (g *LoginGuard) RecordSuccess(ctx context.Context, client string) error {
	if !g.enabled {
		return nil
	}
	if err := g.store.Reset(ctx, client); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}
