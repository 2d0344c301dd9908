package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

const (
	// attemptsTTL bounds how long a failure streak is remembered without a lockout.
	attemptsTTL = 24 * time.Hour
	// lockoutGrace keeps the lockout keys readable briefly past the deadline so
	// the expiry is observed and cleared by the guard.
	lockoutGrace = time.Minute
)

// LockoutStore keeps login bookkeeping in Redis.
// Key format: loginAttempts:<client> and lockoutUntil:<client>
type LockoutStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ ports.LockoutStore = (*LockoutStore)(nil)

// NewLockoutStore creates a LockoutStore wrapping the given Redis client.
func NewLockoutStore(client *redis.Client) *LockoutStore {
	return &LockoutStore{client: client, now: time.Now}
}

func (s *LockoutStore) Load(ctx context.Context, client string) (domain.LockoutState, error) {
	vals, err := s.client.MGet(ctx, attemptsKey(client), lockoutKey(client)).Result()
	if err != nil {
		return domain.LockoutState{}, fmt.Errorf("lockout load: %w", err)
	}

	var state domain.LockoutState
	if v, ok := vals[0].(string); ok {
		state.Attempts, _ = strconv.Atoi(v)
	}
	if v, ok := vals[1].(string); ok {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			state.LockedUntil = time.Unix(ts, 0).UTC()
		}
	}
	return state, nil
}

func (s *LockoutStore) RecordFailure(ctx context.Context, client string) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptsKey(client))
	pipe.Expire(ctx, attemptsKey(client), attemptsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("lockout record failure: %w", err)
	}
	return int(incr.Val()), nil
}

// Lock stores the deadline. Both keys expire shortly after it.
func (s *LockoutStore) Lock(ctx context.Context, client string, until time.Time) error {
	ttl := until.Sub(s.now()) + lockoutGrace
	if ttl <= 0 {
		return errors.New("lockout deadline already passed")
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, lockoutKey(client), strconv.FormatInt(until.Unix(), 10), ttl)
	pipe.Expire(ctx, attemptsKey(client), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lockout lock: %w", err)
	}
	return nil
}

func (s *LockoutStore) Reset(ctx context.Context, client string) error {
	if err := s.client.Del(ctx, attemptsKey(client), lockoutKey(client)).Err(); err != nil {
		return fmt.Errorf("lockout reset: %w", err)
	}
	return nil
}

func attemptsKey(client string) string {
	return "loginAttempts:" + client
}

func lockoutKey(client string) string {
	return "lockoutUntil:" + client
}
