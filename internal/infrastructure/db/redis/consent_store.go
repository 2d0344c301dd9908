package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// ConsentAckStore remembers cookie notice answers per browser context.
// Key format: cookieConsent:<client>
type ConsentAckStore struct {
	client *redis.Client
}

var _ ports.ConsentAckStore = (*ConsentAckStore)(nil)

func NewConsentAckStore(client *redis.Client) *ConsentAckStore {
	return &ConsentAckStore{client: client}
}

func (s *ConsentAckStore) Get(ctx context.Context, client string) (*bool, error) {
	v, err := s.client.Get(ctx, consentKey(client)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consent get: %w", err)
	}
	accepted, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("consent get: %w", err)
	}
	return &accepted, nil
}

// Set stores the answer without expiry.
func (s *ConsentAckStore) Set(ctx context.Context, client string, accepted bool) error {
	if err := s.client.Set(ctx, consentKey(client), strconv.FormatBool(accepted), 0).Err(); err != nil {
		return fmt.Errorf("consent set: %w", err)
	}
	return nil
}

func consentKey(client string) string {
	return "cookieConsent:" + client
}
