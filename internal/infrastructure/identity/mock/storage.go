package mock

import (
	"context"
	"sync"

	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// ConsentAcks keeps cookie notice answers in memory.
type ConsentAcks struct {
	mu      sync.RWMutex
	answers map[string]bool
}

var _ ports.ConsentAckStore = (*ConsentAcks)(nil)

func NewConsentAcks() *ConsentAcks {
	return &ConsentAcks{answers: make(map[string]bool)}
}

func (c *ConsentAcks) Get(_ context.Context, client string) (*bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.answers[client]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *ConsentAcks) Set(_ context.Context, client string, accepted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers[client] = accepted
	return nil
}
