package mock

import (
	"context"
	"sync"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// ProfileTable is the in-memory stand-in for the profile document store.
type ProfileTable struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile
}

var _ ports.ProfileRepository = (*ProfileTable)(nil)

// NewProfileTable seeds the table with the fixtures' profiles.
func NewProfileTable(fixtures []Fixture) *ProfileTable {
	t := &ProfileTable{profiles: make(map[string]*domain.Profile, len(fixtures))}
	for _, f := range fixtures {
		profile := f.Profile
		t.profiles[profile.ID] = profile.Clone()
	}
	return t
}

func (t *ProfileTable) Get(_ context.Context, id string) (*domain.Profile, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.profiles[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p.Clone(), nil
}

func (t *ProfileTable) Set(_ context.Context, profile *domain.Profile) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profiles[profile.ID] = profile.Clone()
	return nil
}

// Merge writes the patched sub-records onto a stored profile.
func (t *ProfileTable) Merge(_ context.Context, id string, patch domain.ProfilePatch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.profiles[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	t.profiles[id] = p.Apply(patch)
	return nil
}
