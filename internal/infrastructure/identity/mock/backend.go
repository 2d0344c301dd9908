// Package mock provides the fixture-backed identity backend, profile table and
// browser storage used when the gateway runs in mock mode.
package mock

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
	"github.com/verdantmart/identity-gateway/internal/infrastructure/queue"
)

// Backend is one browser context's mock identity handle. It honours the same
// auth-state contract as the live client.
type Backend struct {
	dir *Directory
	hub *queue.Hub
	log zerolog.Logger

	mu      sync.Mutex
	current *domain.Principal
}

var _ ports.IdentityBackend = (*Backend)(nil)

func NewBackend(dir *Directory, log zerolog.Logger) *Backend {
	return &Backend{dir: dir, hub: queue.NewHub(log), log: log}
}

func (b *Backend) CurrentUser() *domain.Principal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Clone()
}

// CreateUser always succeeds.
func (b *Backend) CreateUser(_ context.Context, email, password, displayName string) (*domain.Principal, error) {
	p := b.dir.Register(email, password, displayName)
	b.setCurrent(p)
	return p.Clone(), nil
}

func (b *Backend) SignIn(_ context.Context, email, password string) (*domain.Principal, error) {
	p, ok := b.dir.Lookup(email, password)
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	b.setCurrent(p)
	return p.Clone(), nil
}

// SignInWithProvider ignores the assertion and signs in the fixed Google user.
func (b *Backend) SignInWithProvider(_ context.Context, _ string) (*domain.Principal, error) {
	p := &domain.Principal{ID: GooglePrincipalID, Email: GoogleEmail, DisplayName: GoogleDisplayName}
	b.setCurrent(p)
	return p.Clone(), nil
}

func (b *Backend) SignOut(_ context.Context) error {
	b.setCurrent(nil)
	return nil
}

func (b *Backend) SendPasswordReset(_ context.Context, email string) error {
	b.log.Debug().Str("email", email).Msg("mock password reset")
	return nil
}

func (b *Backend) OnAuthStateChanged(listener ports.AuthStateListener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hub.Subscribe(listener, b.current)
}

func (b *Backend) Close() error {
	b.hub.Close()
	return nil
}

func (b *Backend) setCurrent(p *domain.Principal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = p.Clone()
	b.hub.Publish(p)
}
