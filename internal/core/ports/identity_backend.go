package ports

import (
	"context"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// AuthStateListener receives the current principal, or nil once signed out.
type AuthStateListener func(ctx context.Context, principal *domain.Principal)

// IdentityBackend is one browser context's handle on the identity service.
// Live and mock implementations share the same event contract: a listener
// registered with OnAuthStateChanged first receives the current state, then
// every subsequent change, in order.
type IdentityBackend interface {
	CurrentUser() *domain.Principal
	CreateUser(ctx context.Context, email, password, displayName string) (*domain.Principal, error)
	SignIn(ctx context.Context, email, password string) (*domain.Principal, error)
	SignInWithProvider(ctx context.Context, assertion string) (*domain.Principal, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	OnAuthStateChanged(listener AuthStateListener) (unsubscribe func())
	Close() error
}
