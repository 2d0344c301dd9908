package ports

import (
	"context"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// SignUpInput carries the fields collected by the sign-up form.
type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        domain.Role
	Extra       map[string]string
}

// AuthOperations is one strategy (live or mock) of the auth request wrappers,
// bound to a single session's identity backend.
type AuthOperations interface {
	SignUp(ctx context.Context, in SignUpInput) (*domain.Principal, *domain.Profile, error)
	SignIn(ctx context.Context, email, password string) (*domain.Principal, error)
	SignInWithProvider(ctx context.Context, role domain.Role, assertion string) (*domain.Principal, *domain.Profile, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	UpdatePreferences(ctx context.Context, p *domain.Principal, profile *domain.Profile, upd domain.PreferencesUpdate) (*domain.Profile, error)
	UpdateConsent(ctx context.Context, p *domain.Principal, profile *domain.Profile, upd domain.ConsentUpdate) (*domain.Profile, error)
}

// AuthService is the per-session facade used by the transport layer. It keeps
// the session state in step with the outcome of each operation.
type AuthService interface {
	Session() domain.Snapshot
	// Await blocks until cond holds for the session or ctx is done.
	Await(ctx context.Context, cond func(domain.Snapshot) bool) (domain.Snapshot, error)
	SignUp(ctx context.Context, in SignUpInput) (*domain.Principal, *domain.Profile, error)
	SignIn(ctx context.Context, email, password string) (*domain.Principal, error)
	SignInWithProvider(ctx context.Context, role domain.Role, assertion string) (*domain.Principal, *domain.Profile, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	UpdatePreferences(ctx context.Context, upd domain.PreferencesUpdate) (*domain.Profile, error)
	UpdateConsent(ctx context.Context, upd domain.ConsentUpdate) (*domain.Profile, error)
}
