package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

type mockOperations struct {
	backend ports.IdentityBackend
	table   ports.ProfileRepository
	now     func() time.Time
	log     zerolog.Logger
}

// NewMockOperations returns the fixture-backed strategy used in development
// and preview. backend is expected to be the mock identity backend and table
// the in-memory profile table it shares with the session store.
func NewMockOperations(backend ports.IdentityBackend, table ports.ProfileRepository, log zerolog.Logger) ports.AuthOperations {
	return &mockOperations{backend: backend, table: table, now: time.Now, log: log}
}

func (o *mockOperations) SignUp(ctx context.Context, in ports.SignUpInput) (*domain.Principal, *domain.Profile, error) {
	p, err := o.backend.CreateUser(ctx, in.Email, in.Password, in.DisplayName)
	if err != nil {
		return nil, nil, fmt.Errorf("mock sign up: %w", err)
	}

	role := in.Role
	if !role.Valid() {
		role = domain.RoleUser
	}
	profile := domain.NewProfile(p, role, in.Extra, o.now())
	if err := o.table.Set(ctx, profile); err != nil {
		o.log.Warn().Err(err).Str("principal_id", p.ID).Msg("mock profile table rejected fixture")
	}

	o.log.Debug().Str("principal_id", p.ID).Str("role", role.String()).Msg("mock account created")
	return p, profile, nil
}

func (o *mockOperations) SignIn(ctx context.Context, email, password string) (*domain.Principal, error) {
	p, err := o.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("mock sign in: %w", err)
	}
	return p, nil
}

func (o *mockOperations) SignInWithProvider(ctx context.Context, role domain.Role, assertion string) (*domain.Principal, *domain.Profile, error) {
	p, err := o.backend.SignInWithProvider(ctx, assertion)
	if err != nil {
		return nil, nil, fmt.Errorf("mock federated sign in: %w", err)
	}
	if !role.Valid() {
		role = domain.RoleUser
	}
	profile := domain.NewProfile(p, role, nil, o.now())
	if err := o.table.Set(ctx, profile); err != nil {
		o.log.Warn().Err(err).Str("principal_id", p.ID).Msg("mock profile table rejected fixture")
	}
	return p, profile, nil
}

func (o *mockOperations) SignOut(ctx context.Context) error {
	return o.backend.SignOut(ctx)
}

func (o *mockOperations) ResetPassword(_ context.Context, email string) error {
	o.log.Debug().Str("email", email).Msg("mock password reset requested")
	return nil
}

func (o *mockOperations) UpdatePreferences(_ context.Context, p *domain.Principal, profile *domain.Profile, upd domain.PreferencesUpdate) (*domain.Profile, error) {
	if err := requireSession(p, profile); err != nil {
		return nil, err
	}
	merged := profile.Clone()
	merged.Preferences = merged.Preferences.Merge(upd)
	return merged, nil
}

func (o *mockOperations) UpdateConsent(_ context.Context, p *domain.Principal, profile *domain.Profile, upd domain.ConsentUpdate) (*domain.Profile, error) {
	if err := requireSession(p, profile); err != nil {
		return nil, err
	}
	merged := profile.Clone()
	merged.Consent = merged.Consent.Merge(upd, o.now())
	return merged, nil
}
