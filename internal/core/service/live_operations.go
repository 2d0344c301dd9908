package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// MinPasswordLength is the sign-up password policy.
const MinPasswordLength = 8

type liveOperations struct {
	backend  ports.IdentityBackend
	profiles ports.ProfileRepository
	now      func() time.Time
	log      zerolog.Logger
}

// NewLiveOperations returns the strategy that delegates to the identity
// backend and persists profiles in the document store.
func NewLiveOperations(backend ports.IdentityBackend, profiles ports.ProfileRepository, log zerolog.Logger) ports.AuthOperations {
	return &liveOperations{backend: backend, profiles: profiles, now: time.Now, log: log}
}

func (o *liveOperations) SignUp(ctx context.Context, in ports.SignUpInput) (*domain.Principal, *domain.Profile, error) {
	if len(in.Password) < MinPasswordLength {
		return nil, nil, domain.ErrWeakPassword
	}
	if !in.Role.Valid() {
		return nil, nil, fmt.Errorf("sign up: %w: %q", domain.ErrInvalidRole, in.Role)
	}

	p, err := o.backend.CreateUser(ctx, in.Email, in.Password, in.DisplayName)
	if err != nil {
		return nil, nil, fmt.Errorf("sign up: %w", err)
	}

	profile := domain.NewProfile(p, in.Role, in.Extra, o.now())
	if err := o.profiles.Set(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("sign up: write profile: %w", err)
	}

	o.log.Info().Str("principal_id", p.ID).Str("role", in.Role.String()).Msg("account created")
	return p, profile, nil
}

func (o *liveOperations) SignIn(ctx context.Context, email, password string) (*domain.Principal, error) {
	p, err := o.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return p, nil
}

func (o *liveOperations) SignInWithProvider(ctx context.Context, role domain.Role, assertion string) (*domain.Principal, *domain.Profile, error) {
	if !role.Valid() {
		return nil, nil, fmt.Errorf("federated sign in: %w: %q", domain.ErrInvalidRole, role)
	}

	p, err := o.backend.SignInWithProvider(ctx, assertion)
	if err != nil {
		return nil, nil, fmt.Errorf("federated sign in: %w", err)
	}

	profile, err := o.profiles.Get(ctx, p.ID)
	switch {
	case err == nil:
		return p, profile, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, nil, fmt.Errorf("federated sign in: read profile: %w", err)
	}

	profile = domain.NewProfile(p, role, nil, o.now())
	if err := o.profiles.Set(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("federated sign in: write profile: %w", err)
	}
	o.log.Info().Str("principal_id", p.ID).Str("role", role.String()).Msg("profile created on first federated login")
	return p, profile, nil
}

func (o *liveOperations) SignOut(ctx context.Context) error {
	if err := o.backend.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (o *liveOperations) ResetPassword(ctx context.Context, email string) error {
	if err := o.backend.SendPasswordReset(ctx, email); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	return nil
}

func (o *liveOperations) UpdatePreferences(ctx context.Context, p *domain.Principal, profile *domain.Profile, upd domain.PreferencesUpdate) (*domain.Profile, error) {
	if err := requireSession(p, profile); err != nil {
		return nil, err
	}
	prefs := profile.Preferences.Merge(upd)
	patch := domain.ProfilePatch{Preferences: &prefs}
	if err := o.profiles.Merge(ctx, profile.ID, patch); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return profile.Apply(patch), nil
}

func (o *liveOperations) UpdateConsent(ctx context.Context, p *domain.Principal, profile *domain.Profile, upd domain.ConsentUpdate) (*domain.Profile, error) {
	if err := requireSession(p, profile); err != nil {
		return nil, err
	}
	consent := profile.Consent.Merge(upd, o.now())
	patch := domain.ProfilePatch{Consent: &consent}
	if err := o.profiles.Merge(ctx, profile.ID, patch); err != nil {
		return nil, fmt.Errorf("update consent: %w", err)
	}
	return profile.Apply(patch), nil
}

// requireSession guards the profile-mutating operations.
func requireSession(p *domain.Principal, profile *domain.Profile) error {
	if p == nil || profile == nil {
		return domain.ErrNotAuthenticated
	}
	return nil
}
