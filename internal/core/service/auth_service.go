package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// AuthService binds an AuthOperations strategy to one session's store.
type AuthService struct {
	ops   ports.AuthOperations
	store *SessionStore
	log   zerolog.Logger
}

func NewAuthService(ops ports.AuthOperations, store *SessionStore, log zerolog.Logger) *AuthService {
	return &AuthService{ops: ops, store: store, log: log}
}

// Session returns the current session snapshot.
func (s *AuthService) Session() domain.Snapshot {
	return s.store.Snapshot()
}

// Await blocks until cond holds for the session or ctx is done.
func (s *AuthService) Await(ctx context.Context, cond func(domain.Snapshot) bool) (domain.Snapshot, error) {
	return s.store.Await(ctx, cond)
}

// SignUp creates the account and installs it in the session right away,
// before the auth-state stream reports it.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*domain.Principal, *domain.Profile, error) {
	p, profile, err := s.ops.SignUp(ctx, in)
	if err != nil {
		s.log.Warn().Err(err).Str("email", in.Email).Msg("sign up failed")
		return nil, nil, err
	}
	s.store.SetAuthenticated(p, profile)
	return p, profile, nil
}

// SignIn authenticates only; the session store picks the profile up from the
// auth-state stream.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Principal, error) {
	p, err := s.ops.SignIn(ctx, email, password)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("sign in failed")
		return nil, err
	}
	return p, nil
}

func (s *AuthService) SignInWithProvider(ctx context.Context, role domain.Role, assertion string) (*domain.Principal, *domain.Profile, error) {
	p, profile, err := s.ops.SignInWithProvider(ctx, role, assertion)
	if err != nil {
		s.log.Warn().Err(err).Str("role", role.String()).Msg("federated sign in failed")
		return nil, nil, err
	}
	s.store.SetAuthenticated(p, profile)
	return p, profile, nil
}

// SignOut clears the session before asking the backend to sign out. A backend
// failure is returned after the local state is already gone.
func (s *AuthService) SignOut(ctx context.Context) error {
	s.store.Clear()
	if err := s.ops.SignOut(ctx); err != nil {
		s.log.Error().Err(err).Msg("backend sign out failed after local session was cleared")
		return err
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	if err := s.ops.ResetPassword(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("password reset failed")
		return err
	}
	return nil
}

func (s *AuthService) UpdatePreferences(ctx context.Context, upd domain.PreferencesUpdate) (*domain.Profile, error) {
	snap := s.store.Snapshot()
	profile, err := s.ops.UpdatePreferences(ctx, snap.Principal, snap.Profile, upd)
	if err != nil {
		return nil, err
	}
	s.store.SetProfile(profile)
	return profile, nil
}

func (s *AuthService) UpdateConsent(ctx context.Context, upd domain.ConsentUpdate) (*domain.Profile, error) {
	snap := s.store.Snapshot()
	profile, err := s.ops.UpdateConsent(ctx, snap.Principal, snap.Profile, upd)
	if err != nil {
		return nil, err
	}
	s.store.SetProfile(profile)
	return profile, nil
}
