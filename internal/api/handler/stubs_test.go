package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/verdantmart/identity-gateway/internal/api/middleware"
	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// stubAuth is a hand-rolled ports.AuthService. Unset funcs fail loudly.
type stubAuth struct {
	mu   sync.Mutex
	snap domain.Snapshot

	signUpFn   func(ctx context.Context, in ports.SignUpInput) (*domain.Principal, *domain.Profile, error)
	signInFn   func(ctx context.Context, email, password string) (*domain.Principal, error)
	providerFn func(ctx context.Context, role domain.Role, assertion string) (*domain.Principal, *domain.Profile, error)
	signOutErr error
	resetFn    func(ctx context.Context, email string) error
	prefsFn    func(ctx context.Context, upd domain.PreferencesUpdate) (*domain.Profile, error)
	consentFn  func(ctx context.Context, upd domain.ConsentUpdate) (*domain.Profile, error)

	signInCalls int
}

var _ ports.AuthService = (*stubAuth)(nil)

func (s *stubAuth) Session() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *stubAuth) Await(ctx context.Context, cond func(domain.Snapshot) bool) (domain.Snapshot, error) {
	snap := s.Session()
	if cond(snap) {
		return snap, nil
	}
	<-ctx.Done()
	return snap, ctx.Err()
}

func (s *stubAuth) set(snap domain.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *stubAuth) SignUp(ctx context.Context, in ports.SignUpInput) (*domain.Principal, *domain.Profile, error) {
	return s.signUpFn(ctx, in)
}

func (s *stubAuth) SignIn(ctx context.Context, email, password string) (*domain.Principal, error) {
	s.mu.Lock()
	s.signInCalls++
	s.mu.Unlock()
	return s.signInFn(ctx, email, password)
}

func (s *stubAuth) SignInWithProvider(ctx context.Context, role domain.Role, assertion string) (*domain.Principal, *domain.Profile, error) {
	return s.providerFn(ctx, role, assertion)
}

func (s *stubAuth) SignOut(context.Context) error {
	s.set(domain.Snapshot{})
	return s.signOutErr
}

func (s *stubAuth) ResetPassword(ctx context.Context, email string) error {
	return s.resetFn(ctx, email)
}

func (s *stubAuth) UpdatePreferences(ctx context.Context, upd domain.PreferencesUpdate) (*domain.Profile, error) {
	return s.prefsFn(ctx, upd)
}

func (s *stubAuth) UpdateConsent(ctx context.Context, upd domain.ConsentUpdate) (*domain.Profile, error) {
	return s.consentFn(ctx, upd)
}

// stubLockouts is an in-memory ports.LockoutStore.
type stubLockouts struct {
	mu     sync.Mutex
	states map[string]domain.LockoutState
}

func newStubLockouts() *stubLockouts {
	return &stubLockouts{states: make(map[string]domain.LockoutState)}
}

func (s *stubLockouts) Load(_ context.Context, client string) (domain.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[client], nil
}

func (s *stubLockouts) RecordFailure(_ context.Context, client string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[client]
	st.Attempts++
	s.states[client] = st
	return st.Attempts, nil
}

func (s *stubLockouts) Lock(_ context.Context, client string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[client]
	st.LockedUntil = until
	s.states[client] = st
	return nil
}

func (s *stubLockouts) Reset(_ context.Context, client string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, client)
	return nil
}

// newSessionContext builds an echo context carrying the values the Session
// middleware would set.
func newSessionContext(method, target, body string, auth ports.AuthService, sessionID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if auth != nil {
		c.Set(middleware.ContextAuth, auth)
	}
	if sessionID != "" {
		c.Set(middleware.ContextSessionID, sessionID)
	}
	return c, rec
}
