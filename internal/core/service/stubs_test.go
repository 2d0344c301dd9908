package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// stubBackend delivers auth-state events synchronously so tests can assert on
// the session store right after an operation returns.
type stubBackend struct {
	mu         sync.Mutex
	current    *domain.Principal
	listeners  map[int]ports.AuthStateListener
	nextID     int
	subscribed int
	closed     bool

	users      map[string]string // email -> password
	created    []string
	signOutErr error
	resetErr   error
	federated  *domain.Principal
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		listeners: make(map[int]ports.AuthStateListener),
		users:     make(map[string]string),
	}
}

func (b *stubBackend) CurrentUser() *domain.Principal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Clone()
}

func (b *stubBackend) CreateUser(_ context.Context, email, password, displayName string) (*domain.Principal, error) {
	b.mu.Lock()
	if _, ok := b.users[email]; ok {
		b.mu.Unlock()
		return nil, domain.ErrUserExists
	}
	b.users[email] = password
	b.created = append(b.created, email)
	b.mu.Unlock()

	p := &domain.Principal{ID: "id-" + email, Email: email, DisplayName: displayName}
	b.emit(p)
	return p, nil
}

func (b *stubBackend) SignIn(_ context.Context, email, password string) (*domain.Principal, error) {
	b.mu.Lock()
	stored, ok := b.users[email]
	b.mu.Unlock()
	if !ok || stored != password {
		return nil, domain.ErrInvalidCredentials
	}
	p := &domain.Principal{ID: "id-" + email, Email: email}
	b.emit(p)
	return p, nil
}

func (b *stubBackend) SignInWithProvider(_ context.Context, assertion string) (*domain.Principal, error) {
	if assertion == "" || b.federated == nil {
		return nil, domain.ErrInvalidAssertion
	}
	p := b.federated.Clone()
	b.emit(p)
	return p, nil
}

func (b *stubBackend) SignOut(_ context.Context) error {
	if b.signOutErr != nil {
		return b.signOutErr
	}
	b.emit(nil)
	return nil
}

func (b *stubBackend) SendPasswordReset(_ context.Context, _ string) error {
	return b.resetErr
}

func (b *stubBackend) OnAuthStateChanged(listener ports.AuthStateListener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	b.subscribed++
	initial := b.current.Clone()
	b.mu.Unlock()

	listener(context.Background(), initial)
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *stubBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// emit updates the current principal and notifies listeners outside the lock.
func (b *stubBackend) emit(p *domain.Principal) {
	b.mu.Lock()
	b.current = p.Clone()
	ls := make([]ports.AuthStateListener, 0, len(b.listeners))
	for _, l := range b.listeners {
		ls = append(ls, l)
	}
	b.mu.Unlock()

	for _, l := range ls {
		l(context.Background(), p.Clone())
	}
}

func (b *stubBackend) listenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

type stubProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	writes   []string // "set" or the merged field names per write
	getErr   error
	setErr   error
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{profiles: make(map[string]*domain.Profile)}
}

func (r *stubProfiles) Get(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p.Clone(), nil
}

func (r *stubProfiles) Set(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.writes = append(r.writes, "set")
	r.profiles[profile.ID] = profile.Clone()
	return nil
}

func (r *stubProfiles) Merge(_ context.Context, id string, patch domain.ProfilePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.writes = append(r.writes, strings.Join(patch.Fields(), ","))
	stored, ok := r.profiles[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	r.profiles[id] = stored.Apply(patch)
	return nil
}

// update changes a stored profile behind the session's back.
func (r *stubProfiles) update(id string, fn func(*domain.Profile)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.profiles[id])
}

func (r *stubProfiles) get(id string) *domain.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[id].Clone()
}

type stubLockoutStore struct {
	mu     sync.Mutex
	states map[string]domain.LockoutState
	err    error
}

func newStubLockoutStore() *stubLockoutStore {
	return &stubLockoutStore{states: make(map[string]domain.LockoutState)}
}

func (s *stubLockoutStore) Load(_ context.Context, client string) (domain.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.LockoutState{}, s.err
	}
	return s.states[client], nil
}

func (s *stubLockoutStore) RecordFailure(_ context.Context, client string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	st := s.states[client]
	st.Attempts++
	s.states[client] = st
	return st.Attempts, nil
}

func (s *stubLockoutStore) Lock(_ context.Context, client string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[client]
	st.LockedUntil = until
	s.states[client] = st
	return nil
}

func (s *stubLockoutStore) Reset(_ context.Context, client string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, client)
	return nil
}

var errBackendDown = errors.New("backend unavailable")

// fixedClock returns a controllable time source.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
