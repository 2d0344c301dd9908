package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// Fixed identity used when the gateway runs inside a preview environment.
const (
	PreviewPrincipalID = "preview-demo-user"
	PreviewEmail       = "demo@preview.verdantmart.app"
	PreviewDisplayName = "Demo User"
	PreviewRole        = domain.RoleConsumer
)

// SessionStoreOptions selects the store's behaviour for the resolved environment.
type SessionStoreOptions struct {
	// Preview bypasses the backend subscription and serves a fixed demo profile.
	Preview bool
	// SynthesizeProfiles builds a default profile when none is stored (mock mode).
	SynthesizeProfiles bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// SessionStore mirrors the identity backend's auth-state stream into the
// current principal and profile of one browser context.
type SessionStore struct {
	backend  ports.IdentityBackend
	profiles ports.ProfileRepository
	opts     SessionStoreOptions
	log      zerolog.Logger

	mu          sync.RWMutex
	principal   *domain.Principal
	profile     *domain.Profile
	loading     bool
	started     bool
	closed      bool
	unsubscribe func()
	changed     chan struct{}
	ready       chan struct{}
	readyOnce   sync.Once
}

// NewSessionStore returns an unstarted store; Snapshot reports Loading until Start
// has processed the first auth-state event.
func NewSessionStore(backend ports.IdentityBackend, profiles ports.ProfileRepository, opts SessionStoreOptions, log zerolog.Logger) *SessionStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionStore{
		backend:  backend,
		profiles: profiles,
		opts:     opts,
		log:      log,
		loading:  true,
		changed:  make(chan struct{}),
		ready:    make(chan struct{}),
	}
}

// Start subscribes to the backend once. In preview mode the subscription is
// skipped and the demo identity is installed immediately.
func (s *SessionStore) Start(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true

	if s.opts.Preview {
		p, profile := PreviewIdentity(s.opts.Now())
		s.principal, s.profile = p, profile
		s.loading = false
		s.notifyLocked()
		s.mu.Unlock()
		s.markReady()
		s.log.Info().Str("principal_id", p.ID).Msg("preview environment: serving demo profile")
		return
	}
	s.mu.Unlock()

	unsubscribe := s.backend.OnAuthStateChanged(s.handle)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
}

// Ready is closed once the first auth-state event has been processed.
func (s *SessionStore) Ready() <-chan struct{} { return s.ready }

// Snapshot returns a copy of the current state.
func (s *SessionStore) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Await blocks until cond holds for the current state or ctx is done, and
// returns the last snapshot observed.
func (s *SessionStore) Await(ctx context.Context, cond func(domain.Snapshot) bool) (domain.Snapshot, error) {
	for {
		s.mu.RLock()
		snap := s.snapshotLocked()
		changed := s.changed
		s.mu.RUnlock()

		if cond(snap) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// Clear drops the principal and profile without waiting for the backend.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.principal, s.profile = nil, nil
	s.notifyLocked()
	s.mu.Unlock()
}

// SetAuthenticated installs a principal and profile produced by an auth operation.
func (s *SessionStore) SetAuthenticated(p *domain.Principal, profile *domain.Profile) {
	s.mu.Lock()
	s.principal, s.profile = p.Clone(), profile.Clone()
	s.notifyLocked()
	s.mu.Unlock()
}

// SetProfile replaces the profile of the current principal. It is ignored when
// the profile belongs to someone else.
func (s *SessionStore) SetProfile(profile *domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil || profile == nil || profile.ID != s.principal.ID {
		return
	}
	s.profile = profile.Clone()
	s.notifyLocked()
}

// Close releases the backend subscription.
func (s *SessionStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *SessionStore) handle(ctx context.Context, p *domain.Principal) {
	var (
		stored   *domain.Profile
		notFound bool
	)
	if p != nil {
		stored, notFound = s.fetchProfile(ctx, p)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	profile := stored
	switch {
	case p == nil || profile != nil:
	case s.principal != nil && s.principal.ID == p.ID && s.profile != nil:
		// An auth operation may install the profile before the store can
		// read it back.
		profile = s.profile
	case notFound && s.opts.SynthesizeProfiles:
		profile = domain.NewProfile(p, domain.RoleUser, nil, s.opts.Now())
	case notFound:
		s.log.Warn().Str("principal_id", p.ID).Msg("no profile stored for principal")
	}
	s.principal, s.profile = p.Clone(), profile
	s.loading = false
	s.notifyLocked()
	s.mu.Unlock()
	s.markReady()

	if p == nil {
		s.log.Debug().Msg("auth state: signed out")
		return
	}
	s.log.Debug().Str("principal_id", p.ID).Bool("has_profile", profile != nil).Msg("auth state: signed in")
}

// fetchProfile reads the stored profile. notFound distinguishes a missing
// document from a read failure.
func (s *SessionStore) fetchProfile(ctx context.Context, p *domain.Principal) (profile *domain.Profile, notFound bool) {
	profile, err := s.profiles.Get(ctx, p.ID)
	switch {
	case err == nil:
		return profile, false
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, true
	default:
		s.log.Error().Err(err).Str("principal_id", p.ID).Msg("failed to fetch profile")
		return nil, false
	}
}

func (s *SessionStore) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Principal: s.principal.Clone(),
		Profile:   s.profile.Clone(),
		Loading:   s.loading,
	}
}

// notifyLocked wakes every Await caller. s.mu must be held for writing.
func (s *SessionStore) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *SessionStore) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// PreviewIdentity returns the fixed demo principal and profile.
func PreviewIdentity(now time.Time) (*domain.Principal, *domain.Profile) {
	p := &domain.Principal{ID: PreviewPrincipalID, Email: PreviewEmail, DisplayName: PreviewDisplayName}
	return p, domain.NewProfile(p, PreviewRole, nil, now)
}
