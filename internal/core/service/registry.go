package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

const (
	defaultIdleTimeout = 30 * time.Minute
	defaultMaxSessions = 10000
)

// Session is the state mounted for one browser context.
type Session struct {
	ID    string
	Store *SessionStore
	Auth  *AuthService

	backend  ports.IdentityBackend
	lastSeen time.Time
}

// SessionRegistry mounts a Session per browser context and tears idle ones down.
type SessionRegistry struct {
	caps Capabilities
	idle time.Duration
	max  int
	now  func() time.Time
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionRegistry(caps Capabilities, idle time.Duration, log zerolog.Logger) *SessionRegistry {
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionRegistry{
		caps:     caps,
		idle:     idle,
		max:      defaultMaxSessions,
		now:      time.Now,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// NewSessionID returns a fresh browser context identifier.
func NewSessionID() string {
	return ulid.Make().String()
}

// Capabilities returns the strategies sessions are built from.
func (r *SessionRegistry) Capabilities() Capabilities { return r.caps }

// SetMaxSessions bounds the number of mounted sessions. Mounting beyond it
// tears down the least recently seen session. n <= 0 keeps the default.
func (r *SessionRegistry) SetMaxSessions(n int) {
	if n <= 0 {
		n = defaultMaxSessions
	}
	r.mu.Lock()
	r.max = n
	r.mu.Unlock()
}

// Mount returns the session for id, creating and starting it on first use.
func (r *SessionRegistry) Mount(id string) *Session {
	var evicted []*Session
	defer func() {
		for _, s := range evicted {
			r.release(s)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.now()
		return s
	}
	for len(r.sessions) >= r.max {
		oldest := r.oldestLocked()
		delete(r.sessions, oldest.ID)
		evicted = append(evicted, oldest)
	}
	if len(evicted) > 0 {
		r.log.Warn().Int("max_sessions", r.max).Int("evicted", len(evicted)).Msg("session limit reached")
	}

	log := r.log.With().Str("session_id", id).Logger()
	backend := r.caps.NewBackend()
	store := NewSessionStore(backend, r.caps.Profiles, SessionStoreOptions{
		Preview:            r.caps.Env.Preview,
		SynthesizeProfiles: r.caps.Env.Mock(),
	}, log.With().Str("component", "session_store").Logger())
	auth := NewAuthService(r.caps.NewOperations(backend), store, log.With().Str("component", "auth_service").Logger())

	s := &Session{ID: id, Store: store, Auth: auth, backend: backend, lastSeen: r.now()}
	r.sessions[id] = s
	store.Start(r.ctx)

	log.Debug().Msg("session mounted")
	return s
}

func (r *SessionRegistry) oldestLocked() *Session {
	var oldest *Session
	for _, s := range r.sessions {
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldest = s
		}
	}
	return oldest
}

// Get returns a mounted session without creating one.
func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Teardown destroys the session for id. It reports whether one existed.
func (r *SessionRegistry) Teardown(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.release(s)
	}
	return ok
}

// Sweep tears down sessions idle for longer than the idle timeout.
func (r *SessionRegistry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		r.release(s)
	}
	if len(stale) > 0 {
		r.log.Debug().Int("count", len(stale)).Msg("idle sessions torn down")
	}
	return len(stale)
}

// Run sweeps every interval until ctx is cancelled.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// SessionInfo summarises a mounted session for operators.
type SessionInfo struct {
	ID          string      `json:"id"`
	PrincipalID string      `json:"principal_id,omitempty"`
	Role        domain.Role `json:"role,omitempty"`
	LastSeen    time.Time   `json:"last_seen"`
}

// List returns a summary of every mounted session, most recently seen first.
func (r *SessionRegistry) List() []SessionInfo {
	r.mu.Lock()
	out := make([]SessionInfo, 0, len(r.sessions))
	stores := make([]*SessionStore, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, SessionInfo{ID: s.ID, LastSeen: s.lastSeen})
		stores = append(stores, s.Store)
	}
	r.mu.Unlock()

	for i, store := range stores {
		snap := store.Snapshot()
		if snap.Principal != nil {
			out[i].PrincipalID = snap.Principal.ID
		}
		if snap.Profile != nil {
			out[i].Role = snap.Profile.Role
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out
}

// Len returns the number of mounted sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close tears every session down.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		r.release(s)
	}
	r.cancel()
}

func (r *SessionRegistry) release(s *Session) {
	s.Store.Close()
	if err := s.backend.Close(); err != nil {
		r.log.Warn().Err(err).Str("session_id", s.ID).Msg("failed to close identity backend")
	}
}
