package service

import (
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// Mode selects which auth strategy backs every session.
type Mode string

const (
	ModeLive Mode = "live"
	ModeMock Mode = "mock"
)

// Environment is resolved once at startup and never re-inspected by business logic.
type Environment struct {
	Mode    Mode
	Preview bool
}

// Mock reports whether fixture-backed strategies are active.
func (e Environment) Mock() bool { return e.Mode == ModeMock }

// ResolveEnvironment derives the environment from deployment settings. An
// explicit authMode wins; otherwise development deployments run in mock mode.
// Preview is detected by matching host against previewSuffixes.
func ResolveEnvironment(env, authMode, host string, previewSuffixes []string) (Environment, error) {
	var out Environment

	switch strings.ToLower(strings.TrimSpace(authMode)) {
	case "live":
		out.Mode = ModeLive
	case "mock":
		out.Mode = ModeMock
	case "":
		switch strings.ToLower(strings.TrimSpace(env)) {
		case "development", "dev", "local":
			out.Mode = ModeMock
		default:
			out.Mode = ModeLive
		}
	default:
		return Environment{}, fmt.Errorf("unknown auth mode %q", authMode)
	}

	out.Preview = isPreviewHost(host, previewSuffixes)
	return out, nil
}

func isPreviewHost(host string, suffixes []string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return false
	}
	for _, s := range suffixes {
		s = strings.Trim(strings.ToLower(strings.TrimSpace(s)), ".")
		if s == "" {
			continue
		}
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// Capabilities is the strategy set injected into the session registry.
type Capabilities struct {
	Env           Environment
	NewBackend    func() ports.IdentityBackend
	Profiles      ports.ProfileRepository
	NewOperations func(backend ports.IdentityBackend) ports.AuthOperations
	Guard         *LoginGuard
	ConsentAcks   ports.ConsentAckStore
}

// LiveCapabilities wires the hosted-backend strategy with active lockout bookkeeping.
func LiveCapabilities(
	env Environment,
	newBackend func() ports.IdentityBackend,
	profiles ports.ProfileRepository,
	lockouts ports.LockoutStore,
	policy LockoutPolicy,
	consentAcks ports.ConsentAckStore,
	log zerolog.Logger,
) Capabilities {
	opsLog := log.With().Str("component", "auth_ops").Str("mode", string(ModeLive)).Logger()
	return Capabilities{
		Env:        env,
		NewBackend: newBackend,
		Profiles:   profiles,
		NewOperations: func(b ports.IdentityBackend) ports.AuthOperations {
			return NewLiveOperations(b, profiles, opsLog)
		},
		Guard:       NewLoginGuard(lockouts, policy, log.With().Str("component", "login_guard").Logger()),
		ConsentAcks: consentAcks,
	}
}

// MockCapabilities wires the fixture strategy. Lockout bookkeeping is disabled.
func MockCapabilities(
	env Environment,
	newBackend func() ports.IdentityBackend,
	table ports.ProfileRepository,
	consentAcks ports.ConsentAckStore,
	log zerolog.Logger,
) Capabilities {
	opsLog := log.With().Str("component", "auth_ops").Str("mode", string(ModeMock)).Logger()
	return Capabilities{
		Env:        env,
		NewBackend: newBackend,
		Profiles:   table,
		NewOperations: func(b ports.IdentityBackend) ports.AuthOperations {
			return NewMockOperations(b, table, opsLog)
		},
		Guard:       DisabledLoginGuard(),
		ConsentAcks: consentAcks,
	}
}
