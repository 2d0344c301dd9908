package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
	"github.com/verdantmart/identity-gateway/internal/core/service"
	"github.com/verdantmart/identity-gateway/internal/infrastructure/identity/mock"
)

func newMockRegistry(t *testing.T, env service.Environment) *service.SessionRegistry {
	t.Helper()
	fixtures := mock.DemoFixtures()
	dir := mock.NewDirectory(fixtures)
	caps := service.MockCapabilities(
		env,
		func() ports.IdentityBackend { return mock.NewBackend(dir, zerolog.Nop()) },
		mock.NewProfileTable(fixtures),
		mock.NewConsentAcks(),
		zerolog.Nop(),
	)
	reg := service.NewSessionRegistry(caps, 0, zerolog.Nop())
	t.Cleanup(reg.Close)
	return reg
}

func TestSessionHandler_Get_Preview(t *testing.T) {
	reg := newMockRegistry(t, service.Environment{Mode: service.ModeMock, Preview: true})
	s := reg.Mount("s1")
	<-s.Store.Ready()

	h := NewSessionHandler(reg, "sid")
	c, rec := newSessionContext(http.MethodGet, "/session", "", s.Auth, "s1")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp sessionStateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Preview || resp.Mode != service.ModeMock {
		t.Fatalf("unexpected environment: %+v", resp)
	}
	if !resp.Authenticated || resp.Profile == nil || resp.Profile.Role != service.PreviewRole {
		t.Fatalf("expected preview identity, got %+v", resp.sessionResponse)
	}
}

func TestSessionHandler_Get_Anonymous(t *testing.T) {
	reg := newMockRegistry(t, service.Environment{Mode: service.ModeMock})
	s := reg.Mount("s1")
	<-s.Store.Ready()

	h := NewSessionHandler(reg, "sid")
	c, rec := newSessionContext(http.MethodGet, "/session", "", s.Auth, "s1")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp sessionStateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Authenticated || resp.Loading || resp.Principal != nil {
		t.Fatalf("expected anonymous session, got %+v", resp.sessionResponse)
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	reg := newMockRegistry(t, service.Environment{Mode: service.ModeMock})
	s := reg.Mount("s1")
	cred, _ := mock.DemoCredential(domain.RoleUser)
	if _, err := s.Auth.SignIn(context.Background(), cred.Email, cred.Password); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	h := NewSessionHandler(reg, "sid")
	c, rec := newSessionContext(http.MethodDelete, "/session", "", s.Auth, "s1")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := reg.Get("s1"); ok {
		t.Fatal("session should be torn down")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expired sid cookie, got %+v", cookies)
	}
}
