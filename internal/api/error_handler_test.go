package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("%w: email is required", domain.ErrValidation), http.StatusBadRequest},
		{"weak password", domain.ErrWeakPassword, http.StatusBadRequest},
		{"invalid role", fmt.Errorf("%w: %q", domain.ErrInvalidRole, "wizard"), http.StatusBadRequest},
		{"invalid credentials", fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials), http.StatusUnauthorized},
		{"invalid assertion", domain.ErrInvalidAssertion, http.StatusUnauthorized},
		{"not authenticated", domain.ErrNotAuthenticated, http.StatusUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"exists", fmt.Errorf("sign up: %w", domain.ErrUserExists), http.StatusConflict},
		{"backend config", domain.ErrBackendConfig, http.StatusServiceUnavailable},
		{"echo", echo.NewHTTPError(http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			handler(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error == "" {
				t.Fatal("expected an error message")
			}
			if tc.code == http.StatusInternalServerError && resp.Error != "internal server error" {
				t.Fatalf("internal details leaked: %q", resp.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_Lockout(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/signin", nil), rec)

	err := &domain.LockoutError{Until: time.Now().Add(90 * time.Second), Remaining: 90 * time.Second}
	NewHTTPErrorHandler(zerolog.Nop())(fmt.Errorf("sign in: %w", err), c)

	if rec.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("expected Retry-After 90, got %q", got)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.RetryAfterSeconds != 90 || resp.Error != "too many failed attempts, try again in 2 minute(s)" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}
