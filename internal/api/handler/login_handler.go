package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/api/metrics"
	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
	"github.com/verdantmart/identity-gateway/internal/core/service"
	"github.com/verdantmart/identity-gateway/internal/infrastructure/identity/mock"
)

const defaultSyncTimeout = 2 * time.Second

// LoginHandler is the password login surface: client-side validation, the
// advisory lockout and the demo shortcuts.
type LoginHandler struct {
	guard       *service.LoginGuard
	autoSubmit  bool
	demo        []mock.Credential
	syncTimeout time.Duration
	log         zerolog.Logger
}

// NewLoginHandler returns the login surface. In mock mode the demo shortcuts
// also submit the login.
func NewLoginHandler(guard *service.LoginGuard, mockMode bool, demo []mock.Credential, log zerolog.Logger) *LoginHandler {
	return &LoginHandler{
		guard:       guard,
		autoSubmit:  mockMode,
		demo:        demo,
		syncTimeout: defaultSyncTimeout,
		log:         log,
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signInFailure reports a rejected login and the lockout bookkeeping.
type signInFailure struct {
	Error     string `json:"error"`
	Attempts  int    `json:"attempts"`
	Remaining int    `json:"remaining"`
	Warning   string `json:"warning,omitempty"`
}

type lockoutResponse struct {
	Enabled          bool       `json:"enabled"`
	Attempts         int        `json:"attempts"`
	MaxAttempts      int        `json:"max_attempts"`
	Locked           bool       `json:"locked"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds,omitempty"`
}

type demoListResponse struct {
	Credentials []mock.Credential `json:"credentials"`
	AutoSubmit  bool              `json:"auto_submit"`
}

type demoResponse struct {
	Credential mock.Credential  `json:"credential"`
	Session    *sessionResponse `json:"session,omitempty"`
}

// SignIn submits an email/password login.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  signInFailure
// @Failure      423   {object}  map[string]string
// @Router       /auth/signin [post]
func (h *LoginHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}

	snap, failure, err := h.submit(c, req.Email, req.Password, "password")
	if err != nil {
		return err
	}
	if failure != nil {
		return c.JSON(http.StatusUnauthorized, failure)
	}
	return c.JSON(http.StatusOK, newSessionResponse(snap))
}

// Lockout reports the login bookkeeping of the browser context.
//
// @Summary      Login lockout status
// @Tags         auth
// @Produce      json
// @Success      200  {object}  lockoutResponse
// @Router       /auth/lockout [get]
func (h *LoginHandler) Lockout(c echo.Context) error {
	client, err := ctxSessionID(c)
	if err != nil {
		return err
	}
	state, err := h.guard.Status(c.Request().Context(), client)
	if err != nil {
		return err
	}

	now := time.Now()
	resp := lockoutResponse{
		Enabled:     h.guard.Enabled(),
		Attempts:    state.Attempts,
		MaxAttempts: h.guard.Policy().MaxAttempts,
		Locked:      state.Locked(now),
	}
	if resp.Locked {
		until := state.LockedUntil
		resp.LockedUntil = &until
		resp.RemainingSeconds = int(math.Ceil(state.Remaining(now).Seconds()))
	}
	return c.JSON(http.StatusOK, resp)
}

// DemoCredentials lists the demo accounts.
//
// @Summary      Demo credentials
// @Tags         auth
// @Produce      json
// @Success      200  {object}  demoListResponse
// @Router       /auth/demo [get]
func (h *LoginHandler) DemoCredentials(c echo.Context) error {
	return c.JSON(http.StatusOK, demoListResponse{Credentials: h.demo, AutoSubmit: h.autoSubmit})
}

// Demo returns the demo credential for role so the form can be filled in. In
// mock mode the login is submitted as well.
//
// @Summary      Demo shortcut
// @Tags         auth
// @Produce      json
// @Param        role  path      string  true  "Role"
// @Success      200   {object}  demoResponse
// @Failure      404   {object}  map[string]string
// @Router       /auth/demo/{role} [post]
func (h *LoginHandler) Demo(c echo.Context) error {
	role, err := domain.ParseRole(c.Param("role"))
	if err != nil {
		return err
	}
	cred, ok := h.demoCredential(role)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no demo account for role")
	}
	if !h.autoSubmit {
		return c.JSON(http.StatusOK, demoResponse{Credential: cred})
	}

	snap, failure, err := h.submit(c, cred.Email, cred.Password, "demo")
	if err != nil {
		return err
	}
	if failure != nil {
		return c.JSON(http.StatusUnauthorized, failure)
	}
	session := newSessionResponse(snap)
	return c.JSON(http.StatusOK, demoResponse{Credential: cred, Session: &session})
}

func (h *LoginHandler) demoCredential(role domain.Role) (mock.Credential, bool) {
	for _, cred := range h.demo {
		if cred.Role == role {
			return cred, true
		}
	}
	return mock.Credential{}, false
}

// submit validates the form, enforces the lockout and signs the session in.
// A rejected login comes back as a failure, not an error, so the caller can
// render the attempt counter.
func (h *LoginHandler) submit(c echo.Context, email, password, method string) (domain.Snapshot, *signInFailure, error) {
	auth, err := ctxAuth(c)
	if err != nil {
		return domain.Snapshot{}, nil, err
	}
	client, err := ctxSessionID(c)
	if err != nil {
		return domain.Snapshot{}, nil, err
	}
	ctx := c.Request().Context()

	if err := service.ValidateCredentials(email, password); err != nil {
		metrics.SignInsTotal.WithLabelValues(method, "invalid").Inc()
		return domain.Snapshot{}, nil, err
	}
	if err := h.guard.Check(ctx, client); err != nil {
		var locked *domain.LockoutError
		if errors.As(err, &locked) {
			metrics.SignInsTotal.WithLabelValues(method, "locked").Inc()
		}
		return domain.Snapshot{}, nil, err
	}

	p, signInErr := auth.SignIn(ctx, email, password)
	if signInErr != nil {
		metrics.SignInsTotal.WithLabelValues(method, "failure").Inc()
		return h.rejected(ctx, client, signInErr)
	}

	if err := h.guard.RecordSuccess(ctx, client); err != nil {
		h.log.Error().Err(err).Str("client", client).Msg("failed to reset login attempts")
	}
	metrics.SignInsTotal.WithLabelValues(method, "success").Inc()
	return h.await(ctx, auth, p), nil, nil
}

func (h *LoginHandler) rejected(ctx context.Context, client string, signInErr error) (domain.Snapshot, *signInFailure, error) {
	attempt, err := h.guard.RecordFailure(ctx, client)
	if err != nil {
		h.log.Error().Err(err).Str("client", client).Msg("failed to record login failure")
		return domain.Snapshot{}, nil, signInErr
	}
	if attempt.Locked {
		metrics.LockoutsTotal.Inc()
		return domain.Snapshot{}, nil, &domain.LockoutError{
			Until:     attempt.LockedUntil,
			Remaining: h.guard.Policy().Duration,
		}
	}
	if !errors.Is(signInErr, domain.ErrInvalidCredentials) {
		return domain.Snapshot{}, nil, signInErr
	}

	failure := &signInFailure{
		Error:     domain.ErrInvalidCredentials.Error(),
		Attempts:  attempt.Attempts,
		Remaining: attempt.Remaining,
	}
	if attempt.Warn {
		failure.Warning = fmt.Sprintf("%d attempts remaining before a temporary lockout", attempt.Remaining)
	}
	return domain.Snapshot{}, failure, nil
}

// await waits for the auth-state stream to mirror p into the session. On
// timeout the principal is reported without its profile.
func (h *LoginHandler) await(ctx context.Context, auth ports.AuthService, p *domain.Principal) domain.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, h.syncTimeout)
	defer cancel()

	snap, err := auth.Await(ctx, func(s domain.Snapshot) bool {
		return s.Principal != nil && s.Principal.ID == p.ID
	})
	if err != nil {
		h.log.Warn().Err(err).Str("principal_id", p.ID).Msg("session not yet synchronised after sign in")
		return domain.Snapshot{Principal: p}
	}
	return snap
}
