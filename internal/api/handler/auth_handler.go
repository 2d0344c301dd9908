package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/api/metrics"
	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// AuthHandler serves the account operations of the mounted session.
type AuthHandler struct {
	log zerolog.Logger
}

func NewAuthHandler(log zerolog.Logger) *AuthHandler {
	return &AuthHandler{log: log}
}

type signUpRequest struct {
	Email       string            `json:"email"        validate:"required,email"`
	Password    string            `json:"password"     validate:"required"`
	DisplayName string            `json:"display_name" validate:"max=100"`
	Role        string            `json:"role"         validate:"required"`
	Extra       map[string]string `json:"extra,omitempty"`
}

type providerRequest struct {
	Role      string `json:"role"      validate:"required"`
	Assertion string `json:"assertion"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type accountResponse struct {
	Principal *domain.Principal `json:"principal"`
	Profile   *domain.Profile   `json:"profile,omitempty"`
}

// SignUp creates an account and signs the session in.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Account details"
// @Success      201   {object}  accountResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	auth, err := ctxAuth(c)
	if err != nil {
		return err
	}
	var req signUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		metrics.SignUpsTotal.WithLabelValues("invalid", "failure").Inc()
		return err
	}

	p, profile, err := auth.SignUp(c.Request().Context(), ports.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        role,
		Extra:       req.Extra,
	})
	if err != nil {
		metrics.SignUpsTotal.WithLabelValues(role.String(), "failure").Inc()
		return err
	}

	metrics.SignUpsTotal.WithLabelValues(role.String(), "success").Inc()
	return c.JSON(http.StatusCreated, accountResponse{Principal: p, Profile: profile})
}

// SignInWithProvider completes a federated sign-in. The profile is created with
// role on first login.
//
// @Summary      Federated sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      providerRequest  true  "Provider assertion and requested role"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/provider [post]
func (h *AuthHandler) SignInWithProvider(c echo.Context) error {
	auth, err := ctxAuth(c)
	if err != nil {
		return err
	}
	var req providerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}

	p, profile, err := auth.SignInWithProvider(c.Request().Context(), role, req.Assertion)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues("provider", "failure").Inc()
		return err
	}

	metrics.SignInsTotal.WithLabelValues("provider", "success").Inc()
	return c.JSON(http.StatusOK, accountResponse{Principal: p, Profile: profile})
}

// SignOut clears the session. The local state is cleared even when the
// backend call fails, in which case the error is still reported.
//
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Failure      500  {object}  map[string]string
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	auth, err := ctxAuth(c)
	if err != nil {
		return err
	}
	if err := auth.SignOut(c.Request().Context()); err != nil {
		metrics.SignOutsTotal.WithLabelValues("backend_error").Inc()
		return err
	}

	metrics.SignOutsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, newSessionResponse(auth.Session()))
}

// ResetPassword asks the backend to send a reset link. Unknown addresses are
// accepted silently.
//
// @Summary      Request password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      passwordResetRequest  true  "Account email"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/password-reset [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	auth, err := ctxAuth(c)
	if err != nil {
		return err
	}
	var req passwordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := auth.ResetPassword(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.log.Debug().Msg("password reset requested for unknown address")
			return c.JSON(http.StatusAccepted, map[string]string{"status": "sent"})
		}
		return err
	}

	metrics.PasswordResetsTotal.Inc()
	return c.JSON(http.StatusAccepted, map[string]string{"status": "sent"})
}
