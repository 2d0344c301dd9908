package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/service"
)

// sessionResponse is the mirrored auth state of one browser context.
type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	Loading       bool              `json:"loading"`
	Principal     *domain.Principal `json:"principal,omitempty"`
	Profile       *domain.Profile   `json:"profile,omitempty"`
}

func newSessionResponse(s domain.Snapshot) sessionResponse {
	return sessionResponse{
		Authenticated: s.Authenticated(),
		Loading:       s.Loading,
		Principal:     s.Principal,
		Profile:       s.Profile,
	}
}

type sessionStateResponse struct {
	sessionResponse
	Mode    service.Mode `json:"mode"`
	Preview bool         `json:"preview"`
}

// SessionHandler exposes the mounted session.
type SessionHandler struct {
	registry   *service.SessionRegistry
	cookieName string
}

func NewSessionHandler(registry *service.SessionRegistry, cookieName string) *SessionHandler {
	return &SessionHandler{registry: registry, cookieName: cookieName}
}

// Get returns the session's principal and profile.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionStateResponse
// @Router       /session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	auth, err := ctxAuth(c)
	if err != nil {
		return err
	}
	env := h.registry.Capabilities().Env
	return c.JSON(http.StatusOK, sessionStateResponse{
		sessionResponse: newSessionResponse(auth.Session()),
		Mode:            env.Mode,
		Preview:         env.Preview,
	})
}

// Delete tears the browser context down and expires its cookie.
//
// @Summary      Tear down session
// @Tags         session
// @Success      204
// @Router       /session [delete]
func (h *SessionHandler) Delete(c echo.Context) error {
	id, err := ctxSessionID(c)
	if err != nil {
		return err
	}
	h.registry.Teardown(id)
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}
