package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verdantmart/identity-gateway/internal/api/middleware"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// ctxAuth returns the session facade mounted by the Session middleware.
// A missing value means the route was registered outside the middleware.
func ctxAuth(c echo.Context) (ports.AuthService, error) {
	auth, _ := c.Get(middleware.ContextAuth).(ports.AuthService)
	if auth == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session not mounted")
	}
	return auth, nil
}

// ctxSessionID returns the browser context identifier, which also keys the
// per-client login and consent bookkeeping.
func ctxSessionID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.ContextSessionID).(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusInternalServerError, "session not mounted")
	}
	return id, nil
}
