package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verdantmart/identity-gateway/internal/core/service"
)

// AdminHandler serves operator views. Routes are guarded by the RBAC middleware.
type AdminHandler struct {
	registry *service.SessionRegistry
}

func NewAdminHandler(registry *service.SessionRegistry) *AdminHandler {
	return &AdminHandler{registry: registry}
}

type sessionListResponse struct {
	Count    int                   `json:"count"`
	Sessions []service.SessionInfo `json:"sessions"`
}

// Sessions lists the mounted browser sessions.
//
// @Summary      Mounted sessions
// @Tags         admin
// @Produce      json
// @Success      200  {object}  sessionListResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/sessions [get]
func (h *AdminHandler) Sessions(c echo.Context) error {
	list := h.registry.List()
	return c.JSON(http.StatusOK, sessionListResponse{Count: len(list), Sessions: list})
}
