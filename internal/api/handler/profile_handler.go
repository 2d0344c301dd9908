package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/verdantmart/identity-gateway/internal/api/metrics"
	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

// ProfileHandler updates the signed-in profile.
type ProfileHandler struct{}

func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// UpdatePreferences merges the given preference fields into the profile.
//
// @Summary      Update preferences
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      domain.PreferencesUpdate  true  "Fields to change"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /profile/preferences [patch]
func (h *ProfileHandler) UpdatePreferences(c echo.Context) error {
	auth, err := ctxAuth(c)
	if err != nil {
		return err
	}
	var upd domain.PreferencesUpdate
	if err := c.Bind(&upd); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}
	if upd.Empty() {
		return fmt.Errorf("%w: no preference to update", domain.ErrValidation)
	}
	if upd.Language != nil && strings.TrimSpace(*upd.Language) == "" {
		return fmt.Errorf("%w: language must not be empty", domain.ErrValidation)
	}

	profile, err := auth.UpdatePreferences(c.Request().Context(), upd)
	if err != nil {
		return err
	}
	metrics.ProfileUpdatesTotal.WithLabelValues("preferences").Inc()
	return c.JSON(http.StatusOK, profile)
}

// UpdateConsent merges the given consent flags into the profile.
//
// @Summary      Update consent
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      domain.ConsentUpdate  true  "Flags to change"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /profile/consent [patch]
func (h *ProfileHandler) UpdateConsent(c echo.Context) error {
	auth, err := ctxAuth(c)
	if err != nil {
		return err
	}
	var upd domain.ConsentUpdate
	if err := c.Bind(&upd); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}
	if upd.Marketing == nil && upd.Cookies == nil && upd.DataSharing == nil {
		return fmt.Errorf("%w: no consent flag to update", domain.ErrValidation)
	}

	profile, err := auth.UpdateConsent(c.Request().Context(), upd)
	if err != nil {
		return err
	}
	metrics.ProfileUpdatesTotal.WithLabelValues("consent").Inc()
	return c.JSON(http.StatusOK, profile)
}
