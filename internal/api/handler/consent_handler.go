package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

// ConsentHandler stores the browser context's answer to the cookie notice.
// It is independent of the signed-in profile.
type ConsentHandler struct {
	store ports.ConsentAckStore
}

func NewConsentHandler(store ports.ConsentAckStore) *ConsentHandler {
	return &ConsentHandler{store: store}
}

type cookieConsentRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

type cookieConsentResponse struct {
	Answered bool  `json:"answered"`
	Accepted *bool `json:"accepted,omitempty"`
}

// Get reports whether the cookie notice has been answered.
//
// @Summary      Cookie notice answer
// @Tags         consent
// @Produce      json
// @Success      200  {object}  cookieConsentResponse
// @Router       /consent/cookies [get]
func (h *ConsentHandler) Get(c echo.Context) error {
	client, err := ctxSessionID(c)
	if err != nil {
		return err
	}
	accepted, err := h.store.Get(c.Request().Context(), client)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cookieConsentResponse{Answered: accepted != nil, Accepted: accepted})
}

// Put records the answer to the cookie notice.
//
// @Summary      Answer cookie notice
// @Tags         consent
// @Accept       json
// @Produce      json
// @Param        body  body      cookieConsentRequest  true  "Answer"
// @Success      200   {object}  cookieConsentResponse
// @Failure      400   {object}  map[string]string
// @Router       /consent/cookies [put]
func (h *ConsentHandler) Put(c echo.Context) error {
	client, err := ctxSessionID(c)
	if err != nil {
		return err
	}
	var req cookieConsentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.store.Set(c.Request().Context(), client, *req.Accepted); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cookieConsentResponse{Answered: true, Accepted: req.Accepted})
}
