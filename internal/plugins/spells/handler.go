package spells

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmowen/warsheet/internal/apperror"
)

// Handler exposes the spells plugin over HTTP.
type Handler struct {
	svc Service
}

// NewHandler creates the spells HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Catalog returns the spell list and slot state.
func (h *Handler) Catalog(c echo.Context) error {
	catalog, err := h.svc.Catalog(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, catalog)
}

type castRequest struct {
	Spell         string `json:"spell"`
	Level         int    `json:"level"`
	Concentration *bool  `json:"concentration"`
	Duration      string `json:"duration"`
	Effect        string `json:"effect"`
}

// Cast spends a slot and casts a spell.
func (h *Handler) Cast(c echo.Context) error {
	var req castRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	result, err := h.svc.Cast(c.Request().Context(), CastInput{
		Spell:         req.Spell,
		Level:         req.Level,
		Concentration: req.Concentration,
		Duration:      req.Duration,
		Effect:        req.Effect,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type restoreSlotRequest struct {
	Level int `json:"level"`
}

// RestoreSlot refunds one spent spell slot.
func (h *Handler) RestoreSlot(c echo.Context) error {
	var req restoreSlotRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	state, err := h.svc.RestoreSlot(c.Request().Context(), req.Level)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}
