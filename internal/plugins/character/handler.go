package character

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmowen/warsheet/internal/apperror"
)

// Handler exposes the character plugin over HTTP.
type Handler struct {
	svc Service
}

// NewHandler creates the character HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Get returns the full character aggregate with the condition overlay
// applied.
func (h *Handler) Get(c echo.Context) error {
	ch, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ch)
}

type updateHPRequest struct {
	HP     *int `json:"hp"`
	TempHP *int `json:"tempHp"`
}

// UpdateHP sets current and/or temporary hit points directly.
func (h *Handler) UpdateHP(c echo.Context) error {
	var req updateHPRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	state, err := h.svc.UpdateHP(c.Request().Context(), req.HP, req.TempHP)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

type adjustHPRequest struct {
	Delta int `json:"delta"`
}

// AdjustHP applies damage (negative delta) or healing (positive delta).
func (h *Handler) AdjustHP(c echo.Context) error {
	var req adjustHPRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	adj, err := h.svc.AdjustHP(c.Request().Context(), req.Delta)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, adj)
}

type tempHPRequest struct {
	Amount int `json:"amount"`
}

// GrantTempHP grants temporary hit points from a new source.
func (h *Handler) GrantTempHP(c echo.Context) error {
	var req tempHPRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	state, err := h.svc.GrantTempHP(c.Request().Context(), req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

type shortRestRequest struct {
	HitDiceSpent int `json:"hitDiceSpent"`
}

// ShortRest restores short-rest features and applies hit dice healing.
func (h *Handler) ShortRest(c echo.Context) error {
	var req shortRestRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	result, err := h.svc.ShortRest(c.Request().Context(), req.HitDiceSpent)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// LongRest restores everything a long rest restores.
func (h *Handler) LongRest(c echo.Context) error {
	result, err := h.svc.LongRest(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type useFeatureRequest struct {
	Feature  string `json:"feature"`
	Amount   int    `json:"amount"`
	Action   string `json:"action"`
	Name     string `json:"name"`
	Duration string `json:"duration"`
}

// UseFeature spends a feature resource, optionally applying a timed
// condition for features with a listed duration.
func (h *Handler) UseFeature(c echo.Context) error {
	var req useFeatureRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	result, err := h.svc.UseFeature(c.Request().Context(), UseFeatureInput{
		Feature:  req.Feature,
		Amount:   req.Amount,
		Action:   req.Action,
		Name:     req.Name,
		Duration: req.Duration,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
