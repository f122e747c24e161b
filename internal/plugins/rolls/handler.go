package rolls

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dmowen/warsheet/internal/apperror"
)

// Handler exposes the rolls plugin over HTTP.
type Handler struct {
	svc Service
}

// NewHandler creates the rolls HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type rollRequest struct {
	Formula  string `json:"formula"`
	RollType string `json:"rollType"`
	Details  string `json:"details"`
}

// Roll resolves a raw dice formula.
func (h *Handler) Roll(c echo.Context) error {
	var req rollRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	rec, err := h.svc.Roll(c.Request().Context(), req.Formula, req.RollType, req.Details)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

type attackRequest struct {
	Weapon    string          `json:"weapon"`
	Modifiers AttackModifiers `json:"modifiers"`
}

// Attack rolls an attack with the given weapon.
func (h *Handler) Attack(c echo.Context) error {
	var req attackRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	result, err := h.svc.Attack(c.Request().Context(), AttackInput{Weapon: req.Weapon, Modifiers: req.Modifiers})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type damageRequest struct {
	Weapon           string `json:"weapon"`
	Critical         bool   `json:"critical"`
	DivineSmiteLevel int    `json:"divineSmiteLevel"`
	VersusUndead     bool   `json:"versusUndead"`
}

// Damage rolls damage for the given weapon.
func (h *Handler) Damage(c echo.Context) error {
	var req damageRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	result, err := h.svc.Damage(c.Request().Context(), DamageInput{
		Weapon:           req.Weapon,
		Critical:         req.Critical,
		DivineSmiteLevel: req.DivineSmiteLevel,
		VersusUndead:     req.VersusUndead,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// History lists recent rolls, newest first.
func (h *Handler) History(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperror.NewBadRequest("limit must be a number")
		}
		limit = n
	}
	records, err := h.svc.History(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}
