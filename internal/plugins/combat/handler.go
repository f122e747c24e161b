package combat

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmowen/warsheet/internal/apperror"
)

// Handler exposes the combat plugin over HTTP.
type Handler struct {
	svc Service
}

// NewHandler creates the combat HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// State returns the full combat snapshot.
func (h *Handler) State(c echo.Context) error {
	state, err := h.svc.State(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

type conditionRequest struct {
	Name          string `json:"name"`
	DurationType  string `json:"duration_type"`
	DurationValue *int   `json:"duration_value"`
}

// rounds converts the request's duration into a round count. Unknown or
// permanent durations yield nil.
func (r conditionRequest) rounds() *int {
	if r.DurationValue == nil || *r.DurationValue <= 0 {
		return nil
	}
	var n int
	switch r.DurationType {
	case "rounds", "round", "turns", "turn":
		n = *r.DurationValue
	case "minutes", "minute":
		n = *r.DurationValue * roundsPerMinute
	case "hours", "hour":
		n = *r.DurationValue * roundsPerHour
	default:
		return nil
	}
	return &n
}

// ToggleCondition flips a condition on or off.
func (h *Handler) ToggleCondition(c echo.Context) error {
	var req conditionRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	result, err := h.svc.ToggleCondition(c.Request().Context(), req.Name, req.rounds())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// RemoveCondition deactivates one named condition.
func (h *Handler) RemoveCondition(c echo.Context) error {
	name := c.Param("name")
	if err := h.svc.RemoveCondition(c.Request().Context(), name); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearConditions deactivates every active condition.
func (h *Handler) ClearConditions(c echo.Context) error {
	if err := h.svc.ClearConditions(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type concentrationRequest struct {
	Spell    string `json:"spell"`
	Duration *int   `json:"duration"`
}

// StartConcentration begins concentrating; 409 when already concentrating.
func (h *Handler) StartConcentration(c echo.Context) error {
	var req concentrationRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := h.svc.StartConcentration(c.Request().Context(), req.Spell, req.Duration); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type endConcentrationRequest struct {
	Reason string `json:"reason"`
}

// EndConcentration drops the running concentration spell.
func (h *Handler) EndConcentration(c echo.Context) error {
	var req endConcentrationRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := h.svc.EndConcentration(c.Request().Context(), req.Reason); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type concentrationCheckRequest struct {
	Damage int `json:"damage"`
}

// ConcentrationCheck reports the save DC after taking damage.
func (h *Handler) ConcentrationCheck(c echo.Context) error {
	var req concentrationCheckRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	dc, err := h.svc.ConcentrationCheck(c.Request().Context(), req.Damage)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"dc": dc})
}

type startCombatRequest struct {
	Initiative int `json:"initiative"`
}

// StartCombat begins an encounter at round 1.
func (h *Handler) StartCombat(c echo.Context) error {
	var req startCombatRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	tracker, err := h.svc.StartCombat(c.Request().Context(), req.Initiative)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tracker)
}

// NextTurn ends the turn, ticking conditions and concentration.
func (h *Handler) NextTurn(c echo.Context) error {
	advance, err := h.svc.NextTurn(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, advance)
}

// NextRound advances the round counter.
func (h *Handler) NextRound(c echo.Context) error {
	tracker, err := h.svc.NextRound(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tracker)
}

// ResetRound sets the round counter back to 1.
func (h *Handler) ResetRound(c echo.Context) error {
	tracker, err := h.svc.ResetRound(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tracker)
}

// EndCombat leaves combat and clears the tracker.
func (h *Handler) EndCombat(c echo.Context) error {
	tracker, err := h.svc.EndCombat(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tracker)
}

// ToggleReaction flips reaction availability.
func (h *Handler) ToggleReaction(c echo.Context) error {
	tracker, err := h.svc.ToggleReaction(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tracker)
}

// RollDeathSave rolls one death saving throw.
func (h *Handler) RollDeathSave(c echo.Context) error {
	result, err := h.svc.RollDeathSave(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ResetDeathSaves clears the death save counters.
func (h *Handler) ResetDeathSaves(c echo.Context) error {
	if err := h.svc.ResetDeathSaves(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
