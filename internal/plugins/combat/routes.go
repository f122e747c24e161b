package combat

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the combat endpoints under the API group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	cb := g.Group("/combat")
	cb.GET("", h.State)

	cb.POST("/condition/toggle", h.ToggleCondition)
	cb.DELETE("/condition/:name", h.RemoveCondition)
	cb.DELETE("/conditions", h.ClearConditions)

	cb.POST("/concentration/start", h.StartConcentration)
	cb.POST("/concentration/end", h.EndConcentration)
	cb.POST("/concentration/check", h.ConcentrationCheck)

	cb.POST("/start", h.StartCombat)
	cb.POST("/next-turn", h.NextTurn)
	cb.POST("/next-round", h.NextRound)
	cb.POST("/reset-round", h.ResetRound)
	cb.POST("/end", h.EndCombat)
	cb.POST("/reaction", h.ToggleReaction)

	cb.POST("/death-save", h.RollDeathSave)
	cb.POST("/death-save/reset", h.ResetDeathSaves)
}
