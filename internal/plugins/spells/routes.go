package spells

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the spell endpoints under the API group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	sp := g.Group("/spells")
	sp.GET("", h.Catalog)
	sp.POST("/cast", h.Cast)
	sp.POST("/slots/restore", h.RestoreSlot)
}
