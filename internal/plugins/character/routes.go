package character

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the character endpoints under the API group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	ch := g.Group("/character")
	ch.GET("", h.Get)
	ch.PATCH("/hp", h.UpdateHP)
	ch.POST("/hp/adjust", h.AdjustHP)
	ch.POST("/hp/temp", h.GrantTempHP)
	ch.POST("/rest/short", h.ShortRest)
	ch.POST("/rest/long", h.LongRest)
	ch.POST("/feature/use", h.UseFeature)
}
