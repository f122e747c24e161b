package rolls

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the dice endpoints under the API group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	r := g.Group("/rolls")
	r.POST("", h.Roll)
	r.POST("/attack", h.Attack)
	r.POST("/damage", h.Damage)
	r.GET("/history", h.History)
}
