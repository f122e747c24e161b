package app

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmowen/warsheet/internal/broadcast"
	"github.com/dmowen/warsheet/internal/dice"
	"github.com/dmowen/warsheet/internal/middleware"
	"github.com/dmowen/warsheet/internal/plugins/character"
	"github.com/dmowen/warsheet/internal/plugins/combat"
	"github.com/dmowen/warsheet/internal/plugins/rolls"
	"github.com/dmowen/warsheet/internal/plugins/spells"
)

// RegisterRoutes wires every plugin and mounts its routes. This is the
// single place where services are constructed and cross-plugin
// dependencies are connected.
func (a *App) RegisterRoutes() {
	e := a.Echo

	pub := broadcast.NewRedisPublisher(a.Redis, a.Config.Redis.EventChannel)
	roller := dice.New()

	// Repositories.
	characterRepo := character.NewRepository(a.DB)
	combatRepo := combat.NewRepository(a.DB)
	rollsRepo := rolls.NewRepository(a.DB)

	// The character and combat services reference each other through
	// narrow interfaces: combat reads conditions into the sheet overlay,
	// death saves write hit points back. Construct combat first with a
	// late-bound hit point accessor to break the ordering knot.
	hp := &hitPointAccessor{}
	combatSvc := combat.NewService(combatRepo, pub, roller, hp)
	characterSvc := character.NewService(characterRepo, combatSvc, combatSvc, roller)
	hp.Service = characterSvc

	spellsSvc := spells.NewService(characterRepo, combatSvc, combatSvc, pub)
	rollsSvc := rolls.NewService(rollsRepo, characterRepo, combatSvc, roller, pub)

	// Health check endpoint for container monitoring.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// WebSocket endpoint feeding the dashboard and viewer.
	e.GET("/ws", a.Hub.ServeWS)

	// REST API. Rate limited per client IP; a browser dashboard never
	// legitimately sustains this request rate.
	api := e.Group("/api", middleware.RateLimit(20, time.Second))
	character.RegisterRoutes(api, character.NewHandler(characterSvc))
	combat.RegisterRoutes(api, combat.NewHandler(combatSvc))
	spells.RegisterRoutes(api, spells.NewHandler(spellsSvc))
	rolls.RegisterRoutes(api, rolls.NewHandler(rollsSvc))
}

// hitPointAccessor defers the combat service's hit point dependency until
// the character service exists.
type hitPointAccessor struct {
	character.Service
}
