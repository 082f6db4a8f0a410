package app

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sudo-init-do/dailymaze/internal/admin"
	"github.com/sudo-init-do/dailymaze/internal/auth"
	"github.com/sudo-init-do/dailymaze/internal/domain"
	mware "github.com/sudo-init-do/dailymaze/internal/middleware"
	"github.com/sudo-init-do/dailymaze/internal/ranking"
	"github.com/sudo-init-do/dailymaze/internal/session"
	"github.com/sudo-init-do/dailymaze/internal/wallet"
)

// Echo builds the HTTP server with every route registered.
func (a *App) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(mware.RequestLogger(a.Log))

	authH := auth.NewHandler(a.Auth, a.Config.AdminBootstrapSecret, a.Log)
	walletH := wallet.NewHandler(a.Ledger, a.Log)
	sessionH := session.NewHandler(a.Sessions, a.Log)
	rankingH := ranking.NewHandler(a.Ranking, a.Log)
	adminH := admin.NewHandler(a.Store, a.Scheduler, a.Auth, a.Log)

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "dailymaze"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := a.Store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public routes
	// Auth routes with per-IP rate limiting to protect register/login from abuse
	authGroup := e.Group("/api")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/register", authH.Register)
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/admin/bootstrap", authH.BootstrapAdmin)

	e.GET("/api/ranking", rankingH.Ranking)
	e.GET("/ws/ranking", a.Hub.StandingsWS)

	// Protected routes
	requireAuth := mware.RequireAuth(a.Auth)
	api := e.Group("/api", requireAuth)

	api.GET("/me", authH.Me)

	api.GET("/wallet", walletH.Balance)
	api.GET("/wallet/transactions", walletH.Transactions)
	// Spending and playing need a tournament role
	players := mware.RequireRoles(domain.RolePlayer, domain.RoleAdmin)
	api.POST("/purchase", walletH.Purchase, players)

	api.POST("/sessions", sessionH.Start, players)
	api.POST("/sessions/:id/complete", sessionH.Complete, players)

	// Admin routes
	adm := e.Group("/admin", requireAuth, mware.AdminGuard)

	adm.GET("/stats", adminH.Stats)
	adm.GET("/accounts", adminH.Accounts)
	adm.GET("/accounts/:id/transactions", walletH.AdminUserTransactions)
	adm.POST("/users/:username/promote", adminH.PromoteAdmin)
	adm.GET("/mazes/:day", adminH.Maze)
	adm.POST("/settlements/recover", adminH.Recover)
	adm.POST("/settlements/:day", adminH.Settle)

	return e
}
