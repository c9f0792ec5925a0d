package server

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/opsdeck/opsdeck/internal/handlers"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/websocket"
)

// RegisterRoutes sets up the middleware chain and all application routes.
// Module routes are not registered here; they live behind the loader's
// catch-all dispatcher so they can appear and disappear at runtime.
func (s *Server) RegisterRoutes() {
	s.E.Use(echomw.Recover())
	s.E.Use(echomw.RequestID())
	s.E.Use(middleware.Logger)

	store := sessions.NewCookieStore([]byte(s.Cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	s.E.Use(session.Middleware(store))
	s.E.Use(middleware.Ability())

	s.E.Validator = handlers.NewValidator()

	homeHandler := handlers.NewHomeHandler(s.renderPage)
	authHandler := handlers.NewAuthHandler(s.userStore, s.Signal, s.renderPage)
	dashboardHandler := handlers.NewDashboardHandler(s.Registry, s.renderPage)
	settingsHandler := handlers.NewSettingsHandler(s.Registry, s.renderPage)
	navHandler := handlers.NewNavHandler(s.Registry, s.renderer)
	rateLimiter := middleware.RateLimiter()

	s.E.GET("/", homeHandler.HomeGet)
	s.E.GET("/login", authHandler.LoginGet)
	s.E.POST("/login", authHandler.LoginPost, rateLimiter)
	s.E.GET("/logout", authHandler.Logout)

	s.E.GET("/partials/nav", navHandler.NavGet, middleware.RequireAuth())
	s.E.GET("/ws/live", websocket.Handler(s.hub), middleware.RequireAuth())

	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Everything under /app requires a session. Static pages first; the
	// wildcard hands the rest to the module dispatcher.
	appGroup := s.E.Group("/app", middleware.RequireAuth())
	appGroup.GET("/dashboard", dashboardHandler.DashboardGet)
	appGroup.GET("/settings", settingsHandler.SettingsGet)
	appGroup.POST("/settings/modules", settingsHandler.TogglePost)
	appGroup.Any("/*", s.Loader.Handler("/app"))
}
