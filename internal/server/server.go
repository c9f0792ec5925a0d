// Package server assembles the application: core services through the DI
// container, the module registry and loader, and the Echo HTTP surface.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"github.com/surrealdb/surrealdb.go"
	g "maragu.dev/gomponents"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/app"
	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/database"
	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/hub"
	"github.com/opsdeck/opsdeck/internal/loader"
	"github.com/opsdeck/opsdeck/internal/logging"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/pubsub"
	"github.com/opsdeck/opsdeck/internal/registry"
	"github.com/opsdeck/opsdeck/internal/rendering"
	"github.com/opsdeck/opsdeck/internal/script"
	"github.com/opsdeck/opsdeck/internal/view"
)

// Server holds the assembled application.
type Server struct {
	E        *echo.Echo
	Cfg      *config.Config
	DB       *surrealdb.DB
	Registry *registry.Registry
	Signal   *loader.Signal
	Loader   *loader.Loader

	injector  *do.RootScope
	bus       *pubsub.Bus
	hub       *hub.Hub
	renderer  *rendering.UniversalRenderer
	scripts   *script.Service
	userStore domain.UserRepository

	runCancel context.CancelFunc
}

// New creates and wires a Server instance. Core services are registered in
// the DI container; everything HTTP-facing is assembled from it.
func New() *Server {
	logging.New()

	injector := do.New()

	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		return config.New(), nil
	})
	do.Provide(injector, func(i do.Injector) (*surrealdb.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return database.NewDB(context.Background(), cfg)
	})
	do.Provide(injector, func(i do.Injector) (*pubsub.Bus, error) {
		return pubsub.NewBus(), nil
	})
	do.Provide(injector, func(i do.Injector) (*hub.Hub, error) {
		return hub.NewHub(), nil
	})
	do.Provide(injector, func(i do.Injector) (*registry.Registry, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return registry.New(cfg.InitTimeout), nil
	})
	do.Provide(injector, func(i do.Injector) (*loader.Signal, error) {
		return loader.NewSignal(), nil
	})
	do.Provide(injector, func(i do.Injector) (*script.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return script.NewService(afero.NewOsFs(), cfg.ScriptDir, cfg.InitTimeout), nil
	})
	do.Provide(injector, func(i do.Injector) (domain.UserRepository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db := do.MustInvoke[*surrealdb.DB](i)
		return database.NewSurrealUserStore(db, cfg.DBNs, cfg.DBDb), nil
	})

	cfg := do.MustInvoke[*config.Config](injector)
	db, err := do.Invoke[*surrealdb.DB](injector)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	s := &Server{
		E:         echo.New(),
		Cfg:       cfg,
		DB:        db,
		Registry:  do.MustInvoke[*registry.Registry](injector),
		Signal:    do.MustInvoke[*loader.Signal](injector),
		injector:  injector,
		bus:       do.MustInvoke[*pubsub.Bus](injector),
		hub:       do.MustInvoke[*hub.Hub](injector),
		renderer:  rendering.NewUniversalRenderer(),
		scripts:   do.MustInvoke[*script.Service](injector),
		userStore: do.MustInvoke[domain.UserRepository](injector),
	}

	s.E.HideBanner = true
	s.E.Renderer = s.renderer

	// The loader builds a fresh module context per initialization pass so
	// every OnInit sees the session's capabilities.
	s.Loader = loader.New(s.Registry, s.Signal, func(sess loader.Session) *module.Context {
		return &module.Context{
			Ability:    ability.ForRole(sess.Role),
			Registry:   s.Registry,
			Publisher:  s.bus,
			Subscriber: s.bus,
		}
	})

	app.RegisterAll(s.Registry, app.Dependencies{
		RenderPage: s.renderPage,
		Renderer:   s.renderer,
		Hub:        s.hub,
		Scripts:    s.scripts,
	})

	// Every registry change fans out to the bus, and from there to every
	// connected browser through the live socket.
	s.Registry.Subscribe(func() {
		if err := s.bus.Publish(context.Background(), pubsub.Message{Topic: pubsub.TopicRegistryChanged}); err != nil {
			slog.Error("Failed to publish registry change", "error", err)
		}
	})

	s.RegisterRoutes()
	return s
}

// renderPage wraps module page content in the dashboard shell with the
// session's capability-filtered navigation.
func (s *Server) renderPage(c echo.Context, title string, content g.Node) error {
	ab := middleware.AbilityFrom(c)
	nav := view.Nav(s.Registry.Navigation(ab))
	flashes := view.GetFlashData(c)
	return s.renderer.RenderPage(c, http.StatusOK, view.Shell(title, flashes, nav, content))
}

// UserStore is a getter for the server's user store, useful for testing.
func (s *Server) UserStore() domain.UserRepository {
	return s.userStore
}
