// Package module defines the contract between the dashboard's feature
// modules and the composition engine. A feature module describes itself with
// an immutable Definition (routes, navigation, dependencies, lifecycle
// hooks); the registry owns the Definition after registration and tracks a
// mutable State alongside it.
package module

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/pubsub"
)

// InitFunc is the optional initialization hook a module may declare. It runs
// after every module in the dependency set has loaded. The context carries
// the per-hook deadline; hooks doing network or timer work must honor it.
type InitFunc func(ctx context.Context, mc *Context) error

// DestroyFunc is the optional teardown hook, invoked on unregister.
type DestroyFunc func() error

// Route maps a path to a handler, optionally gated by capability rules and
// optionally nesting child routes beneath it.
type Route struct {
	Path     string
	Handler  echo.HandlerFunc
	Require  []ability.Rule
	Children []Route
}

// NavItem is a single navigation menu entry contributed by a module.
// Children are filtered individually by capability; a parent whose children
// are all filtered out is still shown.
type NavItem struct {
	ID       string
	Label    string
	Path     string
	Require  []ability.Rule
	Children []NavItem
}

// Definition is the immutable descriptor a feature module registers at
// startup. It must not be mutated after registration.
type Definition struct {
	ID           string `validate:"required"`
	Name         string `validate:"required"`
	Version      string
	Dependencies []string
	Routes       []Route
	Navigation   []NavItem

	// Disabled starts the module disabled; it can still be enabled at
	// runtime through the settings surface.
	Disabled bool

	OnInit    InitFunc
	OnDestroy DestroyFunc
}

// State is the registry's mutable per-module record.
type State struct {
	ID      string
	Enabled bool
	Loaded  bool
	// Err holds the last initialization failure. It is only meaningful
	// while Loaded is false; a successful load clears it.
	Err string
}

// Reader is the read-only registry surface exposed to init hooks. Hooks may
// inspect the module set but must not mutate it mid-pass.
type Reader interface {
	Get(id string) (Definition, bool)
	All() []Definition
	IsEnabled(id string) bool
	StateOf(id string) (State, bool)
}

// Context is handed to every OnInit hook. It exposes the capability
// evaluator for the active session, read access to the registry, and the
// shared message bus. Anything else a module needs is injected through its
// own constructor.
type Context struct {
	Ability    *ability.Ability
	Registry   Reader
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
}
