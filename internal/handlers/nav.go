package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/registry"
	"github.com/opsdeck/opsdeck/internal/rendering"
	"github.com/opsdeck/opsdeck/internal/view"
)

// NavHandler serves the navigation fragment HTMX swaps in when the registry
// changes. It is the HTTP face of the capability-filtered nav projection.
type NavHandler struct {
	registry *registry.Registry
	renderer rendering.Renderer
}

// NewNavHandler creates a new NavHandler.
func NewNavHandler(reg *registry.Registry, renderer rendering.Renderer) *NavHandler {
	return &NavHandler{registry: reg, renderer: renderer}
}

// NavGet renders the current navigation for the requesting session.
func (n *NavHandler) NavGet(c echo.Context) error {
	ab := middleware.AbilityFrom(c)
	nav := view.Nav(n.registry.Navigation(ab))
	return n.renderer.RenderPage(c, http.StatusOK, nav)
}
