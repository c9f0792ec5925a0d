package loader

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/registry"
)

// routeEntry is one resolvable path in the current route snapshot.
type routeEntry struct {
	handler echo.HandlerFunc
	require []ability.Rule
}

// rebuildRoutes re-derives the route snapshot from the registry. It runs on
// every registry change notification and at the end of every pass, so the
// dispatcher always serves the current enabled set. Echo cannot unmount
// routes, which is why module routes resolve through this snapshot instead
// of being registered on the router directly.
func (l *Loader) rebuildRoutes() {
	routes := make(map[string]routeEntry)
	flattenRoutes("", l.reg.Routes(), routes)

	l.mu.Lock()
	l.routes = routes
	l.mu.Unlock()
}

func flattenRoutes(prefix string, routes []module.Route, out map[string]routeEntry) {
	for _, rt := range routes {
		path := joinPath(prefix, rt.Path)
		if rt.Handler != nil {
			out[path] = routeEntry{handler: rt.Handler, require: rt.Require}
		}
		flattenRoutes(path, rt.Children, out)
	}
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return strings.TrimSuffix(prefix, "/") + path
}

// Handler returns the echo handler serving the composed route tree. Mount it
// as a catch-all under the given prefix (e.g. "/app"). Every route is
// wrapped with a capability guard that re-evaluates the session's ability
// per request: navigation filtering only hides menu entries, this guard is
// what actually blocks direct navigation to a forbidden path.
func (l *Loader) Handler(prefix string) echo.HandlerFunc {
	return func(c echo.Context) error {
		l.mu.RLock()
		ready := l.initialized
		entry, ok := l.routes[routePath(c, prefix)]
		l.mu.RUnlock()

		if !ready {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "modules are still initializing")
		}
		if !ok {
			return echo.ErrNotFound
		}

		ab := middleware.AbilityFrom(c)
		if !registry.Allowed(entry.require, ab) {
			return echo.NewHTTPError(http.StatusForbidden, "you do not have access to this page")
		}
		return entry.handler(c)
	}
}

func routePath(c echo.Context, prefix string) string {
	path := strings.TrimPrefix(c.Request().URL.Path, prefix)
	if path == "" {
		path = "/"
	}
	return path
}
