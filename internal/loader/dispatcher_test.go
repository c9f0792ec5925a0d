package loader

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/registry"
)

func textHandler(body string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, body)
	}
}

// serve runs a request through an echo instance that injects the given
// ability the way the session middleware would.
func serve(t *testing.T, l *Loader, ab *ability.Ability, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Any("/app/*", l.Handler("/app"), func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.AbilityContextKey, ab)
			return next(c)
		}
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func dispatcherFixture(t *testing.T) (*Loader, *Signal, *registry.Registry) {
	t.Helper()
	reg := registry.New(0)
	reg.Register(module.Definition{
		ID:   "servers",
		Name: "Servers",
		Routes: []module.Route{{
			Path:    "/servers",
			Handler: textHandler("server fleet"),
			Require: []ability.Rule{{Action: ability.ActionRead, Subject: ability.SubjectServer}},
			Children: []module.Route{{
				Path:    "/ports",
				Handler: textHandler("open ports"),
				Require: []ability.Rule{{Action: ability.ActionManage, Subject: ability.SubjectServer}},
			}},
		}},
	})
	l, sig := newTestLoader(t, reg)
	return l, sig, reg
}

func TestHandlerBeforeInitializationReturns503(t *testing.T) {
	l, _, _ := dispatcherFixture(t)

	rec := serve(t, l, ability.ForRole(ability.RoleAdmin), "/app/servers")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerServesGuardedRoute(t *testing.T) {
	l, sig, _ := dispatcherFixture(t)
	sig.Set(Session{Authenticated: true, Role: ability.RoleAdmin})

	rec := serve(t, l, ability.ForRole(ability.RoleAdmin), "/app/servers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "server fleet", rec.Body.String())
}

func TestHandlerGuardDeniesForbiddenRoute(t *testing.T) {
	l, sig, _ := dispatcherFixture(t)
	sig.Set(Session{Authenticated: true, Role: ability.RoleAdmin})

	// The viewer can read servers but cannot manage them, so the nested
	// route stays forbidden even when requested directly.
	viewer := ability.ForRole(ability.RoleViewer)
	assert.Equal(t, http.StatusOK, serve(t, l, viewer, "/app/servers").Code)
	assert.Equal(t, http.StatusForbidden, serve(t, l, viewer, "/app/servers/ports").Code)
}

func TestHandlerGuardDeniesAnonymous(t *testing.T) {
	l, sig, _ := dispatcherFixture(t)
	sig.Set(Session{Authenticated: true, Role: ability.RoleAdmin})

	rec := serve(t, l, ability.Nobody(), "/app/servers")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerUnknownRouteReturns404(t *testing.T) {
	l, sig, _ := dispatcherFixture(t)
	sig.Set(Session{Authenticated: true, Role: ability.RoleAdmin})

	rec := serve(t, l, ability.ForRole(ability.RoleAdmin), "/app/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerReflectsDisabledModules(t *testing.T) {
	l, sig, reg := dispatcherFixture(t)
	sig.Set(Session{Authenticated: true, Role: ability.RoleAdmin})
	admin := ability.ForRole(ability.RoleAdmin)

	require.Equal(t, http.StatusOK, serve(t, l, admin, "/app/servers").Code)

	reg.SetEnabled("servers", false)
	assert.Equal(t, http.StatusNotFound, serve(t, l, admin, "/app/servers").Code)

	reg.SetEnabled("servers", true)
	assert.Equal(t, http.StatusOK, serve(t, l, admin, "/app/servers").Code)
}
