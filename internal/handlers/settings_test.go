package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/registry"
)

func settingsFixture(t *testing.T) (*SettingsHandler, *registry.Registry) {
	t.Helper()
	reg := registry.New(time.Second)
	reg.Register(module.Definition{ID: "servers", Name: "Servers"})
	reg.Register(module.Definition{ID: "agents", Name: "Agents", Dependencies: []string{"servers"}})
	return NewSettingsHandler(reg, testRenderPage), reg
}

func adminContext(e *echo.Echo, method, path string, form url.Values) (*httptest.ResponseRecorder, echo.Context) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("_session_store", sessions.NewCookieStore([]byte("test-secret")))
	c.Set(middleware.AbilityContextKey, ability.ForRole(ability.RoleAdmin))
	return rec, c
}

func TestSettingsGetRequiresManageModule(t *testing.T) {
	e := newTestEcho()
	h, _ := settingsFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/app/settings", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.AbilityContextKey, ability.ForRole(ability.RoleViewer))

	err := h.SettingsGet(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestTogglePostDisablesModule(t *testing.T) {
	e := newTestEcho()
	h, reg := settingsFixture(t)

	rec, c := adminContext(e, http.MethodPost, "/app/settings/modules", url.Values{
		"module":  {"servers"},
		"enabled": {"off"},
	})

	require.NoError(t, h.TogglePost(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, reg.IsEnabled("servers"))
}

func TestTogglePostReenablesModule(t *testing.T) {
	e := newTestEcho()
	h, reg := settingsFixture(t)
	reg.SetEnabled("agents", false)

	rec, c := adminContext(e, http.MethodPost, "/app/settings/modules", url.Values{
		"module":  {"agents"},
		"enabled": {"on"},
	})

	require.NoError(t, h.TogglePost(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, reg.IsEnabled("agents"))
}

func TestTogglePostUnknownModule(t *testing.T) {
	e := newTestEcho()
	h, reg := settingsFixture(t)

	rec, c := adminContext(e, http.MethodPost, "/app/settings/modules", url.Values{
		"module":  {"ghost"},
		"enabled": {"off"},
	})

	require.NoError(t, h.TogglePost(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, reg.IsEnabled("servers"))
	assert.True(t, reg.IsEnabled("agents"))
}

func TestTogglePostRejectsInvalidEnabledValue(t *testing.T) {
	e := newTestEcho()
	h, reg := settingsFixture(t)

	rec, c := adminContext(e, http.MethodPost, "/app/settings/modules", url.Values{
		"module":  {"servers"},
		"enabled": {"maybe"},
	})

	require.NoError(t, h.TogglePost(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, reg.IsEnabled("servers"))
}
