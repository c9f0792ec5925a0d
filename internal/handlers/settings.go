package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/registry"
	"github.com/opsdeck/opsdeck/internal/view"
)

// SettingsHandler lets administrators enable and disable modules at runtime.
// Toggles take effect immediately: routes and navigation re-derive from the
// registry, and connected browsers refresh over the live socket.
type SettingsHandler struct {
	registry   *registry.Registry
	renderPage view.PageRenderer
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(reg *registry.Registry, renderPage view.PageRenderer) *SettingsHandler {
	return &SettingsHandler{registry: reg, renderPage: renderPage}
}

// SettingsGet renders the module toggle page.
func (s *SettingsHandler) SettingsGet(c echo.Context) error {
	if !middleware.AbilityFrom(c).Can(ability.ActionManage, ability.SubjectModule) {
		return echo.NewHTTPError(http.StatusForbidden)
	}

	defs := s.registry.All()
	rows := make([]g.Node, 0, len(defs))
	for _, def := range defs {
		enabled := s.registry.IsEnabled(def.ID)
		rows = append(rows, h.Tr(
			h.Td(g.Text(def.Name)),
			h.Td(g.Text(def.ID)),
			h.Td(g.Text(boolWord(enabled, "enabled", "disabled"))),
			h.Td(h.Form(
				h.Method("post"),
				h.Action("/app/settings/modules"),
				h.Input(h.Type("hidden"), h.Name("module"), h.Value(def.ID)),
				h.Input(h.Type("hidden"), h.Name("enabled"), h.Value(boolWord(!enabled, "on", "off"))),
				h.Button(h.Type("submit"), g.Text(boolWord(enabled, "Disable", "Enable"))),
			)),
		))
	}

	content := h.Section(
		h.H1(g.Text("Module Settings")),
		h.Table(
			h.THead(h.Tr(
				h.Th(g.Text("Module")),
				h.Th(g.Text("ID")),
				h.Th(g.Text("State")),
				h.Th(g.Text("Action")),
			)),
			h.TBody(g.Group(rows)),
		),
	)
	return s.renderPage(c, "Settings", content)
}

// TogglePost flips a module's enabled flag.
func (s *SettingsHandler) TogglePost(c echo.Context) error {
	if !middleware.AbilityFrom(c).Can(ability.ActionManage, ability.SubjectModule) {
		return echo.NewHTTPError(http.StatusForbidden)
	}

	var req ToggleModuleRequest
	if err := c.Bind(&req); err != nil {
		view.SetFlashError(c, "Invalid request.")
		return c.Redirect(http.StatusSeeOther, "/app/settings")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlashError(c, "Invalid request.")
		return c.Redirect(http.StatusSeeOther, "/app/settings")
	}

	if _, ok := s.registry.Get(req.ModuleID); !ok {
		view.SetFlashError(c, "Unknown module "+req.ModuleID+".")
		return c.Redirect(http.StatusSeeOther, "/app/settings")
	}

	enabled := req.Enabled == "on"
	s.registry.SetEnabled(req.ModuleID, enabled)
	view.SetFlashSuccess(c, "Module "+req.ModuleID+" "+boolWord(enabled, "enabled", "disabled")+".")
	return c.Redirect(http.StatusSeeOther, "/app/settings")
}
