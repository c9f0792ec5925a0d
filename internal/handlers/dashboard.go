package handlers

import (
	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/registry"
	"github.com/opsdeck/opsdeck/internal/view"
)

// DashboardHandler renders the operator's overview page: every registered
// module with its enabled/loaded state.
type DashboardHandler struct {
	registry   *registry.Registry
	renderPage view.PageRenderer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(reg *registry.Registry, renderPage view.PageRenderer) *DashboardHandler {
	return &DashboardHandler{registry: reg, renderPage: renderPage}
}

// DashboardGet renders the module status overview.
func (d *DashboardHandler) DashboardGet(c echo.Context) error {
	defs := d.registry.All()
	rows := make([]g.Node, 0, len(defs))
	for _, def := range defs {
		st, _ := d.registry.StateOf(def.ID)
		rows = append(rows, h.Tr(
			h.Td(g.Text(def.Name)),
			h.Td(g.Text(def.Version)),
			h.Td(g.Text(boolWord(st.Enabled, "enabled", "disabled"))),
			h.Td(g.Text(boolWord(st.Loaded, "loaded", "pending"))),
			h.Td(g.Text(st.Err)),
		))
	}

	content := h.Section(
		h.H1(g.Text("Dashboard")),
		h.Table(
			h.THead(h.Tr(
				h.Th(g.Text("Module")),
				h.Th(g.Text("Version")),
				h.Th(g.Text("Enabled")),
				h.Th(g.Text("Loaded")),
				h.Th(g.Text("Error")),
			)),
			h.TBody(g.Group(rows)),
		),
	)
	return d.renderPage(c, "Dashboard", content)
}

func boolWord(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
