// Package agents contributes the agent roster pages. Agents run on servers,
// so this module depends on the servers module being initialized first.
package agents

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/modules/servers"
	"github.com/opsdeck/opsdeck/internal/view"
)

const ModuleID = "agents"

type Dependencies struct {
	RenderPage view.PageRenderer
}

func New(deps Dependencies) module.Definition {
	m := &agents{renderPage: deps.RenderPage}

	readAgents := []ability.Rule{{Action: ability.ActionRead, Subject: ability.SubjectAgent}}

	return module.Definition{
		ID:           ModuleID,
		Name:         "Agents",
		Version:      "1.0.0",
		Dependencies: []string{servers.ModuleID},
		Routes: []module.Route{{
			Path:    "/agents",
			Handler: m.rosterGet,
			Require: readAgents,
		}},
		Navigation: []module.NavItem{{
			ID:      ModuleID,
			Label:   "Agents",
			Path:    "/app/agents",
			Require: readAgents,
		}},
		OnInit: m.init,
	}
}

type agents struct {
	renderPage view.PageRenderer
	roster     []agent
}

type agent struct {
	Name   string
	Server string
	State  string
}

func (m *agents) init(ctx context.Context, mc *module.Context) error {
	// The servers module is loaded by the time this runs; the dependency
	// declaration guarantees the ordering.
	if st, ok := mc.Registry.StateOf(servers.ModuleID); !ok || !st.Loaded {
		slog.Warn("Agents initialized without a loaded servers module")
	}

	m.roster = []agent{
		{Name: "collector-a", Server: "edge-01", State: "running"},
		{Name: "collector-b", Server: "edge-02", State: "running"},
		{Name: "indexer", Server: "core-01", State: "stopped"},
	}
	return nil
}

func (m *agents) rosterGet(c echo.Context) error {
	rows := make([]g.Node, 0, len(m.roster))
	for _, a := range m.roster {
		rows = append(rows, h.Tr(
			h.Td(g.Text(a.Name)),
			h.Td(g.Text(a.Server)),
			h.Td(g.Text(a.State)),
		))
	}

	content := h.Section(
		h.H1(g.Text("Agent Roster")),
		h.Table(
			h.THead(h.Tr(h.Th(g.Text("Agent")), h.Th(g.Text("Server")), h.Th(g.Text("State")))),
			h.TBody(g.Group(rows)),
		),
	)
	return m.renderPage(c, "Agents", content)
}
