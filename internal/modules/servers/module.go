// Package servers contributes the server fleet pages. It has no
// dependencies on other modules and is the root of the agents/tasks chain.
package servers

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/view"
)

// ModuleID is the registry key other modules depend on.
const ModuleID = "servers"

// Dependencies holds the services the servers module requires.
type Dependencies struct {
	RenderPage view.PageRenderer
}

// New builds the module definition.
func New(deps Dependencies) module.Definition {
	m := &servers{renderPage: deps.RenderPage}

	readServers := []ability.Rule{{Action: ability.ActionRead, Subject: ability.SubjectServer}}

	return module.Definition{
		ID:      ModuleID,
		Name:    "Servers",
		Version: "1.0.0",
		Routes: []module.Route{{
			Path:    "/servers",
			Handler: m.listGet,
			Require: readServers,
		}},
		Navigation: []module.NavItem{{
			ID:      ModuleID,
			Label:   "Servers",
			Path:    "/app/servers",
			Require: readServers,
		}},
		OnInit: m.init,
	}
}

type servers struct {
	renderPage view.PageRenderer
	fleet      []server
}

type server struct {
	Hostname string
	Region   string
	Status   string
}

// init seeds the fleet snapshot. A full deployment would pull this from the
// inventory backend.
func (m *servers) init(ctx context.Context, mc *module.Context) error {
	m.fleet = []server{
		{Hostname: "edge-01", Region: "eu-west", Status: "healthy"},
		{Hostname: "edge-02", Region: "eu-west", Status: "healthy"},
		{Hostname: "core-01", Region: "us-east", Status: "degraded"},
	}
	slog.Debug("Server fleet snapshot ready", "servers", len(m.fleet))
	return nil
}

func (m *servers) listGet(c echo.Context) error {
	rows := make([]g.Node, 0, len(m.fleet))
	for _, s := range m.fleet {
		rows = append(rows, h.Tr(
			h.Td(g.Text(s.Hostname)),
			h.Td(g.Text(s.Region)),
			h.Td(h.Class("status-"+s.Status), g.Text(s.Status)),
		))
	}

	content := h.Section(
		h.H1(g.Text("Server Fleet")),
		h.Table(
			h.THead(h.Tr(h.Th(g.Text("Hostname")), h.Th(g.Text("Region")), h.Th(g.Text("Status")))),
			h.TBody(g.Group(rows)),
		),
	)

	return m.renderPage(c, "Servers", content)
}
