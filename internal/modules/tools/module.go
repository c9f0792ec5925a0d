// Package tools exposes operator-authored Tengo scripts as runnable tools.
// The script service is shared infrastructure; this module is just the page
// and the run endpoint in front of it.
package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/script"
	"github.com/opsdeck/opsdeck/internal/view"
)

const ModuleID = "tools"

type Dependencies struct {
	RenderPage view.PageRenderer
	Scripts    *script.Service
}

func New(deps Dependencies) module.Definition {
	m := &tools{renderPage: deps.RenderPage, scripts: deps.Scripts}

	readTools := []ability.Rule{{Action: ability.ActionRead, Subject: ability.SubjectTool}}
	runTools := []ability.Rule{{Action: ability.ActionManage, Subject: ability.SubjectTool}}

	return module.Definition{
		ID:      ModuleID,
		Name:    "Tools",
		Version: "1.0.0",
		Routes: []module.Route{{
			Path:    "/tools",
			Handler: m.listGet,
			Require: readTools,
			Children: []module.Route{{
				Path:    "/run",
				Handler: m.runPost,
				Require: runTools,
			}},
		}},
		Navigation: []module.NavItem{{
			ID:      ModuleID,
			Label:   "Tools",
			Path:    "/app/tools",
			Require: readTools,
		}},
		OnInit: m.init,
	}
}

type tools struct {
	renderPage view.PageRenderer
	scripts    *script.Service
}

func (m *tools) init(ctx context.Context, mc *module.Context) error {
	return m.scripts.Load()
}

func (m *tools) listGet(c echo.Context) error {
	names := m.scripts.List()
	items := make([]g.Node, 0, len(names))
	for _, name := range names {
		items = append(items, h.Li(
			h.Form(
				h.Method("post"),
				h.Action("/app/tools/run"),
				h.Input(h.Type("hidden"), h.Name("script"), h.Value(name)),
				h.Span(g.Text(name)),
				h.Button(h.Type("submit"), g.Text("Run")),
			),
		))
	}

	content := h.Section(
		h.H1(g.Text("Tools")),
		g.If(len(items) == 0, h.P(g.Text("No scripts loaded."))),
		h.Ul(g.Group(items)),
	)
	return m.renderPage(c, "Tools", content)
}

func (m *tools) runPost(c echo.Context) error {
	name := c.FormValue("script")
	out, err := m.scripts.Run(c.Request().Context(), name, map[string]interface{}{
		"operator": c.FormValue("operator"),
	})
	if err != nil {
		view.SetFlashError(c, fmt.Sprintf("Script %q failed: %v", name, err))
		return c.Redirect(http.StatusSeeOther, "/app/tools")
	}

	content := h.Section(
		h.H1(g.Text("Tool Output")),
		h.P(g.Text("Script: "), h.Code(g.Text(name))),
		h.Pre(g.Text(out)),
		h.A(h.Href("/app/tools"), g.Text("Back to tools")),
	)
	return m.renderPage(c, "Tool Output", content)
}
