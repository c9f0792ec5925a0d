package app

import (
	"github.com/opsdeck/opsdeck/internal/modules/agents"
	"github.com/opsdeck/opsdeck/internal/modules/chat"
	"github.com/opsdeck/opsdeck/internal/modules/servers"
	"github.com/opsdeck/opsdeck/internal/modules/tasks"
	"github.com/opsdeck/opsdeck/internal/modules/tools"
	"github.com/opsdeck/opsdeck/internal/registry"
)

// RegisterAll registers every feature module. Registration order is also
// the fallback presentation order; initialization order comes from the
// declared dependencies, not from this list.
func RegisterAll(reg *registry.Registry, deps Dependencies) {
	reg.Register(servers.New(servers.Dependencies{RenderPage: deps.RenderPage}))
	reg.Register(agents.New(agents.Dependencies{RenderPage: deps.RenderPage}))
	reg.Register(tasks.New(tasks.Dependencies{RenderPage: deps.RenderPage}))
	reg.Register(tools.New(tools.Dependencies{RenderPage: deps.RenderPage, Scripts: deps.Scripts}))
	reg.Register(chat.New(chat.Dependencies{RenderPage: deps.RenderPage, Renderer: deps.Renderer, Hub: deps.Hub}))
}
