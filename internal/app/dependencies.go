// Package app wires the feature modules into the registry. It is the single
// place that knows the full module catalog, so adding a module to the
// dashboard means adding one line here.
package app

import (
	"github.com/opsdeck/opsdeck/internal/hub"
	"github.com/opsdeck/opsdeck/internal/rendering"
	"github.com/opsdeck/opsdeck/internal/script"
	"github.com/opsdeck/opsdeck/internal/view"
)

// Dependencies holds the core services the feature modules require. The
// server assembles it once and hands it to RegisterAll.
type Dependencies struct {
	RenderPage view.PageRenderer
	Renderer   rendering.Renderer
	Hub        *hub.Hub
	Scripts    *script.Service
}
