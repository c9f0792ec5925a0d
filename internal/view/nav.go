package view

import (
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/module"
)

// Nav renders the navigation sidebar from an already capability-filtered
// item list. The element refreshes itself over HTMX whenever the live
// socket reports a registry change.
func Nav(items []module.NavItem) g.Node {
	return h.Nav(
		h.ID("main-nav"),
		hx.Get("/partials/nav"),
		hx.Trigger("registry-changed from:body"),
		hx.Swap("outerHTML"),
		h.Ul(g.Group(navList(items))),
	)
}

func navList(items []module.NavItem) []g.Node {
	nodes := make([]g.Node, 0, len(items))
	for _, item := range items {
		nodes = append(nodes, navEntry(item))
	}
	return nodes
}

func navEntry(item module.NavItem) g.Node {
	entry := []g.Node{
		h.A(h.Href(item.Path), g.Text(item.Label)),
	}
	if len(item.Children) > 0 {
		entry = append(entry, h.Ul(g.Group(navList(item.Children))))
	}
	return h.Li(h.ID("nav-"+item.ID), g.Group(entry))
}
