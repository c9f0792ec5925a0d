// Package view holds the shared gomponents views: the page shell, the
// capability-filtered navigation menu, and flash message helpers. Feature
// modules render their own page content and wrap it with Shell.
package view

import (
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// Shell wraps page content in the dashboard chrome: head, nav sidebar and
// flash area. The nav node is produced by Nav from the capability-filtered
// projection, so a page never renders menu entries its viewer cannot reach.
func Shell(title string, flashes FlashData, nav g.Node, content g.Node) g.Node {
	return h.HTML(
		h.Lang("en"),
		h.Head(
			h.Meta(h.Charset("utf-8")),
			h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
			h.TitleEl(g.Text(title+" | Opsdeck")),
			h.Script(h.Src("https://unpkg.com/htmx.org@1.9.12")),
			// Re-render the nav when the module registry changes; the
			// live-updates socket dispatches this event on the body.
			h.Script(g.Raw(`
				(function () {
					var proto = location.protocol === "https:" ? "wss://" : "ws://";
					var sock = new WebSocket(proto + location.host + "/ws/live");
					sock.onmessage = function () {
						document.body.dispatchEvent(new Event("registry-changed"));
					};
				})();
			`)),
		),
		h.Body(
			flashBanner(flashes),
			h.Div(h.Class("dashboard"),
				nav,
				h.Main(h.Class("content"), content),
			),
		),
	)
}

// flashBanner renders flash messages, or nothing when there are none.
func flashBanner(flashes FlashData) g.Node {
	var nodes []g.Node
	for _, msg := range flashes.Success {
		nodes = append(nodes, h.Div(h.Class("flash flash-success"), g.Text(msg)))
	}
	for _, msg := range flashes.Error {
		nodes = append(nodes, h.Div(h.Class("flash flash-error"), g.Text(msg)))
	}
	if len(nodes) == 0 {
		return g.Group(nil)
	}
	return h.Div(h.Class("flashes"), g.Group(nodes))
}
