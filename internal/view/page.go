package view

import (
	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
)

// PageRenderer renders module page content inside the dashboard shell. The
// server wires it up with the registry-backed navigation so feature modules
// never assemble chrome themselves.
type PageRenderer func(c echo.Context, title string, content g.Node) error
