package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/view"
)

// HomeHandler serves the public landing page.
type HomeHandler struct {
	renderPage view.PageRenderer
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(renderPage view.PageRenderer) *HomeHandler {
	return &HomeHandler{renderPage: renderPage}
}

// HomeGet redirects signed-in operators to the dashboard and shows the
// landing page to everyone else.
func (hh *HomeHandler) HomeGet(c echo.Context) error {
	if email, ok := c.Get(middleware.UserContextKey).(string); ok && email != "" {
		return c.Redirect(http.StatusSeeOther, "/app/dashboard")
	}

	content := h.Section(
		h.H1(g.Text("Opsdeck")),
		h.P(g.Text("Fleet operations console. Sign in to continue.")),
		h.A(h.Href("/login"), g.Text("Sign In")),
	)
	return hh.renderPage(c, "Welcome", content)
}
