package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/loader"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/view"
)

// AuthHandler handles login and logout. Beyond the session cookie, a
// successful login flips the loader's readiness signal so the module
// initialization pass runs.
type AuthHandler struct {
	users      domain.UserRepository
	signal     *loader.Signal
	renderPage view.PageRenderer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users domain.UserRepository, signal *loader.Signal, renderPage view.PageRenderer) *AuthHandler {
	return &AuthHandler{users: users, signal: signal, renderPage: renderPage}
}

// LoginGet renders the login form.
func (a *AuthHandler) LoginGet(c echo.Context) error {
	content := h.Section(
		h.H1(g.Text("Sign In")),
		h.Form(
			h.Method("post"),
			h.Action("/login"),
			h.Label(h.For("email"), g.Text("Email")),
			h.Input(h.Type("email"), h.ID("email"), h.Name("email"), h.Required()),
			h.Label(h.For("password"), g.Text("Password")),
			h.Input(h.Type("password"), h.ID("password"), h.Name("password"), h.Required()),
			h.Button(h.Type("submit"), g.Text("Sign In")),
		),
	)
	return a.renderPage(c, "Sign In", content)
}

// LoginPost authenticates the operator, stores the session and marks the
// loader session as ready.
func (a *AuthHandler) LoginPost(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		view.SetFlashError(c, "Invalid login form.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlashError(c, "Please enter a valid email and password.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	token, err := a.users.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("Failed login attempt", "email", req.Email, "error", err)
		view.SetFlashError(c, "Invalid email or password.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	role := string(ability.RoleViewer)
	if user, err := a.users.FindUserByEmail(c.Request().Context(), req.Email); err == nil && user.Role != "" {
		role = user.Role
	}

	sess, _ := session.Get(middleware.SessionName, c)
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values["email"] = req.Email
	sess.Values["role"] = role
	sess.Values["token"] = token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		slog.Error("Failed to save session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not start session")
	}

	// The signal transition triggers the module loader's initialization
	// pass: loading first, then ready.
	a.signal.Set(loader.Session{Authenticated: true, Loading: true, Role: ability.Role(role)})
	a.signal.Set(loader.Session{Authenticated: true, Role: ability.Role(role)})

	view.SetFlashSuccess(c, "Signed in.")
	return c.Redirect(http.StatusSeeOther, "/app/dashboard")
}

// Logout clears the session and drops the loader back to the
// unauthenticated state.
func (a *AuthHandler) Logout(c echo.Context) error {
	sess, _ := session.Get(middleware.SessionName, c)
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1}
	sess.Values = map[interface{}]interface{}{}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}

	a.signal.Set(loader.Session{})

	view.SetFlashSuccess(c, "Signed out.")
	return c.Redirect(http.StatusSeeOther, "/login")
}
