package middleware

import (
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck/internal/ability"
)

const (
	// SessionName is the cookie session holding the signed-in operator.
	SessionName = "opsdeck-session"

	// UserContextKey holds the signed-in user's email in the echo context.
	UserContextKey = "user"
	// RoleContextKey holds the signed-in user's role in the echo context.
	RoleContextKey = "role"
	// AbilityContextKey holds the request's capability evaluator. It is set
	// for every request, authenticated or not, so downstream guards can
	// always re-evaluate capabilities.
	AbilityContextKey = "ability"
)

// Ability resolves the session's role into a capability evaluator and stores
// it in the request context. Unauthenticated requests get a deny-all
// evaluator instead of a missing one.
func Ability() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ab := ability.Nobody()
			if sess, err := session.Get(SessionName, c); err == nil {
				if role, ok := sess.Values["role"].(string); ok && role != "" {
					ab = ability.ForRole(ability.Role(role))
					c.Set(RoleContextKey, ability.Role(role))
				}
				if email, ok := sess.Values["email"].(string); ok && email != "" {
					c.Set(UserContextKey, email)
				}
			}
			c.Set(AbilityContextKey, ab)
			return next(c)
		}
	}
}

// RequireAuth protects routes that need a signed-in operator, redirecting
// anonymous requests to the login page.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := session.Get(SessionName, c)
			if err != nil {
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			email, ok := sess.Values["email"].(string)
			if !ok || email == "" {
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			return next(c)
		}
	}
}

// AbilityFrom returns the request's capability evaluator. It falls back to a
// deny-all evaluator so callers never need a nil check.
func AbilityFrom(c echo.Context) *ability.Ability {
	if ab, ok := c.Get(AbilityContextKey).(*ability.Ability); ok && ab != nil {
		return ab
	}
	return ability.Nobody()
}
