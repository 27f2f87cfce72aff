package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"portal/internal/models"
)

// Allowed is the role gate predicate shared by the middlewares below.
func Allowed(user *models.User, roles ...models.Role) bool {
	return user != nil && user.Role.InRoles(roles...)
}

// RequireRoles lets the request through only for users whose role is in the
// allow-list. It must run after the auth middleware: a missing user is 401,
// a disallowed role 403.
func RequireRoles(roles ...models.Role) echo.MiddlewareFunc {
	return gate(func(user *models.User) bool { return Allowed(user, roles...) })
}

// RequireCapability gates on the role's capability table.
func RequireCapability(capability models.Capability) echo.MiddlewareFunc {
	return gate(func(user *models.User) bool { return user.Role.Can(capability) })
}

// AgencyAdmins is the owner/admin allow-list used by most write routes.
var AgencyAdmins = []models.Role{models.RoleOwner, models.RoleAdmin}

func gate(allow func(*models.User) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			if !allow(user) {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}
