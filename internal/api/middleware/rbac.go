package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/service"
)

// Session rebuilds the caller's session from the claims Auth stored on c.
// A request that did not pass through Auth yields a logged-out session.
func Session(c echo.Context) domain.Session {
	id, _ := c.Get(KeyUserID).(string)
	role, _ := c.Get(KeyRole).(domain.Role)
	if id == "" || role == "" {
		return domain.Session{}
	}
	email, _ := c.Get(KeyEmail).(string)
	return domain.Session{
		IsAuthenticated: true,
		User:            &domain.User{ID: id, Email: email, Role: role},
	}
}

// RBAC applies the same gate the client uses for navigation: no session is
// 401, a role outside allowedRoles is 403. It must run after Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch service.Decide(Session(c), allowedRoles...) {
			case domain.RedirectLogin:
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			case domain.RedirectUnauthorized:
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
