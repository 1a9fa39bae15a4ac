package service

import (
	"strings"

	"github.com/etiya/crm-client/internal/core/domain"
)

// Decide is the authorization gate: RedirectLogin when the session is not
// authenticated, RedirectUnauthorized when roles is non-empty and the user's
// role is not in it, Allow otherwise. It depends only on its arguments and
// must be evaluated on every navigation.
func Decide(session domain.Session, roles ...domain.Role) domain.Decision {
	if !session.IsAuthenticated || session.User == nil {
		return domain.RedirectLogin
	}
	if len(roles) > 0 && !session.HasRole(roles...) {
		return domain.RedirectUnauthorized
	}
	return domain.Allow
}

// Route is one navigable view. Segments starting with ':' match any value.
type Route struct {
	Pattern string
	Roles   []domain.Role
	// Public routes are only for signed-out users; signed-in users are sent
	// to the dashboard.
	Public bool
}

// Routes is an ordered navigation table; the first matching pattern wins.
type Routes []Route

// DefaultRoutes mirrors the CRM client's navigation.
var DefaultRoutes = Routes{
	{Pattern: "/login", Public: true},
	{Pattern: "/register", Public: true},
	{Pattern: "/dashboard"},
	{Pattern: "/profile"},
	{Pattern: "/customers", Roles: []domain.Role{domain.RoleAdmin}},
	{Pattern: "/customers/new", Roles: []domain.Role{domain.RoleAdmin}},
	{Pattern: "/customers/:id", Roles: []domain.Role{domain.RoleAdmin}},
	{Pattern: "/tasks"},
	{Pattern: "/tasks/new", Roles: []domain.Role{domain.RoleAdmin}},
	{Pattern: "/tasks/:id"},
}

// Navigation is the resolved outcome of a navigation attempt.
type Navigation struct {
	Decision domain.Decision
	// Path is where the caller should end up: the requested path on Allow,
	// otherwise the redirect target.
	Path string
}

// Navigate resolves path against the table for session.
func (rs Routes) Navigate(session domain.Session, path string) Navigation {
	path = cleanPath(path)
	route, ok := rs.match(path)
	if !ok {
		if path == "/" || session.IsAuthenticated {
			return rs.Navigate(session, domain.DashboardPath)
		}
		return Navigation{Decision: domain.RedirectLogin, Path: domain.LoginPath}
	}

	if route.Public {
		if session.IsAuthenticated {
			return Navigation{Decision: domain.Allow, Path: domain.DashboardPath}
		}
		return Navigation{Decision: domain.Allow, Path: path}
	}

	d := Decide(session, route.Roles...)
	if d != domain.Allow {
		return Navigation{Decision: d, Path: d.Target()}
	}
	return Navigation{Decision: d, Path: path}
}

func (rs Routes) match(path string) (Route, bool) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for _, r := range rs {
		pat := strings.Split(strings.Trim(r.Pattern, "/"), "/")
		if len(pat) != len(segs) {
			continue
		}
		ok := true
		for i := range pat {
			if strings.HasPrefix(pat[i], ":") {
				if segs[i] == "" {
					ok = false
					break
				}
				continue
			}
			if pat[i] != segs[i] {
				ok = false
				break
			}
		}
		if ok {
			return r, true
		}
	}
	return Route{}, false
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
