package domain

// Role is the authorization level carried by a User.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User models an authenticated actor as issued by the auth collaborator.
// A new login replaces it wholesale; it is never edited in place.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// Session is the client-side authentication state.
// User is non-nil iff IsAuthenticated is true.
type Session struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            *User  `json:"user,omitempty"`
	Pending         bool   `json:"pending"`
	LastError       string `json:"lastError,omitempty"`
}

// HasRole reports whether the session belongs to a user with one of roles.
func (s Session) HasRole(roles ...Role) bool {
	if !s.IsAuthenticated || s.User == nil {
		return false
	}
	for _, r := range roles {
		if s.User.Role == r {
			return true
		}
	}
	return false
}
