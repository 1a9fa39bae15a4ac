package domain

// RequestState is the lifecycle flag attached to a store, independent of its data.
type RequestState string

const (
	RequestIdle      RequestState = "idle"
	RequestLoading   RequestState = "loading"
	RequestSucceeded RequestState = "succeeded"
	RequestFailed    RequestState = "failed"
)

// Decision is the outcome of an authorization check for a navigation.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectUnauthorized
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	DashboardPath    = "/dashboard"
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// Target returns the path a redirect decision points at, or "" for Allow.
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectUnauthorized:
		return UnauthorizedPath
	default:
		return ""
	}
}
