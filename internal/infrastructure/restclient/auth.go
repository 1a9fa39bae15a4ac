package restclient

import (
	"context"
	"net/http"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

const (
	routeLogin          = "/auth/login"
	routeRegister       = "/auth/register"
	routeMe             = "/auth/me"
	routeChangePassword = "/auth/change-password"
	routeLogout         = "/auth/logout"
)

// AuthGateway implements ports.AuthGateway over /auth.
type AuthGateway struct {
	c *Client
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (g *AuthGateway) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	var out ports.AuthResult
	err := g.c.do(ctx, request{
		method: http.MethodPost, route: routeLogin, path: routeLogin,
		body: loginRequest{Email: email, Password: password}, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *AuthGateway) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	var out ports.AuthResult
	err := g.c.do(ctx, request{
		method: http.MethodPost, route: routeRegister, path: routeRegister,
		body: in, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *AuthGateway) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	var out domain.User
	err := g.c.do(ctx, request{
		method: http.MethodGet, route: routeMe, path: routeMe,
		out: &out, token: token,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *AuthGateway) ChangePassword(ctx context.Context, token, current, next string) error {
	if token == "" {
		return domain.ErrNotAuthenticated
	}
	return g.c.do(ctx, request{
		method: http.MethodPost, route: routeChangePassword, path: routeChangePassword,
		body: changePasswordRequest{CurrentPassword: current, NewPassword: next}, token: token,
	})
}

func (g *AuthGateway) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return g.c.do(ctx, request{
		method: http.MethodPost, route: routeLogout, path: routeLogout, token: token,
	})
}

var _ ports.AuthGateway = (*AuthGateway)(nil)
