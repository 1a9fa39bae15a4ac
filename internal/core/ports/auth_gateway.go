package ports

import (
	"context"

	"github.com/etiya/crm-client/internal/core/domain"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email       string `json:"email"       validate:"required,email"`
	Password    string `json:"password"    validate:"required,min=6"`
	DisplayName string `json:"displayName" validate:"required,min=2"`
}

// AuthResult is what a successful login or registration yields.
type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AuthGateway is the façade over the authentication collaborator.
// Rejected credentials surface as domain.ErrInvalidCredentials; transport
// or collaborator failures as domain.ErrUnavailable.
type AuthGateway interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	// CurrentUser resolves the user a previously issued token belongs to.
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	ChangePassword(ctx context.Context, token, current, next string) error
	Logout(ctx context.Context, token string) error
}

// TokenStore persists the credential token between process runs.
// Load returns "" with a nil error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
