package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/core/validation"
)

// Authenticator implements ports.AuthGateway on top of a UserRepository.
// It is the auth collaborator behind the fixture and the mock API.
type Authenticator struct {
	repo   ports.UserRepository
	tokens *TokenIssuer
	log    zerolog.Logger
}

func NewAuthenticator(repo ports.UserRepository, tokens *TokenIssuer, log zerolog.Logger) *Authenticator {
	return &Authenticator{repo: repo, tokens: tokens, log: log}
}

// Tokens exposes the issuer so transports can verify bearer tokens.
func (a *Authenticator) Tokens() *TokenIssuer {
	return a.tokens
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	rec, err := a.repo.FindByEmail(ctx, email)
	if err != nil {
		// Unknown accounts look exactly like bad passwords to the caller.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		a.log.Debug().Str("email", email).Msg("password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	return a.issue(rec.User)
}

func (a *Authenticator) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	created, err := a.repo.Create(ctx, &ports.UserRecord{
		User: domain.User{
			Email:       in.Email,
			DisplayName: in.DisplayName,
			Role:        domain.RoleUser,
		},
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	a.log.Info().Str("user_id", created.ID).Str("email", created.Email).Msg("user registered")
	return a.issue(created.User)
}

func (a *Authenticator) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	rec, err := a.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
		}
		return nil, err
	}
	u := rec.User
	return &u, nil
}

func (a *Authenticator) ChangePassword(ctx context.Context, token, current, next string) error {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return err
	}
	if len(next) < 6 {
		return fmt.Errorf("%w: newpassword must be at least 6 characters", domain.ErrValidationFailed)
	}

	rec, err := a.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}
	return a.repo.UpdatePasswordHash(ctx, rec.ID, string(hash))
}

// Logout revokes token. Unknown or expired tokens are not an error.
func (a *Authenticator) Logout(_ context.Context, token string) error {
	a.tokens.Revoke(token)
	return nil
}

func (a *Authenticator) issue(u domain.User) (*ports.AuthResult, error) {
	token, err := a.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{Token: token, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
