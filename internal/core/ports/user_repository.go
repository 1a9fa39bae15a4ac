package ports

import (
	"context"

	"github.com/etiya/crm-client/internal/core/domain"
)

// UserRecord is a stored account: the public user plus its password hash.
type UserRecord struct {
	domain.User
	PasswordHash string
}

// UserRepository persists accounts for the auth collaborator.
// Lookups of unknown users return domain.ErrNotFound; Create returns
// domain.ErrUserExists on a duplicate email.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindByID(ctx context.Context, id string) (*UserRecord, error)
	Create(ctx context.Context, rec *UserRecord) (*UserRecord, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
