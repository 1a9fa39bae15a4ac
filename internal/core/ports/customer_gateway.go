package ports

import (
	"context"

	"github.com/etiya/crm-client/internal/core/domain"
)

// CustomerInput is the payload for creating a customer.
type CustomerInput struct {
	Name    string `json:"name"              validate:"required,min=2"`
	Email   string `json:"email"             validate:"required,email"`
	Phone   string `json:"phone"             validate:"required,min=7"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"   validate:"max=500"`
}

// CustomerUpdate is a partial update; nil fields are left untouched.
type CustomerUpdate struct {
	Name     *string `json:"name,omitempty"     validate:"omitempty,min=2"`
	Email    *string `json:"email,omitempty"    validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty"    validate:"omitempty,min=7"`
	Address  *string `json:"address,omitempty"`
	Notes    *string `json:"notes,omitempty"    validate:"omitempty,max=500"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// Apply copies the non-nil fields of u onto c.
func (u CustomerUpdate) Apply(c *domain.Customer) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Address != nil {
		c.Address = *u.Address
	}
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
}

// CustomerGateway is the façade over the remote customer collection.
type CustomerGateway interface {
	List(ctx context.Context) ([]domain.Customer, error)
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	Create(ctx context.Context, in CustomerInput) (*domain.Customer, error)
	Update(ctx context.Context, id int64, in CustomerUpdate) (*domain.Customer, error)
	Delete(ctx context.Context, id int64) error
}
