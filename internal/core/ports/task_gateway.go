package ports

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/etiya/crm-client/internal/core/domain"
)

// TaskFilter narrows a task listing. Zero values mean "no filter".
type TaskFilter struct {
	CustomerID     int64
	AssignedUserID string
}

// IsZero reports whether the filter matches every task.
func (f TaskFilter) IsZero() bool {
	return f.CustomerID == 0 && f.AssignedUserID == ""
}

// Matches reports whether t satisfies every set criterion.
func (f TaskFilter) Matches(t domain.Task) bool {
	if f.CustomerID != 0 && t.CustomerID != f.CustomerID {
		return false
	}
	if f.AssignedUserID != "" && t.AssignedUserID != f.AssignedUserID {
		return false
	}
	return true
}

// Query encodes the filter as /tasks query parameters.
func (f TaskFilter) Query() url.Values {
	q := url.Values{}
	if f.CustomerID != 0 {
		q.Set("customerId", strconv.FormatInt(f.CustomerID, 10))
	}
	if f.AssignedUserID != "" {
		q.Set("assignedUserId", f.AssignedUserID)
	}
	return q
}

// TaskInput is the payload for creating a task.
type TaskInput struct {
	Title          string    `json:"title"          validate:"required,min=3"`
	Description    string    `json:"description"    validate:"required,min=10"`
	CustomerID     int64     `json:"customerId"     validate:"required,gt=0"`
	AssignedUserID string    `json:"assignedUserId" validate:"required"`
	DueDate        time.Time `json:"dueDate"        validate:"required"`
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title          *string            `json:"title,omitempty"          validate:"omitempty,min=3"`
	Description    *string            `json:"description,omitempty"    validate:"omitempty,min=10"`
	CustomerID     *int64             `json:"customerId,omitempty"     validate:"omitempty,gt=0"`
	AssignedUserID *string            `json:"assignedUserId,omitempty" validate:"omitempty,min=1"`
	DueDate        *time.Time         `json:"dueDate,omitempty"`
	Status         *domain.TaskStatus `json:"status,omitempty"         validate:"omitempty,taskstatus"`
}

// Apply copies the non-nil fields of u onto t. Denormalized names are the
// caller's responsibility since only the remote can resolve them.
func (u TaskUpdate) Apply(t *domain.Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.CustomerID != nil {
		t.CustomerID = *u.CustomerID
	}
	if u.AssignedUserID != nil {
		t.AssignedUserID = *u.AssignedUserID
	}
	if u.DueDate != nil {
		t.DueDate = *u.DueDate
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
}

// TaskGateway is the façade over the remote task collection.
type TaskGateway interface {
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, in TaskInput) (*domain.Task, error)
	Update(ctx context.Context, id int64, in TaskUpdate) (*domain.Task, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
}
