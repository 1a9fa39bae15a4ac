package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/core/validation"
)

// TaskStore is the client-side cache of a task listing.
type TaskStore struct {
	*store[domain.Task]
	gateway ports.TaskGateway
	now     func() time.Time
}

func NewTaskStore(gateway ports.TaskGateway, log zerolog.Logger) *TaskStore {
	return &TaskStore{
		store:   newStore("tasks", func(t domain.Task) int64 { return t.ID }, log),
		gateway: gateway,
		now:     time.Now,
	}
}

// FetchAll replaces the cached tasks with the full remote listing.
func (s *TaskStore) FetchAll(ctx context.Context) ([]domain.Task, error) {
	return s.FetchFiltered(ctx, ports.TaskFilter{})
}

// FetchFiltered replaces the cached tasks with the listing matching filter.
// Later updates only insert uncached tasks that match the same filter.
func (s *TaskStore) FetchFiltered(ctx context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	var keep func(domain.Task) bool
	if !filter.IsZero() {
		keep = filter.Matches
	}
	return s.fetch(ctx, keep, func(ctx context.Context) ([]domain.Task, error) {
		return s.gateway.List(ctx, filter)
	})
}

// Get loads a single task and refreshes its cached copy.
func (s *TaskStore) Get(ctx context.Context, id int64) (*domain.Task, error) {
	var got *domain.Task
	err := s.mutate(ctx, "get", "get:"+strconv.FormatInt(id, 10),
		func(ctx context.Context) (err error) {
			got, err = s.gateway.Get(ctx, id)
			return err
		},
		func(items []domain.Task) []domain.Task { return s.replace(items, *got) },
	)
	if err != nil {
		return nil, err
	}
	return got, nil
}

// Create validates in and appends the remotely created task.
func (s *TaskStore) Create(ctx context.Context, in ports.TaskInput) (*domain.Task, error) {
	if err := validation.Struct(in); err != nil {
		return nil, s.reject("create", err)
	}
	if in.DueDate.Before(startOfDay(s.now())) {
		return nil, s.reject("create", fmt.Errorf("%w: duedate cannot be in the past", domain.ErrValidationFailed))
	}
	var created *domain.Task
	err := s.mutate(ctx, "create", "create",
		func(ctx context.Context) (err error) {
			created, err = s.gateway.Create(ctx, in)
			return err
		},
		func(items []domain.Task) []domain.Task { return append(items, *created) },
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial update and replaces the cached task with the
// remote copy.
func (s *TaskStore) Update(ctx context.Context, id int64, in ports.TaskUpdate) (*domain.Task, error) {
	if err := validation.Struct(in); err != nil {
		return nil, s.reject("update", err)
	}
	var updated *domain.Task
	err := s.mutate(ctx, "update", "update:"+strconv.FormatInt(id, 10),
		func(ctx context.Context) (err error) {
			updated, err = s.gateway.Update(ctx, id, in)
			return err
		},
		func(items []domain.Task) []domain.Task { return s.replace(items, *updated) },
	)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus sets the task's status. Transition legality is decided by
// the remote; any known status is accepted here.
func (s *TaskStore) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, s.reject("update_status", fmt.Errorf("%w: unknown status %q", domain.ErrValidationFailed, status))
	}
	var updated *domain.Task
	// Shares the update key so a status click cannot race an edit of the same task.
	err := s.mutate(ctx, "update_status", "update:"+strconv.FormatInt(id, 10),
		func(ctx context.Context) (err error) {
			updated, err = s.gateway.UpdateStatus(ctx, id, status)
			return err
		},
		func(items []domain.Task) []domain.Task { return s.replace(items, *updated) },
	)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdvanceStatus moves a cached task to the next status of the display cycle.
func (s *TaskStore) AdvanceStatus(ctx context.Context, id int64) (*domain.Task, error) {
	t, ok := s.find(id)
	if !ok {
		return nil, s.reject("update_status", fmt.Errorf("task %d: %w", id, domain.ErrNotFound))
	}
	return s.UpdateStatus(ctx, id, t.Status.Next())
}

// Delete removes the task remotely, then from the cache.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "delete:"+strconv.FormatInt(id, 10),
		func(ctx context.Context) error { return s.gateway.Delete(ctx, id) },
		func(items []domain.Task) []domain.Task { return s.remove(items, id) },
	)
}

// Stats tallies the cached tasks by status.
func (s *TaskStore) Stats() domain.TaskStats {
	return domain.CountTasks(s.Snapshot().Items)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
