package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

var taskEpoch = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func seedTasks() []domain.Task {
	return []domain.Task{
		{ID: 1, Title: "Kickoff", Status: domain.TaskPending, CustomerID: 1, AssignedUserID: "u-2", UpdatedAt: taskEpoch},
		{ID: 2, Title: "Proposal", Status: domain.TaskInProgress, CustomerID: 2, AssignedUserID: "u-2", UpdatedAt: taskEpoch},
		{ID: 3, Title: "Invoice", Status: domain.TaskCompleted, CustomerID: 1, AssignedUserID: "u-1", UpdatedAt: taskEpoch},
	}
}

// memoryTaskGateway serves seedTasks with filtering and status updates.
func memoryTaskGateway() *stubTaskGateway {
	tasks := seedTasks()
	find := func(id int64) (int, error) {
		for i := range tasks {
			if tasks[i].ID == id {
				return i, nil
			}
		}
		return -1, domain.ErrNotFound
	}
	return &stubTaskGateway{
		listFn: func(_ context.Context, f ports.TaskFilter) ([]domain.Task, error) {
			var out []domain.Task
			for _, t := range tasks {
				if f.Matches(t) {
					out = append(out, t)
				}
			}
			return out, nil
		},
		getFn: func(_ context.Context, id int64) (*domain.Task, error) {
			i, err := find(id)
			if err != nil {
				return nil, err
			}
			t := tasks[i]
			return &t, nil
		},
		updateStatusFn: func(_ context.Context, id int64, status domain.TaskStatus) (*domain.Task, error) {
			i, err := find(id)
			if err != nil {
				return nil, err
			}
			tasks[i].Status = status
			tasks[i].Touch(taskEpoch.Add(time.Hour))
			t := tasks[i]
			return &t, nil
		},
		updateFn: func(_ context.Context, id int64, in ports.TaskUpdate) (*domain.Task, error) {
			i, err := find(id)
			if err != nil {
				return nil, err
			}
			in.Apply(&tasks[i])
			tasks[i].Touch(taskEpoch.Add(time.Hour))
			t := tasks[i]
			return &t, nil
		},
	}
}

func TestTaskStore_UpdateStatus(t *testing.T) {
	s := NewTaskStore(memoryTaskGateway(), zerolog.Nop())
	ctx := context.Background()
	if _, err := s.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}

	updated, err := s.UpdateStatus(ctx, 2, domain.TaskCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if updated.Status != domain.TaskCompleted || !updated.UpdatedAt.After(taskEpoch) {
		t.Fatalf("unexpected updated task: %+v", updated)
	}

	items := s.Snapshot().Items
	if items[1].Status != domain.TaskCompleted || !items[1].UpdatedAt.After(taskEpoch) {
		t.Fatalf("cached task 2 not replaced: %+v", items[1])
	}
	for _, i := range []int{0, 2} {
		if items[i] != seedTasks()[i] {
			t.Fatalf("task %d must be unchanged, got %+v", items[i].ID, items[i])
		}
	}
	if st := s.Stats(); st.Total != 3 || st.Completed != 2 || st.Pending != 1 || st.InProgress != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestTaskStore_UpdateStatusRejectsUnknown(t *testing.T) {
	gw := memoryTaskGateway()
	gw.updateStatusFn = func(context.Context, int64, domain.TaskStatus) (*domain.Task, error) {
		t.Fatalf("unknown status must not reach the gateway")
		return nil, nil
	}
	s := NewTaskStore(gw, zerolog.Nop())

	if _, err := s.UpdateStatus(context.Background(), 1, "DONE"); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestTaskStore_AdvanceStatus(t *testing.T) {
	s := NewTaskStore(memoryTaskGateway(), zerolog.Nop())
	ctx := context.Background()

	if _, err := s.AdvanceStatus(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an uncached task, got %v", err)
	}

	_, _ = s.FetchAll(ctx)
	want := []domain.TaskStatus{domain.TaskInProgress, domain.TaskCompleted, domain.TaskPending}
	for _, w := range want {
		got, err := s.AdvanceStatus(ctx, 1)
		if err != nil {
			t.Fatalf("AdvanceStatus returned error: %v", err)
		}
		if got.Status != w {
			t.Fatalf("expected %s, got %s", w, got.Status)
		}
	}
}

func TestTaskStore_FilteredUpsert(t *testing.T) {
	s := NewTaskStore(memoryTaskGateway(), zerolog.Nop())
	ctx := context.Background()

	items, err := s.FetchFiltered(ctx, ports.TaskFilter{CustomerID: 2})
	if err != nil {
		t.Fatalf("FetchFiltered returned error: %v", err)
	}
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("unexpected filtered listing %+v", items)
	}

	// Task 1 belongs to customer 1 and stays out of this listing.
	if _, err := s.Get(ctx, 1); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if n := len(s.Snapshot().Items); n != 1 {
		t.Fatalf("task outside the filter must not be cached, got %d items", n)
	}

	// Moving task 1 onto customer 2 makes it part of the listing.
	cust := int64(2)
	if _, err := s.Update(ctx, 1, ports.TaskUpdate{CustomerID: &cust}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if n := len(s.Snapshot().Items); n != 2 {
		t.Fatalf("matching task should be inserted, got %d items", n)
	}
}

func TestTaskStore_CreateValidation(t *testing.T) {
	var called bool
	gw := &stubTaskGateway{createFn: func(_ context.Context, in ports.TaskInput) (*domain.Task, error) {
		called = true
		return &domain.Task{ID: 9, Title: in.Title, Status: domain.TaskPending}, nil
	}}
	s := NewTaskStore(gw, zerolog.Nop())
	s.now = func() time.Time { return taskEpoch }
	ctx := context.Background()

	valid := ports.TaskInput{
		Title:          "Follow up",
		Description:    "Call the customer back",
		CustomerID:     1,
		AssignedUserID: "u-2",
		DueDate:        taskEpoch.Add(48 * time.Hour),
	}

	short := valid
	short.Title = "ab"
	if _, err := s.Create(ctx, short); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for a short title, got %v", err)
	}

	past := valid
	past.DueDate = taskEpoch.Add(-48 * time.Hour)
	if _, err := s.Create(ctx, past); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for a past due date, got %v", err)
	}
	if called {
		t.Fatalf("invalid payloads must not reach the gateway")
	}

	today := valid
	today.DueDate = startOfDay(taskEpoch)
	created, err := s.Create(ctx, today)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 9 || len(s.Snapshot().Items) != 1 {
		t.Fatalf("expected created task to be appended")
	}
}

func TestTaskStore_ForbiddenIsReported(t *testing.T) {
	gw := &stubTaskGateway{deleteFn: func(context.Context, int64) error {
		return domain.ErrUnauthorized
	}}
	s := NewTaskStore(gw, zerolog.Nop())

	if err := s.Delete(context.Background(), 1); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
