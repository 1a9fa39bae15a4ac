package fixture

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/core/validation"
)

// TaskGateway is an in-memory ports.TaskGateway. Denormalized customer and
// assignee names are resolved from the sibling fixtures on every write.
type TaskGateway struct {
	clock     clock
	customers *CustomerGateway
	users     *UserRepository

	mu     sync.RWMutex
	byID   map[int64]domain.Task
	nextID int64
}

func newTaskGateway(c clock, customers *CustomerGateway, users *UserRepository) *TaskGateway {
	return &TaskGateway{
		clock:     c,
		customers: customers,
		users:     users,
		byID:      make(map[int64]domain.Task),
		nextID:    1,
	}
}

func (g *TaskGateway) put(t domain.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byID[t.ID] = t
	if t.ID >= g.nextID {
		g.nextID = t.ID + 1
	}
}

// List returns the tasks matching filter ordered by id.
func (g *TaskGateway) List(ctx context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Task, 0, len(g.byID))
	for _, t := range g.byID {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *TaskGateway) Get(ctx context.Context, id int64) (*domain.Task, error) {
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

// Create stores a new PENDING task.
func (g *TaskGateway) Create(ctx context.Context, in ports.TaskInput) (*domain.Task, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	customerName, assignedTo, err := g.resolve(in.CustomerID, in.AssignedUserID)
	if err != nil {
		return nil, err
	}

	now := g.clock.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()
	t := domain.Task{
		ID:             g.nextID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         domain.TaskPending,
		CustomerID:     in.CustomerID,
		CustomerName:   customerName,
		AssignedUserID: in.AssignedUserID,
		AssignedTo:     assignedTo,
		DueDate:        in.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	g.nextID++
	g.byID[t.ID] = t
	return &t, nil
}

func (g *TaskGateway) Update(ctx context.Context, id int64, in ports.TaskUpdate) (*domain.Task, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	return g.modify(id, func(t *domain.Task) error {
		if in.CustomerID != nil && *in.CustomerID != t.CustomerID {
			name, ok := g.customers.name(*in.CustomerID)
			if !ok {
				return fmt.Errorf("%w: customer %d does not exist", domain.ErrValidationFailed, *in.CustomerID)
			}
			t.CustomerName = name
		}
		if in.AssignedUserID != nil && *in.AssignedUserID != t.AssignedUserID {
			name, ok := g.users.displayName(*in.AssignedUserID)
			if !ok {
				return fmt.Errorf("%w: user %s does not exist", domain.ErrValidationFailed, *in.AssignedUserID)
			}
			t.AssignedTo = name
		}
		in.Apply(t)
		return nil
	})
}

func (g *TaskGateway) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidationFailed, status)
	}
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	return g.modify(id, func(t *domain.Task) error {
		t.Status = status
		return nil
	})
}

func (g *TaskGateway) Delete(ctx context.Context, id int64) error {
	if err := g.clock.wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.byID[id]; !ok {
		return fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	delete(g.byID, id)
	return nil
}

// modify applies fn to a copy of task id, advances UpdatedAt and stores it.
func (g *TaskGateway) modify(id int64, fn func(*domain.Task) error) (*domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	if err := fn(&t); err != nil {
		return nil, err
	}
	t.Touch(g.clock.now().UTC())
	g.byID[id] = t
	return &t, nil
}

func (g *TaskGateway) resolve(customerID int64, userID string) (customerName, assignedTo string, err error) {
	customerName, ok := g.customers.name(customerID)
	if !ok {
		return "", "", fmt.Errorf("%w: customer %d does not exist", domain.ErrValidationFailed, customerID)
	}
	assignedTo, ok = g.users.displayName(userID)
	if !ok {
		return "", "", fmt.Errorf("%w: user %s does not exist", domain.ErrValidationFailed, userID)
	}
	return customerName, assignedTo, nil
}
