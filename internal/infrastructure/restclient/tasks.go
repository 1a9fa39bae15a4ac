package restclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

const (
	routeTasks      = "/tasks"
	routeTask       = "/tasks/{id}"
	routeTaskStatus = "/tasks/{id}/status"
)

// TaskGateway implements ports.TaskGateway over /tasks.
type TaskGateway struct {
	c *Client
}

type statusRequest struct {
	Status domain.TaskStatus `json:"status"`
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func (g *TaskGateway) call(ctx context.Context, r request) error {
	token, err := g.c.storedToken(ctx)
	if err != nil {
		return err
	}
	r.token = token
	return g.c.do(ctx, r)
}

func (g *TaskGateway) List(ctx context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	out := []domain.Task{}
	err := g.call(ctx, request{method: http.MethodGet, route: routeTasks, path: routeTasks, query: filter.Query(), out: &out})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *TaskGateway) Get(ctx context.Context, id int64) (*domain.Task, error) {
	var out domain.Task
	if err := g.call(ctx, request{method: http.MethodGet, route: routeTask, path: taskPath(id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *TaskGateway) Create(ctx context.Context, in ports.TaskInput) (*domain.Task, error) {
	var out domain.Task
	if err := g.call(ctx, request{method: http.MethodPost, route: routeTasks, path: routeTasks, body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *TaskGateway) Update(ctx context.Context, id int64, in ports.TaskUpdate) (*domain.Task, error) {
	var out domain.Task
	if err := g.call(ctx, request{method: http.MethodPut, route: routeTask, path: taskPath(id), body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *TaskGateway) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error) {
	var out domain.Task
	err := g.call(ctx, request{
		method: http.MethodPatch, route: routeTaskStatus, path: taskPath(id) + "/status",
		body: statusRequest{Status: status}, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *TaskGateway) Delete(ctx context.Context, id int64) error {
	return g.call(ctx, request{method: http.MethodDelete, route: routeTask, path: taskPath(id)})
}

var _ ports.TaskGateway = (*TaskGateway)(nil)
