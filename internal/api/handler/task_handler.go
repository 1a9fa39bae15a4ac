package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/metrics"
)

type TaskHandler struct {
	tasks ports.TaskGateway
}

func NewTaskHandler(tasks ports.TaskGateway) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type statusRequest struct {
	Status domain.TaskStatus `json:"status" validate:"required,taskstatus"`
}

// List returns tasks, optionally narrowed by customer or assignee.
//
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        customerId      query     int     false  "Customer id"
// @Param        assignedUserId  query     string  false  "Assignee user id"
// @Success      200  {array}   domain.Task
// @Router       /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	var f ports.TaskFilter
	if v := c.QueryParam("customerId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid customerId")
		}
		f.CustomerID = id
	}
	f.AssignedUserID = c.QueryParam("assignedUserId")

	out, err := h.tasks.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one task.
//
// @Summary      Get task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task id"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.tasks.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds a PENDING task.
//
// @Summary      Create task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.TaskInput  true  "Task"
// @Success      201   {object}  domain.Task
// @Failure      422   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	var req ports.TaskInput
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.tasks.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// Update applies a partial update.
//
// @Summary      Update task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "Task id"
// @Param        body  body      ports.TaskUpdate  true  "Changed fields"
// @Success      200   {object}  domain.Task
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req ports.TaskUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.tasks.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	if req.Status != nil {
		metrics.TaskStatusChangesTotal.WithLabelValues(string(out.Status)).Inc()
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateStatus sets a task's status.
//
// @Summary      Update task status
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Task id"
// @Param        body  body      statusRequest  true  "New status"
// @Success      200   {object}  domain.Task
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /tasks/{id}/status [patch]
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.tasks.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	metrics.TaskStatusChangesTotal.WithLabelValues(string(out.Status)).Inc()
	return c.JSON(http.StatusOK, out)
}

// Delete removes a task.
//
// @Summary      Delete task
// @Tags         tasks
// @Security     BearerAuth
// @Param        id   path  int  true  "Task id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.tasks.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
