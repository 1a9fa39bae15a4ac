package domain

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// statusCycle is the display order used by the "advance status" control.
var statusCycle = map[TaskStatus]TaskStatus{
	TaskPending:    TaskInProgress,
	TaskInProgress: TaskCompleted,
	TaskCompleted:  TaskPending,
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	_, ok := statusCycle[s]
	return ok
}

// Next returns the following status in the PENDING -> IN_PROGRESS ->
// COMPLETED -> PENDING cycle. Unknown statuses restart at PENDING.
// This is a UI convenience; the remote decides which transitions are legal.
func (s TaskStatus) Next() TaskStatus {
	if next, ok := statusCycle[s]; ok {
		return next
	}
	return TaskPending
}

// Task is a unit of work attached to a customer and assigned to a user.
// CustomerName and AssignedTo are denormalized display copies.
type Task struct {
	ID             int64      `json:"id" bson:"_id"`
	Title          string     `json:"title" bson:"title"`
	Description    string     `json:"description" bson:"description"`
	Status         TaskStatus `json:"status" bson:"status"`
	CustomerID     int64      `json:"customerId" bson:"customer_id"`
	CustomerName   string     `json:"customerName" bson:"customer_name"`
	AssignedUserID string     `json:"assignedUserId" bson:"assigned_user_id"`
	AssignedTo     string     `json:"assignedTo" bson:"assigned_to"`
	DueDate        time.Time  `json:"dueDate" bson:"due_date"`
	CreatedAt      time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Touch advances UpdatedAt to now, or by one nanosecond past the previous
// value when the clock has not moved, so every mutation is observable.
func (t *Task) Touch(now time.Time) {
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}
	t.UpdatedAt = now
}

// TaskStats is a per-status tally used by dashboards.
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// CountTasks tallies tasks by status.
func CountTasks(tasks []Task) TaskStats {
	st := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case TaskPending:
			st.Pending++
		case TaskInProgress:
			st.InProgress++
		case TaskCompleted:
			st.Completed++
		}
	}
	return st
}
