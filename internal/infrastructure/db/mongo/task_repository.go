package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/core/validation"
)

// maxModifyAttempts bounds the optimistic read-modify-write loop.
const maxModifyAttempts = 3

// TaskRepository is a MongoDB-backed ports.TaskGateway. Writes compare on
// updated_at so concurrent updates never lose each other's changes.
type TaskRepository struct {
	col       *mongo.Collection
	ids       counters
	customers *CustomerRepository
	users     *UserRepository
	now       func() time.Time
}

func NewTaskRepository(db *mongo.Database, customers *CustomerRepository, users *UserRepository) *TaskRepository {
	return &TaskRepository{
		col:       db.Collection(collectionTasks),
		ids:       counters{col: db.Collection(collectionCounters)},
		customers: customers,
		users:     users,
		now:       time.Now,
	}
}

func taskQuery(f ports.TaskFilter) bson.M {
	q := bson.M{}
	if f.CustomerID != 0 {
		q["customer_id"] = f.CustomerID
	}
	if f.AssignedUserID != "" {
		q["assigned_user_id"] = f.AssignedUserID
	}
	return q
}

func (r *TaskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, taskQuery(filter), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	out := []domain.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeErr("decode tasks", err)
	}
	return out, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t domain.Task
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, storeErr(fmt.Sprintf("task %d", id), err)
	}
	return &t, nil
}

// Create stores a new PENDING task with resolved customer and assignee names.
func (r *TaskRepository) Create(ctx context.Context, in ports.TaskInput) (*domain.Task, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	customerName, err := r.customerName(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	assignedTo, err := r.assigneeName(ctx, in.AssignedUserID)
	if err != nil {
		return nil, err
	}
	id, err := r.ids.next(ctx, collectionTasks)
	if err != nil {
		return nil, err
	}

	now := millis(r.now())
	t := domain.Task{
		ID:             id,
		Title:          in.Title,
		Description:    in.Description,
		Status:         domain.TaskPending,
		CustomerID:     in.CustomerID,
		CustomerName:   customerName,
		AssignedUserID: in.AssignedUserID,
		AssignedTo:     assignedTo,
		DueDate:        millis(in.DueDate),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := r.col.InsertOne(ctx, t); err != nil {
		return nil, storeErr("insert task", err)
	}
	return &t, nil
}

func (r *TaskRepository) Update(ctx context.Context, id int64, in ports.TaskUpdate) (*domain.Task, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return r.modify(ctx, id, func(ctx context.Context, t *domain.Task) error {
		if in.CustomerID != nil && *in.CustomerID != t.CustomerID {
			name, err := r.customerName(ctx, *in.CustomerID)
			if err != nil {
				return err
			}
			t.CustomerName = name
		}
		if in.AssignedUserID != nil && *in.AssignedUserID != t.AssignedUserID {
			name, err := r.assigneeName(ctx, *in.AssignedUserID)
			if err != nil {
				return err
			}
			t.AssignedTo = name
		}
		in.Apply(t)
		t.DueDate = millis(t.DueDate)
		return nil
	})
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidationFailed, status)
	}
	return r.modify(ctx, id, func(_ context.Context, t *domain.Task) error {
		t.Status = status
		return nil
	})
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storeErr("delete task", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// modify reads task id, applies fn, advances updated_at and writes it back
// only if no other writer got there first.
func (r *TaskRepository) modify(ctx context.Context, id int64, fn func(context.Context, *domain.Task) error) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for attempt := 0; attempt < maxModifyAttempts; attempt++ {
		var t domain.Task
		if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
			return nil, storeErr(fmt.Sprintf("task %d", id), err)
		}
		prev := t.UpdatedAt
		if err := fn(ctx, &t); err != nil {
			return nil, err
		}
		t.UpdatedAt = nextStamp(prev, r.now())

		res, err := r.col.ReplaceOne(ctx, bson.M{"_id": id, "updated_at": prev}, t)
		if err != nil {
			return nil, storeErr("replace task", err)
		}
		if res.MatchedCount == 1 {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: task %d is being modified concurrently", domain.ErrUnavailable, id)
}

// nextStamp is now at millisecond precision, strictly after prev.
func nextStamp(prev, now time.Time) time.Time {
	now = millis(now)
	if !now.After(prev) {
		return millis(prev).Add(time.Millisecond)
	}
	return now
}

func (r *TaskRepository) customerName(ctx context.Context, id int64) (string, error) {
	name, err := r.customers.name(ctx, id)
	if err != nil {
		return "", asValidation(err, fmt.Sprintf("customer %d does not exist", id))
	}
	return name, nil
}

func (r *TaskRepository) assigneeName(ctx context.Context, id string) (string, error) {
	name, err := r.users.displayName(ctx, id)
	if err != nil {
		return "", asValidation(err, fmt.Sprintf("user %s does not exist", id))
	}
	return name, nil
}

// asValidation turns a missing reference into a validation failure.
func asValidation(err error, msg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrValidationFailed, msg)
	}
	return err
}

var _ ports.TaskGateway = (*TaskRepository)(nil)
