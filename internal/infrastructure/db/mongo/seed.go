package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

// SeedIfEmpty loads the given records when the users collection is empty
// and raises the id counters past the seeded ids. It reports whether
// anything was written.
func SeedIfEmpty(ctx context.Context, db *mongo.Database, users []ports.UserRecord, customers []domain.Customer, tasks []domain.Task) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := db.Collection(collectionUsers).CountDocuments(ctx, bson.M{})
	if err != nil {
		return false, storeErr("count users", err)
	}
	if n > 0 {
		return false, nil
	}

	userDocs := make([]interface{}, 0, len(users))
	for _, u := range users {
		userDocs = append(userDocs, toMongoUser(u))
	}
	var maxCustomer, maxTask int64
	customerDocs := make([]interface{}, 0, len(customers))
	for _, c := range customers {
		c.CreatedAt = millis(c.CreatedAt)
		customerDocs = append(customerDocs, c)
		maxCustomer = max(maxCustomer, c.ID)
	}
	taskDocs := make([]interface{}, 0, len(tasks))
	for _, t := range tasks {
		t.DueDate, t.CreatedAt, t.UpdatedAt = millis(t.DueDate), millis(t.CreatedAt), millis(t.UpdatedAt)
		taskDocs = append(taskDocs, t)
		maxTask = max(maxTask, t.ID)
	}

	for coll, docs := range map[string][]interface{}{
		collectionUsers:     userDocs,
		collectionCustomers: customerDocs,
		collectionTasks:     taskDocs,
	} {
		if len(docs) == 0 {
			continue
		}
		if _, err := db.Collection(coll).InsertMany(ctx, docs); err != nil {
			return false, storeErr(fmt.Sprintf("seed %s", coll), err)
		}
	}

	ids := counters{col: db.Collection(collectionCounters)}
	if err := ids.atLeast(ctx, collectionCustomers, maxCustomer); err != nil {
		return false, err
	}
	if err := ids.atLeast(ctx, collectionTasks, maxTask); err != nil {
		return false, err
	}
	return true, nil
}
