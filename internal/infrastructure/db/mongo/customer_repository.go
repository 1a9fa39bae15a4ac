package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/core/validation"
)

// CustomerRepository is a MongoDB-backed ports.CustomerGateway.
type CustomerRepository struct {
	col *mongo.Collection
	ids counters
	now func() time.Time
}

func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{
		col: db.Collection(collectionCustomers),
		ids: counters{col: db.Collection(collectionCounters)},
		now: time.Now,
	}
}

func (r *CustomerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, storeErr("list customers", err)
	}
	out := []domain.Customer{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeErr("decode customers", err)
	}
	return out, nil
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c domain.Customer
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, storeErr(fmt.Sprintf("customer %d", id), err)
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, in ports.CustomerInput) (*domain.Customer, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.ids.next(ctx, collectionCustomers)
	if err != nil {
		return nil, err
	}
	c := domain.Customer{
		ID:        id,
		Name:      in.Name,
		Email:     strings.ToLower(in.Email),
		Phone:     in.Phone,
		Address:   in.Address,
		Notes:     in.Notes,
		CreatedAt: millis(r.now()),
		IsActive:  true,
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: email %s already in use", domain.ErrValidationFailed, in.Email)
		}
		return nil, storeErr("insert customer", err)
	}
	return &c, nil
}

func (r *CustomerRepository) Update(ctx context.Context, id int64, in ports.CustomerUpdate) (*domain.Customer, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Email != nil {
		set["email"] = strings.ToLower(*in.Email)
	}
	if in.Phone != nil {
		set["phone"] = *in.Phone
	}
	if in.Address != nil {
		set["address"] = *in.Address
	}
	if in.Notes != nil {
		set["notes"] = *in.Notes
	}
	if in.IsActive != nil {
		set["is_active"] = *in.IsActive
	}
	if len(set) == 0 {
		return r.Get(ctx, id)
	}

	var c domain.Customer
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: email already in use", domain.ErrValidationFailed)
		}
		return nil, storeErr(fmt.Sprintf("customer %d", id), err)
	}
	return &c, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storeErr("delete customer", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *CustomerRepository) name(ctx context.Context, id int64) (string, error) {
	var doc struct {
		Name string `bson:"name"`
	}
	err := r.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"name": 1})).Decode(&doc)
	if err != nil {
		return "", storeErr(fmt.Sprintf("customer %d", id), err)
	}
	return doc.Name, nil
}

var _ ports.CustomerGateway = (*CustomerRepository)(nil)
