package mongo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	DisplayName  string `bson:"display_name"`
	Role         string `bson:"role"`
	PasswordHash string `bson:"password_hash"`
}

func toMongoUser(rec ports.UserRecord) mongoUser {
	return mongoUser{
		ID:           rec.ID,
		Email:        strings.ToLower(rec.Email),
		DisplayName:  rec.DisplayName,
		Role:         string(rec.Role),
		PasswordHash: rec.PasswordHash,
	}
}

func (mu mongoUser) record() *ports.UserRecord {
	return &ports.UserRecord{
		User: domain.User{
			ID:          mu.ID,
			Email:       mu.Email,
			DisplayName: mu.DisplayName,
			Role:        domain.Role(mu.Role),
		},
		PasswordHash: mu.PasswordHash,
	}
}

// Create inserts rec, assigning a random id when it has none.
func (r *UserRepository) Create(ctx context.Context, rec *ports.UserRecord) (*ports.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(*rec)
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, storeErr("insert user", err)
	}
	return doc.record(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*ports.UserRecord, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*ports.UserRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password_hash": hash}})
	if err != nil {
		return storeErr("update password", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// displayName resolves a user's display name for task denormalization.
func (r *UserRepository) displayName(ctx context.Context, id string) (string, error) {
	rec, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.DisplayName, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*ports.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		return nil, storeErr("find user", err)
	}
	return mu.record(), nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
