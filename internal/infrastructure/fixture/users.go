package fixture

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

// UserRepository is an in-memory ports.UserRepository.
type UserRepository struct {
	clock clock

	mu      sync.RWMutex
	byID    map[string]ports.UserRecord
	byEmail map[string]string
}

func newUserRepository(c clock) *UserRepository {
	return &UserRepository{
		clock:   c,
		byID:    make(map[string]ports.UserRecord),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) put(rec ports.UserRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
	r.byEmail[strings.ToLower(rec.Email)] = rec.ID
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*ports.UserRecord, error) {
	if err := r.clock.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec := r.byID[id]
	return &rec, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*ports.UserRecord, error) {
	if err := r.clock.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Create stores rec under a fresh id.
func (r *UserRepository) Create(ctx context.Context, rec *ports.UserRecord) (*ports.UserRecord, error) {
	if err := r.clock.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(rec.Email)
	if _, exists := r.byEmail[key]; exists {
		return nil, domain.ErrUserExists
	}
	stored := *rec
	stored.ID = uuid.NewString()
	r.byID[stored.ID] = stored
	r.byEmail[key] = stored.ID
	out := stored
	return &out, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if err := r.clock.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.PasswordHash = hash
	r.byID[id] = rec
	return nil
}

// displayName returns the display name of user id without delay.
func (r *UserRepository) displayName(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	return rec.DisplayName, ok
}
