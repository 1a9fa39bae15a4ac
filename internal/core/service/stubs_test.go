package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

type stubAuthGateway struct {
	loginFn          func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	currentUserFn    func(ctx context.Context, token string) (*domain.User, error)
	changePasswordFn func(ctx context.Context, token, current, next string) error

	mu      sync.Mutex
	logouts []string
}

func (s *stubAuthGateway) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthGateway) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthGateway) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	return s.currentUserFn(ctx, token)
}

func (s *stubAuthGateway) ChangePassword(ctx context.Context, token, current, next string) error {
	return s.changePasswordFn(ctx, token, current, next)
}

func (s *stubAuthGateway) Logout(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts = append(s.logouts, token)
	return nil
}

type stubTokenStore struct {
	mu      sync.Mutex
	token   string
	clears  int
	loadErr error
}

func (s *stubTokenStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.loadErr
}

func (s *stubTokenStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *stubTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clears++
	return nil
}

func (s *stubTokenStore) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

type stubCustomerGateway struct {
	listFn   func(ctx context.Context) ([]domain.Customer, error)
	getFn    func(ctx context.Context, id int64) (*domain.Customer, error)
	createFn func(ctx context.Context, in ports.CustomerInput) (*domain.Customer, error)
	updateFn func(ctx context.Context, id int64, in ports.CustomerUpdate) (*domain.Customer, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (s *stubCustomerGateway) List(ctx context.Context) ([]domain.Customer, error) {
	return s.listFn(ctx)
}

func (s *stubCustomerGateway) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.getFn(ctx, id)
}

func (s *stubCustomerGateway) Create(ctx context.Context, in ports.CustomerInput) (*domain.Customer, error) {
	return s.createFn(ctx, in)
}

func (s *stubCustomerGateway) Update(ctx context.Context, id int64, in ports.CustomerUpdate) (*domain.Customer, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubCustomerGateway) Delete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

type stubTaskGateway struct {
	listFn         func(ctx context.Context, f ports.TaskFilter) ([]domain.Task, error)
	getFn          func(ctx context.Context, id int64) (*domain.Task, error)
	createFn       func(ctx context.Context, in ports.TaskInput) (*domain.Task, error)
	updateFn       func(ctx context.Context, id int64, in ports.TaskUpdate) (*domain.Task, error)
	updateStatusFn func(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error)
	deleteFn       func(ctx context.Context, id int64) error
}

func (s *stubTaskGateway) List(ctx context.Context, f ports.TaskFilter) ([]domain.Task, error) {
	return s.listFn(ctx, f)
}

func (s *stubTaskGateway) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return s.getFn(ctx, id)
}

func (s *stubTaskGateway) Create(ctx context.Context, in ports.TaskInput) (*domain.Task, error) {
	return s.createFn(ctx, in)
}

func (s *stubTaskGateway) Update(ctx context.Context, id int64, in ports.TaskUpdate) (*domain.Task, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubTaskGateway) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error) {
	return s.updateStatusFn(ctx, id, status)
}

func (s *stubTaskGateway) Delete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

// stubUserRepo is an in-memory ports.UserRepository keyed by email.
type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]ports.UserRecord
	next  int
}

func newStubUserRepo(recs ...ports.UserRecord) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]ports.UserRecord)}
	for _, rec := range recs {
		r.users[rec.Email] = rec
	}
	return r
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*ports.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*ports.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.users {
		if rec.ID == id {
			out := rec
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubUserRepo) Create(_ context.Context, rec *ports.UserRecord) (*ports.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[rec.Email]; exists {
		return nil, domain.ErrUserExists
	}
	r.next++
	out := *rec
	out.ID = fmt.Sprintf("user-%d", r.next)
	r.users[out.Email] = out
	return &out, nil
}

func (r *stubUserRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, rec := range r.users {
		if rec.ID == id {
			rec.PasswordHash = hash
			r.users[email] = rec
			return nil
		}
	}
	return domain.ErrNotFound
}
