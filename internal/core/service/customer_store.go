package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/core/validation"
)

// CustomerStore is the client-side cache of the customer collection.
type CustomerStore struct {
	*store[domain.Customer]
	gateway ports.CustomerGateway
}

func NewCustomerStore(gateway ports.CustomerGateway, log zerolog.Logger) *CustomerStore {
	return &CustomerStore{
		store:   newStore("customers", func(c domain.Customer) int64 { return c.ID }, log),
		gateway: gateway,
	}
}

// FetchAll replaces the cached customers with the remote listing.
func (s *CustomerStore) FetchAll(ctx context.Context) ([]domain.Customer, error) {
	return s.fetch(ctx, nil, s.gateway.List)
}

// Get loads a single customer and refreshes its cached copy.
func (s *CustomerStore) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	var got *domain.Customer
	err := s.mutate(ctx, "get", "get:"+strconv.FormatInt(id, 10),
		func(ctx context.Context) (err error) {
			got, err = s.gateway.Get(ctx, id)
			return err
		},
		func(items []domain.Customer) []domain.Customer { return s.replace(items, *got) },
	)
	if err != nil {
		return nil, err
	}
	return got, nil
}

// Create validates in, creates the customer remotely and appends the
// returned record, whose id is assigned by the remote.
func (s *CustomerStore) Create(ctx context.Context, in ports.CustomerInput) (*domain.Customer, error) {
	if err := validation.Struct(in); err != nil {
		return nil, s.reject("create", err)
	}
	var created *domain.Customer
	err := s.mutate(ctx, "create", "create",
		func(ctx context.Context) (err error) {
			created, err = s.gateway.Create(ctx, in)
			return err
		},
		func(items []domain.Customer) []domain.Customer { return append(items, *created) },
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial update and replaces the cached record with the
// remote copy.
func (s *CustomerStore) Update(ctx context.Context, id int64, in ports.CustomerUpdate) (*domain.Customer, error) {
	if err := validation.Struct(in); err != nil {
		return nil, s.reject("update", err)
	}
	var updated *domain.Customer
	err := s.mutate(ctx, "update", "update:"+strconv.FormatInt(id, 10),
		func(ctx context.Context) (err error) {
			updated, err = s.gateway.Update(ctx, id, in)
			return err
		},
		func(items []domain.Customer) []domain.Customer { return s.replace(items, *updated) },
	)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the customer remotely, then from the cache.
func (s *CustomerStore) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "delete:"+strconv.FormatInt(id, 10),
		func(ctx context.Context) error { return s.gateway.Delete(ctx, id) },
		func(items []domain.Customer) []domain.Customer { return s.remove(items, id) },
	)
}

// ActiveCount returns how many cached customers are active.
func (s *CustomerStore) ActiveCount() int {
	n := 0
	for _, c := range s.Snapshot().Items {
		if c.IsActive {
			n++
		}
	}
	return n
}
