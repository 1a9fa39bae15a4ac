package fixture

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/core/validation"
)

// CustomerGateway is an in-memory ports.CustomerGateway.
type CustomerGateway struct {
	clock clock

	mu     sync.RWMutex
	byID   map[int64]domain.Customer
	nextID int64
}

func newCustomerGateway(c clock) *CustomerGateway {
	return &CustomerGateway{clock: c, byID: make(map[int64]domain.Customer), nextID: 1}
}

func (g *CustomerGateway) put(c domain.Customer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byID[c.ID] = c
	if c.ID >= g.nextID {
		g.nextID = c.ID + 1
	}
}

// List returns all customers ordered by id.
func (g *CustomerGateway) List(ctx context.Context) ([]domain.Customer, error) {
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Customer, 0, len(g.byID))
	for _, c := range g.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *CustomerGateway) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (g *CustomerGateway) Create(ctx context.Context, in ports.CustomerInput) (*domain.Customer, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.emailTakenLocked(in.Email, 0) {
		return nil, fmt.Errorf("%w: email %s already in use", domain.ErrValidationFailed, in.Email)
	}
	c := domain.Customer{
		ID:        g.nextID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		Notes:     in.Notes,
		CreatedAt: g.clock.now().UTC(),
		IsActive:  true,
	}
	g.nextID++
	g.byID[c.ID] = c
	return &c, nil
}

func (g *CustomerGateway) Update(ctx context.Context, id int64, in ports.CustomerUpdate) (*domain.Customer, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := g.clock.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	if in.Email != nil && g.emailTakenLocked(*in.Email, id) {
		return nil, fmt.Errorf("%w: email %s already in use", domain.ErrValidationFailed, *in.Email)
	}
	in.Apply(&c)
	g.byID[id] = c
	return &c, nil
}

func (g *CustomerGateway) Delete(ctx context.Context, id int64) error {
	if err := g.clock.wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.byID[id]; !ok {
		return fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	delete(g.byID, id)
	return nil
}

// name returns the name of customer id without delay.
func (g *CustomerGateway) name(id int64) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.byID[id]
	return c.Name, ok
}

func (g *CustomerGateway) emailTakenLocked(email string, except int64) bool {
	for id, c := range g.byID {
		if id != except && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}
