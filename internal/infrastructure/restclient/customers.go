package restclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

const (
	routeCustomers = "/customers"
	routeCustomer  = "/customers/{id}"
)

// CustomerGateway implements ports.CustomerGateway over /customers.
type CustomerGateway struct {
	c *Client
}

func customerPath(id int64) string {
	return "/customers/" + strconv.FormatInt(id, 10)
}

func (g *CustomerGateway) call(ctx context.Context, r request) error {
	token, err := g.c.storedToken(ctx)
	if err != nil {
		return err
	}
	r.token = token
	return g.c.do(ctx, r)
}

func (g *CustomerGateway) List(ctx context.Context) ([]domain.Customer, error) {
	out := []domain.Customer{}
	if err := g.call(ctx, request{method: http.MethodGet, route: routeCustomers, path: routeCustomers, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *CustomerGateway) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	var out domain.Customer
	if err := g.call(ctx, request{method: http.MethodGet, route: routeCustomer, path: customerPath(id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *CustomerGateway) Create(ctx context.Context, in ports.CustomerInput) (*domain.Customer, error) {
	var out domain.Customer
	if err := g.call(ctx, request{method: http.MethodPost, route: routeCustomers, path: routeCustomers, body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *CustomerGateway) Update(ctx context.Context, id int64, in ports.CustomerUpdate) (*domain.Customer, error) {
	var out domain.Customer
	if err := g.call(ctx, request{method: http.MethodPut, route: routeCustomer, path: customerPath(id), body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *CustomerGateway) Delete(ctx context.Context, id int64) error {
	return g.call(ctx, request{method: http.MethodDelete, route: routeCustomer, path: customerPath(id)})
}

var _ ports.CustomerGateway = (*CustomerGateway)(nil)
