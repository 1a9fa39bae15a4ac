// Package fixture is the in-memory remote collaborator: a seeded user,
// customer and task set behind the same gateway interfaces the HTTP client
// implements. Every call may be delayed to imitate network latency.
package fixture

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/service"
)

// Options tunes the fixture.
type Options struct {
	// Latency is applied to every gateway call. Zero disables it.
	Latency time.Duration
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
	// JWTSecret signs the issued tokens.
	JWTSecret string
	// TokenTTL defaults to 24h.
	TokenTTL time.Duration
	// Empty skips seeding.
	Empty bool
}

// Fixture bundles the in-memory gateways over one shared data set.
type Fixture struct {
	Users     *UserRepository
	Customers *CustomerGateway
	Tasks     *TaskGateway
	Auth      *service.Authenticator
}

// New builds a fixture seeded with the demo data set.
func New(opts Options, log zerolog.Logger) *Fixture {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := clock{latency: opts.Latency, now: opts.Now}

	users := newUserRepository(c)
	customers := newCustomerGateway(c)
	tasks := newTaskGateway(c, customers, users)
	if !opts.Empty {
		seed(users, customers, tasks)
	}

	issuer := service.NewTokenIssuer(opts.JWTSecret, opts.TokenTTL)
	return &Fixture{
		Users:     users,
		Customers: customers,
		Tasks:     tasks,
		Auth:      service.NewAuthenticator(users, issuer, log.With().Str("component", "fixture_auth").Logger()),
	}
}

type clock struct {
	latency time.Duration
	now     func() time.Time
}

// wait blocks for the configured latency or until ctx is done.
func (c clock) wait(ctx context.Context) error {
	if c.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
