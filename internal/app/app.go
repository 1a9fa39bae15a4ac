// Package app assembles the CRM client core into one explicit context:
// the session, both domain stores and the navigation table, wired to the
// configured remote collaborator and token store.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/core/service"
	"github.com/etiya/crm-client/internal/infrastructure/config"
	"github.com/etiya/crm-client/internal/infrastructure/db/redis"
	"github.com/etiya/crm-client/internal/infrastructure/fixture"
	"github.com/etiya/crm-client/internal/infrastructure/restclient"
	"github.com/etiya/crm-client/internal/infrastructure/tokenstore"
)

// Gateways is one complete remote collaborator.
type Gateways struct {
	Auth      ports.AuthGateway
	Customers ports.CustomerGateway
	Tasks     ports.TaskGateway
}

// Client is the client context. Stores are reset whenever the session
// stops being authenticated.
type Client struct {
	Session   *service.Session
	Customers *service.CustomerStore
	Tasks     *service.TaskStore
	Routes    service.Routes

	log     zerolog.Logger
	cancel  func()
	closers []func() error
}

// New wires a Client over explicit gateways and token store.
func New(gw Gateways, tokens ports.TokenStore, log zerolog.Logger) *Client {
	c := &Client{
		Session:   service.NewSession(gw.Auth, tokens, log),
		Customers: service.NewCustomerStore(gw.Customers, log),
		Tasks:     service.NewTaskStore(gw.Tasks, log),
		Routes:    service.DefaultRoutes,
		log:       log.With().Str("component", "app").Logger(),
	}
	c.cancel = c.Session.Subscribe(func(s domain.Session) {
		if !s.IsAuthenticated && !s.Pending && s.LastError == "" {
			c.Customers.Reset()
			c.Tasks.Reset()
		}
	})
	return c
}

// FromConfig builds the collaborator and token store cfg selects.
func FromConfig(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Client, error) {
	var closers []func() error

	tokens, closeTokens, err := newTokenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if closeTokens != nil {
		closers = append(closers, closeTokens)
	}

	var gw Gateways
	switch cfg.Client.Backend {
	case config.BackendHTTP:
		rc, err := restclient.New(restclient.Options{
			BaseURL: cfg.Client.APIURL,
			Timeout: cfg.Client.HTTPTimeout,
			Retries: retries(cfg.Client.HTTPRetries),
		}, tokens, log)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		gw = Gateways{Auth: rc.Auth(), Customers: rc.Customers(), Tasks: rc.Tasks()}
	default:
		fx := fixture.New(fixture.Options{
			Latency:   cfg.Client.FixtureLatency,
			JWTSecret: cfg.JWTSecret,
		}, log)
		gw = Gateways{Auth: fx.Auth, Customers: fx.Customers, Tasks: fx.Tasks}
	}

	c := New(gw, tokens, log)
	c.closers = closers
	c.log.Debug().
		Str("backend", cfg.Client.Backend).
		Str("token_store", cfg.Client.TokenStore).
		Msg("client ready")
	return c, nil
}

// retries maps the configured count onto restclient's convention, where
// zero means "default" and a negative value disables retries.
func retries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func newTokenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.TokenStore, func() error, error) {
	switch cfg.Client.TokenStore {
	case config.TokenStoreFile:
		path := cfg.Client.TokenFile
		if path == "" {
			p, err := tokenstore.DefaultPath()
			if err != nil {
				return nil, nil, fmt.Errorf("token store: %w", err)
			}
			path = p
		}
		log.Debug().Str("path", path).Msg("using file token store")
		return tokenstore.NewFile(path), nil, nil
	case config.TokenStoreRedis:
		store, err := redis.Open(ctx, redis.Config{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
			Key:  cfg.Redis.TokenKey,
			TTL:  cfg.Redis.TokenTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("token store: %w", err)
		}
		log.Debug().Str("addr", cfg.Redis.Addr).Msg("using redis token store")
		return store, store.Close, nil
	default:
		return tokenstore.NewMemory(), nil, nil
	}
}

// Navigate resolves path against the route table for the current session.
func (c *Client) Navigate(path string) service.Navigation {
	return c.Routes.Navigate(c.Session.Current(), path)
}

// Refresh reloads every collection the signed-in user may see. Customers
// are ADMIN only, so a USER session refreshes tasks alone.
func (c *Client) Refresh(ctx context.Context) error {
	s := c.Session.Current()
	if !s.IsAuthenticated {
		return domain.ErrNotAuthenticated
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, service.ErrSuperseded) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}()
	}

	run("tasks", func(ctx context.Context) error {
		_, err := c.Tasks.FetchAll(ctx)
		return err
	})
	if service.Decide(s, domain.RoleAdmin) == domain.Allow {
		run("customers", func(ctx context.Context) error {
			_, err := c.Customers.FetchAll(ctx)
			return err
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Close releases the token store connection, if any.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	return closeAll(c.closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, fn := range closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
