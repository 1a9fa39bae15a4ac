package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/infrastructure/config"
	"github.com/etiya/crm-client/internal/infrastructure/fixture"
	"github.com/etiya/crm-client/internal/infrastructure/tokenstore"
)

func newFixtureClient(t *testing.T) *Client {
	t.Helper()
	fx := fixture.New(fixture.Options{JWTSecret: "test-secret"}, zerolog.Nop())
	c := New(Gateways{Auth: fx.Auth, Customers: fx.Customers, Tasks: fx.Tasks}, tokenstore.NewMemory(), zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_RefreshRequiresSession(t *testing.T) {
	c := newFixtureClient(t)
	if err := c.Refresh(context.Background()); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestClient_AdminRefreshLoadsEverything(t *testing.T) {
	c := newFixtureClient(t)
	ctx := context.Background()

	if _, err := c.Session.Login(ctx, fixture.AdminEmail, fixture.AdminPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	customers := c.Customers.Snapshot()
	if customers.State != domain.RequestSucceeded || len(customers.Items) != 3 {
		t.Fatalf("unexpected customers state: %+v", customers)
	}
	tasks := c.Tasks.Snapshot()
	if tasks.State != domain.RequestSucceeded || len(tasks.Items) != 3 {
		t.Fatalf("unexpected tasks state: %+v", tasks)
	}
	if nav := c.Navigate("/customers"); nav.Decision != domain.Allow {
		t.Fatalf("expected Allow, got %v", nav.Decision)
	}
}

func TestClient_UserRefreshSkipsCustomers(t *testing.T) {
	c := newFixtureClient(t)
	ctx := context.Background()

	if _, err := c.Session.Login(ctx, fixture.UserEmail, fixture.UserPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if st := c.Customers.Snapshot().State; st != domain.RequestIdle {
		t.Fatalf("expected customers idle, got %s", st)
	}
	if st := c.Tasks.Snapshot().State; st != domain.RequestSucceeded {
		t.Fatalf("expected tasks succeeded, got %s", st)
	}
	nav := c.Navigate("/customers")
	if nav.Decision != domain.RedirectUnauthorized || nav.Path != domain.UnauthorizedPath {
		t.Fatalf("expected redirect to %s, got %+v", domain.UnauthorizedPath, nav)
	}
}

func TestClient_LogoutResetsStores(t *testing.T) {
	c := newFixtureClient(t)
	ctx := context.Background()

	if _, err := c.Session.Login(ctx, fixture.AdminEmail, fixture.AdminPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	c.Session.Logout(ctx)

	if snap := c.Customers.Snapshot(); snap.State != domain.RequestIdle || len(snap.Items) != 0 {
		t.Fatalf("expected empty idle customers, got %+v", snap)
	}
	if snap := c.Tasks.Snapshot(); snap.State != domain.RequestIdle || len(snap.Items) != 0 {
		t.Fatalf("expected empty idle tasks, got %+v", snap)
	}
	if nav := c.Navigate("/tasks"); nav.Decision != domain.RedirectLogin {
		t.Fatalf("expected RedirectLogin, got %v", nav.Decision)
	}
}

func TestClient_FailedLoginKeepsStores(t *testing.T) {
	c := newFixtureClient(t)
	ctx := context.Background()

	if _, err := c.Session.Login(ctx, fixture.AdminEmail, fixture.AdminPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := c.Session.Login(ctx, fixture.AdminEmail, "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if n := len(c.Tasks.Snapshot().Items); n != 3 {
		t.Fatalf("expected tasks kept, got %d", n)
	}
}

func TestFromConfig_FileTokenSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.LoadFrom(ctx, map[string]string{
		"TOKEN_STORE": "file",
		"TOKEN_FILE":  filepath.Join(t.TempDir(), "token"),
		"JWT_SECRET":  "restart-secret",
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	first, err := FromConfig(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("first client: %v", err)
	}
	if _, err := first.Session.Login(ctx, fixture.UserEmail, fixture.UserPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	_ = first.Close()

	second, err := FromConfig(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	defer second.Close()

	u, err := second.Session.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if u.Email != fixture.UserEmail || !second.Session.Current().IsAuthenticated {
		t.Fatalf("unexpected restored session: %+v", second.Session.Current())
	}
}

func TestFromConfig_HTTPBackendRequiresValidURL(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.LoadFrom(ctx, map[string]string{
		"CRM_BACKEND": "http",
		"CRM_API_URL": "::not-a-url",
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if _, err := FromConfig(ctx, cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid api url")
	}
}
