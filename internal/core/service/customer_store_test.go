package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

func seedCustomers() []domain.Customer {
	return []domain.Customer{
		{ID: 1, Name: "Acme", Email: "info@acme.com", Phone: "5550001", IsActive: true},
		{ID: 2, Name: "Globex", Email: "hello@globex.com", Phone: "5550002", IsActive: true},
		{ID: 3, Name: "Initech", Email: "contact@initech.com", Phone: "5550003"},
	}
}

func listCustomers(items []domain.Customer) func(context.Context) ([]domain.Customer, error) {
	return func(context.Context) ([]domain.Customer, error) {
		return append([]domain.Customer(nil), items...), nil
	}
}

func TestCustomerStore_FetchAllReplaces(t *testing.T) {
	gw := &stubCustomerGateway{listFn: listCustomers(seedCustomers())}
	s := NewCustomerStore(gw, zerolog.Nop())

	if _, err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	gw.listFn = listCustomers(seedCustomers()[:1])
	if _, err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != 1 {
		t.Fatalf("expected the second listing to replace the first, got %+v", snap.Items)
	}
	if snap.State != domain.RequestSucceeded || snap.Error != "" {
		t.Fatalf("unexpected state %s %q", snap.State, snap.Error)
	}
}

func TestCustomerStore_StaleFetchDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	gw := &stubCustomerGateway{
		listFn: func(context.Context) ([]domain.Customer, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(entered)
				<-release
				return seedCustomers(), nil
			}
			return seedCustomers()[2:], nil
		},
	}
	s := NewCustomerStore(gw, zerolog.Nop())

	slow := make(chan error, 1)
	go func() {
		_, err := s.FetchAll(context.Background())
		slow <- err
	}()
	<-entered

	if _, err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	close(release)

	if err := <-slow; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != 3 {
		t.Fatalf("stale listing must not overwrite the newer one, got %+v", snap.Items)
	}
}

func TestCustomerStore_FetchFailure(t *testing.T) {
	gw := &stubCustomerGateway{listFn: func(context.Context) ([]domain.Customer, error) {
		return nil, errors.New("boom")
	}}
	s := NewCustomerStore(gw, zerolog.Nop())

	if _, err := s.FetchAll(context.Background()); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	snap := s.Snapshot()
	if snap.State != domain.RequestFailed || snap.Error == "" {
		t.Fatalf("failed state must carry an error, got %s %q", snap.State, snap.Error)
	}
}

func TestCustomerStore_CreateAppendsServerRecord(t *testing.T) {
	gw := &stubCustomerGateway{
		listFn: listCustomers(seedCustomers()),
		createFn: func(_ context.Context, in ports.CustomerInput) (*domain.Customer, error) {
			return &domain.Customer{ID: 4, Name: in.Name, Email: in.Email, Phone: in.Phone, IsActive: true}, nil
		},
	}
	s := NewCustomerStore(gw, zerolog.Nop())
	ctx := context.Background()
	if _, err := s.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}

	created, err := s.Create(ctx, ports.CustomerInput{Name: "Umbrella", Email: "corp@umbrella.com", Phone: "5550004"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 4 {
		t.Fatalf("expected server id 4, got %d", created.ID)
	}

	items := s.Snapshot().Items
	if len(items) != 4 || items[3].ID != 4 {
		t.Fatalf("expected created record appended, got %+v", items)
	}
	if s.ActiveCount() != 3 {
		t.Fatalf("expected 3 active customers, got %d", s.ActiveCount())
	}
}

func TestCustomerStore_CreateValidationSkipsRemote(t *testing.T) {
	var called bool
	gw := &stubCustomerGateway{createFn: func(context.Context, ports.CustomerInput) (*domain.Customer, error) {
		called = true
		return nil, nil
	}}
	s := NewCustomerStore(gw, zerolog.Nop())

	_, err := s.Create(context.Background(), ports.CustomerInput{Name: "A", Email: "nope"})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if called {
		t.Fatalf("invalid payload must not reach the gateway")
	}
	if snap := s.Snapshot(); snap.State != domain.RequestFailed || snap.Error == "" {
		t.Fatalf("expected failed state, got %s %q", snap.State, snap.Error)
	}
}

func TestCustomerStore_DeleteMissing(t *testing.T) {
	gw := &stubCustomerGateway{
		listFn: listCustomers(seedCustomers()),
		deleteFn: func(context.Context, int64) error {
			return domain.ErrNotFound
		},
	}
	s := NewCustomerStore(gw, zerolog.Nop())
	ctx := context.Background()
	if _, err := s.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}

	if err := s.Delete(ctx, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Items) != 3 {
		t.Fatalf("items must be unchanged, got %d", len(snap.Items))
	}
	if snap.State != domain.RequestFailed || snap.Error == "" {
		t.Fatalf("expected failed state, got %s %q", snap.State, snap.Error)
	}
}

func TestCustomerStore_Delete(t *testing.T) {
	gw := &stubCustomerGateway{
		listFn:   listCustomers(seedCustomers()),
		deleteFn: func(context.Context, int64) error { return nil },
	}
	s := NewCustomerStore(gw, zerolog.Nop())
	ctx := context.Background()
	_, _ = s.FetchAll(ctx)

	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	for _, c := range s.Snapshot().Items {
		if c.ID == 2 {
			t.Fatalf("deleted customer still cached")
		}
	}
}

func TestCustomerStore_DoubleSubmit(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	gw := &stubCustomerGateway{
		listFn: listCustomers(seedCustomers()),
		deleteFn: func(context.Context, int64) error {
			atomic.AddInt32(&calls, 1)
			close(entered)
			<-release
			return nil
		},
	}
	s := NewCustomerStore(gw, zerolog.Nop())
	ctx := context.Background()
	_, _ = s.FetchAll(ctx)

	first := make(chan error, 1)
	go func() { first <- s.Delete(ctx, 1) }()
	<-entered

	if err := s.Delete(ctx, 1); !errors.Is(err, domain.ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}
	if snap := s.Snapshot(); snap.State != domain.RequestLoading {
		t.Fatalf("rejected resubmit must not change the state, got %s", snap.State)
	}
	close(release)

	if err := <-first; err != nil {
		t.Fatalf("first Delete returned error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one remote call, got %d", n)
	}
}

func TestCustomerStore_UpdateReplacesCachedRecord(t *testing.T) {
	gw := &stubCustomerGateway{
		listFn: listCustomers(seedCustomers()),
		updateFn: func(_ context.Context, id int64, in ports.CustomerUpdate) (*domain.Customer, error) {
			c := seedCustomers()[id-1]
			in.Apply(&c)
			return &c, nil
		},
	}
	s := NewCustomerStore(gw, zerolog.Nop())
	ctx := context.Background()
	_, _ = s.FetchAll(ctx)

	inactive := false
	if _, err := s.Update(ctx, 1, ports.CustomerUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	items := s.Snapshot().Items
	if items[0].IsActive || items[0].Name != "Acme" {
		t.Fatalf("expected customer 1 deactivated in place, got %+v", items[0])
	}
	if !items[1].IsActive {
		t.Fatalf("other customers must be untouched")
	}

	bad := "x"
	if _, err := s.Update(ctx, 1, ports.CustomerUpdate{Name: &bad}); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestCustomerStore_SubscribeOrder(t *testing.T) {
	gw := &stubCustomerGateway{listFn: listCustomers(seedCustomers())}
	s := NewCustomerStore(gw, zerolog.Nop())

	var states []domain.RequestState
	cancel := s.Subscribe(func(st StoreState[domain.Customer]) {
		states = append(states, st.State)
	})
	_, _ = s.FetchAll(context.Background())
	cancel()
	_, _ = s.FetchAll(context.Background())

	if len(states) != 2 || states[0] != domain.RequestLoading || states[1] != domain.RequestSucceeded {
		t.Fatalf("expected loading then succeeded, got %v", states)
	}
}

func TestCustomerStore_Reset(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &stubCustomerGateway{listFn: func(context.Context) ([]domain.Customer, error) {
		close(entered)
		<-release
		return seedCustomers(), nil
	}}
	s := NewCustomerStore(gw, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := s.FetchAll(context.Background())
		done <- err
	}()
	<-entered
	s.Reset()
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected in-flight fetch to be superseded, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Items) != 0 || snap.State != domain.RequestIdle {
		t.Fatalf("expected empty idle store, got %+v", snap)
	}
}
