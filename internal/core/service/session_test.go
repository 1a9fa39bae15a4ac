package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

var regularUser = domain.User{ID: "u-2", Email: "user@etiya.com", DisplayName: "User", Role: domain.RoleUser}

// credentialGateway accepts admin/admin123 and user/user123.
func credentialGateway() *stubAuthGateway {
	accounts := map[string]struct {
		password string
		user     domain.User
	}{
		"admin@etiya.com": {"admin123", testUser},
		"user@etiya.com":  {"user123", regularUser},
	}
	return &stubAuthGateway{
		loginFn: func(_ context.Context, email, password string) (*ports.AuthResult, error) {
			acc, ok := accounts[email]
			if !ok || acc.password != password {
				return nil, domain.ErrInvalidCredentials
			}
			return &ports.AuthResult{Token: "token-" + acc.user.ID, User: acc.user}, nil
		},
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if _, exists := accounts[in.Email]; exists {
				return nil, domain.ErrUserExists
			}
			u := domain.User{ID: "u-new", Email: in.Email, DisplayName: in.DisplayName, Role: domain.RoleUser}
			return &ports.AuthResult{Token: "token-u-new", User: u}, nil
		},
		currentUserFn: func(_ context.Context, token string) (*domain.User, error) {
			for _, acc := range accounts {
				if token == "token-"+acc.user.ID {
					u := acc.user
					return &u, nil
				}
			}
			return nil, domain.ErrUnauthorized
		},
		changePasswordFn: func(_ context.Context, _, current, _ string) error {
			if current != "admin123" {
				return domain.ErrInvalidCredentials
			}
			return nil
		},
	}
}

// recordSessions collects every emitted state and fails the test on any
// state where authentication and user presence disagree.
func recordSessions(t *testing.T, s *Session) *[]domain.Session {
	t.Helper()
	var (
		mu  sync.Mutex
		out []domain.Session
	)
	s.Subscribe(func(st domain.Session) {
		if st.IsAuthenticated != (st.User != nil) {
			t.Errorf("inconsistent session emitted: %+v", st)
		}
		mu.Lock()
		out = append(out, st)
		mu.Unlock()
	})
	return &out
}

func TestSession_Login_Admin(t *testing.T) {
	tokens := &stubTokenStore{}
	s := NewSession(credentialGateway(), tokens, zerolog.Nop())
	states := recordSessions(t, s)

	u, err := s.Login(context.Background(), "admin@etiya.com", "admin123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if u.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", u.Role)
	}

	cur := s.Current()
	if !cur.IsAuthenticated || cur.User == nil || cur.User.Role != domain.RoleAdmin || cur.Pending || cur.LastError != "" {
		t.Fatalf("unexpected session: %+v", cur)
	}
	if tokens.current() != "token-u-1" {
		t.Fatalf("expected token to be persisted, got %q", tokens.current())
	}
	if s.Token() != "token-u-1" {
		t.Fatalf("unexpected session token %q", s.Token())
	}
	if len(*states) != 2 || !(*states)[0].Pending || (*states)[1].Pending {
		t.Fatalf("expected pending then settled states, got %+v", *states)
	}
}

func TestSession_Login_WrongPasswordKeepsSession(t *testing.T) {
	s := NewSession(credentialGateway(), &stubTokenStore{}, zerolog.Nop())
	ctx := context.Background()
	if _, err := s.Login(ctx, "user@etiya.com", "user123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	_, err := s.Login(ctx, "admin@etiya.com", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	cur := s.Current()
	if !cur.IsAuthenticated || cur.User.ID != regularUser.ID {
		t.Fatalf("failed login must not change the signed-in user: %+v", cur)
	}
	if cur.Pending || cur.LastError == "" {
		t.Fatalf("expected settled state with an error, got %+v", cur)
	}
}

func TestSession_Login_FromLoggedOut(t *testing.T) {
	s := NewSession(credentialGateway(), &stubTokenStore{}, zerolog.Nop())

	if _, err := s.Login(context.Background(), "nobody@etiya.com", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	cur := s.Current()
	if cur.IsAuthenticated || cur.User != nil || cur.LastError == "" {
		t.Fatalf("unexpected session: %+v", cur)
	}
}

func TestSession_Login_TransportFailureIsUnavailable(t *testing.T) {
	gw := credentialGateway()
	gw.loginFn = func(context.Context, string, string) (*ports.AuthResult, error) {
		return nil, errors.New("connection refused")
	}
	s := NewSession(gw, &stubTokenStore{}, zerolog.Nop())

	if _, err := s.Login(context.Background(), "admin@etiya.com", "admin123"); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSession_Login_SupersededAttempt(t *testing.T) {
	gw := credentialGateway()
	inner := gw.loginFn
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.loginFn = func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
		if email == "user@etiya.com" {
			close(entered)
			<-release
		}
		return inner(ctx, email, password)
	}
	s := NewSession(gw, &stubTokenStore{}, zerolog.Nop())
	recordSessions(t, s)

	slow := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "user@etiya.com", "user123")
		slow <- err
	}()
	<-entered

	if _, err := s.Login(context.Background(), "admin@etiya.com", "admin123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	close(release)

	if err := <-slow; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if cur := s.Current(); cur.User == nil || cur.User.ID != testUser.ID {
		t.Fatalf("latest attempt must win, got %+v", cur)
	}
}

func TestSession_LogoutDuringLogin(t *testing.T) {
	gw := credentialGateway()
	inner := gw.loginFn
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.loginFn = func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
		close(entered)
		<-release
		return inner(ctx, email, password)
	}
	s := NewSession(gw, &stubTokenStore{}, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "admin@etiya.com", "admin123")
		done <- err
	}()
	<-entered
	s.Logout(context.Background())
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if cur := s.Current(); cur != (domain.Session{}) {
		t.Fatalf("expected logged-out session, got %+v", cur)
	}
}

func TestSession_Logout_Idempotent(t *testing.T) {
	gw := credentialGateway()
	tokens := &stubTokenStore{}
	s := NewSession(gw, tokens, zerolog.Nop())
	ctx := context.Background()
	if _, err := s.Login(ctx, "admin@etiya.com", "admin123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	states := recordSessions(t, s)

	s.Logout(ctx)
	first := s.Current()
	s.Logout(ctx)
	second := s.Current()

	if first != (domain.Session{}) || second != first {
		t.Fatalf("expected identical logged-out states, got %+v and %+v", first, second)
	}
	if len(*states) != 1 {
		t.Fatalf("second logout must not emit, got %d emissions", len(*states))
	}
	if tokens.current() != "" || s.Token() != "" {
		t.Fatalf("expected token to be cleared")
	}
	if len(gw.logouts) != 1 || gw.logouts[0] != "token-u-1" {
		t.Fatalf("expected one remote logout, got %v", gw.logouts)
	}
}

func TestSession_Register(t *testing.T) {
	tokens := &stubTokenStore{}
	s := NewSession(credentialGateway(), tokens, zerolog.Nop())

	u, err := s.Register(context.Background(), "new@etiya.com", "secret1", "New")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if u.Role != domain.RoleUser || !s.Current().IsAuthenticated {
		t.Fatalf("expected signed-in USER, got %+v", s.Current())
	}
	if tokens.current() != "token-u-new" {
		t.Fatalf("expected token to be persisted")
	}

	if _, err := s.Register(context.Background(), "admin@etiya.com", "secret1", "Dup"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestSession_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		s := NewSession(credentialGateway(), &stubTokenStore{token: "token-u-2"}, zerolog.Nop())
		u, err := s.Restore(ctx)
		if err != nil {
			t.Fatalf("Restore returned error: %v", err)
		}
		if u.ID != regularUser.ID || s.Token() != "token-u-2" || !s.Current().IsAuthenticated {
			t.Fatalf("unexpected restored session: %+v", s.Current())
		}
	})

	t.Run("no token", func(t *testing.T) {
		s := NewSession(credentialGateway(), &stubTokenStore{}, zerolog.Nop())
		if _, err := s.Restore(ctx); !errors.Is(err, domain.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("rejected token is cleared", func(t *testing.T) {
		tokens := &stubTokenStore{token: "stale"}
		s := NewSession(credentialGateway(), tokens, zerolog.Nop())
		if _, err := s.Restore(ctx); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if tokens.current() != "" {
			t.Fatalf("expected rejected token to be cleared")
		}
		if s.Current().IsAuthenticated {
			t.Fatalf("expected logged-out session")
		}
	})

	t.Run("unavailable keeps token", func(t *testing.T) {
		gw := credentialGateway()
		gw.currentUserFn = func(context.Context, string) (*domain.User, error) {
			return nil, domain.ErrUnavailable
		}
		tokens := &stubTokenStore{token: "token-u-1"}
		s := NewSession(gw, tokens, zerolog.Nop())
		if _, err := s.Restore(ctx); !errors.Is(err, domain.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if tokens.current() != "token-u-1" {
			t.Fatalf("token must survive an unavailable collaborator")
		}
	})
}

func TestSession_ChangePassword(t *testing.T) {
	s := NewSession(credentialGateway(), &stubTokenStore{}, zerolog.Nop())
	ctx := context.Background()

	if err := s.ChangePassword(ctx, "admin123", "newpass1"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	if _, err := s.Login(ctx, "admin@etiya.com", "admin123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	before := s.Current()
	if err := s.ChangePassword(ctx, "wrong", "newpass1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := s.ChangePassword(ctx, "admin123", "newpass1"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	after := s.Current()
	if after.IsAuthenticated != before.IsAuthenticated || *after.User != *before.User || after.LastError != "" {
		t.Fatalf("ChangePassword must not modify the session: %+v", after)
	}
}

// gatedTokenStore blocks Save until release is closed.
type gatedTokenStore struct {
	stubTokenStore
	saving  chan struct{}
	release chan struct{}
}

func (g *gatedTokenStore) Save(ctx context.Context, token string) error {
	close(g.saving)
	<-g.release
	return g.stubTokenStore.Save(ctx, token)
}

func TestSession_LogoutWhileTokenIsBeingSaved(t *testing.T) {
	tokens := &gatedTokenStore{saving: make(chan struct{}), release: make(chan struct{})}
	s := NewSession(credentialGateway(), tokens, zerolog.Nop())
	ctx := context.Background()

	loggedIn := make(chan error, 1)
	go func() {
		_, err := s.Login(ctx, "admin@etiya.com", "admin123")
		loggedIn <- err
	}()
	<-tokens.saving

	loggedOut := make(chan struct{})
	signedOut := make(chan struct{}, 1)
	s.Subscribe(func(st domain.Session) {
		if !st.IsAuthenticated && !st.Pending {
			select {
			case signedOut <- struct{}{}:
			default:
			}
		}
	})
	go func() {
		s.Logout(ctx)
		close(loggedOut)
	}()
	<-signedOut
	close(tokens.release)

	if err := <-loggedIn; err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	<-loggedOut

	if s.Current().IsAuthenticated {
		t.Fatalf("expected logged-out session")
	}
	if tok := tokens.current(); tok != "" {
		t.Fatalf("token must not survive logout, got %q", tok)
	}
}

func TestSession_RejectedRestoreKeepsNewerToken(t *testing.T) {
	gw := credentialGateway()
	inner := gw.currentUserFn
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.currentUserFn = func(ctx context.Context, token string) (*domain.User, error) {
		if token == "stale" {
			close(entered)
			<-release
		}
		return inner(ctx, token)
	}
	tokens := &stubTokenStore{token: "stale"}
	s := NewSession(gw, tokens, zerolog.Nop())
	ctx := context.Background()

	restored := make(chan error, 1)
	go func() {
		_, err := s.Restore(ctx)
		restored <- err
	}()
	<-entered

	if _, err := s.Login(ctx, "admin@etiya.com", "admin123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	close(release)

	if err := <-restored; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if tok := tokens.current(); tok != "token-u-1" {
		t.Fatalf("stale restore must not clear the newer token, got %q", tok)
	}
	if !s.Current().IsAuthenticated {
		t.Fatalf("expected the newer login to stand")
	}
}
