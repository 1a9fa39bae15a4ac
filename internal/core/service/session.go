package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/metrics"
)

// ErrSuperseded is returned to a caller whose result was dropped because a
// newer request on the same owner was dispatched before it resolved.
var ErrSuperseded = errors.New("superseded by a newer request")

// Session holds the client's authentication state. It is the only writer of
// that state; callers observe it through Current and Subscribe.
type Session struct {
	gateway ports.AuthGateway
	tokens  ports.TokenStore
	log     zerolog.Logger

	mu    sync.Mutex
	state domain.Session
	token string
	seq   uint64

	emitMu sync.Mutex
	subs   listeners[domain.Session]

	// persistMu orders token store writes; persisted is the dispatch number
	// of the last write, and older attempts never overwrite a newer one.
	persistMu sync.Mutex
	persisted uint64
}

func NewSession(gateway ports.AuthGateway, tokens ports.TokenStore, log zerolog.Logger) *Session {
	return &Session{
		gateway: gateway,
		tokens:  tokens,
		log:     log.With().Str("component", "session").Logger(),
	}
}

// Current returns a copy of the session state.
func (s *Session) Current() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the credential token of the authenticated user, or "".
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe registers fn to receive every committed session state.
func (s *Session) Subscribe(fn func(domain.Session)) (cancel func()) {
	return s.subs.add(fn)
}

// Login authenticates with email and password. On failure only LastError
// changes; an already authenticated session stays authenticated.
func (s *Session) Login(ctx context.Context, email, password string) (*domain.User, error) {
	seq := s.begin()
	res, err := s.gateway.Login(ctx, email, password)
	return s.finishAuth(ctx, "login", seq, res, err)
}

// Register creates an account and signs it in.
func (s *Session) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	seq := s.begin()
	res, err := s.gateway.Register(ctx, ports.RegisterInput{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	return s.finishAuth(ctx, "register", seq, res, err)
}

// Restore resumes a session from a persisted token. A token the collaborator
// rejects is cleared; a token that could not be checked is kept for a later
// attempt.
func (s *Session) Restore(ctx context.Context) (*domain.User, error) {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore: load token: %w", err)
	}
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	seq := s.begin()
	user, err := s.gateway.CurrentUser(ctx, token)
	if err != nil {
		err = classifyAuth(err)
		if !errors.Is(err, domain.ErrUnavailable) {
			s.persist(ctx, seq, "")
		}
		return nil, s.fail("restore", seq, err)
	}
	return s.succeed("restore", seq, token, *user)
}

// Logout clears the session and the persisted token. Calling it on a
// logged-out session leaves the state untouched.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	token := s.token
	changed := s.state != (domain.Session{}) || token != ""
	s.state = domain.Session{}
	s.token = ""
	snap := s.snapshotLocked()
	s.emitMu.Lock()
	s.mu.Unlock()
	if changed {
		s.subs.emit(snap)
	}
	s.emitMu.Unlock()

	s.persist(ctx, seq, "")
	if token != "" {
		if err := s.gateway.Logout(ctx, token); err != nil {
			s.log.Warn().Err(err).Msg("remote logout failed")
		}
		s.log.Info().Msg("logged out")
	}
}

// ChangePassword replaces the signed-in user's password. Session state is
// not modified.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	token := s.Token()
	if token == "" {
		return domain.ErrNotAuthenticated
	}
	if err := s.gateway.ChangePassword(ctx, token, current, next); err != nil {
		return classifyAuth(err)
	}
	return nil
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state.Pending = true
	s.state.LastError = ""
	snap := s.snapshotLocked()
	s.emitMu.Lock()
	s.mu.Unlock()
	s.subs.emit(snap)
	s.emitMu.Unlock()
	return seq
}

func (s *Session) finishAuth(ctx context.Context, op string, seq uint64, res *ports.AuthResult, err error) (*domain.User, error) {
	if err != nil {
		return nil, s.fail(op, seq, classifyAuth(err))
	}
	user, err := s.succeed(op, seq, res.Token, res.User)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, seq, res.Token)
	return user, nil
}

// persist saves token, or clears the store when token is "", on behalf of
// dispatch seq. A write from an attempt older than the last write is
// dropped, so a Logout is never undone by a slower login's save.
func (s *Session) persist(ctx context.Context, seq uint64, token string) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if seq < s.persisted {
		s.log.Debug().Uint64("request", seq).Uint64("latest", s.persisted).Msg("stale token write dropped")
		return
	}
	s.persisted = seq

	if token == "" {
		if err := s.tokens.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear persisted token")
		}
		return
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist token")
	}
}

func (s *Session) succeed(op string, seq uint64, token string, u domain.User) (*domain.User, error) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		metrics.AuthAttemptsTotal.WithLabelValues(op, "superseded").Inc()
		return nil, ErrSuperseded
	}
	user := u
	s.state = domain.Session{IsAuthenticated: true, User: &user}
	s.token = token
	snap := s.snapshotLocked()
	s.emitMu.Lock()
	s.mu.Unlock()
	s.subs.emit(snap)
	s.emitMu.Unlock()

	metrics.AuthAttemptsTotal.WithLabelValues(op, "succeeded").Inc()
	s.log.Info().Str("op", op).Str("user_id", u.ID).Str("role", string(u.Role)).Msg("authenticated")
	out := u
	return &out, nil
}

func (s *Session) fail(op string, seq uint64, err error) error {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		metrics.AuthAttemptsTotal.WithLabelValues(op, "superseded").Inc()
		return ErrSuperseded
	}
	s.state.Pending = false
	s.state.LastError = err.Error()
	snap := s.snapshotLocked()
	s.emitMu.Lock()
	s.mu.Unlock()
	s.subs.emit(snap)
	s.emitMu.Unlock()

	metrics.AuthAttemptsTotal.WithLabelValues(op, authResult(err)).Inc()
	s.log.Warn().Err(err).Str("op", op).Msg("authentication failed")
	return err
}

func (s *Session) snapshotLocked() domain.Session {
	snap := s.state
	if s.state.User != nil {
		u := *s.state.User
		snap.User = &u
	}
	return snap
}

// classifyAuth narrows collaborator errors to the auth taxonomy; anything
// that is not a rejection of the request itself is ErrUnavailable.
func classifyAuth(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrValidationFailed),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNotAuthenticated),
		errors.Is(err, domain.ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
}

func authResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	default:
		return "rejected"
	}
}
