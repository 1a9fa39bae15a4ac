package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/metrics"
)

// StoreState is a copy of a domain store's contents.
// State == RequestFailed implies Error != "".
type StoreState[T any] struct {
	Items []T
	State domain.RequestState
	Error string
}

// store is the request-lifecycle core shared by CustomerStore and TaskStore.
// The mutex is never held across a remote call.
type store[T any] struct {
	name string
	idOf func(T) int64
	log  zerolog.Logger

	mu      sync.Mutex
	items   []T
	state   domain.RequestState
	errMsg  string
	seq     uint64                 // last dispatched fetch
	keep    func(T) bool           // membership rule of the last committed fetch
	pending map[string]struct{}    // in-flight mutations by key

	emitMu sync.Mutex
	subs   listeners[StoreState[T]]
}

func newStore[T any](name string, idOf func(T) int64, log zerolog.Logger) *store[T] {
	return &store[T]{
		name:    name,
		idOf:    idOf,
		log:     log.With().Str("store", name).Logger(),
		state:   domain.RequestIdle,
		pending: make(map[string]struct{}),
	}
}

// Snapshot returns a copy of the current items and request state.
func (s *store[T]) Snapshot() StoreState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive every committed store state.
func (s *store[T]) Subscribe(fn func(StoreState[T])) (cancel func()) {
	return s.subs.add(fn)
}

// Reset drops the cached items and supersedes any fetch still in flight.
func (s *store[T]) Reset() {
	s.mu.Lock()
	s.seq++
	s.items = nil
	s.keep = nil
	s.state = domain.RequestIdle
	s.errMsg = ""
	s.commitLocked()
}

// find returns the cached item with id.
func (s *store[T]) find(id int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if s.idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// fetch runs load as the newest fetch and commits its result unless a newer
// fetch has been dispatched in the meantime.
func (s *store[T]) fetch(ctx context.Context, keep func(T) bool, load func(context.Context) ([]T, error)) ([]T, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state = domain.RequestLoading
	s.errMsg = ""
	s.commitLocked()
	s.log.Debug().Uint64("request", seq).Msg("fetch dispatched")

	items, err := load(ctx)
	if err != nil {
		err = classify(err)
	}

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		metrics.StoreStaleResultsTotal.WithLabelValues(s.name).Inc()
		s.log.Debug().Uint64("request", seq).Uint64("latest", s.latest()).Msg("stale fetch result discarded")
		return nil, ErrSuperseded
	}
	if err != nil {
		s.state = domain.RequestFailed
		s.errMsg = err.Error()
		s.commitLocked()
		s.record("fetch", "failed")
		s.log.Warn().Err(err).Msg("fetch failed")
		return nil, err
	}
	s.items = append(make([]T, 0, len(items)), items...)
	s.keep = keep
	s.state = domain.RequestSucceeded
	s.commitLocked()
	s.record("fetch", "succeeded")

	return append([]T(nil), items...), nil
}

// mutate runs call as a single user-triggered action keyed by key; a second
// call with the same key while the first is in flight fails with
// domain.ErrRequestPending and leaves the state alone. On success apply
// receives the current items and returns the new ones.
func (s *store[T]) mutate(ctx context.Context, op, key string, call func(context.Context) error, apply func([]T) []T) error {
	s.mu.Lock()
	if _, busy := s.pending[key]; busy {
		s.mu.Unlock()
		s.record(op, "rejected")
		return fmt.Errorf("%s %s: %w", s.name, op, domain.ErrRequestPending)
	}
	s.pending[key] = struct{}{}
	s.state = domain.RequestLoading
	s.errMsg = ""
	s.commitLocked()

	err := call(ctx)
	if err != nil {
		err = classify(err)
	}

	s.mu.Lock()
	delete(s.pending, key)
	if err != nil {
		s.state = domain.RequestFailed
		s.errMsg = err.Error()
		s.commitLocked()
		s.record(op, "failed")
		s.log.Warn().Err(err).Str("op", op).Str("key", key).Msg("operation failed")
		return err
	}
	s.items = apply(s.items)
	s.state = domain.RequestSucceeded
	s.commitLocked()
	s.record(op, "succeeded")
	return nil
}

// reject records a failure detected before any remote call, such as a
// payload that does not validate.
func (s *store[T]) reject(op string, err error) error {
	s.mu.Lock()
	s.state = domain.RequestFailed
	s.errMsg = err.Error()
	s.commitLocked()
	s.record(op, "rejected")
	return err
}

// replace swaps the element with item's id for item. When the id is not
// cached the item is added only if it belongs to the current listing; the
// remote stays authoritative either way.
func (s *store[T]) replace(items []T, item T) []T {
	id := s.idOf(item)
	out := append(make([]T, 0, len(items)+1), items...)
	for i := range out {
		if s.idOf(out[i]) == id {
			out[i] = item
			return out
		}
	}
	if s.keep != nil && !s.keep(item) {
		s.log.Warn().Int64("id", id).Msg("updated record is outside the current listing; not cached")
		return out
	}
	s.log.Warn().Int64("id", id).Msg("updated record was not cached; inserting remote copy")
	return append(out, item)
}

func (s *store[T]) remove(items []T, id int64) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if s.idOf(it) != id {
			out = append(out, it)
		}
	}
	return out
}

// commitLocked publishes the current state to subscribers and releases
// s.mu. Emission order follows commit order.
func (s *store[T]) commitLocked() {
	snap := s.snapshotLocked()
	s.emitMu.Lock()
	s.mu.Unlock()
	s.subs.emit(snap)
	s.emitMu.Unlock()
}

func (s *store[T]) snapshotLocked() StoreState[T] {
	return StoreState[T]{
		Items: append([]T(nil), s.items...),
		State: s.state,
		Error: s.errMsg,
	}
}

func (s *store[T]) latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *store[T]) record(op, result string) {
	metrics.StoreRequestsTotal.WithLabelValues(s.name, op, result).Inc()
}

// classify keeps errors that already belong to the store taxonomy and files
// everything else under domain.ErrUnavailable.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidationFailed),
		errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrRequestPending),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
}
