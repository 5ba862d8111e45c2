package filter

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/brightsprout/storefront-api/internal/platform/debounce"
)

// DefaultDebounceWindow is how long a session waits after the last dispatch
// before mirroring the query string to its navigator.
const DefaultDebounceWindow = debounce.DefaultWindow

// Navigator receives the canonical query string after the debounce window
// elapses. The call is fire-and-forget: failures are the navigator's own
// concern and are never retried by the session.
type Navigator interface {
	Navigate(ctx context.Context, query url.Values)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context, query url.Values)

// Navigate implements Navigator.
func (fn NavigatorFunc) Navigate(ctx context.Context, query url.Values) {
	if fn != nil {
		fn(ctx, query)
	}
}

// Session owns one listing's filter state for its lifetime. Actions are
// applied synchronously in dispatch order; the serialized query string is
// mirrored to the navigator through a debouncer, so intermediate states
// inside the window are coalesced and only the latest survives.
type Session struct {
	mu       sync.Mutex
	state    State
	hydrated bool
	nav      Navigator
	deb      *debounce.Debouncer
	ctx      context.Context
	cancel   context.CancelFunc
}

// SessionOption customises session construction.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	window  time.Duration
	initial *State
}

// WithDebounceWindow overrides the navigation debounce window.
func WithDebounceWindow(window time.Duration) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.window = window
	}
}

// WithInitialState seeds the session with a non-default starting state.
func WithInitialState(s State) SessionOption {
	return func(cfg *sessionConfig) {
		state := s
		cfg.initial = &state
	}
}

// NewSession constructs a session around the navigator. A nil navigator is
// accepted; state management still works, only the mirroring is skipped.
func NewSession(nav Navigator, opts ...SessionOption) *Session {
	cfg := sessionConfig{window: debounce.DefaultWindow}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	state := NewState()
	if cfg.initial != nil {
		state = *cfg.initial
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		state:  state,
		nav:    nav,
		deb:    debounce.New(cfg.window),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Hydrate merges the parsed query string over the current state. Only the
// first call has any effect; a listing hydrates from the address bar
// exactly once.
func (s *Session) Hydrate(values url.Values) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return s.state
	}
	s.hydrated = true
	// Hydration reflects the address bar into state; it never writes a
	// query string back, so no sync is scheduled here.
	s.state = Reduce(s.state, InitFromURL{Patch: ParseQuery(values)})
	return s.state
}

// Dispatch applies the action and schedules the debounced URL mirror.
func (s *Session) Dispatch(action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	s.scheduleSyncLocked()
	return s.state
}

// State returns the current filter state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Query returns the canonical serialized form of the current state.
func (s *Session) Query() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return EncodeQuery(s.state)
}

// Flush forces a pending navigation to run immediately.
func (s *Session) Flush() {
	s.deb.Flush()
}

// Close cancels any pending navigation and releases the session. A closed
// session still serves State and Query but stops mirroring.
func (s *Session) Close() {
	s.deb.Stop()
	s.cancel()
}

func (s *Session) scheduleSyncLocked() {
	if s.nav == nil {
		return
	}
	snapshot := s.state
	s.deb.Trigger(func() {
		if s.ctx.Err() != nil {
			return
		}
		s.nav.Navigate(s.ctx, EncodeQuery(snapshot))
	})
}
