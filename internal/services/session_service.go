package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/brightsprout/storefront-api/internal/filter"
)

var (
	// ErrSessionNotFound indicates the session id is unknown or expired.
	ErrSessionNotFound = errors.New("filter_session: not found")
	// ErrSessionInvalidInput indicates the caller provided invalid data.
	ErrSessionInvalidInput = errors.New("filter_session: invalid input")

	errSessionClockRequired = errors.New("filter_session: clock is required")
)

const (
	// DefaultSessionTTL is how long an idle session survives before the
	// sweeper may drop it.
	DefaultSessionTTL = 30 * time.Minute

	sessionIDPrefix = "fs_"
)

// FilterSessionServiceDeps wires dependencies for the session service.
type FilterSessionServiceDeps struct {
	Clock          func() time.Time
	IDGenerator    func() string
	Logger         *zap.Logger
	TTL            time.Duration
	DebounceWindow time.Duration
	// Navigator receives the debounced canonical query for each session.
	// When nil, query updates are logged instead.
	Navigator filter.Navigator
}

type sessionRecord struct {
	session   *filter.Session
	createdAt time.Time
	updatedAt time.Time
}

type filterSessionService struct {
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
	ttl    time.Duration
	window time.Duration
	nav    filter.Navigator

	mu       sync.Mutex
	sessions map[string]*sessionRecord
}

// NewFilterSessionService constructs a FilterSessionService with the provided dependencies.
func NewFilterSessionService(deps FilterSessionServiceDeps) (FilterSessionService, error) {
	clock := deps.Clock
	if clock == nil {
		return nil, errSessionClockRequired
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ttl := deps.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	window := deps.DebounceWindow
	if window <= 0 {
		window = filter.DefaultDebounceWindow
	}

	svc := &filterSessionService{
		now:      func() time.Time { return clock().UTC() },
		newID:    func() string { return sessionIDPrefix + strings.ToLower(idGen()) },
		logger:   logger,
		ttl:      ttl,
		window:   window,
		nav:      deps.Navigator,
		sessions: make(map[string]*sessionRecord),
	}
	if svc.nav == nil {
		svc.nav = filter.NavigatorFunc(svc.logNavigation)
	}
	return svc, nil
}

func (s *filterSessionService) CreateSession(ctx context.Context, query url.Values) (FilterSessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return FilterSessionSnapshot{}, err
	}

	id := s.newID()
	session := filter.NewSession(s.nav, filter.WithDebounceWindow(s.window))
	if len(query) > 0 {
		session.Hydrate(query)
	}

	now := s.now()
	record := &sessionRecord{
		session:   session,
		createdAt: now,
		updatedAt: now,
	}

	s.mu.Lock()
	s.sessions[id] = record
	s.mu.Unlock()

	s.logger.Debug("filter session created", zap.String("session_id", id))
	return s.snapshot(id, record), nil
}

func (s *filterSessionService) GetSession(ctx context.Context, sessionID string) (FilterSessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return FilterSessionSnapshot{}, err
	}
	record, err := s.lookup(sessionID)
	if err != nil {
		return FilterSessionSnapshot{}, err
	}
	return s.snapshot(sessionID, record), nil
}

func (s *filterSessionService) ApplyActions(ctx context.Context, sessionID string, actions []filter.Action) (FilterSessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return FilterSessionSnapshot{}, err
	}
	if len(actions) == 0 {
		return FilterSessionSnapshot{}, ErrSessionInvalidInput
	}

	record, err := s.lookup(sessionID)
	if err != nil {
		return FilterSessionSnapshot{}, err
	}

	for _, action := range actions {
		if action == nil {
			return FilterSessionSnapshot{}, ErrSessionInvalidInput
		}
		record.session.Dispatch(action)
	}

	s.mu.Lock()
	record.updatedAt = s.now()
	s.mu.Unlock()

	return s.snapshot(sessionID, record), nil
}

func (s *filterSessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	record, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	record.session.Close()
	s.logger.Debug("filter session deleted", zap.String("session_id", sessionID))
	return nil
}

// CleanupExpired drops up to limit sessions idle past the TTL. The sweeper
// in main calls this on a ticker.
func (s *filterSessionService) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()

	s.mu.Lock()
	if limit <= 0 || limit > len(s.sessions) {
		limit = len(s.sessions)
	}
	expired := make(map[string]*sessionRecord)
	for id, record := range s.sessions {
		if now.Before(record.updatedAt.Add(s.ttl)) {
			continue
		}
		expired[id] = record
		delete(s.sessions, id)
		if len(expired) >= limit {
			break
		}
	}
	s.mu.Unlock()

	for id, record := range expired {
		record.session.Close()
		s.logger.Debug("filter session expired", zap.String("session_id", id))
	}
	return len(expired), nil
}

// Count implements FilterSessionService.
func (s *filterSessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *filterSessionService) lookup(sessionID string) (*sessionRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return record, nil
}

func (s *filterSessionService) snapshot(id string, record *sessionRecord) FilterSessionSnapshot {
	s.mu.Lock()
	createdAt := record.createdAt
	updatedAt := record.updatedAt
	s.mu.Unlock()

	return FilterSessionSnapshot{
		ID:        id,
		State:     record.session.State(),
		Query:     record.session.Query(),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		ExpiresAt: updatedAt.Add(s.ttl),
	}
}

func (s *filterSessionService) logNavigation(_ context.Context, query url.Values) {
	s.logger.Info("filter query updated", zap.String("query", query.Encode()))
}
