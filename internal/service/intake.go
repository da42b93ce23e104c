package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/audit"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/intake"
	"go.uber.org/zap"
)

// maxPendingNotifications bounds the per-session notification buffer
const maxPendingNotifications = 16

var (
	ErrSessionNotFound = errors.New("intake session not found")
	ErrTooManySessions = errors.New("too many active intake sessions")
)

// IntakeOptions configures the session registry
type IntakeOptions struct {
	SessionTTL    time.Duration
	SubmitTimeout time.Duration
	MaxSessions   int
}

// IntakeSession is one assessment held in memory. Notifications and focus
// requests raised by the controller are buffered until the client drains them.
type IntakeSession struct {
	ID         string
	CreatedAt  time.Time
	controller *intake.Controller

	mu       sync.Mutex
	notes    []intake.Notification
	focus    string
	lastSeen time.Time
	watchers int
}

// Controller returns the session's assessment controller
func (s *IntakeSession) Controller() *intake.Controller {
	return s.controller
}

// Drain returns and clears the pending notifications and focus target
func (s *IntakeSession) Drain() ([]intake.Notification, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := s.notes
	focus := s.focus
	s.notes = nil
	s.focus = ""
	return notes, focus
}

func (s *IntakeSession) notify(n intake.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = append(s.notes, n)
	if len(s.notes) > maxPendingNotifications {
		s.notes = s.notes[len(s.notes)-maxPendingNotifications:]
	}
}

func (s *IntakeSession) setFocus(questionID string) {
	s.mu.Lock()
	s.focus = questionID
	s.mu.Unlock()
}

func (s *IntakeSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// expired reports whether the session has been idle since before cutoff.
// A session with an open state stream never expires.
func (s *IntakeSession) expired(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchers == 0 && s.lastSeen.Before(cutoff)
}

// IntakeService keeps the assessment sessions of all connected clients
type IntakeService struct {
	catalog   *intake.Catalog
	diagnoser intake.Diagnoser
	opts      IntakeOptions
	audit     audit.Recorder
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*IntakeSession
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(catalog *intake.Catalog, diagnoser intake.Diagnoser, opts IntakeOptions, recorder audit.Recorder, logger *zap.Logger) *IntakeService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 10000
	}
	return &IntakeService{
		catalog:   catalog,
		diagnoser: diagnoser,
		opts:      opts,
		audit:     recorder,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*IntakeSession),
	}
}

// Catalog returns the question catalog every session uses
func (s *IntakeService) Catalog() *intake.Catalog {
	return s.catalog
}

// Create starts a new assessment session
func (s *IntakeService) Create(ctx context.Context, meta RequestMeta) (*IntakeSession, error) {
	now := s.now()
	session := &IntakeSession{
		ID:        uuid.New().String(),
		CreatedAt: now,
		lastSeen:  now,
	}
	session.controller = intake.NewController(s.catalog, s.diagnoser, intake.Options{
		Notifier:      intake.NotifierFunc(session.notify),
		Focus:         intake.FocusFunc(session.setFocus),
		SubmitTimeout: s.opts.SubmitTimeout,
		Logger:        s.logger.With(zap.String("session_id", session.ID)),
	})

	s.mu.Lock()
	if len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		session.controller.Close()
		s.logger.Warn("intake session limit reached", zap.Int("max_sessions", s.opts.MaxSessions))
		return nil, ErrTooManySessions
	}
	s.sessions[session.ID] = session
	active := len(s.sessions)
	s.mu.Unlock()

	s.logger.Info("intake session created",
		zap.String("session_id", session.ID),
		zap.Int("active_sessions", active),
	)
	s.record(ctx, audit.OperationCreate, session.ID, meta)

	return session, nil
}

// Get returns a live session and refreshes its idle timer
func (s *IntakeService) Get(id string) (*IntakeSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.touch(s.now())
	return session, nil
}

// Watch marks the session as observed by a state stream until release is
// called. Releasing restarts the idle timer.
func (s *IntakeService) Watch(session *IntakeSession) (release func()) {
	session.mu.Lock()
	session.watchers++
	session.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			session.mu.Lock()
			session.watchers--
			session.lastSeen = s.now()
			session.mu.Unlock()
		})
	}
}

// Delete discards a session and abandons any submission in flight
func (s *IntakeService) Delete(ctx context.Context, id string, meta RequestMeta) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.controller.Close()
	s.logger.Info("intake session deleted", zap.String("session_id", id))
	s.record(ctx, audit.OperationDelete, id, meta)
	return nil
}

// Len returns the number of live sessions
func (s *IntakeService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
func (s *IntakeService) Sweep() int {
	cutoff := s.now().Add(-s.opts.SessionTTL)

	var expired []*IntakeSession
	s.mu.Lock()
	for id, session := range s.sessions {
		if session.expired(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.controller.Close()
		s.logger.Info("intake session expired", zap.String("session_id", session.ID))
	}
	return len(expired)
}

// RunJanitor sweeps expired sessions every interval until ctx is done
func (s *IntakeService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired intake sessions swept", zap.Int("count", n))
			}
		}
	}
}

// Close ends every session
func (s *IntakeService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*IntakeSession)
	s.mu.Unlock()

	for _, session := range sessions {
		session.controller.Close()
	}
}

func (s *IntakeService) record(ctx context.Context, op audit.OperationType, id string, meta RequestMeta) {
	if err := s.audit.Record(ctx, audit.Entry{
		OperationType: op,
		ResourceType:  audit.ResourceIntakeSession,
		ResourceID:    id,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record intake session audit entry", zap.Error(err))
	}
}
