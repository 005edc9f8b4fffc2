// Package service hosts the event supervisor: the single entry point that
// validates learning events, applies them to skill profiles exactly once per
// idempotency key, and records every call in the audit log.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/upskill/internal/adapters/repository"
	"github.com/okian/upskill/internal/domain/bootstrap"
	"github.com/okian/upskill/internal/domain/focus"
	"github.com/okian/upskill/internal/domain/model"
	"github.com/okian/upskill/pkg/logger"
	"github.com/okian/upskill/pkg/metrics"
)

// AnonymousUser is the audit stream for events that arrive without a user_id.
const AnonymousUser = "_anonymous"

// Service implements the API dependencies for the skill profile system.
type Service struct {
	mu sync.RWMutex

	store        repository.Store
	bootstrapper bootstrap.Bootstrapper
	focus        *focus.Engine
	locks        *keyedMutex
	now          func() time.Time

	started bool
	logger  logger.Logger

	applied  atomic.Int64
	rejected atomic.Int64
	replayed atomic.Int64
	failed   atomic.Int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. Without it Start uses an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithBootstrapper replaces the resume estimator used for user_created.
func WithBootstrapper(b bootstrap.Bootstrapper) Option {
	return func(s *Service) {
		if b != nil {
			s.bootstrapper = b
		}
	}
}

// WithFocusEngine sets the engine used to rank skill gaps.
func WithFocusEngine(e *focus.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.focus = e
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for received_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		bootstrapper: bootstrap.NewKeywordEstimator(),
		focus:        focus.New(),
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the service to accept events.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("supervisor")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.started = true
	s.logger.Info(ctx, "event supervisor started",
		logger.String("store", s.store.Driver()),
		logger.Int("focusLimit", s.focus.Limit()),
	)
	return nil
}

// Stop closes the store and rejects further events.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "event supervisor stopped")
}

func (s *Service) running() (repository.Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store, s.started
}

// Profile returns the stored profile for userID, or nil.
func (s *Service) Profile(ctx context.Context, userID string) (*model.UserSkillProfile, error) {
	store, ok := s.running()
	if !ok {
		return nil, ErrNotStarted
	}
	return store.LoadProfile(ctx, userID)
}

// Focus returns the stored focus points for userID, or nil.
func (s *Service) Focus(ctx context.Context, userID string) (*model.FocusSet, error) {
	store, ok := s.running()
	if !ok {
		return nil, ErrNotStarted
	}
	return store.LoadFocus(ctx, userID)
}

// Audit returns the audit history for userID, oldest first.
func (s *Service) Audit(ctx context.Context, userID string) ([]model.AuditEntry, error) {
	store, ok := s.running()
	if !ok {
		return nil, ErrNotStarted
	}
	return store.LoadAudit(ctx, userID)
}

// GetStats returns service statistics for monitoring. ctx bounds the profile
// count query.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	store, started := s.running()
	stats := map[string]interface{}{
		"started":  started,
		"applied":  s.applied.Load(),
		"rejected": s.rejected.Load(),
		"replayed": s.replayed.Load(),
		"failed":   s.failed.Load(),
		"inFlight": s.locks.size(),
	}
	if started {
		stats["store"] = store.Driver()
		if n, err := store.CountProfiles(ctx); err == nil {
			stats["profiles"] = n
		}
	}
	return stats
}

func (s *Service) count(outcome string) {
	switch outcome {
	case model.OutcomeApplied:
		s.applied.Add(1)
	case model.OutcomeRejected:
		s.rejected.Add(1)
	case model.OutcomeReplayed:
		s.replayed.Add(1)
		metrics.RecordIdempotentReplay()
	case model.OutcomeFailed:
		s.failed.Add(1)
	}
}
