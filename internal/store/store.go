// Package store provides storage backends for FocusGuard.
//
// It persists per-app blocking strategies, context rules, the sleep window,
// usage sessions (feeding adaptive pattern analysis), and a delivery log.
// Throttle and violation state are deliberately in-process and not stored
// here. An in-memory store backs tests and ephemeral setups; SQLite and
// PostgreSQL back real deployments.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// ErrNotConfigured indicates a configuration value has never been set.
// Callers treat it as "use defaults", not as a failure.
var ErrNotConfigured = errors.New("not configured")

// Store is the persistence interface consumed by the engine, the scheduler,
// and the providers.
type Store interface {
	GetBlockingStrategy(pkg string) (models.StrategyType, error)
	SetBlockingStrategy(pkg string, strategy models.StrategyType) error

	GetContextRules() (models.ContextRules, error)
	UpdateContextRules(rules models.ContextRules) error

	GetSleepWindow() (startHour, endHour int, err error)
	SetSleepWindow(startHour, endHour int) error

	AddUsageSession(session models.UsageSession) error
	GetUsageSessions(pkg string, since time.Time) ([]models.UsageSession, error)
	DeleteUsageSessionsBefore(cutoff time.Time) (int, error)

	AddDeliveryRecord(record models.DeliveryRecord) error
	GetDeliveryRecords(since time.Time) ([]models.DeliveryRecord, error)

	Close() error
}

// Opts holds configuration options for persistent stores.
type Opts struct {
	// DSN is the database connection string (file path for SQLite).
	DSN string
}

// Option configures a persistent store.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a thread-safe store for tests and ephemeral setups.
type InMemoryStore struct {
	mu              sync.Mutex
	strategies      map[string]models.StrategyType
	contextRules    *models.ContextRules
	sleepStart      int
	sleepEnd        int
	sleepConfigured bool
	sessions        []models.UsageSession
	deliveries      []models.DeliveryRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		strategies: make(map[string]models.StrategyType),
	}
}

// GetBlockingStrategy returns the configured strategy for an app.
func (s *InMemoryStore) GetBlockingStrategy(pkg string) (models.StrategyType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	strategy, ok := s.strategies[pkg]
	if !ok {
		return "", ErrNotConfigured
	}
	return strategy, nil
}

// SetBlockingStrategy stores the strategy for an app.
func (s *InMemoryStore) SetBlockingStrategy(pkg string, strategy models.StrategyType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[pkg] = strategy
	return nil
}

// GetContextRules returns the stored context rules.
func (s *InMemoryStore) GetContextRules() (models.ContextRules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contextRules == nil {
		return models.ContextRules{}, ErrNotConfigured
	}
	return *s.contextRules, nil
}

// UpdateContextRules replaces the stored context rules.
func (s *InMemoryStore) UpdateContextRules(rules models.ContextRules) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextRules = &rules
	return nil
}

// GetSleepWindow returns the stored sleep window hours.
func (s *InMemoryStore) GetSleepWindow() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sleepConfigured {
		return 0, 0, ErrNotConfigured
	}
	return s.sleepStart, s.sleepEnd, nil
}

// SetSleepWindow stores the sleep window hours.
func (s *InMemoryStore) SetSleepWindow(startHour, endHour int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleepStart, s.sleepEnd = startHour, endHour
	s.sleepConfigured = true
	return nil
}

// AddUsageSession records one usage session.
func (s *InMemoryStore) AddUsageSession(session models.UsageSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

// GetUsageSessions returns sessions for an app starting at or after since,
// ordered by start time.
func (s *InMemoryStore) GetUsageSessions(pkg string, since time.Time) ([]models.UsageSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.UsageSession
	for _, session := range s.sessions {
		if session.Package == pkg && !session.StartTime.Before(since) {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// DeleteUsageSessionsBefore removes sessions older than cutoff.
func (s *InMemoryStore) DeleteUsageSessionsBefore(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.sessions[:0]
	removed := 0
	for _, session := range s.sessions {
		if session.StartTime.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, session)
	}
	s.sessions = kept
	return removed, nil
}

// AddDeliveryRecord records one completed delivery.
func (s *InMemoryStore) AddDeliveryRecord(record models.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, record)
	return nil
}

// GetDeliveryRecords returns deliveries at or after since, ordered by time.
func (s *InMemoryStore) GetDeliveryRecords(since time.Time) ([]models.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DeliveryRecord
	for _, record := range s.deliveries {
		if !record.DeliveredAt.Before(since) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeliveredAt.Before(out[j].DeliveredAt) })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
