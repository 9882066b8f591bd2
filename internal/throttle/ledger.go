// Package throttle enforces per-user, per-type notification rate limits.
//
// A Ledger tracks recent delivery timestamps keyed by (userID, notification
// type) and answers whether a further delivery is currently allowed. Two
// limits apply: a minimum interval between deliveries of the same type, and
// a cap on deliveries inside a rolling window. Expired window entries are
// pruned lazily on read.
package throttle

import (
	"log/slog"
	"sync"
	"time"
)

// Default throttling limits.
const (
	// DefaultMinInterval is the minimum gap between deliveries of one type.
	DefaultMinInterval = 15 * time.Minute
	// DefaultWindow is the rolling window used for the delivery cap.
	DefaultWindow = time.Hour
	// DefaultMaxPerWindow is the maximum deliveries per type per window.
	DefaultMaxPerWindow = 5
)

// Opts holds configuration options for the throttle ledger.
type Opts struct {
	MinInterval  time.Duration
	Window       time.Duration
	MaxPerWindow int
	NowFunc      func() time.Time
}

// Option configures a Ledger.
type Option func(*Opts)

// WithMinInterval overrides the minimum inter-delivery interval.
func WithMinInterval(d time.Duration) Option {
	return func(o *Opts) { o.MinInterval = d }
}

// WithWindow overrides the rolling-window duration.
func WithWindow(d time.Duration) Option {
	return func(o *Opts) { o.Window = d }
}

// WithMaxPerWindow overrides the rolling-window delivery cap.
func WithMaxPerWindow(n int) Option {
	return func(o *Opts) { o.MaxPerWindow = n }
}

// WithNowFunc overrides the clock, for deterministic tests.
func WithNowFunc(now func() time.Time) Option {
	return func(o *Opts) { o.NowFunc = now }
}

type record struct {
	deliveries   []time.Time
	lastDelivery time.Time
}

// Ledger is a concurrency-safe throttle state store.
type Ledger struct {
	mu           sync.Mutex
	records      map[string]*record
	minInterval  time.Duration
	window       time.Duration
	maxPerWindow int
	nowFunc      func() time.Time
}

// NewLedger creates a throttle ledger with the given options.
func NewLedger(opts ...Option) *Ledger {
	cfg := Opts{
		MinInterval:  DefaultMinInterval,
		Window:       DefaultWindow,
		MaxPerWindow: DefaultMaxPerWindow,
		NowFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Ledger{
		records:      make(map[string]*record),
		minInterval:  cfg.MinInterval,
		window:       cfg.Window,
		maxPerWindow: cfg.MaxPerWindow,
		nowFunc:      cfg.NowFunc,
	}
}

func throttleKey(userID, notificationType string) string {
	return userID + ":" + notificationType
}

// Allow reports whether a delivery of the given type to the given user is
// currently permitted. It does not record anything; call Record after an
// actual hand-off to the delivery channel.
func (l *Ledger) Allow(userID, notificationType string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	key := throttleKey(userID, notificationType)
	rec, ok := l.records[key]
	if !ok {
		return true
	}
	l.pruneLocked(rec, now)

	if !rec.lastDelivery.IsZero() && now.Sub(rec.lastDelivery) < l.minInterval {
		slog.Debug("Ledger.Allow: minimum interval not elapsed",
			"key", key, "sinceLast", now.Sub(rec.lastDelivery), "minInterval", l.minInterval)
		return false
	}
	if len(rec.deliveries) >= l.maxPerWindow {
		slog.Debug("Ledger.Allow: window cap reached",
			"key", key, "inWindow", len(rec.deliveries), "cap", l.maxPerWindow)
		return false
	}
	return true
}

// Record notes a completed delivery of the given type to the given user.
func (l *Ledger) Record(userID, notificationType string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	key := throttleKey(userID, notificationType)
	rec, ok := l.records[key]
	if !ok {
		rec = &record{}
		l.records[key] = rec
	}
	l.pruneLocked(rec, now)
	rec.deliveries = append(rec.deliveries, now)
	rec.lastDelivery = now
	slog.Debug("Ledger.Record: delivery recorded", "key", key, "inWindow", len(rec.deliveries))
}

// ActiveWindowCount returns the number of (user, type) keys that still hold
// at least one delivery inside the rolling window.
func (l *Ledger) ActiveWindowCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	count := 0
	for _, rec := range l.records {
		l.pruneLocked(rec, now)
		if len(rec.deliveries) > 0 {
			count++
		}
	}
	return count
}

// Prune drops fully expired records and returns how many were removed.
// Intended for the periodic maintenance job; correctness does not depend on
// it since reads prune lazily.
func (l *Ledger) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	removed := 0
	for key, rec := range l.records {
		l.pruneLocked(rec, now)
		if len(rec.deliveries) == 0 && now.Sub(rec.lastDelivery) >= l.window {
			delete(l.records, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Ledger.Prune: removed expired records", "count", removed)
	}
	return removed
}

// pruneLocked drops window entries older than the rolling window.
// Caller must hold l.mu.
func (l *Ledger) pruneLocked(rec *record, now time.Time) {
	cutoff := now.Add(-l.window)
	kept := rec.deliveries[:0]
	for _, t := range rec.deliveries {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rec.deliveries = kept
}
