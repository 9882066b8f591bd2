package blocking

import (
	"sync"
	"time"
)

// violationKey builds the (package, calendar date) composite key. A new date
// simply has no prior entry, which implements the automatic daily reset.
func violationKey(pkg string, day time.Time) string {
	return pkg + ":" + day.Format("2006-01-02")
}

// ViolationStore tracks per-app, per-day violation counts. It is safe for
// concurrent use from the usage-poll path and tests; entries are never
// explicitly cleared.
type ViolationStore struct {
	mu            sync.Mutex
	counts        map[string]int
	lastViolation map[string]time.Time
}

// NewViolationStore creates an empty violation store.
func NewViolationStore() *ViolationStore {
	return &ViolationStore{
		counts:        make(map[string]int),
		lastViolation: make(map[string]time.Time),
	}
}

// Count returns the violation count for the app on the given day.
func (v *ViolationStore) Count(pkg string, day time.Time) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counts[violationKey(pkg, day)]
}

// Increment records one more violation for the app on the given day and
// returns the new count.
func (v *ViolationStore) Increment(pkg string, at time.Time) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := violationKey(pkg, at)
	v.counts[key]++
	v.lastViolation[key] = at
	return v.counts[key]
}

// LastViolation returns when the app last violated on the given day, and
// whether it has violated at all.
func (v *ViolationStore) LastViolation(pkg string, day time.Time) (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.lastViolation[violationKey(pkg, day)]
	return t, ok
}
