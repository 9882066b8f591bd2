// Package scheduler provides the adaptive notification scheduler for
// FocusGuard.
//
// It holds a time-ordered queue of pending one-shot notifications and a
// registry of recurring definitions. A single background worker drains due
// items on a fixed cadence, re-checks delivery eligibility against the
// current context, engagement, and throttle state, and hands eligible
// notifications to the delivery channel. Ineligible items are dropped, not
// retried.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/delivery"
	"github.com/BTreeMap/FocusGuard/internal/models"
	"github.com/BTreeMap/FocusGuard/internal/throttle"
	"github.com/BTreeMap/FocusGuard/internal/timing"
	"github.com/BTreeMap/FocusGuard/internal/util"
)

// Scheduler tuning constants.
const (
	// DefaultDrainInterval is the worker cadence between drain cycles.
	DefaultDrainInterval = 5 * time.Second
	// HighFatigueThreshold gates delivery when engagement fatigue exceeds it.
	HighFatigueThreshold = 0.7
	// LowPreferenceThreshold gates non-critical types the user dislikes.
	LowPreferenceThreshold = 0.2
)

// ContextProvider supplies point-in-time user context snapshots.
type ContextProvider interface {
	// AnalyzeContext returns the current situational snapshot.
	AnalyzeContext() models.UserContext
	// SleepWindow returns the configured sleep window as start/end hours.
	SleepWindow() (startHour, endHour int)
}

// EngagementProvider supplies learned engagement metrics.
type EngagementProvider interface {
	// AnalyzeEngagement returns the current engagement metrics.
	AnalyzeEngagement() models.EngagementMetrics
	// IdentifyOptimalTiming lists hours of day with historically good responses.
	IdentifyOptimalTiming() []int
}

// DeliveryLog records completed deliveries. Implementations are optional;
// a nil log disables recording.
type DeliveryLog interface {
	AddDeliveryRecord(models.DeliveryRecord) error
}

// Opts holds configuration options for the scheduler.
type Opts struct {
	DrainInterval time.Duration
	NowFunc       func() time.Time
	DeliveryLog   DeliveryLog
}

// Option configures a Scheduler.
type Option func(*Opts)

// WithDrainInterval overrides the worker cadence.
func WithDrainInterval(d time.Duration) Option {
	return func(o *Opts) { o.DrainInterval = d }
}

// WithNowFunc overrides the clock, for deterministic tests.
func WithNowFunc(now func() time.Time) Option {
	return func(o *Opts) { o.NowFunc = now }
}

// WithDeliveryLog attaches a store that records completed deliveries.
func WithDeliveryLog(log DeliveryLog) Option {
	return func(o *Opts) { o.DeliveryLog = log }
}

// Scheduler coordinates pending and recurring notifications.
type Scheduler struct {
	mu        sync.Mutex
	queue     notificationQueue
	seq       uint64
	recurring map[string]*models.RecurringNotification

	contextProvider    ContextProvider
	engagementProvider EngagementProvider
	channel            delivery.Channel
	ledger             *throttle.Ledger
	deliveryLog        DeliveryLog

	drainInterval time.Duration
	nowFunc       func() time.Time

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a scheduler wired to its collaborators.
func NewScheduler(contextProvider ContextProvider, engagementProvider EngagementProvider, channel delivery.Channel, ledger *throttle.Ledger, opts ...Option) *Scheduler {
	cfg := Opts{
		DrainInterval: DefaultDrainInterval,
		NowFunc:       time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scheduler{
		recurring:          make(map[string]*models.RecurringNotification),
		contextProvider:    contextProvider,
		engagementProvider: engagementProvider,
		channel:            channel,
		ledger:             ledger,
		deliveryLog:        cfg.DeliveryLog,
		drainInterval:      cfg.DrainInterval,
		nowFunc:            cfg.NowFunc,
	}
}

// Start launches the background drain worker. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		slog.Debug("Scheduler.Start: already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	slog.Info("Scheduler.Start: starting drain worker", "drainInterval", s.drainInterval)
	go s.run(stopCh, doneCh)
}

// Stop halts the background worker. In-flight deliveries of the current
// cycle complete normally; pending and recurring entries are retained.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		slog.Debug("Scheduler.Stop: not running")
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	slog.Info("Scheduler.Stop: drain worker stopped")
}

// run is the single background worker. On a failed cycle it backs off to
// twice the normal cadence before resuming.
func (s *Scheduler) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	interval := s.drainInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			if err := s.safeDrainCycle(); err != nil {
				slog.Error("Scheduler.run: drain cycle failed, backing off", "error", err)
				interval = 2 * s.drainInterval
			} else {
				interval = s.drainInterval
			}
			timer.Reset(interval)
		}
	}
}

// safeDrainCycle runs one drain cycle, converting collaborator panics into
// errors so the worker never dies.
func (s *Scheduler) safeDrainCycle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("drain cycle panicked: %v", r)
		}
	}()
	s.drainCycle(s.nowFunc())
	return nil
}

// drainCycle delivers every due one-shot notification and expands due
// recurring definitions. Due items pop in ascending scheduled-time order.
func (s *Scheduler) drainCycle(now time.Time) {
	due := s.popDue(now)
	for _, n := range due {
		if !s.deliveryEligible(n, now) {
			slog.Info("Scheduler.drainCycle: dropping ineligible notification",
				"id", n.ID, "type", n.Type)
			continue
		}
		s.deliver(n, now)
	}
	s.expandRecurring(now)
}

// popDue removes and returns every queued item due at or before now.
func (s *Scheduler) popDue(now time.Time) []models.ScheduledNotification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.ScheduledNotification
	for s.queue.Len() > 0 && !s.queue[0].notification.ScheduledTime.After(now) {
		item := heap.Pop(&s.queue).(*queueItem)
		due = append(due, item.notification)
	}
	return due
}

// deliver hands a notification to the delivery channel and records the
// delivery for throttling. Channel failures are logged, not retried.
func (s *Scheduler) deliver(n models.ScheduledNotification, now time.Time) {
	if err := s.channel.Deliver(context.Background(), n.Type, n.Title, n.Content, n.Priority.Level()); err != nil {
		slog.Error("Scheduler.deliver: delivery channel failed", "id", n.ID, "error", err)
		return
	}
	s.ledger.Record(throttleUser(n), n.Type)
	if s.deliveryLog != nil {
		record := models.DeliveryRecord{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Type:           n.Type,
			Title:          n.Title,
			Priority:       n.Priority,
			DeliveredAt:    now,
		}
		if err := s.deliveryLog.AddDeliveryRecord(record); err != nil {
			slog.Warn("Scheduler.deliver: failed to record delivery", "id", n.ID, "error", err)
		}
	}
	slog.Info("Scheduler.deliver: notification delivered", "id", n.ID, "type", n.Type)
}

// deliveryEligible re-evaluates a due notification against the current
// context, engagement, and throttle state. It fails closed.
func (s *Scheduler) deliveryEligible(n models.ScheduledNotification, now time.Time) bool {
	userContext := s.contextProvider.AnalyzeContext()
	engagement := s.engagementProvider.AnalyzeEngagement()

	if n.ContextRequirement != nil && !n.ContextRequirement.Matches(userContext) {
		slog.Debug("Scheduler.deliveryEligible: context requirement no longer matches", "id", n.ID)
		return false
	}
	if userContext.IsSleepTime && n.Priority != models.PriorityCritical {
		slog.Debug("Scheduler.deliveryEligible: sleep time, non-critical", "id", n.ID)
		return false
	}
	if engagement.FatigueScore > HighFatigueThreshold {
		slog.Debug("Scheduler.deliveryEligible: user fatigued",
			"id", n.ID, "fatigue", engagement.FatigueScore)
		return false
	}
	if engagement.TypePreference(n.Type) < LowPreferenceThreshold && n.Priority != models.PriorityCritical {
		slog.Debug("Scheduler.deliveryEligible: low type preference", "id", n.ID, "type", n.Type)
		return false
	}
	if !s.ledger.Allow(throttleUser(n), n.Type) {
		slog.Debug("Scheduler.deliveryEligible: throttled", "id", n.ID, "type", n.Type)
		return false
	}
	return true
}

// expandRecurring synthesizes one-shot notifications for due recurring
// definitions and advances their next scheduled times. After a long gap the
// next time is rolled forward past now so missed firings collapse into one.
func (s *Scheduler) expandRecurring(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.recurring {
		if !rec.Enabled || rec.NextScheduledTime.After(now) {
			continue
		}
		n := rec.Base
		n.ID = fmt.Sprintf("%s_%d_%s", rec.ID, now.UnixNano(), util.GenerateRandomHex(6))
		n.ScheduledTime = rec.NextScheduledTime
		s.enqueueLocked(n)
		slog.Debug("Scheduler.expandRecurring: synthesized firing",
			"recurringID", rec.ID, "id", n.ID, "scheduledTime", n.ScheduledTime)

		next := nextRecurrence(rec.NextScheduledTime, rec.Recurrence, rec.Interval)
		skipped := 0
		for !next.After(now) {
			next = nextRecurrence(next, rec.Recurrence, rec.Interval)
			skipped++
		}
		if skipped > 0 {
			slog.Warn("Scheduler.expandRecurring: skipped missed firings",
				"recurringID", rec.ID, "skipped", skipped)
		}
		rec.NextScheduledTime = next
	}
}

// ScheduleNotification accepts a notification for future delivery. It
// returns false when the notification is invalid, past-dated, or declares a
// context requirement that does not match the context observed now. A
// notification without an explicit priority gets one derived from the
// current context and engagement, and the producer-supplied time is refined
// by the timing algorithms before the notification is queued. A recurrence
// declaration in the metadata registers a recurring definition instead of
// enqueuing directly.
func (s *Scheduler) ScheduleNotification(n models.ScheduledNotification) bool {
	if n.Priority == "" {
		n.Priority = timing.DeterminePriority(n.Type,
			s.contextProvider.AnalyzeContext(), s.engagementProvider.AnalyzeEngagement())
		slog.Debug("Scheduler.ScheduleNotification: derived priority",
			"id", n.ID, "type", n.Type, "priority", n.Priority)
	}
	if err := n.Validate(); err != nil {
		slog.Warn("Scheduler.ScheduleNotification: rejected invalid notification",
			"id", n.ID, "error", err)
		return false
	}

	now := s.nowFunc()
	if n.ScheduledTime.Before(now) {
		slog.Warn("Scheduler.ScheduleNotification: rejected past-dated notification",
			"id", n.ID, "scheduledTime", n.ScheduledTime)
		return false
	}
	if n.ContextRequirement != nil && !n.ContextRequirement.Matches(s.contextProvider.AnalyzeContext()) {
		slog.Warn("Scheduler.ScheduleNotification: rejected, context requirement unmet at acceptance",
			"id", n.ID)
		return false
	}

	recurrenceType, interval, declared, err := n.Recurrence()
	if err != nil {
		slog.Warn("Scheduler.ScheduleNotification: rejected invalid recurrence",
			"id", n.ID, "error", err)
		return false
	}

	if refined := s.refineScheduledTime(n); !refined.Equal(n.ScheduledTime) {
		slog.Debug("Scheduler.ScheduleNotification: refined scheduled time",
			"id", n.ID, "requested", n.ScheduledTime, "refined", refined)
		n.ScheduledTime = refined
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if declared {
		s.recurring[n.ID] = &models.RecurringNotification{
			ID:                n.ID,
			Base:              n,
			Interval:          interval,
			Recurrence:        recurrenceType,
			Enabled:           true,
			NextScheduledTime: n.ScheduledTime,
		}
		slog.Info("Scheduler.ScheduleNotification: registered recurring notification",
			"id", n.ID, "recurrence", recurrenceType, "interval", interval)
		return true
	}

	s.enqueueLocked(n)
	slog.Info("Scheduler.ScheduleNotification: notification queued",
		"id", n.ID, "type", n.Type, "scheduledTime", n.ScheduledTime)
	return true
}

// refineScheduledTime runs the producer-supplied base time through the
// timing algorithms, feeding them the current engagement metrics, learned
// optimal hours, and the configured sleep window.
func (s *Scheduler) refineScheduledTime(n models.ScheduledNotification) time.Time {
	eng := s.engagementProvider.AnalyzeEngagement()
	if hours := s.engagementProvider.IdentifyOptimalTiming(); len(hours) > 0 {
		eng.OptimalHours = hours
	}
	sleepStart, sleepEnd := s.contextProvider.SleepWindow()
	return timing.OptimalNotificationTime(n.Type, n.ScheduledTime, n.ContextRequirement, eng, sleepStart, sleepEnd)
}

// PreviewTiming reports where the timing algorithms would place the given
// notification and the estimated effectiveness of delivering it there,
// without queuing anything.
func (s *Scheduler) PreviewTiming(n models.ScheduledNotification) (time.Time, float64) {
	optimal := s.refineScheduledTime(n)
	score := timing.EffectivenessScore(n.Type, optimal,
		s.contextProvider.AnalyzeContext(), s.engagementProvider.AnalyzeEngagement())
	return optimal, score
}

// enqueueLocked pushes a notification onto the pending queue.
// Caller must hold s.mu.
func (s *Scheduler) enqueueLocked(n models.ScheduledNotification) {
	s.seq++
	heap.Push(&s.queue, &queueItem{notification: n, seq: s.seq})
}

// CancelNotification removes a pending one-shot entry and/or a recurring
// registration with the given ID. It returns true if anything was removed.
// A notification already popped by the current drain cycle cannot be
// retracted.
func (s *Scheduler) CancelNotification(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.queue.removeByID(id)
	if _, ok := s.recurring[id]; ok {
		delete(s.recurring, id)
		removed = true
	}
	slog.Debug("Scheduler.CancelNotification", "id", id, "removed", removed)
	return removed
}

// GetStatus returns a snapshot of the scheduler's counters.
func (s *Scheduler) GetStatus() models.SchedulerStatus {
	s.mu.Lock()
	running := s.running
	queued := s.queue.Len()
	recurringCount := len(s.recurring)
	s.mu.Unlock()

	return models.SchedulerStatus{
		IsRunning:             running,
		QueuedCount:           queued,
		RecurringCount:        recurringCount,
		ActiveThrottleWindows: s.ledger.ActiveWindowCount(),
	}
}

// throttleUser normalizes the throttle key for notifications without a user.
func throttleUser(n models.ScheduledNotification) string {
	if n.UserID == "" {
		return "default"
	}
	return n.UserID
}
