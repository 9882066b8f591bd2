// Package maintenance provides periodic housekeeping for FocusGuard.
//
// It runs cron-scheduled jobs: pruning expired throttle windows and
// trimming old usage sessions from the store.
package maintenance

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Default cron expressions and retention.
const (
	// DefaultPruneSpec prunes throttle windows at the top of every hour.
	DefaultPruneSpec = "0 * * * *"
	// DefaultRetentionSpec trims old usage sessions nightly.
	DefaultRetentionSpec = "30 3 * * *"
	// DefaultUsageRetention is how long usage sessions are kept.
	DefaultUsageRetention = 30 * 24 * time.Hour
)

// ThrottlePruner prunes expired throttle records; implemented by the ledger.
type ThrottlePruner interface {
	Prune() int
}

// SessionTrimmer trims old usage sessions; implemented by the store.
type SessionTrimmer interface {
	DeleteUsageSessionsBefore(cutoff time.Time) (int, error)
}

// Runner schedules housekeeping jobs using cron expressions.
type Runner struct {
	cron *cron.Cron
}

// NewRunner creates and starts a cron runner.
func NewRunner() *Runner {
	// Standard 5-field cron parser (min, hour, dom, month, dow), with panic
	// recovery so one bad job cannot kill the runner.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Runner{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (r *Runner) AddJob(expr string, task func()) error {
	_, err := r.cron.AddFunc(expr, task)
	return err
}

// ScheduleThrottlePrune registers the hourly throttle-window prune.
func (r *Runner) ScheduleThrottlePrune(pruner ThrottlePruner) error {
	return r.AddJob(DefaultPruneSpec, func() {
		removed := pruner.Prune()
		slog.Debug("maintenance: throttle prune completed", "removed", removed)
	})
}

// ScheduleUsageRetention registers the nightly usage-session trim.
func (r *Runner) ScheduleUsageRetention(trimmer SessionTrimmer, retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultUsageRetention
	}
	return r.AddJob(DefaultRetentionSpec, func() {
		cutoff := time.Now().Add(-retention)
		removed, err := trimmer.DeleteUsageSessionsBefore(cutoff)
		if err != nil {
			slog.Error("maintenance: usage retention trim failed", "error", err)
			return
		}
		slog.Debug("maintenance: usage retention trim completed", "removed", removed)
	})
}

// Stop stops the cron runner and waits for running jobs to finish.
func (r *Runner) Stop() {
	r.cron.Stop()
}
