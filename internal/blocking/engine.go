// Package blocking implements the app-blocking decision engine for
// FocusGuard.
//
// Given a monitored app's current usage and configured limit, the engine
// returns a BlockingDecision using the app's configured strategy, after
// applying situational context overrides (bedtime, work hours, family
// time). Per-app, per-day violation counters back the Progressive strategy.
package blocking

import (
	"log/slog"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// Context override cooling-off periods.
const (
	workHoursCoolingOff  = 15 * time.Minute
	familyTimeCoolingOff = 30 * time.Minute
)

// ConfigStore supplies externally persisted blocking configuration. The
// engine re-reads it on every decision and never caches.
type ConfigStore interface {
	GetBlockingStrategy(pkg string) (models.StrategyType, error)
	SetBlockingStrategy(pkg string, s models.StrategyType) error
	GetContextRules() (models.ContextRules, error)
	UpdateContextRules(models.ContextRules) error
}

// Opts holds configuration options for the blocking engine.
type Opts struct {
	NowFunc func() time.Time
}

// Option configures an Engine.
type Option func(*Opts)

// WithNowFunc overrides the clock, for deterministic tests.
func WithNowFunc(now func() time.Time) Option {
	return func(o *Opts) { o.NowFunc = now }
}

// Engine decides whether and how to block monitored apps.
type Engine struct {
	config     ConfigStore
	violations *ViolationStore
	strategies map[models.StrategyType]strategy
	nowFunc    func() time.Time
}

// NewEngine creates a blocking engine wired to its configuration store and
// pattern source.
func NewEngine(config ConfigStore, patterns PatternSource, opts ...Option) *Engine {
	cfg := Opts{NowFunc: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	violations := NewViolationStore()
	return &Engine{
		config:     config,
		violations: violations,
		strategies: map[models.StrategyType]strategy{
			models.StrategyStandard:    standardStrategy{},
			models.StrategyProgressive: progressiveStrategy{violations: violations},
			models.StrategyAdaptive:    adaptiveStrategy{patterns: patterns},
			models.StrategyStrict:      strictStrategy{},
		},
		nowFunc: cfg.NowFunc,
	}
}

// ShouldBlockApp evaluates one usage-poll observation. Context overrides
// short-circuit the per-app strategy; missing configuration falls back to
// the Standard strategy with all overrides disabled.
func (e *Engine) ShouldBlockApp(pkg string, usageMinutes, limitMinutes int) models.BlockingDecision {
	now := e.nowFunc()

	if decision, overridden := e.contextOverride(now); overridden {
		slog.Info("Engine.ShouldBlockApp: context override fired",
			"package", pkg, "reason", decision.Reason)
		return decision
	}

	strategyType := e.strategyFor(pkg)
	decision := e.strategies[strategyType].Evaluate(CheckRequest{
		Package:      pkg,
		UsageMinutes: usageMinutes,
		LimitMinutes: limitMinutes,
	}, now)

	slog.Debug("Engine.ShouldBlockApp: decision",
		"package", pkg, "strategy", strategyType, "usage", usageMinutes,
		"limit", limitMinutes, "shouldBlock", decision.ShouldBlock, "reason", decision.Reason)
	return decision
}

// contextOverride applies bedtime, work-hours, and family-time rules, in
// that precedence order.
func (e *Engine) contextOverride(now time.Time) (models.BlockingDecision, bool) {
	rules, err := e.config.GetContextRules()
	if err != nil {
		slog.Warn("Engine.contextOverride: failed to read context rules, overrides disabled", "error", err)
		return models.BlockingDecision{}, false
	}

	hour := now.Hour()
	if rules.BedtimeEnabled && rules.InBedtime(hour) {
		return models.BlockingDecision{
			ShouldBlock: true,
			Reason:      "bedtime blocking is active",
			Challenge:   models.ChallengeReflection,
		}, true
	}
	if rules.WorkHoursEnabled && isWeekday(now.Weekday()) && rules.InWorkHours(hour) {
		return models.BlockingDecision{
			ShouldBlock: true,
			Reason:      "work-hours blocking is active",
			Challenge:   models.ChallengeProductivityQuestion,
			CoolingOff:  workHoursCoolingOff,
		}, true
	}
	if rules.FamilyTimeEnabled && rules.InFamilyTime(hour) {
		return models.BlockingDecision{
			ShouldBlock: true,
			Reason:      "family-time blocking is active",
			Challenge:   models.ChallengeMindfulness,
			CoolingOff:  familyTimeCoolingOff,
		}, true
	}
	return models.BlockingDecision{}, false
}

// strategyFor resolves the app's configured strategy, defaulting to
// Standard when the configuration is absent or invalid.
func (e *Engine) strategyFor(pkg string) models.StrategyType {
	strategyType, err := e.config.GetBlockingStrategy(pkg)
	if err != nil {
		slog.Debug("Engine.strategyFor: no strategy configured, using standard",
			"package", pkg, "error", err)
		return models.StrategyStandard
	}
	if !models.IsValidStrategyType(strategyType) {
		slog.Warn("Engine.strategyFor: invalid strategy configured, using standard",
			"package", pkg, "strategy", strategyType)
		return models.StrategyStandard
	}
	return strategyType
}

// GetBlockingStrategy returns the configured strategy for an app,
// defaulting to Standard.
func (e *Engine) GetBlockingStrategy(pkg string) models.StrategyType {
	return e.strategyFor(pkg)
}

// SetBlockingStrategy configures the strategy for an app.
func (e *Engine) SetBlockingStrategy(pkg string, strategyType models.StrategyType) error {
	if !models.IsValidStrategyType(strategyType) {
		return models.ErrInvalidStrategyType
	}
	if err := e.config.SetBlockingStrategy(pkg, strategyType); err != nil {
		return err
	}
	slog.Info("Engine.SetBlockingStrategy: strategy updated", "package", pkg, "strategy", strategyType)
	return nil
}

// GetContextRules returns the current context rules, defaulting to
// all-disabled rules when none are stored.
func (e *Engine) GetContextRules() models.ContextRules {
	rules, err := e.config.GetContextRules()
	if err != nil {
		slog.Debug("Engine.GetContextRules: no rules stored, using defaults", "error", err)
		return models.DefaultContextRules()
	}
	return rules
}

// UpdateContextRules replaces the context rules.
func (e *Engine) UpdateContextRules(rules models.ContextRules) error {
	if err := e.config.UpdateContextRules(rules); err != nil {
		return err
	}
	slog.Info("Engine.UpdateContextRules: context rules updated",
		"bedtime", rules.BedtimeEnabled, "workHours", rules.WorkHoursEnabled,
		"familyTime", rules.FamilyTimeEnabled)
	return nil
}

// Violations exposes the violation store for status surfaces and tests.
func (e *Engine) Violations() *ViolationStore {
	return e.violations
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}
