// Package models defines blocking-engine data structures for FocusGuard.
package models

import (
	"errors"
	"time"
)

// ChallengeType is the kind of task required to regain access to a blocked app.
type ChallengeType string

const (
	ChallengeNone                 ChallengeType = "none"
	ChallengeMath                 ChallengeType = "math"
	ChallengeComplexMath          ChallengeType = "complex_math"
	ChallengeReflection           ChallengeType = "reflection"
	ChallengeMindfulness          ChallengeType = "mindfulness"
	ChallengePhysical             ChallengeType = "physical"
	ChallengeProductivityQuestion ChallengeType = "productivity_question"
	ChallengeWaiting              ChallengeType = "waiting"
)

// StrategyType selects how the blocking engine evaluates a monitored app.
type StrategyType string

const (
	// StrategyStandard blocks at the literal limit with no extras.
	StrategyStandard StrategyType = "standard"
	// StrategyProgressive shrinks the limit as violations accumulate.
	StrategyProgressive StrategyType = "progressive"
	// StrategyAdaptive adjusts the limit from learned usage patterns.
	StrategyAdaptive StrategyType = "adaptive"
	// StrategyStrict blocks hard at the limit with a fixed cooling-off.
	StrategyStrict StrategyType = "strict"
)

// IsValidStrategyType checks if the given strategy type is supported.
func IsValidStrategyType(s StrategyType) bool {
	switch s {
	case StrategyStandard, StrategyProgressive, StrategyAdaptive, StrategyStrict:
		return true
	default:
		return false
	}
}

// ErrInvalidStrategyType indicates an unsupported blocking strategy value.
var ErrInvalidStrategyType = errors.New("invalid blocking strategy")

// BlockingDecision is the outcome of evaluating a monitored app's usage.
// It is a value, never persisted.
type BlockingDecision struct {
	ShouldBlock bool          `json:"should_block"`
	Reason      string        `json:"reason"`
	Challenge   ChallengeType `json:"challenge_type"`
	// CoolingOff is the mandatory delay before the app may be challenged again.
	CoolingOff time.Duration `json:"cooling_off_period"`
	// AllowedOvertimeMinutes grants extra usage beyond the limit.
	AllowedOvertimeMinutes int `json:"allowed_overtime_minutes"`
	// Warning is set on non-blocking near-limit advisories (Strict strategy).
	Warning bool `json:"warning,omitempty"`
}

// ContextRules holds global per-user situational blocking configuration.
// The engine reads them fresh on every decision; the settings surface owns
// mutation.
type ContextRules struct {
	BedtimeEnabled   bool `json:"bedtime_enabled"`
	BedtimeStartHour int  `json:"bedtime_start_hour"`
	BedtimeEndHour   int  `json:"bedtime_end_hour"`

	WorkHoursEnabled bool `json:"work_hours_enabled"`
	WorkStartHour    int  `json:"work_start_hour"`
	WorkEndHour      int  `json:"work_end_hour"`

	FamilyTimeEnabled bool  `json:"family_time_enabled"`
	FamilyTimeHours   []int `json:"family_time_hours,omitempty"`
}

// DefaultContextRules returns rules with every override disabled.
func DefaultContextRules() ContextRules {
	return ContextRules{
		BedtimeStartHour: 22,
		BedtimeEndHour:   7,
		WorkStartHour:    9,
		WorkEndHour:      17,
	}
}

// InBedtime reports whether the hour falls in the bedtime window,
// supporting wraparound across midnight (e.g. 22-7).
func (r ContextRules) InBedtime(hour int) bool {
	if r.BedtimeStartHour <= r.BedtimeEndHour {
		return hour >= r.BedtimeStartHour && hour < r.BedtimeEndHour
	}
	return hour >= r.BedtimeStartHour || hour < r.BedtimeEndHour
}

// InWorkHours reports whether the hour falls in the work window.
func (r ContextRules) InWorkHours(hour int) bool {
	return hour >= r.WorkStartHour && hour < r.WorkEndHour
}

// InFamilyTime reports whether the hour is one of the family-time hours.
func (r ContextRules) InFamilyTime(hour int) bool {
	for _, h := range r.FamilyTimeHours {
		if h == hour {
			return true
		}
	}
	return false
}

// UserPattern summarizes historical usage of a monitored app, derived for the
// Adaptive strategy.
type UserPattern struct {
	PeakHours         []int   `json:"peak_hours"`
	AvgSessionMinutes float64 `json:"avg_session_minutes"`
	BingeTendency     float64 `json:"binge_tendency"`
	SelfControlScore  float64 `json:"self_control_score"`
}

// IsPeakHour reports whether the hour is among the pattern's peak hours.
func (p UserPattern) IsPeakHour(hour int) bool {
	for _, h := range p.PeakHours {
		if h == hour {
			return true
		}
	}
	return false
}

// UsageSession is one continuous stretch of usage of a monitored app,
// supplied by the external usage poller and persisted for pattern analysis.
type UsageSession struct {
	Package         string    `json:"package"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Validate checks a usage session before it is recorded.
func (s *UsageSession) Validate() error {
	if s.Package == "" {
		return errors.New("package is required")
	}
	if s.StartTime.IsZero() {
		return errors.New("start_time is required")
	}
	if s.DurationMinutes < 0 {
		return errors.New("duration_minutes must not be negative")
	}
	return nil
}
