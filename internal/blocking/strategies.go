package blocking

import (
	"fmt"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// CheckRequest is one usage-poll observation of a monitored app.
type CheckRequest struct {
	Package      string `json:"package"`
	UsageMinutes int    `json:"usage_minutes"`
	LimitMinutes int    `json:"limit_minutes"`
}

// strategy evaluates one usage observation into a blocking decision.
// Context overrides have already been applied by the engine.
type strategy interface {
	Evaluate(req CheckRequest, now time.Time) models.BlockingDecision
}

// noBlock is the shared non-blocking decision.
func noBlock(reason string) models.BlockingDecision {
	return models.BlockingDecision{
		ShouldBlock: false,
		Reason:      reason,
		Challenge:   models.ChallengeNone,
	}
}

// standardStrategy blocks at the literal limit. No violation tracking, no
// cooling-off.
type standardStrategy struct{}

func (standardStrategy) Evaluate(req CheckRequest, now time.Time) models.BlockingDecision {
	if req.UsageMinutes >= req.LimitMinutes {
		return models.BlockingDecision{
			ShouldBlock: true,
			Reason:      fmt.Sprintf("daily limit of %d minutes reached", req.LimitMinutes),
			Challenge:   models.ChallengeMath,
		}
	}
	return noBlock("within daily limit")
}

// progressiveStrategy shrinks the effective limit as violations accumulate
// during the day and escalates the challenge and cooling-off with each one.
type progressiveStrategy struct {
	violations *ViolationStore
}

// progressiveCoolingOff maps a violation count to its cooling-off period.
var progressiveCoolingOff = []time.Duration{
	0,
	0,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
}

// maxProgressiveCoolingOff applies beyond the table.
const maxProgressiveCoolingOff = 30 * time.Minute

// progressiveEffectiveLimit shrinks the limit 10 points per prior violation
// today, capped at 50% shrinkage, with a floor of a quarter of the original.
func progressiveEffectiveLimit(limitMinutes, violations int) int {
	shrink := violations * 10
	if shrink > 50 {
		shrink = 50
	}
	effective := limitMinutes * (100 - shrink) / 100
	if floor := limitMinutes / 4; effective < floor {
		effective = floor
	}
	return effective
}

// coolingOffForViolations returns the escalating cooling-off period for the
// given violation count.
func coolingOffForViolations(violations int) time.Duration {
	if violations < len(progressiveCoolingOff) {
		return progressiveCoolingOff[violations]
	}
	return maxProgressiveCoolingOff
}

// challengeForViolations escalates the challenge with the violation count.
func challengeForViolations(violations int) models.ChallengeType {
	switch {
	case violations <= 1:
		return models.ChallengeMath
	case violations <= 3:
		return models.ChallengeReflection
	case violations <= 5:
		return models.ChallengePhysical
	default:
		return models.ChallengeWaiting
	}
}

func (s progressiveStrategy) Evaluate(req CheckRequest, now time.Time) models.BlockingDecision {
	violations := s.violations.Count(req.Package, now)
	effective := progressiveEffectiveLimit(req.LimitMinutes, violations)
	if req.UsageMinutes < effective {
		return noBlock(fmt.Sprintf("within effective limit of %d minutes", effective))
	}
	s.violations.Increment(req.Package, now)
	return models.BlockingDecision{
		ShouldBlock: true,
		Reason: fmt.Sprintf("effective limit of %d minutes reached (%d prior violations today)",
			effective, violations),
		Challenge:  challengeForViolations(violations),
		CoolingOff: coolingOffForViolations(violations),
	}
}

// adaptiveStrategy adjusts the limit from the learned usage pattern and
// intervenes early during peak hours.
type adaptiveStrategy struct {
	patterns PatternSource
}

// Adaptive strategy tuning.
const (
	adaptiveLowSelfControl    = 0.5
	adaptiveHighBinge         = 0.7
	adaptiveLimitFloorRatio   = 1.0 / 3.0
	earlyInterventionRatio    = 0.8
	earlyInterventionCoolOff  = 5 * time.Minute
	earlyInterventionOvertime = 0.10
	adaptiveBlockOvertime     = 0.15
)

// adaptiveLimit reduces the configured limit for weak self-control and high
// binge tendency, floored at a third of the original.
func adaptiveLimit(limitMinutes int, pattern models.UserPattern) int {
	limit := float64(limitMinutes)
	if pattern.SelfControlScore < adaptiveLowSelfControl {
		limit *= 0.8
	}
	if pattern.BingeTendency > adaptiveHighBinge {
		limit *= 0.9
	}
	if floor := float64(limitMinutes) * adaptiveLimitFloorRatio; limit < floor {
		limit = floor
	}
	return int(limit)
}

// adaptiveChallenge picks the challenge from the weakest point of the
// pattern.
func adaptiveChallenge(pattern models.UserPattern) models.ChallengeType {
	switch {
	case pattern.SelfControlScore < 0.3:
		return models.ChallengeWaiting
	case pattern.BingeTendency > 0.8:
		return models.ChallengeReflection
	case pattern.AvgSessionMinutes > 30:
		return models.ChallengePhysical
	default:
		return models.ChallengeMath
	}
}

func (s adaptiveStrategy) Evaluate(req CheckRequest, now time.Time) models.BlockingDecision {
	pattern := s.patterns.Pattern(req.Package)
	limit := adaptiveLimit(req.LimitMinutes, pattern)

	if pattern.IsPeakHour(now.Hour()) && float64(req.UsageMinutes) >= float64(limit)*earlyInterventionRatio {
		return models.BlockingDecision{
			ShouldBlock:            true,
			Reason:                 "peak usage hour, intervening before the limit",
			Challenge:              models.ChallengeMindfulness,
			CoolingOff:             earlyInterventionCoolOff,
			AllowedOvertimeMinutes: int(float64(limit) * earlyInterventionOvertime),
		}
	}
	if req.UsageMinutes >= limit {
		return models.BlockingDecision{
			ShouldBlock:            true,
			Reason:                 fmt.Sprintf("adaptive limit of %d minutes reached", limit),
			Challenge:              adaptiveChallenge(pattern),
			AllowedOvertimeMinutes: int(float64(limit) * adaptiveBlockOvertime),
		}
	}
	return noBlock(fmt.Sprintf("within adaptive limit of %d minutes", limit))
}

// strictStrategy blocks hard at the literal limit and warns at 90% of it.
type strictStrategy struct{}

const (
	strictCoolingOff   = 10 * time.Minute
	strictWarningRatio = 0.9
)

func (strictStrategy) Evaluate(req CheckRequest, now time.Time) models.BlockingDecision {
	if req.UsageMinutes >= req.LimitMinutes {
		return models.BlockingDecision{
			ShouldBlock: true,
			Reason:      fmt.Sprintf("strict limit of %d minutes reached", req.LimitMinutes),
			Challenge:   models.ChallengeComplexMath,
			CoolingOff:  strictCoolingOff,
		}
	}
	if float64(req.UsageMinutes) >= float64(req.LimitMinutes)*strictWarningRatio {
		return models.BlockingDecision{
			ShouldBlock: false,
			Reason:      fmt.Sprintf("approaching strict limit of %d minutes", req.LimitMinutes),
			Challenge:   models.ChallengeNone,
			Warning:     true,
		}
	}
	return noBlock("within strict limit")
}
