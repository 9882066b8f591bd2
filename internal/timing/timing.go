// Package timing provides pure scheduling computations for FocusGuard.
//
// The functions here decide when a notification should ideally fire, how
// important it is, and how effective a delivery at a given moment would be.
// They read only their inputs; all state (context snapshots, engagement
// metrics, sleep windows) is supplied by the caller.
package timing

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// Thresholds and canonical hours used by the computations.
const (
	// FatigueCutoff is the fatigue score above which no time is appropriate.
	FatigueCutoff = 0.8
	// LowPreferenceThreshold retargets low-preference types to peak hours.
	LowPreferenceThreshold = 0.3
	// HighPreferenceThreshold maps to high priority.
	HighPreferenceThreshold = 0.8
	// NormalPreferenceThreshold maps to normal priority.
	NormalPreferenceThreshold = 0.5
)

// peakEngagementHours are fallback hours with generally strong engagement.
var peakEngagementHours = []int{10, 11, 14, 15, 19, 20}

// representativeHour returns the canonical delivery hour for a time-of-day
// period.
func representativeHour(period models.TimeOfDay) int {
	switch period {
	case models.TimeOfDayMorning:
		return 8
	case models.TimeOfDayAfternoon:
		return 14
	case models.TimeOfDayEvening:
		return 19
	default:
		return 21
	}
}

// OptimalNotificationTime computes the best delivery instant for a
// notification, starting from baseTime and refining it step by step. Each
// step operates on the output of the previous one.
func OptimalNotificationTime(notificationType string, baseTime time.Time, req *models.ContextRequirement, eng models.EngagementMetrics, sleepStartHour, sleepEndHour int) time.Time {
	optimal := baseTime

	// Step 1: snap to the next historically optimal hour, if any are known.
	if len(eng.OptimalHours) > 0 {
		optimal = nextHourAtOrAfter(optimal, eng.OptimalHours)
	}

	// Step 2: honor an explicit time-of-day requirement, pinning the weekday
	// too when one is required.
	if req != nil && req.TimeOfDay != nil {
		optimal = atHour(optimal, representativeHour(*req.TimeOfDay))
		if req.DayOfWeek != nil {
			for optimal.Weekday() != *req.DayOfWeek {
				optimal = optimal.AddDate(0, 0, 1)
			}
		}
	}

	// Step 3: shift out of the sleep window to the slot right after it ends.
	if hourInWindow(optimal.Hour(), sleepStartHour, sleepEndHour) {
		optimal = nextOccurrenceOfHour(optimal, sleepEndHour)
	}

	// Step 4: a decreasing engagement trend retargets to the single most
	// effective hour on record.
	if eng.Trend == models.TrendDecreasing && len(eng.TimeEffectiveness) > 0 {
		optimal = atHour(optimal, bestEffectivenessHour(eng.TimeEffectiveness))
	}

	// Step 5: low learned preference retargets to the nearest peak hour.
	if eng.TypePreference(notificationType) < LowPreferenceThreshold {
		optimal = atHour(optimal, nearestPeakHour(optimal.Hour()))
	}

	slog.Debug("OptimalNotificationTime computed",
		"type", notificationType, "base", baseTime, "optimal", optimal)
	return optimal
}

// DeterminePriority derives a delivery priority from context and learned
// preference.
func DeterminePriority(notificationType string, ctx models.UserContext, eng models.EngagementMetrics) models.Priority {
	if ctx.IsSleepTime {
		if isUrgentType(notificationType) {
			return models.PriorityHigh
		}
		return models.PriorityLow
	}
	if ctx.IsFocusTime {
		if typeContainsAny(notificationType, "break", "reminder") {
			return models.PriorityNormal
		}
		return models.PriorityLow
	}
	pref := eng.TypePreference(notificationType)
	switch {
	case pref >= HighPreferenceThreshold:
		return models.PriorityHigh
	case pref >= NormalPreferenceThreshold:
		return models.PriorityNormal
	default:
		return models.PriorityLow
	}
}

// IsAppropriateTime reports whether delivering the given type at the given
// moment is acceptable. Being outside historically optimal hours is logged
// but does not by itself make a time inappropriate.
func IsAppropriateTime(notificationType string, t time.Time, ctx models.UserContext, eng models.EngagementMetrics) bool {
	if ctx.IsSleepTime && !isUrgentType(notificationType) {
		return false
	}
	if ctx.IsFocusTime && !typeContainsAny(notificationType, "break", "reminder", "time") {
		return false
	}
	if eng.FatigueScore > FatigueCutoff {
		return false
	}
	if len(eng.OptimalHours) > 0 && !containsHour(eng.OptimalHours, t.Hour()) {
		slog.Debug("IsAppropriateTime: outside optimal hours",
			"type", notificationType, "hour", t.Hour(), "optimalHours", eng.OptimalHours)
	}
	return true
}

// EffectivenessScore estimates how effective delivering the given type at
// the given moment would be, on a 0-1 scale.
func EffectivenessScore(notificationType string, t time.Time, ctx models.UserContext, eng models.EngagementMetrics) float64 {
	score := 0.5

	// Learned preference contributes up to +/-0.3.
	score += (eng.TypePreference(notificationType) - 0.5) * 0.6

	// Hour-of-day effectiveness contributes up to +/-0.3.
	timeEff := 0.5
	if eng.TimeEffectiveness != nil {
		if v, ok := eng.TimeEffectiveness[t.Hour()]; ok {
			timeEff = v
		}
	}
	score += (timeEff - 0.5) * 0.6

	if IsAppropriateTime(notificationType, t, ctx, eng) {
		score += 0.2
	} else {
		score -= 0.3
	}

	switch eng.Trend {
	case models.TrendIncreasing:
		score += 0.1
	case models.TrendDecreasing:
		score -= 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// nextHourAtOrAfter finds the earliest candidate among hours that starts at
// or after t, wrapping to the following day when none remain today.
func nextHourAtOrAfter(t time.Time, hours []int) time.Time {
	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)
	for _, h := range sorted {
		candidate := atHour(t, h)
		if !candidate.Before(t) {
			return candidate
		}
	}
	return atHour(t.AddDate(0, 0, 1), sorted[0])
}

// atHour returns t's date at the given hour, zeroing minutes and seconds.
func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// nextOccurrenceOfHour returns the next instant strictly at the given hour
// at or after t.
func nextOccurrenceOfHour(t time.Time, hour int) time.Time {
	candidate := atHour(t, hour)
	if candidate.Before(t) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// hourInWindow reports whether hour falls inside [start, end), supporting
// windows that wrap past midnight. A zero-length window matches nothing.
func hourInWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// bestEffectivenessHour returns the hour with the highest recorded
// effectiveness. Ties resolve to the earliest hour for determinism.
func bestEffectivenessHour(effectiveness map[int]float64) int {
	bestHour := 0
	bestScore := -1.0
	for h := 0; h < 24; h++ {
		if v, ok := effectiveness[h]; ok && v > bestScore {
			bestHour = h
			bestScore = v
		}
	}
	return bestHour
}

// nearestPeakHour picks the peak engagement hour closest to the given hour
// by circular hour distance.
func nearestPeakHour(hour int) int {
	best := peakEngagementHours[0]
	bestDist := circularHourDistance(hour, best)
	for _, h := range peakEngagementHours[1:] {
		if d := circularHourDistance(hour, h); d < bestDist {
			best = h
			bestDist = d
		}
	}
	return best
}

// circularHourDistance measures hour distance on the 24-hour clock face.
func circularHourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}

// isUrgentType reports whether the type is tagged critical or urgent.
func isUrgentType(notificationType string) bool {
	return typeContainsAny(notificationType, "critical", "urgent")
}

func typeContainsAny(notificationType string, substrings ...string) bool {
	lower := strings.ToLower(notificationType)
	for _, s := range substrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
