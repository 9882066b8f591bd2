package blocking

import (
	"log/slog"
	"sort"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// Pattern analysis tuning.
const (
	// patternLookback is how far back usage history is considered.
	patternLookback = 14 * 24 * time.Hour
	// bingeSessionMinutes marks a session as binge-like.
	bingeSessionMinutes = 30
	// maxPeakHours caps how many peak hours a pattern carries.
	maxPeakHours = 3
)

// PatternSource derives a usage pattern for a monitored app. The Adaptive
// strategy consults it on every decision.
type PatternSource interface {
	Pattern(pkg string) models.UserPattern
}

// SessionSource supplies recorded usage sessions, typically the store.
type SessionSource interface {
	GetUsageSessions(pkg string, since time.Time) ([]models.UsageSession, error)
}

// Analyzer computes UserPatterns from recorded usage sessions.
type Analyzer struct {
	sessions SessionSource
	nowFunc  func() time.Time
}

// NewAnalyzer creates a pattern analyzer backed by the given session source.
func NewAnalyzer(sessions SessionSource) *Analyzer {
	return &Analyzer{sessions: sessions, nowFunc: time.Now}
}

// neutralPattern is used when no history is available; it leaves the
// adaptive limit unchanged.
func neutralPattern() models.UserPattern {
	return models.UserPattern{BingeTendency: 0.5, SelfControlScore: 0.5}
}

// Pattern derives peak hours, average session length, binge tendency, and a
// self-control score from recent usage history. With no history it returns
// a neutral pattern.
func (a *Analyzer) Pattern(pkg string) models.UserPattern {
	since := a.nowFunc().Add(-patternLookback)
	sessions, err := a.sessions.GetUsageSessions(pkg, since)
	if err != nil {
		slog.Warn("Analyzer.Pattern: failed to load usage sessions", "package", pkg, "error", err)
		return neutralPattern()
	}
	if len(sessions) == 0 {
		return neutralPattern()
	}

	totalMinutes := 0
	bingeSessions := 0
	minutesByHour := make(map[int]int)
	for _, s := range sessions {
		totalMinutes += s.DurationMinutes
		if s.DurationMinutes >= bingeSessionMinutes {
			bingeSessions++
		}
		minutesByHour[s.StartTime.Hour()] += s.DurationMinutes
	}

	avgSession := float64(totalMinutes) / float64(len(sessions))
	binge := float64(bingeSessions) / float64(len(sessions))

	// Longer average sessions and more binges both indicate weaker
	// self-control; the score stays in [0, 1].
	sessionFactor := avgSession / 90
	if sessionFactor > 1 {
		sessionFactor = 1
	}
	selfControl := 1 - 0.5*binge - 0.5*sessionFactor
	if selfControl < 0 {
		selfControl = 0
	}

	pattern := models.UserPattern{
		PeakHours:         topHours(minutesByHour, maxPeakHours),
		AvgSessionMinutes: avgSession,
		BingeTendency:     binge,
		SelfControlScore:  selfControl,
	}
	slog.Debug("Analyzer.Pattern: derived usage pattern",
		"package", pkg, "sessions", len(sessions), "avgSession", avgSession,
		"binge", binge, "selfControl", selfControl, "peakHours", pattern.PeakHours)
	return pattern
}

// topHours returns up to limit hours ranked by total usage minutes.
// Ties resolve to the earlier hour for determinism.
func topHours(minutesByHour map[int]int, limit int) []int {
	hours := make([]int, 0, len(minutesByHour))
	for h, minutes := range minutesByHour {
		if minutes > 0 {
			hours = append(hours, h)
		}
	}
	sort.Slice(hours, func(i, j int) bool {
		if minutesByHour[hours[i]] != minutesByHour[hours[j]] {
			return minutesByHour[hours[i]] > minutesByHour[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > limit {
		hours = hours[:limit]
	}
	sort.Ints(hours)
	return hours
}

// StaticPatternSource returns a fixed pattern, for tests and setups without
// usage history.
type StaticPatternSource struct {
	P models.UserPattern
}

// Pattern returns the fixed pattern.
func (s StaticPatternSource) Pattern(string) models.UserPattern { return s.P }
