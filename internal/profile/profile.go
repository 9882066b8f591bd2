// Package profile implements the context and engagement providers consumed
// by the notification scheduler.
//
// The context analyzer derives its snapshot from the clock and the stored
// sleep/work windows. The engagement analyzer derives metrics from the
// delivery log. Sensor-grade detection (motion, app-in-foreground focus) is
// out of scope; those signals stay stubbed at conservative values.
package profile

import (
	"log/slog"
	"sort"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// Default windows used when nothing is configured.
const (
	DefaultSleepStartHour = 22
	DefaultSleepEndHour   = 7
	DefaultWorkStartHour  = 9
	DefaultWorkEndHour    = 17
)

// ConfigSource supplies stored windows and rules, typically the store.
type ConfigSource interface {
	GetSleepWindow() (startHour, endHour int, err error)
	GetContextRules() (models.ContextRules, error)
}

// DeliverySource supplies the delivery log, typically the store.
type DeliverySource interface {
	GetDeliveryRecords(since time.Time) ([]models.DeliveryRecord, error)
}

// ContextAnalyzer builds UserContext snapshots from the clock and stored
// configuration.
type ContextAnalyzer struct {
	config  ConfigSource
	nowFunc func() time.Time
}

// NewContextAnalyzer creates a context analyzer backed by the given config.
func NewContextAnalyzer(config ConfigSource) *ContextAnalyzer {
	return &ContextAnalyzer{config: config, nowFunc: time.Now}
}

// AnalyzeContext returns the current situational snapshot.
func (a *ContextAnalyzer) AnalyzeContext() models.UserContext {
	now := a.nowFunc()
	hour := now.Hour()
	sleepStart, sleepEnd := a.SleepWindow()

	workStart, workEnd := DefaultWorkStartHour, DefaultWorkEndHour
	if rules, err := a.config.GetContextRules(); err == nil {
		workStart, workEnd = rules.WorkStartHour, rules.WorkEndHour
	}

	weekday := now.Weekday()
	isWeekday := weekday != time.Saturday && weekday != time.Sunday

	return models.UserContext{
		TimeOfDay:   models.TimeOfDayForHour(hour),
		DayOfWeek:   weekday,
		IsSleepTime: hourInWindow(hour, sleepStart, sleepEnd),
		IsWorkTime:  isWeekday && hour >= workStart && hour < workEnd,
		// Focus detection needs foreground-app signals this process does not
		// have; treated as never-in-focus.
		IsFocusTime:     false,
		UsageIntensity:  models.UsageIntensityMedium,
		EngagementLevel: models.EngagementLevelMedium,
	}
}

// SleepWindow returns the configured sleep window, defaulting to 22-7.
func (a *ContextAnalyzer) SleepWindow() (int, int) {
	start, end, err := a.config.GetSleepWindow()
	if err != nil {
		return DefaultSleepStartHour, DefaultSleepEndHour
	}
	return start, end
}

// Engagement analyzer tuning.
const (
	// engagementLookback is how far back the delivery log is considered.
	engagementLookback = 7 * 24 * time.Hour
	// fatigueSaturation is the 24h delivery count at which fatigue hits 1.
	fatigueSaturation = 20
	// maxOptimalHours caps the derived optimal-hour list.
	maxOptimalHours = 4
)

// EngagementAnalyzer derives engagement metrics from the delivery log.
// Without response tracking the signals are coarse: delivery volume stands
// in for exposure, and per-hour volume for hour effectiveness.
type EngagementAnalyzer struct {
	deliveries DeliverySource
	nowFunc    func() time.Time
}

// NewEngagementAnalyzer creates an engagement analyzer backed by the given
// delivery log.
func NewEngagementAnalyzer(deliveries DeliverySource) *EngagementAnalyzer {
	return &EngagementAnalyzer{deliveries: deliveries, nowFunc: time.Now}
}

// AnalyzeEngagement returns the current engagement metrics.
func (a *EngagementAnalyzer) AnalyzeEngagement() models.EngagementMetrics {
	now := a.nowFunc()
	records, err := a.deliveries.GetDeliveryRecords(now.Add(-engagementLookback))
	if err != nil {
		slog.Warn("EngagementAnalyzer.AnalyzeEngagement: failed to read delivery log", "error", err)
		return models.EngagementMetrics{Trend: models.TrendStable}
	}

	recent := 0
	countByHour := make(map[int]int)
	maxHourCount := 0
	dayAgo := now.Add(-24 * time.Hour)
	for _, record := range records {
		if record.DeliveredAt.After(dayAgo) {
			recent++
		}
		h := record.DeliveredAt.Hour()
		countByHour[h]++
		if countByHour[h] > maxHourCount {
			maxHourCount = countByHour[h]
		}
	}

	fatigue := float64(recent) / fatigueSaturation
	if fatigue > 1 {
		fatigue = 1
	}

	effectiveness := make(map[int]float64, len(countByHour))
	if maxHourCount > 0 {
		for h, c := range countByHour {
			effectiveness[h] = float64(c) / float64(maxHourCount)
		}
	}

	return models.EngagementMetrics{
		FatigueScore:      fatigue,
		Trend:             models.TrendStable,
		OptimalHours:      topDeliveryHours(countByHour, maxOptimalHours),
		TimeEffectiveness: effectiveness,
	}
}

// IdentifyOptimalTiming lists hours of day with historically good responses.
func (a *EngagementAnalyzer) IdentifyOptimalTiming() []int {
	return a.AnalyzeEngagement().OptimalHours
}

// topDeliveryHours returns up to limit hours ranked by delivery count,
// ascending by hour for determinism.
func topDeliveryHours(countByHour map[int]int, limit int) []int {
	hours := make([]int, 0, len(countByHour))
	for h := range countByHour {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if countByHour[hours[i]] != countByHour[hours[j]] {
			return countByHour[hours[i]] > countByHour[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > limit {
		hours = hours[:limit]
	}
	sort.Ints(hours)
	return hours
}

// hourInWindow reports whether hour falls inside [start, end), supporting
// windows that wrap past midnight.
func hourInWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// StaticProvider returns fixed context and engagement values. It backs
// tests and setups where no history exists yet.
type StaticProvider struct {
	Context        models.UserContext
	Engagement     models.EngagementMetrics
	SleepStartHour int
	SleepEndHour   int
}

// NewStaticProvider creates a provider with sensible neutral values.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		Context: models.UserContext{
			TimeOfDay:       models.TimeOfDayAfternoon,
			DayOfWeek:       time.Wednesday,
			UsageIntensity:  models.UsageIntensityMedium,
			EngagementLevel: models.EngagementLevelMedium,
		},
		Engagement: models.EngagementMetrics{
			Trend: models.TrendStable,
		},
		SleepStartHour: DefaultSleepStartHour,
		SleepEndHour:   DefaultSleepEndHour,
	}
}

// AnalyzeContext returns the fixed context.
func (p *StaticProvider) AnalyzeContext() models.UserContext { return p.Context }

// SleepWindow returns the fixed sleep window.
func (p *StaticProvider) SleepWindow() (int, int) { return p.SleepStartHour, p.SleepEndHour }

// AnalyzeEngagement returns the fixed engagement metrics.
func (p *StaticProvider) AnalyzeEngagement() models.EngagementMetrics { return p.Engagement }

// IdentifyOptimalTiming returns the fixed optimal hours.
func (p *StaticProvider) IdentifyOptimalTiming() []int { return p.Engagement.OptimalHours }
