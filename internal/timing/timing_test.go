package timing

import (
	"math"
	"testing"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// baseTuesday is 2026-03-10 09:30 UTC, a Tuesday.
var baseTuesday = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func TestOptimalTimeSnapsToOptimalHour(t *testing.T) {
	eng := models.EngagementMetrics{OptimalHours: []int{10, 14}}
	got := OptimalNotificationTime("reminder", baseTuesday, nil, eng, 22, 7)
	want := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOptimalTimeWrapsToNextDay(t *testing.T) {
	eng := models.EngagementMetrics{OptimalHours: []int{10, 14}}
	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	got := OptimalNotificationTime("reminder", base, nil, eng, 22, 7)
	want := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected wrap to next day 10:00, got %v", got)
	}
}

func TestOptimalTimeHonorsTimeOfDayRequirement(t *testing.T) {
	evening := models.TimeOfDayEvening
	req := &models.ContextRequirement{TimeOfDay: &evening}
	got := OptimalNotificationTime("reminder", baseTuesday, req, models.EngagementMetrics{}, 22, 7)
	if got.Hour() != 19 {
		t.Errorf("expected representative evening hour 19, got %d", got.Hour())
	}
}

func TestOptimalTimePinsRequiredWeekday(t *testing.T) {
	morning := models.TimeOfDayMorning
	friday := time.Friday
	req := &models.ContextRequirement{TimeOfDay: &morning, DayOfWeek: &friday}
	got := OptimalNotificationTime("reminder", baseTuesday, req, models.EngagementMetrics{}, 22, 7)
	if got.Weekday() != time.Friday {
		t.Errorf("expected Friday, got %v", got.Weekday())
	}
	if got.Hour() != 8 {
		t.Errorf("expected representative morning hour 8, got %d", got.Hour())
	}
}

func TestOptimalTimeShiftsOutOfSleepWindow(t *testing.T) {
	base := time.Date(2026, 3, 10, 23, 15, 0, 0, time.UTC)
	got := OptimalNotificationTime("reminder", base, nil, models.EngagementMetrics{}, 22, 7)
	want := time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected shift to sleep end %v, got %v", want, got)
	}
}

func TestOptimalTimeDecreasingTrendUsesBestHour(t *testing.T) {
	eng := models.EngagementMetrics{
		Trend:             models.TrendDecreasing,
		TimeEffectiveness: map[int]float64{9: 0.9, 15: 0.4},
	}
	got := OptimalNotificationTime("reminder", baseTuesday, nil, eng, 22, 7)
	if got.Hour() != 9 {
		t.Errorf("expected best-effectiveness hour 9, got %d", got.Hour())
	}
}

func TestOptimalTimeLowPreferenceRetargetsToPeakHour(t *testing.T) {
	eng := models.EngagementMetrics{
		TypePreferences: map[string]float64{"digest": 0.1},
	}
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	got := OptimalNotificationTime("digest", base, nil, eng, 22, 7)
	if got.Hour() != 10 {
		t.Errorf("expected nearest peak hour 10, got %d", got.Hour())
	}
}

func TestDeterminePriority(t *testing.T) {
	asleep := models.UserContext{IsSleepTime: true}
	focused := models.UserContext{IsFocusTime: true}
	awake := models.UserContext{}

	cases := []struct {
		name     string
		notiType string
		ctx      models.UserContext
		eng      models.EngagementMetrics
		want     models.Priority
	}{
		{"urgent during sleep", "urgent_alert", asleep, models.EngagementMetrics{}, models.PriorityHigh},
		{"ordinary during sleep", "reminder", asleep, models.EngagementMetrics{}, models.PriorityLow},
		{"break reminder during focus", "break_reminder", focused, models.EngagementMetrics{}, models.PriorityNormal},
		{"digest during focus", "digest", focused, models.EngagementMetrics{}, models.PriorityLow},
		{"high preference", "reminder", awake,
			models.EngagementMetrics{TypePreferences: map[string]float64{"reminder": 0.9}}, models.PriorityHigh},
		{"default preference", "reminder", awake, models.EngagementMetrics{}, models.PriorityNormal},
		{"low preference", "reminder", awake,
			models.EngagementMetrics{TypePreferences: map[string]float64{"reminder": 0.3}}, models.PriorityLow},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DeterminePriority(c.notiType, c.ctx, c.eng); got != c.want {
				t.Errorf("expected %q, got %q", c.want, got)
			}
		})
	}
}

func TestIsAppropriateTime(t *testing.T) {
	now := baseTuesday

	asleep := models.UserContext{IsSleepTime: true}
	if IsAppropriateTime("reminder", now, asleep, models.EngagementMetrics{}) {
		t.Error("expected sleep time inappropriate for ordinary notifications")
	}
	if !IsAppropriateTime("critical_alert", now, asleep, models.EngagementMetrics{}) {
		t.Error("expected sleep time appropriate for critical notifications")
	}

	focused := models.UserContext{IsFocusTime: true}
	if IsAppropriateTime("digest", now, focused, models.EngagementMetrics{}) {
		t.Error("expected focus time inappropriate for digests")
	}
	if !IsAppropriateTime("break_reminder", now, focused, models.EngagementMetrics{}) {
		t.Error("expected focus time appropriate for break reminders")
	}

	fatigued := models.EngagementMetrics{FatigueScore: 0.9}
	if IsAppropriateTime("reminder", now, models.UserContext{}, fatigued) {
		t.Error("expected high fatigue to make any time inappropriate")
	}

	// Being outside optimal hours alone does not disqualify a time.
	offHours := models.EngagementMetrics{OptimalHours: []int{20}}
	if !IsAppropriateTime("reminder", now, models.UserContext{}, offHours) {
		t.Error("expected time outside optimal hours to remain appropriate")
	}
}

func TestEffectivenessScore(t *testing.T) {
	now := baseTuesday
	awake := models.UserContext{}

	// Neutral inputs land at 0.5 plus the appropriateness bonus.
	neutral := EffectivenessScore("reminder", now, awake, models.EngagementMetrics{Trend: models.TrendStable})
	if math.Abs(neutral-0.7) > 1e-9 {
		t.Errorf("expected neutral score 0.7, got %v", neutral)
	}

	// Strong preference saturates to 1.
	strong := EffectivenessScore("reminder", now, awake, models.EngagementMetrics{
		TypePreferences: map[string]float64{"reminder": 1.0},
		Trend:           models.TrendIncreasing,
	})
	if strong != 1.0 {
		t.Errorf("expected saturated score 1.0, got %v", strong)
	}

	// Everything against the delivery clamps at 0.
	weak := EffectivenessScore("reminder", now, models.UserContext{IsSleepTime: true}, models.EngagementMetrics{
		TypePreferences:   map[string]float64{"reminder": 0},
		TimeEffectiveness: map[int]float64{now.Hour(): 0},
		Trend:             models.TrendDecreasing,
	})
	if weak != 0 {
		t.Errorf("expected clamped score 0, got %v", weak)
	}
}

func TestCircularHourDistance(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{8, 10, 2},
		{23, 1, 2},
		{0, 12, 12},
		{5, 5, 0},
	}
	for _, c := range cases {
		if got := circularHourDistance(c.a, c.b); got != c.want {
			t.Errorf("circularHourDistance(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestHourInWindow(t *testing.T) {
	if !hourInWindow(23, 22, 7) || !hourInWindow(3, 22, 7) {
		t.Error("expected 23 and 3 inside a 22-7 window")
	}
	if hourInWindow(7, 22, 7) || hourInWindow(12, 22, 7) {
		t.Error("expected 7 and 12 outside a 22-7 window")
	}
	if hourInWindow(5, 5, 5) {
		t.Error("expected a zero-length window to match nothing")
	}
}
