// Package models defines the core data structures for FocusGuard.
//
// It includes types for scheduled and recurring notifications, user context
// snapshots, and engagement metrics, which are shared across modules.
package models

import (
	"errors"
	"strconv"
	"time"
)

// Priority indicates how important a notification is for delivery gating.
type Priority string

const (
	// PriorityLow marks notifications that may be freely dropped.
	PriorityLow Priority = "low"
	// PriorityNormal is the default priority.
	PriorityNormal Priority = "normal"
	// PriorityHigh marks notifications that should be preferred.
	PriorityHigh Priority = "high"
	// PriorityCritical bypasses sleep-time and low-preference gating.
	PriorityCritical Priority = "critical"
)

// IsValidPriority checks if the given priority is supported.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Level returns a numeric rank for the priority, usable by delivery channels.
func (p Priority) Level() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// TimeOfDay buckets the clock into coarse periods used by context matching.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

// TimeOfDayForHour maps an hour of day (0-23) to its TimeOfDay bucket.
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return TimeOfDayMorning
	case hour >= 12 && hour < 17:
		return TimeOfDayAfternoon
	case hour >= 17 && hour < 21:
		return TimeOfDayEvening
	default:
		return TimeOfDayNight
	}
}

// UsageIntensity describes how heavily the user is currently using devices.
type UsageIntensity string

const (
	UsageIntensityLow    UsageIntensity = "low"
	UsageIntensityMedium UsageIntensity = "medium"
	UsageIntensityHigh   UsageIntensity = "high"
)

// EngagementLevel describes how responsive the user currently is.
type EngagementLevel string

const (
	EngagementLevelLow    EngagementLevel = "low"
	EngagementLevelMedium EngagementLevel = "medium"
	EngagementLevelHigh   EngagementLevel = "high"
)

// EngagementTrend describes the direction of recent engagement changes.
type EngagementTrend string

const (
	TrendIncreasing EngagementTrend = "increasing"
	TrendDecreasing EngagementTrend = "decreasing"
	TrendStable     EngagementTrend = "stable"
)

// UserContext is a point-in-time snapshot of the user's situation.
type UserContext struct {
	TimeOfDay       TimeOfDay       `json:"time_of_day"`
	DayOfWeek       time.Weekday    `json:"day_of_week"`
	IsSleepTime     bool            `json:"is_sleep_time"`
	IsWorkTime      bool            `json:"is_work_time"`
	IsFocusTime     bool            `json:"is_focus_time"`
	UsageIntensity  UsageIntensity  `json:"usage_intensity"`
	EngagementLevel EngagementLevel `json:"engagement_level"`
}

// EngagementMetrics summarizes learned user-engagement signals.
type EngagementMetrics struct {
	// FatigueScore is 0-1; above the high-fatigue threshold delivery is gated.
	FatigueScore float64 `json:"fatigue_score"`
	// TypePreferences maps notification type to a learned 0-1 preference.
	TypePreferences map[string]float64 `json:"type_preferences"`
	Trend           EngagementTrend    `json:"trend"`
	// OptimalHours lists hours of day with historically good responses.
	OptimalHours []int `json:"optimal_hours"`
	// TimeEffectiveness maps hour of day to a 0-1 effectiveness score.
	TimeEffectiveness map[int]float64 `json:"time_effectiveness"`
}

// TypePreference returns the learned preference for a notification type,
// defaulting to 0.5 when nothing has been learned yet.
func (m EngagementMetrics) TypePreference(notificationType string) float64 {
	if m.TypePreferences == nil {
		return 0.5
	}
	if p, ok := m.TypePreferences[notificationType]; ok {
		return p
	}
	return 0.5
}

// ContextRequirement restricts delivery to matching situational conditions.
// Nil fields are unconstrained; all non-nil fields must match (AND semantics).
type ContextRequirement struct {
	TimeOfDay       *TimeOfDay       `json:"time_of_day,omitempty"`
	DayOfWeek       *time.Weekday    `json:"day_of_week,omitempty"`
	IsSleepTime     *bool            `json:"is_sleep_time,omitempty"`
	IsWorkTime      *bool            `json:"is_work_time,omitempty"`
	IsFocusTime     *bool            `json:"is_focus_time,omitempty"`
	UsageIntensity  *UsageIntensity  `json:"usage_intensity,omitempty"`
	EngagementLevel *EngagementLevel `json:"engagement_level,omitempty"`
}

// Matches reports whether every constrained field equals the observed context.
func (r *ContextRequirement) Matches(ctx UserContext) bool {
	if r == nil {
		return true
	}
	if r.TimeOfDay != nil && *r.TimeOfDay != ctx.TimeOfDay {
		return false
	}
	if r.DayOfWeek != nil && *r.DayOfWeek != ctx.DayOfWeek {
		return false
	}
	if r.IsSleepTime != nil && *r.IsSleepTime != ctx.IsSleepTime {
		return false
	}
	if r.IsWorkTime != nil && *r.IsWorkTime != ctx.IsWorkTime {
		return false
	}
	if r.IsFocusTime != nil && *r.IsFocusTime != ctx.IsFocusTime {
		return false
	}
	if r.UsageIntensity != nil && *r.UsageIntensity != ctx.UsageIntensity {
		return false
	}
	if r.EngagementLevel != nil && *r.EngagementLevel != ctx.EngagementLevel {
		return false
	}
	return true
}

// Validation constants for input validation
const (
	// MaxTitleLength defines the maximum allowed length for notification titles
	MaxTitleLength = 200
	// MaxContentLength defines the maximum allowed length for notification content
	MaxContentLength = 4096
)

// Metadata keys recognized on scheduled notifications.
const (
	// MetadataKeyRecurrenceType declares a recurrence unit (see RecurrenceType).
	MetadataKeyRecurrenceType = "recurrence_type"
	// MetadataKeyRecurrenceInterval declares the integer recurrence interval.
	MetadataKeyRecurrenceInterval = "recurrence_interval"
)

// Error variables for better error handling and testability
var (
	ErrEmptyNotificationID       = errors.New("notification id cannot be empty")
	ErrEmptyNotificationType     = errors.New("notification type cannot be empty")
	ErrInvalidPriority           = errors.New("invalid notification priority")
	ErrTitleTooLong              = errors.New("notification title exceeds maximum length")
	ErrContentTooLong            = errors.New("notification content exceeds maximum length")
	ErrZeroScheduledTime         = errors.New("scheduled time is required")
	ErrInvalidRecurrenceType     = errors.New("invalid recurrence type")
	ErrInvalidRecurrenceInterval = errors.New("recurrence interval must be a positive integer")
)

// ScheduledNotification represents a one-shot notification awaiting delivery.
type ScheduledNotification struct {
	ID                 string              `json:"id"`
	Type               string              `json:"type"`
	Title              string              `json:"title"`
	Content            string              `json:"content,omitempty"`
	ScheduledTime      time.Time           `json:"scheduled_time"`
	Priority           Priority            `json:"priority,omitempty"`
	ContextRequirement *ContextRequirement `json:"context_requirement,omitempty"`
	UserID             string              `json:"user_id,omitempty"`
	Metadata           map[string]string   `json:"metadata,omitempty"`
}

// Validate performs validation on a ScheduledNotification structure.
func (n *ScheduledNotification) Validate() error {
	if n.ID == "" {
		return ErrEmptyNotificationID
	}
	if n.Type == "" {
		return ErrEmptyNotificationType
	}
	if n.Priority != "" && !IsValidPriority(n.Priority) {
		return ErrInvalidPriority
	}
	if len(n.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(n.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	if n.ScheduledTime.IsZero() {
		return ErrZeroScheduledTime
	}
	if _, _, declared, err := n.Recurrence(); declared && err != nil {
		return err
	}
	return nil
}

// Recurrence extracts a recurrence declaration from the notification metadata.
// declared is false when the metadata carries no recurrence type at all.
func (n *ScheduledNotification) Recurrence() (RecurrenceType, int, bool, error) {
	if n.Metadata == nil {
		return "", 0, false, nil
	}
	raw, ok := n.Metadata[MetadataKeyRecurrenceType]
	if !ok || raw == "" {
		return "", 0, false, nil
	}
	rt := RecurrenceType(raw)
	if !IsValidRecurrenceType(rt) {
		return "", 0, true, ErrInvalidRecurrenceType
	}
	interval := 1
	if rawInterval, ok := n.Metadata[MetadataKeyRecurrenceInterval]; ok && rawInterval != "" {
		v, err := strconv.Atoi(rawInterval)
		if err != nil || v <= 0 {
			return "", 0, true, ErrInvalidRecurrenceInterval
		}
		interval = v
	}
	return rt, interval, true, nil
}

// RecurrenceType defines the calendar unit a recurring notification advances by.
type RecurrenceType string

const (
	RecurrenceMinutely RecurrenceType = "minutely"
	RecurrenceHourly   RecurrenceType = "hourly"
	RecurrenceDaily    RecurrenceType = "daily"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
)

// IsValidRecurrenceType checks if the given recurrence type is supported.
func IsValidRecurrenceType(rt RecurrenceType) bool {
	switch rt {
	case RecurrenceMinutely, RecurrenceHourly, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// RecurringNotification is a registered template that fires repeatedly.
type RecurringNotification struct {
	ID                string                `json:"id"`
	Base              ScheduledNotification `json:"base"`
	Interval          int                   `json:"interval"`
	Recurrence        RecurrenceType        `json:"recurrence"`
	Enabled           bool                  `json:"enabled"`
	NextScheduledTime time.Time             `json:"next_scheduled_time"`
}

// SchedulerStatus is a snapshot of the scheduler's internal counters.
type SchedulerStatus struct {
	IsRunning             bool `json:"is_running"`
	QueuedCount           int  `json:"queued_count"`
	RecurringCount        int  `json:"recurring_count"`
	ActiveThrottleWindows int  `json:"active_throttle_windows"`
}

// DeliveryRecord captures a completed hand-off to the delivery channel.
type DeliveryRecord struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id,omitempty"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Priority       Priority  `json:"priority"`
	DeliveredAt    time.Time `json:"delivered_at"`
}
