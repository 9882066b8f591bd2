package models

import (
	"testing"
	"time"
)

func TestIsValidStrategyType(t *testing.T) {
	valid := []StrategyType{StrategyStandard, StrategyProgressive, StrategyAdaptive, StrategyStrict}
	for _, s := range valid {
		if !IsValidStrategyType(s) {
			t.Errorf("expected strategy %q to be valid", s)
		}
	}
	if IsValidStrategyType("lenient") {
		t.Error("expected unknown strategy to be invalid")
	}
	if IsValidStrategyType("") {
		t.Error("expected empty strategy to be invalid")
	}
}

func TestInBedtimeWraparound(t *testing.T) {
	rules := ContextRules{BedtimeStartHour: 22, BedtimeEndHour: 7}

	inside := []int{22, 23, 0, 3, 6}
	for _, h := range inside {
		if !rules.InBedtime(h) {
			t.Errorf("expected hour %d to be in bedtime window 22-7", h)
		}
	}
	outside := []int{7, 12, 21}
	for _, h := range outside {
		if rules.InBedtime(h) {
			t.Errorf("expected hour %d to be outside bedtime window 22-7", h)
		}
	}
}

func TestInBedtimeSameDayWindow(t *testing.T) {
	rules := ContextRules{BedtimeStartHour: 13, BedtimeEndHour: 15}
	if !rules.InBedtime(13) || !rules.InBedtime(14) {
		t.Error("expected 13 and 14 inside a 13-15 window")
	}
	if rules.InBedtime(15) || rules.InBedtime(12) {
		t.Error("expected 15 and 12 outside a 13-15 window")
	}
}

func TestInWorkHours(t *testing.T) {
	rules := ContextRules{WorkStartHour: 9, WorkEndHour: 17}
	if !rules.InWorkHours(9) || !rules.InWorkHours(16) {
		t.Error("expected 9 and 16 inside 9-17 work hours")
	}
	if rules.InWorkHours(17) || rules.InWorkHours(8) {
		t.Error("expected 17 and 8 outside 9-17 work hours")
	}
}

func TestInFamilyTime(t *testing.T) {
	rules := ContextRules{FamilyTimeHours: []int{18, 19}}
	if !rules.InFamilyTime(18) || !rules.InFamilyTime(19) {
		t.Error("expected 18 and 19 to be family time")
	}
	if rules.InFamilyTime(20) {
		t.Error("expected 20 to not be family time")
	}

	var empty ContextRules
	if empty.InFamilyTime(18) {
		t.Error("expected no family time with empty hours")
	}
}

func TestDefaultContextRulesDisabled(t *testing.T) {
	rules := DefaultContextRules()
	if rules.BedtimeEnabled || rules.WorkHoursEnabled || rules.FamilyTimeEnabled {
		t.Error("expected all default context overrides to be disabled")
	}
	if rules.BedtimeStartHour != 22 || rules.BedtimeEndHour != 7 {
		t.Errorf("expected default bedtime 22-7, got %d-%d", rules.BedtimeStartHour, rules.BedtimeEndHour)
	}
}

func TestUserPatternIsPeakHour(t *testing.T) {
	p := UserPattern{PeakHours: []int{20, 21}}
	if !p.IsPeakHour(20) {
		t.Error("expected 20 to be a peak hour")
	}
	if p.IsPeakHour(10) {
		t.Error("expected 10 to not be a peak hour")
	}
}

func TestUsageSessionValidate(t *testing.T) {
	valid := UsageSession{Package: "com.example.social", StartTime: time.Now(), DurationMinutes: 12}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid session, got %v", err)
	}

	missingPkg := UsageSession{StartTime: time.Now()}
	if err := missingPkg.Validate(); err == nil {
		t.Error("expected error for missing package")
	}

	missingStart := UsageSession{Package: "com.example.social"}
	if err := missingStart.Validate(); err == nil {
		t.Error("expected error for missing start time")
	}

	negative := UsageSession{Package: "com.example.social", StartTime: time.Now(), DurationMinutes: -1}
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative duration")
	}
}
