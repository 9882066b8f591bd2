package blocking

import (
	"testing"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

var checkNow = time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)

func TestStandardStrategy(t *testing.T) {
	s := standardStrategy{}

	under := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 59, LimitMinutes: 60}, checkNow)
	if under.ShouldBlock {
		t.Error("expected no block under the limit")
	}
	if under.Challenge != models.ChallengeNone {
		t.Errorf("expected no challenge under the limit, got %q", under.Challenge)
	}

	at := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 60, LimitMinutes: 60}, checkNow)
	if !at.ShouldBlock {
		t.Error("expected block at the limit")
	}
	if at.Challenge != models.ChallengeMath {
		t.Errorf("expected math challenge, got %q", at.Challenge)
	}
	if at.CoolingOff != 0 {
		t.Errorf("expected no cooling-off, got %v", at.CoolingOff)
	}
}

func TestProgressiveEffectiveLimit(t *testing.T) {
	cases := []struct {
		violations int
		want       int
	}{
		{0, 60},
		{1, 54},
		{2, 48},
		{5, 30},
		{9, 30},  // shrink capped at 50%
		{20, 30}, // still capped
	}
	for _, c := range cases {
		if got := progressiveEffectiveLimit(60, c.violations); got != c.want {
			t.Errorf("progressiveEffectiveLimit(60, %d) = %d, want %d", c.violations, got, c.want)
		}
	}

	// The quarter floor beats the 50% cap for small limits.
	if got := progressiveEffectiveLimit(8, 5); got != 4 {
		t.Errorf("expected the 50%% cap to yield 4 for limit 8, got %d", got)
	}
}

func TestCoolingOffForViolations(t *testing.T) {
	cases := []struct {
		violations int
		want       time.Duration
	}{
		{0, 0},
		{1, 0},
		{2, 2 * time.Minute},
		{3, 5 * time.Minute},
		{4, 10 * time.Minute},
		{5, 15 * time.Minute},
		{6, 30 * time.Minute},
		{12, 30 * time.Minute},
	}
	for _, c := range cases {
		if got := coolingOffForViolations(c.violations); got != c.want {
			t.Errorf("coolingOffForViolations(%d) = %v, want %v", c.violations, got, c.want)
		}
	}
}

func TestChallengeForViolations(t *testing.T) {
	cases := []struct {
		violations int
		want       models.ChallengeType
	}{
		{0, models.ChallengeMath},
		{1, models.ChallengeMath},
		{2, models.ChallengeReflection},
		{3, models.ChallengeReflection},
		{4, models.ChallengePhysical},
		{5, models.ChallengePhysical},
		{6, models.ChallengeWaiting},
		{10, models.ChallengeWaiting},
	}
	for _, c := range cases {
		if got := challengeForViolations(c.violations); got != c.want {
			t.Errorf("challengeForViolations(%d) = %q, want %q", c.violations, got, c.want)
		}
	}
}

func TestProgressiveStrategyEscalates(t *testing.T) {
	s := progressiveStrategy{violations: NewViolationStore()}
	req := CheckRequest{Package: "com.example.social", UsageMinutes: 60, LimitMinutes: 60}

	// First block of the day uses the prior count of zero.
	first := s.Evaluate(req, checkNow)
	if !first.ShouldBlock {
		t.Fatal("expected block at the limit")
	}
	if first.Challenge != models.ChallengeMath || first.CoolingOff != 0 {
		t.Errorf("expected math challenge with no cooling-off, got %+v", first)
	}

	// The second block sees one prior violation: limit shrinks to 54, still
	// math, still no cooling-off.
	second := s.Evaluate(req, checkNow)
	if !second.ShouldBlock || second.Challenge != models.ChallengeMath || second.CoolingOff != 0 {
		t.Errorf("unexpected second decision %+v", second)
	}

	// The third sees two: reflection with a 2 minute cooling-off.
	third := s.Evaluate(req, checkNow)
	if third.Challenge != models.ChallengeReflection || third.CoolingOff != 2*time.Minute {
		t.Errorf("unexpected third decision %+v", third)
	}
}

func TestProgressiveStrategyShrinksLimit(t *testing.T) {
	store := NewViolationStore()
	s := progressiveStrategy{violations: store}
	store.Increment("com.example.social", checkNow)
	store.Increment("com.example.social", checkNow)

	// Two violations shrink the effective limit to 48; 47 minutes stays under.
	d := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 47, LimitMinutes: 60}, checkNow)
	if d.ShouldBlock {
		t.Error("expected no block under the shrunk limit")
	}

	// 50 minutes crosses it.
	d = s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 50, LimitMinutes: 60}, checkNow)
	if !d.ShouldBlock {
		t.Error("expected block above the shrunk limit")
	}
}

func TestProgressiveStrategyResetsDaily(t *testing.T) {
	store := NewViolationStore()
	s := progressiveStrategy{violations: store}
	for i := 0; i < 4; i++ {
		store.Increment("com.example.social", checkNow)
	}

	// The next calendar day starts from a clean count.
	tomorrow := checkNow.AddDate(0, 0, 1)
	d := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 59, LimitMinutes: 60}, tomorrow)
	if d.ShouldBlock {
		t.Error("expected yesterday's violations to not shrink today's limit")
	}
}

func TestAdaptiveLimit(t *testing.T) {
	cases := []struct {
		name    string
		pattern models.UserPattern
		want    int
	}{
		{"neutral", models.UserPattern{SelfControlScore: 0.5, BingeTendency: 0.5}, 60},
		{"low self-control", models.UserPattern{SelfControlScore: 0.4, BingeTendency: 0.5}, 48},
		{"high binge", models.UserPattern{SelfControlScore: 0.5, BingeTendency: 0.8}, 54},
		{"both", models.UserPattern{SelfControlScore: 0.4, BingeTendency: 0.8}, 43},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := adaptiveLimit(60, c.pattern); got != c.want {
				t.Errorf("expected %d, got %d", c.want, got)
			}
		})
	}
}

func TestAdaptiveChallenge(t *testing.T) {
	cases := []struct {
		name    string
		pattern models.UserPattern
		want    models.ChallengeType
	}{
		{"very low self-control", models.UserPattern{SelfControlScore: 0.2, BingeTendency: 0.5}, models.ChallengeWaiting},
		{"heavy binger", models.UserPattern{SelfControlScore: 0.5, BingeTendency: 0.9}, models.ChallengeReflection},
		{"long sessions", models.UserPattern{SelfControlScore: 0.5, BingeTendency: 0.5, AvgSessionMinutes: 45}, models.ChallengePhysical},
		{"default", models.UserPattern{SelfControlScore: 0.5, BingeTendency: 0.5, AvgSessionMinutes: 10}, models.ChallengeMath},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := adaptiveChallenge(c.pattern); got != c.want {
				t.Errorf("expected %q, got %q", c.want, got)
			}
		})
	}
}

func TestAdaptiveStrategyEarlyIntervention(t *testing.T) {
	s := adaptiveStrategy{patterns: StaticPatternSource{P: models.UserPattern{
		PeakHours:        []int{13},
		SelfControlScore: 0.5,
		BingeTendency:    0.5,
	}}}

	// 13:00 is a peak hour and usage is past 80% of the limit.
	d := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 49, LimitMinutes: 60}, checkNow)
	if !d.ShouldBlock {
		t.Fatal("expected early intervention at a peak hour")
	}
	if d.Challenge != models.ChallengeMindfulness {
		t.Errorf("expected mindfulness challenge, got %q", d.Challenge)
	}
	if d.CoolingOff != 5*time.Minute {
		t.Errorf("expected 5 minute cooling-off, got %v", d.CoolingOff)
	}
	if d.AllowedOvertimeMinutes != 6 {
		t.Errorf("expected 10%% overtime of 6 minutes, got %d", d.AllowedOvertimeMinutes)
	}

	// Off-peak, the same usage stays unblocked.
	offPeak := checkNow.Add(2 * time.Hour)
	d = s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 49, LimitMinutes: 60}, offPeak)
	if d.ShouldBlock {
		t.Error("expected no early intervention outside peak hours")
	}
}

func TestAdaptiveStrategyAtLimit(t *testing.T) {
	s := adaptiveStrategy{patterns: StaticPatternSource{P: models.UserPattern{
		SelfControlScore: 0.2,
		BingeTendency:    0.5,
	}}}

	// Self-control 0.2 shrinks the limit to 48 and picks the waiting challenge.
	d := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 48, LimitMinutes: 60}, checkNow)
	if !d.ShouldBlock {
		t.Fatal("expected block at the adaptive limit")
	}
	if d.Challenge != models.ChallengeWaiting {
		t.Errorf("expected waiting challenge, got %q", d.Challenge)
	}
	if d.AllowedOvertimeMinutes != 7 {
		t.Errorf("expected 15%% overtime of 7 minutes, got %d", d.AllowedOvertimeMinutes)
	}
}

func TestStrictStrategy(t *testing.T) {
	s := strictStrategy{}

	blocked := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 60, LimitMinutes: 60}, checkNow)
	if !blocked.ShouldBlock {
		t.Fatal("expected block at the strict limit")
	}
	if blocked.Challenge != models.ChallengeComplexMath {
		t.Errorf("expected complex math challenge, got %q", blocked.Challenge)
	}
	if blocked.CoolingOff != 10*time.Minute {
		t.Errorf("expected 10 minute cooling-off, got %v", blocked.CoolingOff)
	}
	if blocked.AllowedOvertimeMinutes != 0 {
		t.Errorf("expected zero overtime, got %d", blocked.AllowedOvertimeMinutes)
	}

	warned := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 55, LimitMinutes: 60}, checkNow)
	if warned.ShouldBlock {
		t.Error("expected a warning, not a block, near the limit")
	}
	if !warned.Warning {
		t.Error("expected the warning flag near the limit")
	}

	quiet := s.Evaluate(CheckRequest{Package: "com.example.social", UsageMinutes: 30, LimitMinutes: 60}, checkNow)
	if quiet.ShouldBlock || quiet.Warning {
		t.Errorf("expected no block and no warning well under the limit, got %+v", quiet)
	}
}
