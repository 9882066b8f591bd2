package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// storeConformance exercises the full Store surface against any backend.
func storeConformance(t *testing.T, st Store) {
	t.Helper()

	// Blocking strategy: absent, then set, then overwritten.
	if _, err := st.GetBlockingStrategy("com.example.social"); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured for an unknown app, got %v", err)
	}
	if err := st.SetBlockingStrategy("com.example.social", models.StrategyProgressive); err != nil {
		t.Fatalf("SetBlockingStrategy failed: %v", err)
	}
	if err := st.SetBlockingStrategy("com.example.social", models.StrategyStrict); err != nil {
		t.Fatalf("SetBlockingStrategy overwrite failed: %v", err)
	}
	strategy, err := st.GetBlockingStrategy("com.example.social")
	if err != nil || strategy != models.StrategyStrict {
		t.Errorf("expected strict strategy, got %q (err=%v)", strategy, err)
	}

	// Context rules round-trip.
	if _, err := st.GetContextRules(); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured without stored rules, got %v", err)
	}
	rules := models.DefaultContextRules()
	rules.BedtimeEnabled = true
	rules.FamilyTimeHours = []int{18, 19}
	if err := st.UpdateContextRules(rules); err != nil {
		t.Fatalf("UpdateContextRules failed: %v", err)
	}
	stored, err := st.GetContextRules()
	if err != nil {
		t.Fatalf("GetContextRules failed: %v", err)
	}
	if !stored.BedtimeEnabled || len(stored.FamilyTimeHours) != 2 {
		t.Errorf("unexpected stored rules %+v", stored)
	}

	// Sleep window round-trip.
	if _, _, err := st.GetSleepWindow(); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured without a sleep window, got %v", err)
	}
	if err := st.SetSleepWindow(23, 6); err != nil {
		t.Fatalf("SetSleepWindow failed: %v", err)
	}
	start, end, err := st.GetSleepWindow()
	if err != nil || start != 23 || end != 6 {
		t.Errorf("expected sleep window 23-6, got %d-%d (err=%v)", start, end, err)
	}

	// Usage sessions: filtering by package and since, plus retention.
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sessions := []models.UsageSession{
		{Package: "com.example.social", StartTime: base, DurationMinutes: 20},
		{Package: "com.example.social", StartTime: base.AddDate(0, 0, 5), DurationMinutes: 45},
		{Package: "com.example.games", StartTime: base.AddDate(0, 0, 5), DurationMinutes: 30},
	}
	for _, session := range sessions {
		if err := st.AddUsageSession(session); err != nil {
			t.Fatalf("AddUsageSession failed: %v", err)
		}
	}

	got, err := st.GetUsageSessions("com.example.social", base.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("GetUsageSessions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions for the app, got %d", len(got))
	}
	if !got[0].StartTime.Before(got[1].StartTime) {
		t.Error("expected sessions ordered by start time")
	}

	got, err = st.GetUsageSessions("com.example.social", base.AddDate(0, 0, 2))
	if err != nil || len(got) != 1 {
		t.Errorf("expected 1 session after the cutoff, got %d (err=%v)", len(got), err)
	}

	removed, err := st.DeleteUsageSessionsBefore(base.AddDate(0, 0, 2))
	if err != nil || removed != 1 {
		t.Errorf("expected 1 session removed, got %d (err=%v)", removed, err)
	}

	// Delivery records.
	record := models.DeliveryRecord{
		NotificationID: "n_1",
		UserID:         "user1",
		Type:           "reminder",
		Title:          "Take a break",
		Priority:       models.PriorityNormal,
		DeliveredAt:    base.AddDate(0, 0, 3),
	}
	if err := st.AddDeliveryRecord(record); err != nil {
		t.Fatalf("AddDeliveryRecord failed: %v", err)
	}
	records, err := st.GetDeliveryRecords(base)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected 1 delivery record, got %d (err=%v)", len(records), err)
	}
	if records[0].NotificationID != "n_1" || records[0].Priority != models.PriorityNormal {
		t.Errorf("unexpected delivery record %+v", records[0])
	}
	records, err = st.GetDeliveryRecords(base.AddDate(0, 0, 4))
	if err != nil || len(records) != 0 {
		t.Errorf("expected 0 records after the cutoff, got %d (err=%v)", len(records), err)
	}
}

func TestInMemoryStore(t *testing.T) {
	st := NewInMemoryStore()
	defer st.Close()
	storeConformance(t, st)
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "focusguard.db")
	st, err := NewSQLiteStore(WithDSN(dbPath))
	if err != nil {
		t.Fatalf("failed to open SQLite store: %v", err)
	}
	defer st.Close()
	storeConformance(t, st)
}

func TestSQLiteStoreCreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "state", "focusguard.db")
	st, err := NewSQLiteStore(WithDSN(dbPath))
	if err != nil {
		t.Fatalf("expected parent directories created, got %v", err)
	}
	st.Close()
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("FOCUSGUARD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FOCUSGUARD_TEST_POSTGRES_DSN not set; skipping PostgreSQL store test")
	}
	st, err := NewPostgresStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to open PostgreSQL store: %v", err)
	}
	defer st.Close()
	storeConformance(t, st)
}
