// Package store provides storage backends for FocusGuard.
//
// This file implements an SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "embed"

	"github.com/BTreeMap/FocusGuard/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

// Settings keys used by the persistent backends.
const (
	settingContextRules   = "context_rules"
	settingSleepStartHour = "sleep_start_hour"
	settingSleepEndHour   = "sleep_end_hour"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists FocusGuard state in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given options.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetBlockingStrategy returns the configured strategy for an app.
func (s *SQLiteStore) GetBlockingStrategy(pkg string) (models.StrategyType, error) {
	var strategy string
	err := s.db.QueryRow(`SELECT strategy FROM app_strategies WHERE package = ?`, pkg).Scan(&strategy)
	if err == sql.ErrNoRows {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", fmt.Errorf("failed to read strategy for %s: %w", pkg, err)
	}
	return models.StrategyType(strategy), nil
}

// SetBlockingStrategy stores the strategy for an app.
func (s *SQLiteStore) SetBlockingStrategy(pkg string, strategy models.StrategyType) error {
	_, err := s.db.Exec(`INSERT INTO app_strategies (package, strategy, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(package) DO UPDATE SET strategy = excluded.strategy, updated_at = CURRENT_TIMESTAMP`,
		pkg, string(strategy))
	if err != nil {
		slog.Error("SQLiteStore SetBlockingStrategy failed", "error", err, "package", pkg)
		return fmt.Errorf("failed to set strategy for %s: %w", pkg, err)
	}
	return nil
}

// GetContextRules returns the stored context rules.
func (s *SQLiteStore) GetContextRules() (models.ContextRules, error) {
	raw, err := s.getSetting(settingContextRules)
	if err != nil {
		return models.ContextRules{}, err
	}
	var rules models.ContextRules
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return models.ContextRules{}, fmt.Errorf("failed to decode context rules: %w", err)
	}
	return rules, nil
}

// UpdateContextRules replaces the stored context rules.
func (s *SQLiteStore) UpdateContextRules(rules models.ContextRules) error {
	raw, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode context rules: %w", err)
	}
	return s.setSetting(settingContextRules, string(raw))
}

// GetSleepWindow returns the stored sleep window hours.
func (s *SQLiteStore) GetSleepWindow() (int, int, error) {
	rawStart, err := s.getSetting(settingSleepStartHour)
	if err != nil {
		return 0, 0, err
	}
	rawEnd, err := s.getSetting(settingSleepEndHour)
	if err != nil {
		return 0, 0, err
	}
	start, err := strconv.Atoi(rawStart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sleep start hour %q: %w", rawStart, err)
	}
	end, err := strconv.Atoi(rawEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sleep end hour %q: %w", rawEnd, err)
	}
	return start, end, nil
}

// SetSleepWindow stores the sleep window hours.
func (s *SQLiteStore) SetSleepWindow(startHour, endHour int) error {
	if err := s.setSetting(settingSleepStartHour, strconv.Itoa(startHour)); err != nil {
		return err
	}
	return s.setSetting(settingSleepEndHour, strconv.Itoa(endHour))
}

// AddUsageSession records one usage session.
func (s *SQLiteStore) AddUsageSession(session models.UsageSession) error {
	_, err := s.db.Exec(`INSERT INTO usage_sessions (package, start_time, duration_minutes) VALUES (?, ?, ?)`,
		session.Package, session.StartTime, session.DurationMinutes)
	if err != nil {
		slog.Error("SQLiteStore AddUsageSession failed", "error", err, "package", session.Package)
		return fmt.Errorf("failed to insert usage session for %s: %w", session.Package, err)
	}
	return nil
}

// GetUsageSessions returns sessions for an app starting at or after since,
// ordered by start time.
func (s *SQLiteStore) GetUsageSessions(pkg string, since time.Time) ([]models.UsageSession, error) {
	rows, err := s.db.Query(`SELECT package, start_time, duration_minutes FROM usage_sessions
		WHERE package = ? AND start_time >= ? ORDER BY start_time`, pkg, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage sessions for %s: %w", pkg, err)
	}
	defer rows.Close()

	var sessions []models.UsageSession
	for rows.Next() {
		var session models.UsageSession
		if err := rows.Scan(&session.Package, &session.StartTime, &session.DurationMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan usage session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteUsageSessionsBefore removes sessions older than cutoff.
func (s *SQLiteStore) DeleteUsageSessionsBefore(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM usage_sessions WHERE start_time < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old usage sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// AddDeliveryRecord records one completed delivery.
func (s *SQLiteStore) AddDeliveryRecord(record models.DeliveryRecord) error {
	_, err := s.db.Exec(`INSERT INTO delivery_records (notification_id, user_id, type, title, priority, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.NotificationID, nilIfEmpty(record.UserID), record.Type, record.Title,
		string(record.Priority), record.DeliveredAt)
	if err != nil {
		slog.Error("SQLiteStore AddDeliveryRecord failed", "error", err, "id", record.NotificationID)
		return fmt.Errorf("failed to insert delivery record for %s: %w", record.NotificationID, err)
	}
	return nil
}

// GetDeliveryRecords returns deliveries at or after since, ordered by time.
func (s *SQLiteStore) GetDeliveryRecords(since time.Time) ([]models.DeliveryRecord, error) {
	rows, err := s.db.Query(`SELECT notification_id, user_id, type, title, priority, delivered_at
		FROM delivery_records WHERE delivered_at >= ? ORDER BY delivered_at`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery records: %w", err)
	}
	defer rows.Close()
	return scanDeliveryRecords(rows)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) getSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) setSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
