// Package store provides storage backends for FocusGuard.
//
// This file implements a PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "embed"

	"github.com/BTreeMap/FocusGuard/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists FocusGuard state in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// GetBlockingStrategy returns the configured strategy for an app.
func (s *PostgresStore) GetBlockingStrategy(pkg string) (models.StrategyType, error) {
	var strategy string
	err := s.db.QueryRow(`SELECT strategy FROM app_strategies WHERE package = $1`, pkg).Scan(&strategy)
	if err == sql.ErrNoRows {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", fmt.Errorf("failed to read strategy for %s: %w", pkg, err)
	}
	return models.StrategyType(strategy), nil
}

// SetBlockingStrategy stores the strategy for an app.
func (s *PostgresStore) SetBlockingStrategy(pkg string, strategy models.StrategyType) error {
	_, err := s.db.Exec(`INSERT INTO app_strategies (package, strategy, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (package) DO UPDATE SET strategy = EXCLUDED.strategy, updated_at = NOW()`,
		pkg, string(strategy))
	if err != nil {
		slog.Error("PostgresStore SetBlockingStrategy failed", "error", err, "package", pkg)
		return fmt.Errorf("failed to set strategy for %s: %w", pkg, err)
	}
	return nil
}

// GetContextRules returns the stored context rules.
func (s *PostgresStore) GetContextRules() (models.ContextRules, error) {
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
func (s *PostgresStore) UpdateContextRules(rules models.ContextRules) error {
	raw, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode context rules: %w", err)
	}
	return s.setSetting(settingContextRules, string(raw))
}

// GetSleepWindow returns the stored sleep window hours.
func (s *PostgresStore) GetSleepWindow() (int, int, error) {
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
func (s *PostgresStore) SetSleepWindow(startHour, endHour int) error {
	if err := s.setSetting(settingSleepStartHour, strconv.Itoa(startHour)); err != nil {
		return err
	}
	return s.setSetting(settingSleepEndHour, strconv.Itoa(endHour))
}

// AddUsageSession records one usage session.
func (s *PostgresStore) AddUsageSession(session models.UsageSession) error {
	_, err := s.db.Exec(`INSERT INTO usage_sessions (package, start_time, duration_minutes) VALUES ($1, $2, $3)`,
		session.Package, session.StartTime, session.DurationMinutes)
	if err != nil {
		slog.Error("PostgresStore AddUsageSession failed", "error", err, "package", session.Package)
		return fmt.Errorf("failed to insert usage session for %s: %w", session.Package, err)
	}
	return nil
}

// GetUsageSessions returns sessions for an app starting at or after since,
// ordered by start time.
func (s *PostgresStore) GetUsageSessions(pkg string, since time.Time) ([]models.UsageSession, error) {
	rows, err := s.db.Query(`SELECT package, start_time, duration_minutes FROM usage_sessions
		WHERE package = $1 AND start_time >= $2 ORDER BY start_time`, pkg, since)
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
func (s *PostgresStore) DeleteUsageSessionsBefore(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM usage_sessions WHERE start_time < $1`, cutoff)
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
func (s *PostgresStore) AddDeliveryRecord(record models.DeliveryRecord) error {
	_, err := s.db.Exec(`INSERT INTO delivery_records (notification_id, user_id, type, title, priority, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.NotificationID, nilIfEmpty(record.UserID), record.Type, record.Title,
		string(record.Priority), record.DeliveredAt)
	if err != nil {
		slog.Error("PostgresStore AddDeliveryRecord failed", "error", err, "id", record.NotificationID)
		return fmt.Errorf("failed to insert delivery record for %s: %w", record.NotificationID, err)
	}
	return nil
}

// GetDeliveryRecords returns deliveries at or after since, ordered by time.
func (s *PostgresStore) GetDeliveryRecords(since time.Time) ([]models.DeliveryRecord, error) {
	rows, err := s.db.Query(`SELECT notification_id, user_id, type, title, priority, delivered_at
		FROM delivery_records WHERE delivered_at >= $1 ORDER BY delivered_at`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery records: %w", err)
	}
	defer rows.Close()
	return scanDeliveryRecords(rows)
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) getSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) setSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
