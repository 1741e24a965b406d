package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			conversion_id TEXT PRIMARY KEY,
			protocol TEXT NOT NULL,
			model TEXT,
			status TEXT NOT NULL,
			repair_stage TEXT,
			error_kind TEXT,
			error_message TEXT,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_started ON conversions(started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			conversion_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (conversion_id) REFERENCES conversions(conversion_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_conversion ON events(conversion_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateConversion creates a new conversion trace.
func (s *SQLiteStore) CreateConversion(ctx context.Context, c *domain.Conversion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (conversion_id, protocol, model, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		c.ConversionID, c.Protocol, nullString(c.Model), c.Status, c.StartedAt)
	return err
}

// GetConversion retrieves a conversion trace by ID.
func (s *SQLiteStore) GetConversion(ctx context.Context, conversionID string) (*domain.Conversion, error) {
	var c domain.Conversion
	var model, stage, kind, message sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT conversion_id, protocol, model, status, repair_stage, error_kind, error_message, started_at, ended_at
		 FROM conversions WHERE conversion_id = ?`,
		conversionID).Scan(&c.ConversionID, &c.Protocol, &model, &c.Status, &stage, &kind, &message, &c.StartedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Model = model.String
	c.RepairStage = domain.RepairStage(stage.String)
	c.ErrorKind = domain.ErrorKind(kind.String)
	c.ErrorMessage = message.String
	if endedAt.Valid {
		c.EndedAt = &endedAt.Time
	}
	return &c, nil
}

// UpdateConversionCompleted marks a conversion as finished.
func (s *SQLiteStore) UpdateConversionCompleted(ctx context.Context, conversionID string, status domain.ConversionStatus, stage domain.RepairStage, kind domain.ErrorKind, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversions SET status = ?, repair_stage = ?, error_kind = ?, error_message = ?, ended_at = ? WHERE conversion_id = ?`,
		status, nullString(string(stage)), nullString(string(kind)), nullString(message), time.Now(), conversionID)
	return err
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, conversion_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.ConversionID, event.Ts, event.Type, payload)
	return err
}

// GetEvents retrieves events for a conversion.
func (s *SQLiteStore) GetEvents(ctx context.Context, conversionID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, conversion_id, ts, type, payload FROM events WHERE conversion_id = ?`
	args := []interface{}{conversionID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.ConversionID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
