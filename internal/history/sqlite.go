package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed poll archive at the given path.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS poll_records (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		options_json TEXT NOT NULL,
		results_json TEXT NOT NULL,
		total_votes INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		viewable_by_presenter INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_poll_records_completed ON poll_records(completed_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Append inserts one completed poll record.
func (s *SQLiteStore) Append(ctx context.Context, record domain.PollRecord) error {
	optionsJSON, err := json.Marshal(record.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	query := `
		INSERT INTO poll_records
			(id, question, options_json, results_json, total_votes, created_at, completed_at, viewable_by_presenter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	viewable := 0
	if record.ViewableByPresenter {
		viewable = 1
	}

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.Question, string(optionsJSON), string(resultsJSON),
		record.TotalVotes, record.CreatedAt.UnixMilli(), record.CompletedAt.UnixMilli(), viewable,
	)
	if err != nil {
		return fmt.Errorf("insert poll record: %w", err)
	}
	return nil
}

// List returns all archived records, most recently completed first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.PollRecord, error) {
	query := `
		SELECT id, question, options_json, results_json, total_votes, created_at, completed_at, viewable_by_presenter
		FROM poll_records ORDER BY completed_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query poll records: %w", err)
	}
	defer rows.Close()

	var records []domain.PollRecord
	for rows.Next() {
		var (
			record       domain.PollRecord
			optionsJSON  string
			resultsJSON  string
			createdAt    int64
			completedAt  int64
			viewableFlag int
		)
		if err := rows.Scan(
			&record.ID, &record.Question, &optionsJSON, &resultsJSON,
			&record.TotalVotes, &createdAt, &completedAt, &viewableFlag,
		); err != nil {
			return nil, fmt.Errorf("scan poll record: %w", err)
		}
		if err := json.Unmarshal([]byte(optionsJSON), &record.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &record.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
		record.CreatedAt = time.UnixMilli(createdAt)
		record.CompletedAt = time.UnixMilli(completedAt)
		record.ViewableByPresenter = viewableFlag != 0
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate poll records: %w", err)
	}
	return records, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
