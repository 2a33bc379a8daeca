package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pricepred/ml"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotInitialized = errors.New("database not initialized")

// PredictionRecord is one row of prediction history. Error is empty for a
// successful prediction.
type PredictionRecord struct {
	ID        string             `json:"id"`
	City      string             `json:"city"`
	ModelType string             `json:"model_type"`
	Features  map[string]float64 `json:"features"`
	Price     float64            `json:"price"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// Store persists prediction history in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id TEXT PRIMARY KEY,
        city TEXT NOT NULL,
        model_type TEXT NOT NULL,
        features TEXT NOT NULL,
        price REAL NOT NULL DEFAULT 0,
        error TEXT NOT NULL DEFAULT '',
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: database}, nil
}

// SavePrediction stores a prediction outcome. A missing ID or timestamp is
// filled in; the stored record is returned.
func (s *Store) SavePrediction(ctx context.Context, record PredictionRecord, row ml.EncodedRow) (PredictionRecord, error) {
	if s == nil || s.db == nil {
		return record, ErrNotInitialized
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	features, err := json.Marshal(row)
	if err != nil {
		return record, err
	}
	record.Features = row.Map()

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO predictions (id, city, model_type, features, price, error, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.City, record.ModelType, string(features), record.Price, record.Error, record.CreatedAt)
	if err != nil {
		return record, fmt.Errorf("save prediction: %w", err)
	}
	return record, nil
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, city, model_type, features, price, error, created_at
        FROM predictions
        ORDER BY created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		var features string
		if err := rows.Scan(&r.ID, &r.City, &r.ModelType, &features, &r.Price, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
			return nil, fmt.Errorf("decode features of %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountPredictions returns the number of stored records.
func (s *Store) CountPredictions(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
