package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"scanreport/internal/logger"
	"scanreport/internal/ocr"
)

const schema = `
CREATE TABLE IF NOT EXISTS ocr_results (
	image_id   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SQLite is a Repository backed by a SQLite database file. Results are stored
// as one JSON payload per image so the schema survives result-shape changes.
type SQLite struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %q: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	s := &SQLite{db: db, log: logger.WithComponent("store")}
	s.log.Debug().Str("path", path).Msg("Opened result store")
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveResult stores or replaces the result for an image.
func (s *SQLite) SaveResult(ctx context.Context, imageID string, result ocr.ExtractionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("store: encode result for %q: %w", imageID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ocr_results (image_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(image_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		imageID, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save result for %q: %w", imageID, err)
	}
	return nil
}

// Result returns the stored result, or ErrNotFound.
func (s *SQLite) Result(ctx context.Context, imageID string) (ocr.ExtractionResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM ocr_results WHERE image_id = ?`, imageID).Scan(&payload)
	if err == sql.ErrNoRows {
		return ocr.ExtractionResult{}, ErrNotFound
	}
	if err != nil {
		return ocr.ExtractionResult{}, fmt.Errorf("store: load result for %q: %w", imageID, err)
	}

	var result ocr.ExtractionResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return ocr.ExtractionResult{}, fmt.Errorf("store: decode result for %q: %w", imageID, err)
	}
	return result, nil
}

// Results returns all stored results keyed by image ID.
func (s *SQLite) Results(ctx context.Context) (map[string]ocr.ExtractionResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT image_id, payload FROM ocr_results`)
	if err != nil {
		return nil, fmt.Errorf("store: list results: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ocr.ExtractionResult)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("store: scan result row: %w", err)
		}
		var result ocr.ExtractionResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("store: decode result for %q: %w", id, err)
		}
		out[id] = result
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate results: %w", err)
	}
	return out, nil
}

// Clear removes every stored result.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ocr_results`); err != nil {
		return fmt.Errorf("store: clear results: %w", err)
	}
	return nil
}
