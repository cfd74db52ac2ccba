// Package store persists the history of completed analysis runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vcf-risk-engine/internal/domain"
)

// Run is one recorded analysis run: the request identity plus the
// result it produced.
type Run struct {
	ID           int64                  `json:"id"`
	AnalysisID   string                 `json:"analysis_id"`
	PatientID    string                 `json:"patient_id"`
	Filename     string                 `json:"filename"`
	Mode         string                 `json:"mode"`
	OverallRisk  string                 `json:"overall_risk"`
	VariantCount int                    `json:"variant_count"`
	Result       *domain.AnalysisResult `json:"result"`
	CreatedAt    time.Time              `json:"created_at"`
}

// RunExport is the envelope written by ExportJSON.
type RunExport struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Runs       []*Run    `json:"runs"`
}

// SQLiteStore persists analysis runs in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a run-history store, creating the database
// file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var resultJSON string

	err := s.Scan(
		&run.ID, &run.AnalysisID, &run.PatientID, &run.Filename, &run.Mode,
		&run.OverallRisk, &run.VariantCount, &resultJSON, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if resultJSON != "" {
		var result domain.AnalysisResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("failed to decode stored result: %w", err)
		}
		run.Result = &result
	}
	return run, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id TEXT NOT NULL UNIQUE,
		patient_id TEXT NOT NULL,
		filename TEXT DEFAULT '',
		mode TEXT NOT NULL,
		overall_risk TEXT NOT NULL,
		variant_count INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_patient_id ON analysis_runs(patient_id);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON analysis_runs(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save records a completed analysis run. Saving the same analysis ID
// again replaces the stored result.
func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	now := time.Now()

	var existingID int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM analysis_runs WHERE analysis_id = ?",
		run.AnalysisID,
	).Scan(&existingID)

	if err == nil {
		run.ID = existingID
		_, err = s.db.ExecContext(ctx, `
			UPDATE analysis_runs SET
				patient_id = ?,
				filename = ?,
				mode = ?,
				overall_risk = ?,
				variant_count = ?,
				result_json = ?
			WHERE id = ?
		`,
			run.PatientID,
			run.Filename,
			run.Mode,
			run.OverallRisk,
			run.VariantCount,
			string(resultJSON),
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	run.CreatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			analysis_id, patient_id, filename, mode,
			overall_risk, variant_count, result_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.AnalysisID,
		run.PatientID,
		run.Filename,
		run.Mode,
		run.OverallRisk,
		run.VariantCount,
		string(resultJSON),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	run.ID = id

	return nil
}

// Get retrieves a run by its analysis ID. A missing run is (nil, nil).
func (s *SQLiteStore) Get(ctx context.Context, analysisID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, analysis_id, patient_id, filename, mode,
			overall_risk, variant_count, result_json, created_at
		FROM analysis_runs
		WHERE analysis_id = ?
		LIMIT 1
	`, analysisID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return run, nil
}

// List returns runs newest-first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, analysis_id, patient_id, filename, mode,
			overall_risk, variant_count, result_json, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Count returns the total number of recorded runs.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_runs").Scan(&count)
	return count, err
}

// Delete removes a run by analysis ID.
func (s *SQLiteStore) Delete(ctx context.Context, analysisID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM analysis_runs WHERE analysis_id = ?", analysisID)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports the run history to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	export := &RunExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Runs:       all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
