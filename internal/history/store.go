// Package history keeps a local SQLite log of comparison runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/imgdiff/internal/utils"
)

// FileName is the database file created under the app directory.
const FileName = "history.db"

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run summarizes one comparison.
type Run struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	FileA       string         `json:"file_a"`
	FileB       string         `json:"file_b"`
	MatchColumn string         `json:"match_column"`
	Threshold   float64        `json:"similarity_threshold"`
	TotalA      int            `json:"total_a"`
	TotalB      int            `json:"total_b"`
	Matched     int            `json:"matched"`
	MatchRate   float64        `json:"match_rate"`
	Primary     string         `json:"primary_field,omitempty"`
	Fields      []string       `json:"fields,omitempty"`
	Buckets     map[string]int `json:"buckets,omitempty"`
	Skipped     int            `json:"skipped"`
}

// Store persists runs.
type Store struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// DefaultPath returns ~/.imgdiff/history.db.
func DefaultPath() (string, error) {
	dir, err := utils.AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Open creates or connects to the history database at path and applies migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	s := &Store{db: db, path: path, log: logger}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const runColumns = `id, created_at, file_a, file_b, match_column, similarity_threshold,
	total_a, total_b, matched, match_rate, primary_field, fields_json, buckets_json, skipped`

// Record inserts run. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		return errors.New("run id is empty")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	fields, err := marshalOptional(run.Fields, len(run.Fields) == 0)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	buckets, err := marshalOptional(run.Buckets, len(run.Buckets) == 0)
	if err != nil {
		return fmt.Errorf("marshal buckets: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.FileA,
		run.FileB,
		run.MatchColumn,
		run.Threshold,
		run.TotalA,
		run.TotalB,
		run.Matched,
		run.MatchRate,
		nullableString(run.Primary),
		fields,
		buckets,
		run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	s.log.Debug().Str("run_id", run.ID).Msg("run recorded")
	return nil
}

// Get fetches one run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first. A non-positive limit returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Prune deletes runs older than cutoff and returns the number removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run        Run
		createdRaw string
		primary    sql.NullString
		fieldsRaw  sql.NullString
		bucketsRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&createdRaw,
		&run.FileA,
		&run.FileB,
		&run.MatchColumn,
		&run.Threshold,
		&run.TotalA,
		&run.TotalB,
		&run.Matched,
		&run.MatchRate,
		&primary,
		&fieldsRaw,
		&bucketsRaw,
		&run.Skipped,
	); err != nil {
		return nil, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = created
	run.Primary = primary.String
	if fieldsRaw.Valid {
		if err := json.Unmarshal([]byte(fieldsRaw.String), &run.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}
	if bucketsRaw.Valid {
		if err := json.Unmarshal([]byte(bucketsRaw.String), &run.Buckets); err != nil {
			return nil, fmt.Errorf("decode buckets: %w", err)
		}
	}
	return &run, nil
}

func marshalOptional(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
