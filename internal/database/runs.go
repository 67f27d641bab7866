package database

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/zeebo/blake3"

	"github.com/kamilpajak/testreport/pkg/models"
)

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("run not found")

const defaultListLimit = 20

// Run is a stored test run.
type Run struct {
	ID        uuid.UUID
	Path      string
	Source    string
	Reporter  string
	Digest    string
	Tests     int
	Passed    int
	Failed    int
	Skipped   int
	TotalTime *float64
	Result    *models.TestRunResult
	CreatedAt time.Time
}

// SaveRunParams contains parameters for storing a run.
type SaveRunParams struct {
	Run      *models.TestRunResult
	Raw      []byte // report bytes the run was parsed from
	Reporter string
	Source   string // e.g. owner/repo#run_id for downloaded artifacts
}

// Digest returns the hex encoded BLAKE3 hash of a raw report.
func Digest(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

const runColumns = `id, path, source, reporter, digest, tests, passed, failed, skipped, total_time, result, created_at`

func scanRun(row pgx.Row) (*Run, error) {
	var r Run
	var resultJSON []byte
	err := row.Scan(
		&r.ID, &r.Path, &r.Source, &r.Reporter, &r.Digest,
		&r.Tests, &r.Passed, &r.Failed, &r.Skipped, &r.TotalTime, &resultJSON, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Result = &models.TestRunResult{}
	if err := json.Unmarshal(resultJSON, r.Result); err != nil {
		return nil, fmt.Errorf("failed to decode stored run %s: %w", r.ID, err)
	}
	return &r, nil
}

// SaveRun stores a run keyed by the digest of its raw report. Saving the same
// report twice returns the existing row with created set to false.
func (db *DB) SaveRun(ctx context.Context, params SaveRunParams) (*Run, bool, error) {
	if params.Run == nil {
		return nil, false, errors.New("run is required")
	}
	resultJSON, err := json.Marshal(params.Run)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode run: %w", err)
	}

	digest := Digest(params.Raw)
	row := db.pool.QueryRow(ctx,
		`INSERT INTO runs (id, path, source, reporter, digest, tests, passed, failed, skipped, total_time, result)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (digest) DO NOTHING
		 RETURNING `+runColumns,
		uuid.New(), params.Run.Path, params.Source, params.Reporter, digest,
		params.Run.Tests(), params.Run.Passed(), params.Run.Failed(), params.Run.Skipped(),
		params.Run.TotalTime, resultJSON,
	)
	run, err := scanRun(row)
	if err == nil {
		return run, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to save run: %w", err)
	}

	existing, err := scanRun(db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE digest = $1`, digest))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing run: %w", err)
	}
	return existing, false, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := scanRun(db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run by ID.
func (db *DB) DeleteRun(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
