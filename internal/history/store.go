// Package history persists AllocationRun records to a local SQLite
// database, the same role the teacher's per-module SQLite databases play
// for their own domains.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is a persisted record of one completed /allocate call.
type Run struct {
	ID             string            `json:"id"`
	RequestedAt    time.Time         `json:"requested_at"`
	InputDigest    string            `json:"input_digest"`
	SelectedMask   *int              `json:"selected_mask,omitempty"`
	Fractions      map[string]float64 `json:"fractions,omitempty"`
	ExpectedReturn *float64          `json:"expected_return,omitempty"`
	ErrorCode      *string           `json:"error_code,omitempty"`
}

// Store wraps a database/sql handle onto modernc.org/sqlite's pure-Go
// driver with the single allocation_runs table.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the SQLite database at path, and
// ensures the allocation_runs table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS allocation_runs (
	id              TEXT PRIMARY KEY,
	requested_at    DATETIME NOT NULL,
	input_digest    TEXT NOT NULL,
	selected_mask   INTEGER,
	fractions       TEXT,
	expected_return REAL,
	error_code      TEXT
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating allocation_runs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a Run row.
func (s *Store) Save(ctx context.Context, run Run) error {
	fractionsJSON, err := json.Marshal(run.Fractions)
	if err != nil {
		return fmt.Errorf("encoding fractions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO allocation_runs (id, requested_at, input_digest, selected_mask, fractions, expected_return, error_code)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	requested_at = excluded.requested_at,
	input_digest = excluded.input_digest,
	selected_mask = excluded.selected_mask,
	fractions = excluded.fractions,
	expected_return = excluded.expected_return,
	error_code = excluded.error_code
`, run.ID, run.RequestedAt, run.InputDigest, run.SelectedMask, string(fractionsJSON), run.ExpectedReturn, run.ErrorCode)
	if err != nil {
		return fmt.Errorf("saving allocation run %s: %w", run.ID, err)
	}
	return nil
}

// Get fetches a single run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, requested_at, input_digest, selected_mask, fractions, expected_return, error_code
FROM allocation_runs WHERE id = ?`, id)

	var run Run
	var fractionsJSON sql.NullString
	if err := row.Scan(&run.ID, &run.RequestedAt, &run.InputDigest, &run.SelectedMask,
		&fractionsJSON, &run.ExpectedReturn, &run.ErrorCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching allocation run %s: %w", id, err)
	}

	if fractionsJSON.Valid && fractionsJSON.String != "" {
		if err := json.Unmarshal([]byte(fractionsJSON.String), &run.Fractions); err != nil {
			return nil, fmt.Errorf("decoding fractions for run %s: %w", id, err)
		}
	}

	return &run, nil
}

// RecentFailureRate reports the fraction of the last n runs (most recent
// first) that ended with a solver-numerical error code
// (jacobian-inversion-failed or nonlinear-loop-didnt-converge). Used by the
// health endpoint's solver-health flag.
func (s *Store) RecentFailureRate(ctx context.Context, n int) (float64, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT error_code FROM allocation_runs ORDER BY requested_at DESC LIMIT ?`, n)
	if err != nil {
		return 0, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	var total, failures int
	for rows.Next() {
		var code sql.NullString
		if err := rows.Scan(&code); err != nil {
			return 0, fmt.Errorf("scanning recent run: %w", err)
		}
		total++
		if code.Valid && (code.String == "jacobian-inversion-failed" || code.String == "nonlinear-loop-didnt-converge") {
			failures++
		}
	}

	if total == 0 {
		return 0, nil
	}
	return float64(failures) / float64(total), nil
}
