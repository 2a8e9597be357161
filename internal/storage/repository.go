package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/admission-lists/internal/audit"
	"github.com/garyellow/admission-lists/internal/competition"
)

const runColumns = `id, source, created_at, processed, unique_count, duplicates, case_collisions`

// SaveRun stores a built mapping and its statistics as a new run.
// The run and all of its entries are written in one transaction.
func (db *DB) SaveRun(ctx context.Context, source string, m *competition.Mapping, stats competition.BuildStats) (*Run, error) {
	run := &Run{
		ID:             uuid.NewString(),
		Source:         source,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		Processed:      stats.Processed,
		Unique:         m.Len(),
		Duplicates:     stats.Duplicates,
		CaseCollisions: len(stats.CaseCollisions),
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("save run: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.CreatedAt.Unix(), run.Processed, run.Unique, run.Duplicates, run.CaseCollisions,
	)
	if err != nil {
		return nil, fmt.Errorf("save run: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO competition_ids (run_id, name, regular_bvi, dedicated_quota, special_quota, target_quota)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("save run: prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	entries := m.Entries()
	for _, name := range m.Names() {
		ids := entries[name]
		if _, err := stmt.ExecContext(ctx, run.ID, name, ids.RegularBVI, ids.DedicatedQuota, ids.SpecialQuota, ids.TargetQuota); err != nil {
			return nil, fmt.Errorf("save run: insert %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("save run: commit: %w", err)
	}
	return run, nil
}

// GetRun returns the run with the given ID.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// LatestRun returns the most recently stored run.
func (db *DB) LatestRun(ctx context.Context) (*Run, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LoadMapping rebuilds the mapping stored for runID.
func (db *DB) LoadMapping(ctx context.Context, runID string) (*competition.Mapping, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT name, regular_bvi, dedicated_quota, special_quota, target_quota
		FROM competition_ids WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("load mapping %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	entries := make(map[string]competition.CompetitionIDs)
	for rows.Next() {
		var name string
		var ids competition.CompetitionIDs
		if err := rows.Scan(&name, &ids.RegularBVI, &ids.DedicatedQuota, &ids.SpecialQuota, &ids.TargetQuota); err != nil {
			return nil, fmt.Errorf("load mapping %s: scan: %w", runID, err)
		}
		entries[name] = ids
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load mapping %s: %w", runID, err)
	}

	return competition.NewMapping(entries)
}

// SearchPrograms returns names in runID containing term, in ascending order.
// LIKE matching folds ASCII letters only.
func (db *DB) SearchPrograms(ctx context.Context, runID, term string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT name FROM competition_ids
		WHERE run_id = ? AND name LIKE ? ESCAPE '\'
		ORDER BY name LIMIT ?`,
		runID, "%"+sanitizeSearchTerm(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search programs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("search programs: scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PruneRuns deletes all but the keep newest runs and returns how many were removed.
// Entries are removed by cascade; audit reports keep their rows with a NULL run_id.
func (db *DB) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := db.conn.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return result.RowsAffected()
}

// SaveAudit stores an audit report. runID may be empty.
func (db *DB) SaveAudit(ctx context.Context, runID, registrySource string, report audit.Report) (*AuditRecord, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("save audit: marshal: %w", err)
	}

	rec := &AuditRecord{
		ID:             uuid.NewString(),
		RunID:          runID,
		RegistrySource: registrySource,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		Report:         report,
	}

	var run sql.NullString
	if runID != "" {
		run = sql.NullString{String: runID, Valid: true}
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO audit_reports (
			id, run_id, registry_source, created_at, registry_size, mapping_size,
			missing_in_mapping, missing_in_registry, case_mismatches, report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, run, registrySource, rec.CreatedAt.Unix(), report.RegistrySize, report.MappingSize,
		len(report.MissingInMapping), len(report.MissingInRegistry), len(report.CaseMismatches), string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("save audit: %w", err)
	}
	return rec, nil
}

// LatestAudit returns the most recently stored audit report.
func (db *DB) LatestAudit(ctx context.Context) (*AuditRecord, error) {
	var (
		rec       AuditRecord
		run       sql.NullString
		createdAt int64
		data      string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, run_id, registry_source, created_at, report_json
		FROM audit_reports ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&rec.ID, &run, &rec.RegistrySource, &createdAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest audit: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest audit: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &rec.Report); err != nil {
		return nil, fmt.Errorf("latest audit: decode report: %w", err)
	}
	rec.RunID = run.String
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt int64
	err := row.Scan(&run.ID, &run.Source, &createdAt, &run.Processed, &run.Unique, &run.Duplicates, &run.CaseCollisions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &run, nil
}
