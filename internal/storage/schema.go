package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createRunsTable(ctx, db); err != nil {
		return err
	}
	if err := createCompetitionIDsTable(ctx, db); err != nil {
		return err
	}
	return createAuditReportsTable(ctx, db)
}

func createRunsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		unique_count INTEGER NOT NULL,
		duplicates INTEGER NOT NULL,
		case_collisions INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// Names use the default BINARY collation, so keys differing only in case are distinct rows.
func createCompetitionIDsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS competition_ids (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		regular_bvi TEXT NOT NULL DEFAULT '',
		dedicated_quota TEXT NOT NULL DEFAULT '',
		special_quota TEXT NOT NULL DEFAULT '',
		target_quota TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, name)
	);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create competition_ids table: %w", err)
	}
	return nil
}

func createAuditReportsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_reports (
		id TEXT PRIMARY KEY,
		run_id TEXT REFERENCES runs(id) ON DELETE SET NULL,
		registry_source TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		registry_size INTEGER NOT NULL,
		mapping_size INTEGER NOT NULL,
		missing_in_mapping INTEGER NOT NULL,
		missing_in_registry INTEGER NOT NULL,
		case_mismatches INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_reports_created_at ON audit_reports(created_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create audit_reports table: %w", err)
	}
	return nil
}
