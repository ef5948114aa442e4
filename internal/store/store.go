// Package store is the raw-SQL persistence layer for the registry, backed by
// pgx. Grounded on manifold's internal/persistence/databases pattern:
// CREATE TABLE IF NOT EXISTS bootstrap inside the constructor, no ORM.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pgxpool.Pool and owns every table used by the ingestion and
// canonicalization pipeline.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and bootstraps all tables this service owns.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			document_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			jurisdiction TEXT NOT NULL,
			regulation_family TEXT NOT NULL,
			instrument_type TEXT NOT NULL,
			primary_axis TEXT NOT NULL,
			primary_axis_source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS document_versions (
			version_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(document_id),
			version_label TEXT,
			effective_date DATE,
			status TEXT NOT NULL,
			parent_version_id TEXT REFERENCES document_versions(version_id),
			tenant_id TEXT NOT NULL,
			effective_year INTEGER NOT NULL,
			uploaded_by TEXT NOT NULL,
			raw_sha256 TEXT NOT NULL,
			file_id TEXT,
			artifacts_json JSONB NOT NULL DEFAULT '{}'::jsonb,
			uploaded_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS evidence_files (
			file_id TEXT PRIMARY KEY,
			version_id TEXT NOT NULL REFERENCES document_versions(version_id),
			sha256 TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			storage_uri TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_files_sha256 ON evidence_files(sha256)`,
		`CREATE TABLE IF NOT EXISTS derived_artifacts (
			artifact_id TEXT PRIMARY KEY,
			version_id TEXT NOT NULL REFERENCES document_versions(version_id),
			kind TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			storage_uri TEXT NOT NULL,
			generator_name TEXT NOT NULL,
			generator_version TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_derived_artifacts_version_kind ON derived_artifacts(version_id, kind)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			chunk_id TEXT PRIMARY KEY,
			version_id TEXT NOT NULL REFERENCES document_versions(version_id),
			chunk_set_artifact_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text_sha256 TEXT NOT NULL,
			char_start INTEGER NOT NULL,
			char_end INTEGER NOT NULL,
			page_start INTEGER,
			page_end INTEGER,
			bbox_refs JSONB NOT NULL DEFAULT '[]'::jsonb,
			chunker_version TEXT NOT NULL,
			schema_version TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_version ON chunks(version_id, chunk_index)`,
		`CREATE TABLE IF NOT EXISTS primary_axis_suggestions (
			suggestion_id TEXT PRIMARY KEY,
			version_id TEXT NOT NULL UNIQUE REFERENCES document_versions(version_id),
			suggested_axis TEXT NOT NULL,
			model_name TEXT NOT NULL,
			model_version TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			details_json JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			event_id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			action TEXT NOT NULL,
			actor TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			details_json JSONB NOT NULL DEFAULT '{}'::jsonb,
			prev_event_hash TEXT,
			event_hash TEXT,
			at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id, at DESC)`,
		`CREATE TABLE IF NOT EXISTS ref_rules (
			rule_key TEXT PRIMARY KEY,
			rule_desc TEXT NOT NULL,
			rule_json JSONB NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS prompts (
			prompt_hash TEXT PRIMARY KEY,
			prompt_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS llm_runs (
			run_id TEXT PRIMARY KEY,
			version_id TEXT NOT NULL REFERENCES document_versions(version_id),
			prompt_hash TEXT NOT NULL REFERENCES prompts(prompt_hash),
			input_fingerprint TEXT NOT NULL,
			model_name TEXT NOT NULL,
			model_version TEXT NOT NULL,
			status TEXT NOT NULL,
			output_artifact_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS soi_documents (
			document_id TEXT PRIMARY KEY,
			title TEXT,
			jurisdiction TEXT,
			regulation_family TEXT,
			instrument_type TEXT,
			primary_axis TEXT,
			primary_axis_source TEXT,
			latest_version_id TEXT,
			latest_status TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS soi_versions (
			version_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			status TEXT NOT NULL,
			artifact_count INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: bootstrap: %w", err)
		}
	}
	return nil
}
