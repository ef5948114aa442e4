package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Registry statuses. The state machine only allows PENDING->ACTIVE,
// PENDING->FAILED, and ACTIVE->SUPERSEDED; every transition below is
// expressed as a conditional UPDATE so concurrent/duplicate calls are
// idempotent. Grounded on original_source/app/services/registry.py.
const (
	StatusPending    = "PENDING"
	StatusActive     = "ACTIVE"
	StatusSuperseded = "SUPERSEDED"
	StatusFailed     = "FAILED"
)

var ErrInvalidStatus = errors.New("store: invalid status")
var ErrParentNotFound = errors.New("store: parent_version_id not found")
var ErrParentWrongDocument = errors.New("store: parent_version_id belongs to a different document")
var ErrNotFound = errors.New("store: not found")

var allowedStatuses = map[string]bool{
	StatusPending: true, StatusActive: true, StatusSuperseded: true, StatusFailed: true,
}

// Document is a logical regulation identity, stable across versions.
type Document struct {
	DocumentID        string
	Title             string
	Jurisdiction      string
	RegulationFamily  string
	InstrumentType    string
	PrimaryAxis       string
	PrimaryAxisSource string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Version is one point in a document's version chain.
type Version struct {
	VersionID       string
	DocumentID      string
	VersionLabel    *string
	EffectiveDate   *time.Time
	Status          string
	ParentVersionID *string
	TenantID        string
	EffectiveYear   int
	UploadedBy      string
	RawSHA256       string
	FileID          *string
	UploadedAt      *time.Time
}

// FindDocumentByMetadata returns the document matching the exact 4-tuple, or
// ErrNotFound.
func (s *Store) FindDocumentByMetadata(ctx context.Context, title, jurisdiction, regulationFamily, instrumentType string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT document_id, title, jurisdiction, regulation_family, instrument_type,
		       primary_axis, primary_axis_source, created_at, updated_at
		FROM documents
		WHERE title=$1 AND jurisdiction=$2 AND regulation_family=$3 AND instrument_type=$4
		LIMIT 1`, title, jurisdiction, regulationFamily, instrumentType)
	var d Document
	err := row.Scan(&d.DocumentID, &d.Title, &d.Jurisdiction, &d.RegulationFamily, &d.InstrumentType,
		&d.PrimaryAxis, &d.PrimaryAxisSource, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find document: %w", err)
	}
	return &d, nil
}

// CreateDocument inserts a new document row. primaryAxisSource must be
// "UPLOAD" or "DETERMINISTIC_RULE" — an LLM suggestion must never call this.
func (s *Store) CreateDocument(ctx context.Context, title, jurisdiction, regulationFamily, instrumentType, primaryAxis, primaryAxisSource string) (string, error) {
	documentID := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents(document_id, title, jurisdiction, regulation_family, instrument_type, primary_axis, primary_axis_source)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		documentID, title, jurisdiction, regulationFamily, instrumentType, primaryAxis, primaryAxisSource)
	if err != nil {
		return "", fmt.Errorf("store: create document: %w", err)
	}
	return documentID, nil
}

// CreateVersionInput carries the fields needed to open a new version.
type CreateVersionInput struct {
	DocumentID      string
	TenantID        string
	EffectiveYear   int
	UploadedBy      string
	RawSHA256       string
	VersionLabel    *string
	EffectiveDate   *time.Time
	ParentVersionID *string
	FileID          *string
	Status          string
}

// CreateVersion opens a new document_versions row, validating the status
// and (if set) that parent_version_id belongs to the same document.
func (s *Store) CreateVersion(ctx context.Context, in CreateVersionInput) (string, error) {
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !allowedStatuses[in.Status] {
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, in.Status)
	}
	if in.ParentVersionID != nil && *in.ParentVersionID != "" {
		var parentDoc string
		err := s.pool.QueryRow(ctx, `SELECT document_id FROM document_versions WHERE version_id=$1`, *in.ParentVersionID).Scan(&parentDoc)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrParentNotFound
		}
		if err != nil {
			return "", fmt.Errorf("store: lookup parent version: %w", err)
		}
		if parentDoc != in.DocumentID {
			return "", ErrParentWrongDocument
		}
	}

	versionID := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_versions(
			version_id, document_id, version_label, effective_date, status,
			parent_version_id, tenant_id, effective_year, uploaded_by, raw_sha256, file_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		versionID, in.DocumentID, in.VersionLabel, in.EffectiveDate, in.Status,
		in.ParentVersionID, in.TenantID, in.EffectiveYear, in.UploadedBy, in.RawSHA256, in.FileID)
	if err != nil {
		return "", fmt.Errorf("store: create version: %w", err)
	}
	return versionID, nil
}

// SetVersionFileID attaches evidence and stamps uploaded_at, once evidence
// has actually been committed to object storage.
func (s *Store) SetVersionFileID(ctx context.Context, versionID, fileID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE document_versions SET file_id=$1, uploaded_at=now(), updated_at=now()
		WHERE version_id=$2`, fileID, versionID)
	return err
}

// SetArtifactsJSON records the artifact-id map produced by canonicalization.
func (s *Store) SetArtifactsJSON(ctx context.Context, versionID string, artifactsJSON []byte) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE document_versions SET artifacts_json=$1::jsonb, updated_at=now()
		WHERE version_id=$2`, artifactsJSON, versionID)
	return err
}

// MarkParentSuperseded transitions an ACTIVE parent to SUPERSEDED; a no-op
// if the parent is not currently ACTIVE (already superseded or never
// activated), which keeps retries of the same ingestion idempotent.
func (s *Store) MarkParentSuperseded(ctx context.Context, parentVersionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE document_versions SET status='SUPERSEDED', updated_at=now()
		WHERE version_id=$1 AND status='ACTIVE'`, parentVersionID)
	return err
}

// SetStatusPendingToActive applies the terminal-success transition; a no-op
// if the version is not PENDING (already ACTIVE from a duplicate delivery).
func (s *Store) SetStatusPendingToActive(ctx context.Context, versionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE document_versions SET status='ACTIVE', updated_at=now()
		WHERE version_id=$1 AND status='PENDING'`, versionID)
	return err
}

// SetStatusPendingToFailed applies the terminal-failure transition; a no-op
// if the version is not PENDING.
func (s *Store) SetStatusPendingToFailed(ctx context.Context, versionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE document_versions SET status='FAILED', updated_at=now()
		WHERE version_id=$1 AND status='PENDING'`, versionID)
	return err
}

// GetVersion loads a single version row.
func (s *Store) GetVersion(ctx context.Context, versionID string) (*Version, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT version_id, document_id, version_label, effective_date, status,
		       parent_version_id, tenant_id, effective_year, uploaded_by, raw_sha256, file_id, uploaded_at
		FROM document_versions WHERE version_id=$1`, versionID)
	var v Version
	err := row.Scan(&v.VersionID, &v.DocumentID, &v.VersionLabel, &v.EffectiveDate, &v.Status,
		&v.ParentVersionID, &v.TenantID, &v.EffectiveYear, &v.UploadedBy, &v.RawSHA256, &v.FileID, &v.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get version: %w", err)
	}
	return &v, nil
}

// GetDocument loads a single document row.
func (s *Store) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT document_id, title, jurisdiction, regulation_family, instrument_type,
		       primary_axis, primary_axis_source, created_at, updated_at
		FROM documents WHERE document_id=$1`, documentID)
	var d Document
	err := row.Scan(&d.DocumentID, &d.Title, &d.Jurisdiction, &d.RegulationFamily, &d.InstrumentType,
		&d.PrimaryAxis, &d.PrimaryAxisSource, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	return &d, nil
}

// MatchingVersionByShaAndMetadata implements the dedupe lookup: a version
// created from the same raw bytes (via evidence_files.sha256) and file_id,
// whose owning document matches the exact 4-tuple. Returns ErrNotFound when
// no such version exists.
func (s *Store) MatchingVersionByShaAndMetadata(ctx context.Context, sha256, fileID, title, jurisdiction, regulationFamily, instrumentType string) (*Version, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT v.version_id, v.document_id, v.version_label, v.effective_date, v.status,
		       v.parent_version_id, v.tenant_id, v.effective_year, v.uploaded_by, v.raw_sha256, v.file_id, v.uploaded_at
		FROM document_versions v
		JOIN documents d ON d.document_id = v.document_id
		WHERE v.raw_sha256=$1 AND v.file_id=$2
		  AND d.jurisdiction=$3 AND d.regulation_family=$4 AND d.title=$5 AND d.instrument_type=$6
		ORDER BY v.uploaded_at DESC`, sha256, fileID, jurisdiction, regulationFamily, title, instrumentType)
	if err != nil {
		return nil, fmt.Errorf("store: match version: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrNotFound
	}
	var v Version
	if err := rows.Scan(&v.VersionID, &v.DocumentID, &v.VersionLabel, &v.EffectiveDate, &v.Status,
		&v.ParentVersionID, &v.TenantID, &v.EffectiveYear, &v.UploadedBy, &v.RawSHA256, &v.FileID, &v.UploadedAt); err != nil {
		return nil, fmt.Errorf("store: scan matched version: %w", err)
	}
	return &v, nil
}

// PrimaryAxisSuggestion is a derived-only, per-version suggestion. It never
// overwrites documents.primary_axis.
type PrimaryAxisSuggestion struct {
	SuggestionID  string
	VersionID     string
	SuggestedAxis string
	ModelName     string
	ModelVersion  string
	Confidence    float64
	DetailsJSON   []byte
}

// UpsertPrimaryAxisSuggestion writes or refreshes the single suggestion row
// for versionID.
func (s *Store) UpsertPrimaryAxisSuggestion(ctx context.Context, versionID, suggestedAxis, modelName, modelVersion string, confidence float64, detailsJSON []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO primary_axis_suggestions(suggestion_id, version_id, suggested_axis, model_name, model_version, confidence, details_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb)
		ON CONFLICT (version_id) DO UPDATE SET
			suggested_axis=EXCLUDED.suggested_axis,
			model_name=EXCLUDED.model_name,
			model_version=EXCLUDED.model_version,
			confidence=EXCLUDED.confidence,
			details_json=EXCLUDED.details_json,
			updated_at=now()`,
		uuid.NewString(), versionID, suggestedAxis, modelName, modelVersion, confidence, detailsJSON)
	return err
}

// GetPrimaryAxisSuggestion loads the suggestion for versionID, if any.
func (s *Store) GetPrimaryAxisSuggestion(ctx context.Context, versionID string) (*PrimaryAxisSuggestion, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT suggestion_id, version_id, suggested_axis, model_name, model_version, confidence, details_json
		FROM primary_axis_suggestions WHERE version_id=$1`, versionID)
	var p PrimaryAxisSuggestion
	err := row.Scan(&p.SuggestionID, &p.VersionID, &p.SuggestedAxis, &p.ModelName, &p.ModelVersion, &p.Confidence, &p.DetailsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get suggestion: %w", err)
	}
	return &p, nil
}
