package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// EvidenceFile is the immutable record of a raw PDF upload.
type EvidenceFile struct {
	FileID     string
	VersionID  string
	SHA256     string
	MimeType   string
	SizeBytes  int64
	StorageURI string
}

// FindEvidenceBySHA256 returns the most recently created evidence row with
// the given fingerprint, or ErrNotFound.
func (s *Store) FindEvidenceBySHA256(ctx context.Context, sha256 string) (*EvidenceFile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT file_id, version_id, sha256, mime_type, size_bytes, storage_uri
		FROM evidence_files WHERE sha256=$1 ORDER BY created_at DESC LIMIT 1`, sha256)
	var e EvidenceFile
	err := row.Scan(&e.FileID, &e.VersionID, &e.SHA256, &e.MimeType, &e.SizeBytes, &e.StorageURI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find evidence: %w", err)
	}
	return &e, nil
}

// GetEvidenceFile loads a single evidence row by id.
func (s *Store) GetEvidenceFile(ctx context.Context, fileID string) (*EvidenceFile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT file_id, version_id, sha256, mime_type, size_bytes, storage_uri
		FROM evidence_files WHERE file_id=$1`, fileID)
	var e EvidenceFile
	err := row.Scan(&e.FileID, &e.VersionID, &e.SHA256, &e.MimeType, &e.SizeBytes, &e.StorageURI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get evidence: %w", err)
	}
	return &e, nil
}

// CreateEvidence registers a new evidence_files row under fileID for bytes
// already written to storageURI at a key composed from that same fileID
// (spec.md §4.2's evidence/{document_id}/{version_id}/{file_id}.pdf
// contract). The caller generates fileID up front and uses it for both the
// object-store key and this row, and is responsible for the write-once
// object-store put itself (see internal/objectstore); this only records
// metadata.
func (s *Store) CreateEvidence(ctx context.Context, fileID, versionID, sha256, storageURI string, sizeBytes int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO evidence_files(file_id, version_id, sha256, mime_type, size_bytes, storage_uri)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		fileID, versionID, sha256, "application/pdf", sizeBytes, storageURI)
	if err != nil {
		return fmt.Errorf("store: create evidence: %w", err)
	}
	return nil
}
