package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DerivedArtifact is any canonicalization/chunking/LLM output persisted as
// an immutable object. Grounded on original_source/app/services/artifacts.py.
type DerivedArtifact struct {
	ArtifactID       string
	VersionID        string
	Kind             string
	SHA256           string
	StorageURI       string
	GeneratorName    string
	GeneratorVersion string
}

// RegisterArtifact inserts the derived_artifacts row once the object has
// already been written to storageURI at the given fingerprint.
func (s *Store) RegisterArtifact(ctx context.Context, versionID, kind, sha256, storageURI, generatorName, generatorVersion string) (string, error) {
	artifactID := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO derived_artifacts(artifact_id, version_id, kind, sha256, storage_uri, generator_name, generator_version)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		artifactID, versionID, kind, sha256, storageURI, generatorName, generatorVersion)
	if err != nil {
		return "", fmt.Errorf("store: register artifact: %w", err)
	}
	return artifactID, nil
}

// GetArtifact loads a single derived_artifacts row.
func (s *Store) GetArtifact(ctx context.Context, artifactID string) (*DerivedArtifact, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT artifact_id, version_id, kind, sha256, storage_uri, generator_name, generator_version
		FROM derived_artifacts WHERE artifact_id=$1`, artifactID)
	var a DerivedArtifact
	err := row.Scan(&a.ArtifactID, &a.VersionID, &a.Kind, &a.SHA256, &a.StorageURI, &a.GeneratorName, &a.GeneratorVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get artifact: %w", err)
	}
	return &a, nil
}

// FindLatestArtifactByKind returns the most recently created artifact of
// kind for versionID, or ErrNotFound. Used to make on-demand artifact
// generation (char_map, char_boxes) idempotent.
func (s *Store) FindLatestArtifactByKind(ctx context.Context, versionID, kind string) (*DerivedArtifact, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT artifact_id, version_id, kind, sha256, storage_uri, generator_name, generator_version
		FROM derived_artifacts WHERE version_id=$1 AND kind=$2
		ORDER BY created_at DESC LIMIT 1`, versionID, kind)
	var a DerivedArtifact
	err := row.Scan(&a.ArtifactID, &a.VersionID, &a.Kind, &a.SHA256, &a.StorageURI, &a.GeneratorName, &a.GeneratorVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find latest artifact: %w", err)
	}
	return &a, nil
}

// CountArtifactsByVersion returns how many derived_artifacts rows exist for
// versionID, used by the System-of-Insight projector's artifact_count.
func (s *Store) CountArtifactsByVersion(ctx context.Context, versionID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM derived_artifacts WHERE version_id=$1`, versionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count artifacts: %w", err)
	}
	return n, nil
}

// Chunk is a single deterministically-split text segment of a version's
// canonical stable_text.
type Chunk struct {
	ChunkID            string
	VersionID          string
	ChunkSetArtifactID string
	ChunkIndex         int
	TextSHA256         string
	CharStart          int
	CharEnd            int
	PageStart          *int
	PageEnd            *int
	BBoxRefs           []byte
	ChunkerVersion     string
	SchemaVersion      string
}

// InsertChunks inserts a version's chunk set with one statement per chunk.
// Neither it nor its caller removes or skips chunk rows from an earlier run
// for the same version, so a redelivered event adds a second set of rows.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) error {
	for _, c := range chunks {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO chunks(chunk_id, version_id, chunk_set_artifact_id, chunk_index, text_sha256, char_start, char_end,
				page_start, page_end, bbox_refs, chunker_version, schema_version)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11,$12)`,
			c.ChunkID, c.VersionID, c.ChunkSetArtifactID, c.ChunkIndex, c.TextSHA256, c.CharStart, c.CharEnd,
			c.PageStart, c.PageEnd, c.BBoxRefs, c.ChunkerVersion, c.SchemaVersion)
		if err != nil {
			return fmt.Errorf("store: insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// ChunksForVersion lists a version's chunks in order.
func (s *Store) ChunksForVersion(ctx context.Context, versionID string) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, version_id, chunk_set_artifact_id, chunk_index, text_sha256, char_start, char_end,
		       page_start, page_end, bbox_refs, chunker_version, schema_version
		FROM chunks WHERE version_id=$1 ORDER BY chunk_index`, versionID)
	if err != nil {
		return nil, fmt.Errorf("store: list chunks: %w", err)
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ChunkID, &c.VersionID, &c.ChunkSetArtifactID, &c.ChunkIndex, &c.TextSHA256, &c.CharStart, &c.CharEnd,
			&c.PageStart, &c.PageEnd, &c.BBoxRefs, &c.ChunkerVersion, &c.SchemaVersion); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
