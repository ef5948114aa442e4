package store

import "context"

// UpsertSoIVersion idempotently projects a version's status into the
// read-optimized System-of-Insight table. Grounded on
// original_source/app/services/soi_projector.py::SoIProjector.project.
func (s *Store) UpsertSoIVersion(ctx context.Context, versionID, documentID, status string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO soi_versions(version_id, document_id, status, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (version_id) DO UPDATE SET status=EXCLUDED.status, updated_at=now()`,
		versionID, documentID, status)
	return err
}

// UpsertSoIDocument projects the owning document's current metadata and
// latest version pointer/status.
func (s *Store) UpsertSoIDocument(ctx context.Context, documentID, title, jurisdiction, regulationFamily, instrumentType, primaryAxis, primaryAxisSource, latestVersionID, latestStatus string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO soi_documents(document_id, title, jurisdiction, regulation_family, instrument_type, primary_axis, primary_axis_source, latest_version_id, latest_status, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (document_id) DO UPDATE SET
			title=EXCLUDED.title,
			jurisdiction=EXCLUDED.jurisdiction,
			regulation_family=EXCLUDED.regulation_family,
			instrument_type=EXCLUDED.instrument_type,
			primary_axis=EXCLUDED.primary_axis,
			primary_axis_source=EXCLUDED.primary_axis_source,
			latest_version_id=EXCLUDED.latest_version_id,
			latest_status=EXCLUDED.latest_status,
			updated_at=now()`,
		documentID, title, jurisdiction, regulationFamily, instrumentType, primaryAxis, primaryAxisSource, latestVersionID, latestStatus)
	return err
}

// SetSoIVersionArtifactCount refreshes the cached artifact count shown for
// a version, recomputed from derived_artifacts after INGESTION.COMPLETED.
func (s *Store) SetSoIVersionArtifactCount(ctx context.Context, versionID string, count int) error {
	_, err := s.pool.Exec(ctx, `UPDATE soi_versions SET artifact_count=$1, updated_at=now() WHERE version_id=$2`, count, versionID)
	return err
}
