package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LastEventHashForEntity returns the most recent non-null event_hash for
// (entityType, entityID), or "" if the entity has no audit history yet.
// Grounded on original_source/app/services/audit.py::last_hash_for_entity.
func (s *Store) LastEventHashForEntity(ctx context.Context, entityType, entityID string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT event_hash FROM audit_log
		WHERE entity_type=$1 AND entity_id=$2 AND event_hash IS NOT NULL
		ORDER BY at DESC LIMIT 1`, entityType, entityID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: last event hash: %w", err)
	}
	return hash, nil
}

// InsertAuditEvent appends one row to the hash-chained audit log. The hash
// itself is computed by the audit package; this just persists the row.
func (s *Store) InsertAuditEvent(ctx context.Context, eventID, entityType, entityID, action, actor, correlationID string, detailsJSON []byte, prevEventHash, eventHash *string) error {
	if eventID == "" {
		eventID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log(event_id, entity_type, entity_id, action, actor, correlation_id, details_json, prev_event_hash, event_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8,$9)`,
		eventID, entityType, entityID, action, actor, correlationID, detailsJSON, prevEventHash, eventHash)
	if err != nil {
		return fmt.Errorf("store: insert audit event: %w", err)
	}
	return nil
}
