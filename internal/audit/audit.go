// Package audit implements the hash-chained, per-entity append-only audit
// log. Grounded on original_source/app/services/audit.py.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/regulation-registry/core/internal/canonjson"
)

// Store is the persistence surface audit needs from internal/store.
type Store interface {
	LastEventHashForEntity(ctx context.Context, entityType, entityID string) (string, error)
	InsertAuditEvent(ctx context.Context, eventID, entityType, entityID, action, actor, correlationID string, detailsJSON []byte, prevEventHash, eventHash *string) error
}

// Service appends hash-chained events to the audit log.
type Service struct {
	store Store
}

// New builds an audit Service over store.
func New(store Store) *Service {
	return &Service{store: store}
}

type chainPayload struct {
	EventID         string         `json:"event_id"`
	EntityType      string         `json:"entity_type"`
	EntityID        string         `json:"entity_id"`
	Action          string         `json:"action"`
	Actor           string         `json:"actor"`
	CorrelationID   string         `json:"correlation_id"`
	Details         map[string]any `json:"details"`
	PrevEventHash   *string        `json:"prev_event_hash"`
}

// Write appends one event, chaining it to the entity's most recent hash.
// Returns the new event's id.
func (s *Service) Write(ctx context.Context, entityType, entityID, action, actor, correlationID string, details map[string]any) (string, error) {
	prev, err := s.store.LastEventHashForEntity(ctx, entityType, entityID)
	if err != nil {
		return "", fmt.Errorf("audit: load prior hash: %w", err)
	}

	var prevPtr *string
	if prev != "" {
		prevPtr = &prev
	}

	eventID := uuid.NewString()
	payload := chainPayload{
		EventID:       eventID,
		EntityType:    entityType,
		EntityID:      entityID,
		Action:        action,
		Actor:         actor,
		CorrelationID: correlationID,
		Details:       details,
		PrevEventHash: prevPtr,
	}

	canonical, err := canonjson.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("audit: canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	eventHash := hex.EncodeToString(sum[:])

	detailsJSON, err := canonjson.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("audit: marshal details: %w", err)
	}

	if err := s.store.InsertAuditEvent(ctx, eventID, entityType, entityID, action, actor, correlationID, detailsJSON, prevPtr, &eventHash); err != nil {
		return "", fmt.Errorf("audit: insert event: %w", err)
	}
	return eventID, nil
}
