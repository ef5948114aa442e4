// Package events defines the domain event envelope published to and
// consumed from the message bus.
//
// Grounded on original_source/app/contracts/events.py's DomainEvent model.
package events

import "time"

type Type string

const (
	VersionCreated       Type = "REGISTRY.VERSION_CREATED"
	DerivationRequested  Type = "LLM.DERIVATION_REQUESTED"
	DerivationCompleted  Type = "LLM.DERIVATION_COMPLETED"
	IngestionCompleted   Type = "INGESTION.COMPLETED"
	IngestionFailed      Type = "INGESTION.FAILED"
)

type EntityType string

const (
	EntityDocument EntityType = "document"
	EntityVersion  EntityType = "version"
	EntityFile     EntityType = "file"
	EntityArtifact EntityType = "artifact"
	EntitySystem   EntityType = "system"
)

// DomainEvent is the canonical message-bus payload. The producer fills in
// EventID and At when the publishing call site leaves them empty; it does
// not set PrevEventHash or EventHash.
type DomainEvent struct {
	EventID       string                 `json:"event_id"`
	EventType     Type                   `json:"event_type"`
	At            time.Time              `json:"at"`
	CorrelationID string                 `json:"correlation_id"`
	Actor         string                 `json:"actor"`
	EntityType    EntityType             `json:"entity_type"`
	EntityID      string                 `json:"entity_id"`
	Payload       map[string]any         `json:"payload"`
	PrevEventHash *string                `json:"prev_event_hash,omitempty"`
	EventHash     *string                `json:"event_hash,omitempty"`
}
