// Package soiprojector projects registry events into the read-optimized
// System-of-Insight tables (soi_documents, soi_versions), idempotently.
//
// Grounded on original_source/app/services/soi_projector.py and
// original_source/app/workers/worker_soi.py.
package soiprojector

import (
	"context"
	"errors"
	"fmt"

	"github.com/regulation-registry/core/internal/events"
	"github.com/regulation-registry/core/internal/store"
)

// Worker projects VERSION_CREATED/INGESTION.COMPLETED/INGESTION.FAILED
// events into soi_versions/soi_documents.
type Worker struct {
	store *store.Store
}

// New builds a soiprojector Worker.
func New(st *store.Store) *Worker {
	return &Worker{store: st}
}

// Handle processes one domain event, projecting it if relevant.
func (w *Worker) Handle(ctx context.Context, ev events.DomainEvent) error {
	switch ev.EventType {
	case events.VersionCreated, events.IngestionCompleted, events.IngestionFailed:
	default:
		return nil
	}

	versionID, _ := ev.Payload["version_id"].(string)
	if versionID == "" {
		versionID = ev.EntityID
	}

	version, err := w.store.GetVersion(ctx, versionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("soiprojector: load version: %w", err)
	}

	if err := w.store.UpsertSoIVersion(ctx, version.VersionID, version.DocumentID, version.Status); err != nil {
		return fmt.Errorf("soiprojector: upsert version: %w", err)
	}

	doc, err := w.store.GetDocument(ctx, version.DocumentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("soiprojector: load document: %w", err)
	}

	if err := w.store.UpsertSoIDocument(ctx, doc.DocumentID, doc.Title, doc.Jurisdiction, doc.RegulationFamily,
		doc.InstrumentType, doc.PrimaryAxis, doc.PrimaryAxisSource, version.VersionID, version.Status); err != nil {
		return fmt.Errorf("soiprojector: upsert document: %w", err)
	}

	if ev.EventType == events.IngestionCompleted {
		count, err := w.store.CountArtifactsByVersion(ctx, version.VersionID)
		if err != nil {
			return fmt.Errorf("soiprojector: count artifacts: %w", err)
		}
		if err := w.store.SetSoIVersionArtifactCount(ctx, version.VersionID, count); err != nil {
			return fmt.Errorf("soiprojector: set artifact count: %w", err)
		}
	}

	return nil
}
