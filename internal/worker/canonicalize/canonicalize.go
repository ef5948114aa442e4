// Package canonicalize implements the canonicalize worker: it reacts to
// REGISTRY.VERSION_CREATED, extracts canonical text/page/layout artifacts,
// chunks them deterministically, activates the version, and emits
// LLM.DERIVATION_REQUESTED followed by INGESTION.COMPLETED. Any failure
// along the way transitions the version to FAILED and emits
// INGESTION.FAILED instead.
//
// Grounded on original_source/app/workers/worker_canonicalize.py.
package canonicalize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/regulation-registry/core/internal/audit"
	"github.com/regulation-registry/core/internal/bus"
	"github.com/regulation-registry/core/internal/canonjson"
	"github.com/regulation-registry/core/internal/chunk"
	"github.com/regulation-registry/core/internal/events"
	"github.com/regulation-registry/core/internal/extract"
	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/store"
)

// Config carries the version-stamped identifiers recorded on every
// generated artifact.
type Config struct {
	ExtractorVersion   string
	LayoutVersion      string
	ChunkerVersion     string
	ChunkSchemaVersion string
	ChunkMaxChars      int
	ChunkOverlapChars  int
}

// Worker performs the canonicalize stage.
type Worker struct {
	store     *store.Store
	objects   objectstore.Store
	audit     *audit.Service
	producer  *bus.Producer
	extractor extract.Extractor
	chunker   *chunk.Chunker
	cfg       Config
}

// New builds a canonicalize Worker.
func New(st *store.Store, objects objectstore.Store, aud *audit.Service, producer *bus.Producer, extractor extract.Extractor, cfg Config) *Worker {
	return &Worker{
		store:     st,
		objects:   objects,
		audit:     aud,
		producer:  producer,
		extractor: extractor,
		chunker:   chunk.New(cfg.ChunkMaxChars),
		cfg:       cfg,
	}
}

// Handle processes one REGISTRY.VERSION_CREATED event. Other event types are
// ignored so this Worker can share a consumer group's topic with other
// projections.
func (w *Worker) Handle(ctx context.Context, ev events.DomainEvent) error {
	if ev.EventType != events.VersionCreated {
		return nil
	}

	versionID, _ := ev.Payload["version_id"].(string)
	fileID, _ := ev.Payload["file_id"].(string)

	fail := func(reason string, cause error) error {
		if err := w.store.SetStatusPendingToFailed(ctx, versionID); err != nil {
			return fmt.Errorf("canonicalize: mark failed: %w", err)
		}
		details := map[string]any{"reason": reason}
		if cause != nil {
			details["error"] = cause.Error()
		}
		if _, err := w.audit.Write(ctx, "version", versionID, "INGESTION.FAILED", ev.Actor, ev.CorrelationID, details); err != nil {
			return fmt.Errorf("canonicalize: audit failure: %w", err)
		}
		return w.publishFailed(ctx, ev.CorrelationID, ev.Actor, versionID)
	}

	evidence, err := w.store.GetEvidenceFile(ctx, fileID)
	if err != nil {
		return fail("evidence_files not found", err)
	}

	pdfBytes, err := objectstore.ReadByURI(ctx, w.objects, evidence.StorageURI)
	if err != nil {
		return fail("evidence read failed", err)
	}

	result, err := w.extractor.Extract(pdfBytes)
	if err != nil {
		return fail("canonicalization failed", err)
	}

	canonicalIDs, err := w.storeCanonical(ctx, versionID, result)
	if err != nil {
		return fail("canonical artifact write failed", err)
	}

	chunks, manifest := w.chunker.Chunk(result.StableText, result.PageMap, chunk.Options{
		MaxChars: w.cfg.ChunkMaxChars, OverlapChars: w.cfg.ChunkOverlapChars,
	})

	chunkSetObj := map[string]any{
		"version_id":           versionID,
		"chunk_schema_version": w.cfg.ChunkSchemaVersion,
		"chunker_version":       w.cfg.ChunkerVersion,
		"manifest":             manifest,
		"chunks":               chunks,
	}
	chunkSetID, err := w.registerJSONArtifact(ctx, versionID, "chunk_set", chunkSetObj, "chunker",
		w.cfg.ChunkerVersion+"|"+w.cfg.ChunkSchemaVersion, fmt.Sprintf("indexes/%s/chunk_sets/chunk_set.json", versionID))
	if err != nil {
		return fail("chunk_set write failed", err)
	}

	retrievalManifest := map[string]any{
		"version_id": versionID,
		"raw_sha256": evidence.SHA256,
		"canonical_artifacts": map[string]string{
			"stable_text_id": canonicalIDs.StableTextID,
			"page_map_id":    canonicalIDs.PageMapID,
			"layout_map_id":  canonicalIDs.LayoutMapID,
		},
		"chunk_sets": []map[string]any{{
			"chunk_set_id":         chunkSetID,
			"chunker_version":       w.cfg.ChunkerVersion,
			"chunk_schema_version": w.cfg.ChunkSchemaVersion,
		}},
		"embedding_sets": []any{},
		"policies":       map[string]any{"citation_required": true, "max_context_tokens": 8192},
		"provenance": map[string]string{
			"extractor_version": w.cfg.ExtractorVersion,
			"layout_version":    w.cfg.LayoutVersion,
			"chunker_version":   w.cfg.ChunkerVersion,
		},
	}
	retrievalManifestID, err := w.registerJSONArtifact(ctx, versionID, "retrieval_manifest", retrievalManifest, "manifest",
		"retrieval_manifest@1.0.0", fmt.Sprintf("indexes/%s/retrieval_manifest.json", versionID))
	if err != nil {
		return fail("retrieval_manifest write failed", err)
	}

	storeChunks := make([]store.Chunk, 0, len(chunks))
	for i, c := range chunks {
		bboxRefs, _ := canonjson.Marshal([]any{})
		pageStart, pageEnd := c.PageStart, c.PageEnd
		storeChunks = append(storeChunks, store.Chunk{
			ChunkID:            uuid.NewString(),
			VersionID:          versionID,
			ChunkSetArtifactID: chunkSetID,
			ChunkIndex:         i,
			TextSHA256:         c.TextSHA256,
			CharStart:          c.StartChar,
			CharEnd:            c.EndChar,
			PageStart:          &pageStart,
			PageEnd:            &pageEnd,
			BBoxRefs:           bboxRefs,
			ChunkerVersion:     w.cfg.ChunkerVersion,
			SchemaVersion:      w.cfg.ChunkSchemaVersion,
		})
	}
	if err := w.store.InsertChunks(ctx, storeChunks); err != nil {
		return fail("chunk insert failed", err)
	}

	if err := w.store.SetStatusPendingToActive(ctx, versionID); err != nil {
		return fmt.Errorf("canonicalize: activate version: %w", err)
	}

	artifactsJSON, _ := canonjson.Marshal(map[string]string{
		"stable_text_id":        canonicalIDs.StableTextID,
		"page_map_id":           canonicalIDs.PageMapID,
		"layout_map_id":         canonicalIDs.LayoutMapID,
		"chunk_set_id":          chunkSetID,
		"retrieval_manifest_id": retrievalManifestID,
	})
	// Best-effort, matching worker_canonicalize.py's try/except around the
	// optional artifacts_json column: this never fails ingestion.
	_ = w.store.SetArtifactsJSON(ctx, versionID, artifactsJSON)

	if err := w.producer.Publish(ctx, events.DomainEvent{
		EventType:     events.DerivationRequested,
		CorrelationID: ev.CorrelationID,
		Actor:         ev.Actor,
		EntityType:    events.EntityVersion,
		EntityID:      versionID,
		Payload: map[string]any{
			"version_id":              versionID,
			"stable_text_artifact_id": canonicalIDs.StableTextID,
		},
	}); err != nil {
		return fmt.Errorf("canonicalize: publish derivation requested: %w", err)
	}

	return w.producer.Publish(ctx, events.DomainEvent{
		EventType:     events.IngestionCompleted,
		CorrelationID: ev.CorrelationID,
		Actor:         ev.Actor,
		EntityType:    events.EntityVersion,
		EntityID:      versionID,
		Payload:       map[string]any{"version_id": versionID},
	})
}

func (w *Worker) publishFailed(ctx context.Context, correlationID, actor, versionID string) error {
	return w.producer.Publish(ctx, events.DomainEvent{
		EventType:     events.IngestionFailed,
		CorrelationID: correlationID,
		Actor:         actor,
		EntityType:    events.EntityVersion,
		EntityID:      versionID,
		Payload:       map[string]any{"version_id": versionID},
	})
}

type canonicalIDs struct {
	StableTextID string
	PageMapID    string
	LayoutMapID  string
}

func (w *Worker) storeCanonical(ctx context.Context, versionID string, result extract.Result) (canonicalIDs, error) {
	stableTextID, err := w.registerArtifact(ctx, versionID, "stable_text", []byte(result.StableText),
		fmt.Sprintf("canonical/%s/stable_text.txt", versionID), "canonical_text_pipeline", w.cfg.ExtractorVersion)
	if err != nil {
		return canonicalIDs{}, err
	}
	pageMapID, err := w.registerJSONArtifact(ctx, versionID, "page_map", result.PageMap,
		"canonical_text_pipeline", w.cfg.ExtractorVersion, fmt.Sprintf("canonical/%s/page_map.json", versionID))
	if err != nil {
		return canonicalIDs{}, err
	}
	layoutMapID, err := w.registerJSONArtifact(ctx, versionID, "layout_map", result.LayoutMap,
		"canonical_layout_pipeline", w.cfg.LayoutVersion, fmt.Sprintf("canonical/%s/layout_map.json", versionID))
	if err != nil {
		return canonicalIDs{}, err
	}
	return canonicalIDs{StableTextID: stableTextID, PageMapID: pageMapID, LayoutMapID: layoutMapID}, nil
}

func (w *Worker) registerJSONArtifact(ctx context.Context, versionID, kind string, obj any, generatorName, generatorVersion, key string) (string, error) {
	body, err := canonjson.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("canonicalize: canonicalize %s: %w", kind, err)
	}
	return w.registerArtifact(ctx, versionID, kind, body, key, generatorName, generatorVersion)
}

func (w *Worker) registerArtifact(ctx context.Context, versionID, kind string, content []byte, key, generatorName, generatorVersion string) (string, error) {
	contentType := "text/plain"
	if len(key) > 5 && key[len(key)-5:] == ".json" {
		contentType = "application/json"
	}
	uri, err := w.objects.PutIfAbsent(ctx, key, content, contentType)
	if err != nil {
		return "", fmt.Errorf("canonicalize: write %s: %w", kind, err)
	}
	sum := sha256.Sum256(content)
	return w.store.RegisterArtifact(ctx, versionID, kind, hex.EncodeToString(sum[:]), uri, generatorName, generatorVersion)
}
