// Package ingestion implements the ingestion orchestrator: the single
// transactional entry point that validates an upload, computes its
// fingerprint, applies dedupe policy, opens registry rows, commits evidence,
// and writes the audit trail. Canonicalization and chunking happen later,
// asynchronously, in response to the REGISTRY.VERSION_CREATED event.
//
// Grounded step-for-step on original_source/app/services/ingestion.py.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/rules"
	"github.com/regulation-registry/core/internal/store"
)

// IngestionStatus mirrors ingestion.py's ingestion_status discriminant.
type IngestionStatus string

const (
	StatusDedupReturnExisting           IngestionStatus = "DEDUP_RETURN_EXISTING"
	StatusCreatedNewVersionReusedFile   IngestionStatus = "CREATED_NEW_VERSION_REUSED_FILE"
	StatusCreatedNewDocumentAndVersion  IngestionStatus = "CREATED_NEW_DOCUMENT_AND_VERSION"
	StatusCreatedNewVersion             IngestionStatus = "CREATED_NEW_VERSION"
)

// Meta is the caller-supplied upload metadata.
type Meta struct {
	Title            string
	Jurisdiction     string
	RegulationFamily string
	InstrumentType   string
	PrimaryAxis      string
	TenantID         string
	EffectiveYear    int
	VersionLabel     *string
	EffectiveDate    *time.Time
	ParentVersionID  *string
}

// fields renders Meta as the generic map EnforceUploadRules expects,
// matching ingestion.py's raw request_payload dict.
func (m Meta) fields() map[string]any {
	out := map[string]any{
		"title":             m.Title,
		"jurisdiction":      m.Jurisdiction,
		"regulation_family": m.RegulationFamily,
		"instrument_type":   m.InstrumentType,
		"primary_axis":      m.PrimaryAxis,
		"tenant_id":         m.TenantID,
	}
	if m.EffectiveYear != 0 {
		out["effective_year"] = m.EffectiveYear
	}
	return out
}

// Request is one upload request.
type Request struct {
	PDFBytes        []byte
	Meta            Meta
	Actor           string
	ForceNewVersion bool
}

// PrimaryAxisSuggestion surfaces a derived-only suggestion alongside the
// ingestion result; never written as truth.
type PrimaryAxisSuggestion struct {
	Value        string
	ModelName    string
	ModelVersion string
	Confidence   float64
}

// Result mirrors ingestion.py's ingest_request return dict.
type Result struct {
	HTTPStatus            int
	IngestionStatus       IngestionStatus
	CorrelationID         string
	DocumentID            string
	VersionID             string
	FileID                string
	SHA256                string
	PrimaryAxisSource     rules.Source
	PrimaryAxisSuggestion *PrimaryAxisSuggestion
}

// ErrPDFTooLarge is returned when the upload exceeds the configured MaxPDFMB.
type ErrPDFTooLarge struct{ MaxMB int }

func (e *ErrPDFTooLarge) Error() string { return fmt.Sprintf("pdf too large; max=%dMB", e.MaxMB) }

// ErrPrimaryAxisMismatch guards against silently changing an existing
// document's primary_axis truth value.
type ErrPrimaryAxisMismatch struct{ Stored, Provided string }

func (e *ErrPrimaryAxisMismatch) Error() string {
	return fmt.Sprintf("primary_axis mismatch for existing document. stored=%s provided/derived=%s", e.Stored, e.Provided)
}

// AuditWriter is the subset of internal/audit.Service the orchestrator uses.
type AuditWriter interface {
	Write(ctx context.Context, entityType, entityID, action, actor, correlationID string, details map[string]any) (string, error)
}

// Suggester produces a derived-only primary-axis suggestion. The default
// implementation (see RuleSuggester.Suggest) mirrors ingestion.py's
// _suggest_primary_axis conservative stub rather than calling an LLM inline;
// a real LLM call happens later, asynchronously, in internal/worker/llmderive.
type Suggester interface {
	Suggest(meta Meta) (axis string, confidence float64, modelName, modelVersion string)
}

// RuleSuggester is the default Suggester: a conservative stub that reuses
// the deterministic rule as a baseline suggestion rather than calling an
// LLM inline. Swap in a real model-backed Suggester while keeping the same
// output contract; a real LLM call happens later, asynchronously, in
// internal/worker/llmderive. Grounded on ingestion.py's _suggest_primary_axis.
type RuleSuggester struct {
	ModelName    string
	ModelVersion string
}

func (r RuleSuggester) Suggest(meta Meta) (axis string, confidence float64, modelName, modelVersion string) {
	axis, _ = rules.DerivePrimaryAxisDeterministic(meta.Jurisdiction, meta.Title, meta.RegulationFamily, meta.InstrumentType)
	return axis, 0.55, r.ModelName, r.ModelVersion
}

// Service is the ingestion orchestrator.
type Service struct {
	store     *store.Store
	objects   objectstore.Store
	audit     AuditWriter
	suggester Suggester

	enableLLMSuggestion bool
	fallbackMaxPDFMB    int
}

// New builds the ingestion Service.
func New(st *store.Store, objects objectstore.Store, audit AuditWriter, suggester Suggester, enableLLMSuggestion bool, fallbackMaxPDFMB int) *Service {
	return &Service{
		store:               st,
		objects:             objects,
		audit:               audit,
		suggester:           suggester,
		enableLLMSuggestion: enableLLMSuggestion,
		fallbackMaxPDFMB:    fallbackMaxPDFMB,
	}
}

// Ingest runs the full 13-step orchestration.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	correlationID := uuid.NewString()

	// Step 1: validate request using configurable rules (refdata).
	uploadRules, err := s.store.ActiveUploadRules(ctx, rules.DefaultUploadRules(s.fallbackMaxPDFMB))
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: load upload rules: %w", err)
	}
	if err := rules.EnforceUploadRules(uploadRules, req.Meta.fields()); err != nil {
		return Result{}, err
	}
	maxMB := uploadRules.MaxPDFMB
	if maxMB <= 0 {
		maxMB = s.fallbackMaxPDFMB
	}
	if len(req.PDFBytes) > maxMB*1024*1024 {
		return Result{}, &ErrPDFTooLarge{MaxMB: maxMB}
	}

	if _, err := s.audit.Write(ctx, "system", "epic1", "REQUEST.RECEIVED", req.Actor, correlationID, map[string]any{
		"meta":              metaDetails(req.Meta),
		"force_new_version": req.ForceNewVersion,
	}); err != nil {
		return Result{}, fmt.Errorf("ingestion: audit request received: %w", err)
	}

	// Step 2: compute sha256.
	sha := sha256Hex(req.PDFBytes)
	if _, err := s.audit.Write(ctx, "system", "epic1", "FINGERPRINT.COMPUTED", req.Actor, correlationID, map[string]any{"raw_sha256": sha}); err != nil {
		return Result{}, fmt.Errorf("ingestion: audit fingerprint: %w", err)
	}

	// Step 3: dedupe check.
	if _, err := s.audit.Write(ctx, "system", "epic1", "DEDUP.CHECKED", req.Actor, correlationID, map[string]any{"raw_sha256": sha}); err != nil {
		return Result{}, fmt.Errorf("ingestion: audit dedup checked: %w", err)
	}

	existing, err := s.dedupeMatchExisting(ctx, sha, req.Meta)
	if err != nil {
		return Result{}, err
	}
	if existing != nil && !req.ForceNewVersion {
		if _, err := s.audit.Write(ctx, "version", existing.VersionID, "DEDUP.SHORTCIRCUIT_RETURNED", req.Actor, correlationID, map[string]any{"raw_sha256": sha}); err != nil {
			return Result{}, fmt.Errorf("ingestion: audit dedup shortcircuit: %w", err)
		}
		doc, err := s.store.GetDocument(ctx, existing.DocumentID)
		if err != nil {
			return Result{}, fmt.Errorf("ingestion: load document for dedupe: %w", err)
		}
		return Result{
			HTTPStatus:        200,
			IngestionStatus:   StatusDedupReturnExisting,
			CorrelationID:     correlationID,
			DocumentID:        existing.DocumentID,
			VersionID:         existing.VersionID,
			FileID:            existing.FileID,
			SHA256:            sha,
			PrimaryAxisSource: rules.Source(doc.PrimaryAxisSource),
		}, nil
	}

	// Step 4: decide primary_axis truth value and source.
	primaryAxisValue := strings.TrimSpace(req.Meta.PrimaryAxis)
	var primaryAxisSource rules.Source
	if primaryAxisValue != "" {
		primaryAxisSource = rules.SourceUpload
	} else {
		primaryAxisValue, primaryAxisSource = rules.DerivePrimaryAxisDeterministic(
			req.Meta.Jurisdiction, req.Meta.Title, req.Meta.RegulationFamily, req.Meta.InstrumentType)
	}

	// Step 5: find-or-create document.
	doc, err := s.store.FindDocumentByMetadata(ctx, req.Meta.Title, req.Meta.Jurisdiction, req.Meta.RegulationFamily, req.Meta.InstrumentType)
	var documentID string
	var createdNewDoc bool
	var primaryAxisSourceOut rules.Source
	if err == nil {
		documentID = doc.DocumentID
		if doc.PrimaryAxis != "" && primaryAxisValue != "" && primaryAxisValue != doc.PrimaryAxis {
			return Result{}, &ErrPrimaryAxisMismatch{Stored: doc.PrimaryAxis, Provided: primaryAxisValue}
		}
		primaryAxisSourceOut = rules.Source(doc.PrimaryAxisSource)
	} else if err == store.ErrNotFound {
		documentID, err = s.store.CreateDocument(ctx, req.Meta.Title, req.Meta.Jurisdiction, req.Meta.RegulationFamily, req.Meta.InstrumentType, primaryAxisValue, string(primaryAxisSource))
		if err != nil {
			return Result{}, fmt.Errorf("ingestion: create document: %w", err)
		}
		createdNewDoc = true
		primaryAxisSourceOut = primaryAxisSource
	} else {
		return Result{}, fmt.Errorf("ingestion: find document: %w", err)
	}

	// Step 6: open version (PENDING) ahead of evidence write.
	versionID, err := s.store.CreateVersion(ctx, store.CreateVersionInput{
		DocumentID:      documentID,
		TenantID:        req.Meta.TenantID,
		EffectiveYear:   req.Meta.EffectiveYear,
		UploadedBy:      req.Actor,
		RawSHA256:       sha,
		VersionLabel:    req.Meta.VersionLabel,
		EffectiveDate:   req.Meta.EffectiveDate,
		ParentVersionID: req.Meta.ParentVersionID,
		Status:          store.StatusPending,
	})
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: create version: %w", err)
	}

	// Step 7: evidence handling — reuse an existing file_id under
	// force_new_version, otherwise write new immutable evidence.
	var fileID string
	priorEvidence, evErr := s.store.FindEvidenceBySHA256(ctx, sha)
	reusedFile := evErr == nil && req.ForceNewVersion
	if reusedFile {
		fileID = priorEvidence.FileID
	} else {
		fileID = uuid.NewString()
		key := fmt.Sprintf("evidence/%s/%s/%s.pdf", documentID, versionID, fileID)
		uri, err := s.objects.PutIfAbsent(ctx, key, req.PDFBytes, "application/pdf")
		if err != nil {
			return Result{}, fmt.Errorf("ingestion: write evidence bytes: %w", err)
		}
		if err := s.store.CreateEvidence(ctx, fileID, versionID, sha, uri, int64(len(req.PDFBytes))); err != nil {
			return Result{}, fmt.Errorf("ingestion: create evidence: %w", err)
		}
	}

	// Step 8: attach file_id to version.
	if err := s.store.SetVersionFileID(ctx, versionID, fileID); err != nil {
		return Result{}, fmt.Errorf("ingestion: set version file_id: %w", err)
	}

	// Step 9: supersede the parent version, if this is a new revision.
	if req.Meta.ParentVersionID != nil && *req.Meta.ParentVersionID != "" {
		if err := s.store.MarkParentSuperseded(ctx, *req.Meta.ParentVersionID); err != nil {
			return Result{}, fmt.Errorf("ingestion: supersede parent: %w", err)
		}
		if _, err := s.audit.Write(ctx, "version", *req.Meta.ParentVersionID, "PARENT_VERSION_SUPERSEDED", req.Actor, correlationID, map[string]any{"child_version_id": versionID}); err != nil {
			return Result{}, fmt.Errorf("ingestion: audit parent superseded: %w", err)
		}
	}

	// Step 10: audit the version creation. Downstream HTTP layer publishes
	// REGISTRY.VERSION_CREATED onto the bus only once this call returns 201.
	if _, err := s.audit.Write(ctx, "version", versionID, "REGISTRY.VERSION_CREATED", req.Actor, correlationID, map[string]any{
		"document_id": documentID, "file_id": fileID, "raw_sha256": sha,
	}); err != nil {
		return Result{}, fmt.Errorf("ingestion: audit version created: %w", err)
	}

	// Step 11: optional derived-only primary-axis suggestion. Never
	// overwrites truth; stored and audited separately.
	var suggestionOut *PrimaryAxisSuggestion
	if s.enableLLMSuggestion && s.suggester != nil {
		axis, confidence, modelName, modelVersion := s.suggester.Suggest(req.Meta)
		detailsJSON := []byte(`{"method":"stub_rule_suggestion"}`)
		if err := s.store.UpsertPrimaryAxisSuggestion(ctx, versionID, axis, modelName, modelVersion, confidence, detailsJSON); err != nil {
			return Result{}, fmt.Errorf("ingestion: upsert suggestion: %w", err)
		}
		if _, err := s.audit.Write(ctx, "version", versionID, "LLM.PRIMARY_AXIS_SUGGESTED", req.Actor, correlationID, map[string]any{
			"suggested_axis": axis, "confidence": confidence, "model_name": modelName, "model_version": modelVersion,
		}); err != nil {
			return Result{}, fmt.Errorf("ingestion: audit suggestion: %w", err)
		}
		suggestionOut = &PrimaryAxisSuggestion{Value: axis, ModelName: modelName, ModelVersion: modelVersion, Confidence: confidence}
	}

	// Step 12/13: classify the outcome and return.
	status := StatusCreatedNewVersion
	switch {
	case reusedFile:
		status = StatusCreatedNewVersionReusedFile
	case createdNewDoc:
		status = StatusCreatedNewDocumentAndVersion
	}

	return Result{
		HTTPStatus:            201,
		IngestionStatus:       status,
		CorrelationID:         correlationID,
		DocumentID:            documentID,
		VersionID:             versionID,
		FileID:                fileID,
		SHA256:                sha,
		PrimaryAxisSource:     primaryAxisSourceOut,
		PrimaryAxisSuggestion: suggestionOut,
	}, nil
}

// dedupeMatchExisting reimplements ingestion.py's _dedupe_match_existing:
// find evidence by sha256, then a version referencing that file_id whose
// owning document matches the exact 4-tuple.
func (s *Service) dedupeMatchExisting(ctx context.Context, sha string, meta Meta) (*dedupeMatch, error) {
	f, err := s.store.FindEvidenceBySHA256(ctx, sha)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingestion: find evidence by sha: %w", err)
	}

	v, err := s.store.MatchingVersionByShaAndMetadata(ctx, sha, f.FileID, meta.Title, meta.Jurisdiction, meta.RegulationFamily, meta.InstrumentType)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingestion: match version: %w", err)
	}

	return &dedupeMatch{DocumentID: v.DocumentID, VersionID: v.VersionID, FileID: f.FileID}, nil
}

type dedupeMatch struct {
	DocumentID string
	VersionID  string
	FileID     string
}

func metaDetails(m Meta) map[string]any {
	return map[string]any{
		"title":             m.Title,
		"jurisdiction":      m.Jurisdiction,
		"regulation_family": m.RegulationFamily,
		"instrument_type":   m.InstrumentType,
		"primary_axis":      m.PrimaryAxis,
		"tenant_id":         m.TenantID,
		"effective_year":    m.EffectiveYear,
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
