// Package charartifacts lazily generates per-character traceability
// artifacts (char_map, char_boxes) on demand, outside the default upload
// pipeline, because they are large relative to the canonical artifacts.
//
// Grounded on original_source/app/services/char_artifacts.py.
package charartifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/regulation-registry/core/internal/audit"
	"github.com/regulation-registry/core/internal/canonjson"
	"github.com/regulation-registry/core/internal/extract"
	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/store"
)

// Status values mirror char_artifacts.py's response discriminant.
const (
	StatusExists    = "EXISTS"
	StatusNotReady  = "NOT_READY"
	StatusRejected  = "REJECTED"
	StatusCreated   = "CREATED"
	ReasonTooManyPages = "too_many_pages"
)

// Result reports the outcome of an ensure call.
type Result struct {
	VersionID  string
	ArtifactID string
	Status     string
	Reason     string
}

// Service generates char_map/char_boxes artifacts on demand.
type Service struct {
	store      *store.Store
	objects    objectstore.Store
	audit      *audit.Service
	extractor  extract.Extractor
	maxPages   int
	extractorV string
	layoutV    string
}

// New builds a charartifacts Service. maxPages bounds request cost
// (CHAR_ARTIFACT_MAX_PAGES); requests over the bound are rejected rather
// than silently truncated.
func New(st *store.Store, objects objectstore.Store, aud *audit.Service, extractor extract.Extractor, maxPages int, extractorVersion, layoutVersion string) *Service {
	return &Service{store: st, objects: objects, audit: aud, extractor: extractor, maxPages: maxPages, extractorV: extractorVersion, layoutV: layoutVersion}
}

type charMapPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

type charMapPayload struct {
	VersionID string        `json:"version_id"`
	RawSHA256 string        `json:"raw_sha256"`
	Pages     []charMapPage `json:"pages"`
}

// EnsureCharMap returns the existing char_map artifact or generates a new
// one from the version's evidence PDF.
func (s *Service) EnsureCharMap(ctx context.Context, versionID, actor string) (Result, error) {
	if existing, err := s.store.FindLatestArtifactByKind(ctx, versionID, "char_map"); err == nil {
		return Result{VersionID: versionID, ArtifactID: existing.ArtifactID, Status: StatusExists}, nil
	} else if err != store.ErrNotFound {
		return Result{}, fmt.Errorf("charartifacts: lookup char_map: %w", err)
	}

	version, pdfBytes, notReady, err := s.loadEvidence(ctx, versionID)
	if err != nil {
		return Result{}, err
	}
	if notReady {
		return Result{VersionID: versionID, Status: StatusNotReady}, nil
	}

	result, err := s.extractor.Extract(pdfBytes)
	if err != nil {
		return Result{}, fmt.Errorf("charartifacts: extract: %w", err)
	}
	if len(result.PageMap) > s.maxPages {
		return Result{VersionID: versionID, Status: StatusRejected, Reason: ReasonTooManyPages}, nil
	}

	pages := make([]charMapPage, 0, len(result.LayoutMap.Lines))
	for _, line := range result.LayoutMap.Lines {
		text := ""
		for _, span := range line.Spans {
			text += span.Text
		}
		pages = append(pages, charMapPage{Page: line.Page, Text: text})
	}

	payload := charMapPayload{VersionID: versionID, RawSHA256: version.RawSHA256, Pages: pages}
	artifactID, err := s.registerJSON(ctx, versionID, "char_map", payload, "pymupdf",
		s.extractorV+"|char_map@1.0.0", fmt.Sprintf("canonical/%s/char_map.json", versionID))
	if err != nil {
		return Result{}, err
	}

	if _, err := s.audit.Write(ctx, "artifact", artifactID, "CANONICALIZE.CHAR_MAP_GENERATED", actor, "-", map[string]any{
		"version_id": versionID, "kind": "char_map",
	}); err != nil {
		return Result{}, fmt.Errorf("charartifacts: audit char_map: %w", err)
	}

	return Result{VersionID: versionID, ArtifactID: artifactID, Status: StatusCreated}, nil
}

type charBox struct {
	Char string     `json:"c"`
	BBox [4]float64 `json:"bbox"`
}

type charBoxPage struct {
	Page  int       `json:"page"`
	Chars []charBox `json:"chars"`
}

type charBoxPayload struct {
	VersionID string        `json:"version_id"`
	RawSHA256 string        `json:"raw_sha256"`
	Pages     []charBoxPage `json:"pages"`
}

// EnsureCharBoxes returns the existing char_boxes artifact or generates a
// new one. Because the pure-Go fallback extractor has no glyph-level
// geometry, each character in a span inherits that span's bounding box.
func (s *Service) EnsureCharBoxes(ctx context.Context, versionID, actor string) (Result, error) {
	if existing, err := s.store.FindLatestArtifactByKind(ctx, versionID, "char_boxes"); err == nil {
		return Result{VersionID: versionID, ArtifactID: existing.ArtifactID, Status: StatusExists}, nil
	} else if err != store.ErrNotFound {
		return Result{}, fmt.Errorf("charartifacts: lookup char_boxes: %w", err)
	}

	version, pdfBytes, notReady, err := s.loadEvidence(ctx, versionID)
	if err != nil {
		return Result{}, err
	}
	if notReady {
		return Result{VersionID: versionID, Status: StatusNotReady}, nil
	}

	result, err := s.extractor.Extract(pdfBytes)
	if err != nil {
		return Result{}, fmt.Errorf("charartifacts: extract: %w", err)
	}
	if len(result.PageMap) > s.maxPages {
		return Result{VersionID: versionID, Status: StatusRejected, Reason: ReasonTooManyPages}, nil
	}

	pages := make([]charBoxPage, 0, len(result.LayoutMap.Lines))
	for _, line := range result.LayoutMap.Lines {
		var chars []charBox
		for _, span := range line.Spans {
			for _, r := range span.Text {
				chars = append(chars, charBox{Char: string(r), BBox: span.BBox})
			}
		}
		pages = append(pages, charBoxPage{Page: line.Page, Chars: chars})
	}

	payload := charBoxPayload{VersionID: versionID, RawSHA256: version.RawSHA256, Pages: pages}
	artifactID, err := s.registerJSON(ctx, versionID, "char_boxes", payload, "pymupdf",
		s.layoutV+"|char_boxes@1.0.0", fmt.Sprintf("canonical/%s/char_boxes.json", versionID))
	if err != nil {
		return Result{}, err
	}

	if _, err := s.audit.Write(ctx, "artifact", artifactID, "CANONICALIZE.CHAR_BOXES_GENERATED", actor, "-", map[string]any{
		"version_id": versionID, "kind": "char_boxes",
	}); err != nil {
		return Result{}, fmt.Errorf("charartifacts: audit char_boxes: %w", err)
	}

	return Result{VersionID: versionID, ArtifactID: artifactID, Status: StatusCreated}, nil
}

func (s *Service) loadEvidence(ctx context.Context, versionID string) (*store.Version, []byte, bool, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("charartifacts: load version: %w", err)
	}
	if version.FileID == nil || *version.FileID == "" {
		return version, nil, true, nil
	}
	evidence, err := s.store.GetEvidenceFile(ctx, *version.FileID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("charartifacts: load evidence: %w", err)
	}
	pdfBytes, err := objectstore.ReadByURI(ctx, s.objects, evidence.StorageURI)
	if err != nil {
		return nil, nil, false, fmt.Errorf("charartifacts: read evidence bytes: %w", err)
	}
	return version, pdfBytes, false, nil
}

func (s *Service) registerJSON(ctx context.Context, versionID, kind string, obj any, generatorName, generatorVersion, key string) (string, error) {
	body, err := canonjson.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("charartifacts: canonicalize %s: %w", kind, err)
	}
	uri, err := s.objects.PutIfAbsent(ctx, key, body, "application/json")
	if err != nil {
		return "", fmt.Errorf("charartifacts: write %s: %w", kind, err)
	}
	sum := sha256.Sum256(body)
	return s.store.RegisterArtifact(ctx, versionID, kind, hex.EncodeToString(sum[:]), uri, generatorName, generatorVersion)
}
