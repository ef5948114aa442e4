package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/regulation-registry/core/internal/authn"
	"github.com/regulation-registry/core/internal/events"
	"github.com/regulation-registry/core/internal/ingestion"
	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/rules"
	"github.com/regulation-registry/core/internal/store"
)

const maxUploadMemoryBytes = 32 << 20

// uploadResponse mirrors routes_epic1.py's UploadResponse contract.
type uploadResponse struct {
	DocumentID            string                         `json:"document_id"`
	VersionID             string                         `json:"version_id"`
	FileID                string                         `json:"file_id"`
	FingerprintSHA256     string                         `json:"fingerprint_sha256"`
	IngestionStatus       ingestion.IngestionStatus       `json:"ingestion_status"`
	CorrelationID         string                         `json:"correlation_id"`
	PrimaryAxisSource     string                         `json:"primary_axis_source"`
	PrimaryAxisSuggestion *ingestion.PrimaryAxisSuggestion `json:"primary_axis_suggestion,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := s.auth.Authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}
	if err := authn.RequireRole(claims, authn.RoleOperator); err != nil {
		respondError(w, http.StatusForbidden, err)
		return
	}

	maxBytes := int64(s.cfg.MaxUploadMB) * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 50 * 1024 * 1024
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+maxUploadMemoryBytes)
	if err := r.ParseMultipartForm(maxUploadMemoryBytes); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		respondError(w, http.StatusBadRequest, errors.New("file must be application/pdf"))
		return
	}
	pdfBytes, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("read file: %w", err))
		return
	}

	form := r.MultipartForm.Value
	effectiveYear, _ := strconv.Atoi(formValue(form, "effective_year"))
	forceNewVersion := formValue(form, "force_new_version") == "true"

	meta := ingestion.Meta{
		Title:            formValue(form, "title"),
		Jurisdiction:     formValue(form, "jurisdiction"),
		RegulationFamily: formValue(form, "regulation_family"),
		InstrumentType:   formValue(form, "instrument_type"),
		PrimaryAxis:      formValue(form, "primary_axis"),
		TenantID:         formValue(form, "tenant_id"),
		EffectiveYear:    effectiveYear,
	}
	if v := formValue(form, "version_label"); v != "" {
		meta.VersionLabel = &v
	}
	if v := formValue(form, "parent_version_id"); v != "" {
		meta.ParentVersionID = &v
	}

	actor := claims.Subject
	if actor == "" {
		actor = "unknown"
	}

	res, err := s.ingestion.Ingest(ctx, ingestion.Request{
		PDFBytes:        pdfBytes,
		Meta:            meta,
		Actor:           actor,
		ForceNewVersion: forceNewVersion,
	})
	if err != nil {
		respondError(w, statusFromIngestionError(err), err)
		return
	}

	// Only a newly created version triggers canonicalization downstream.
	if res.HTTPStatus == 201 {
		if pubErr := s.producer.Publish(ctx, events.DomainEvent{
			EventType:     events.VersionCreated,
			CorrelationID: res.CorrelationID,
			Actor:         actor,
			EntityType:    events.EntityVersion,
			EntityID:      res.VersionID,
			Payload: map[string]any{
				"document_id": res.DocumentID,
				"version_id":  res.VersionID,
				"file_id":     res.FileID,
				"raw_sha256":  res.SHA256,
			},
		}); pubErr != nil {
			s.log.Error().Err(pubErr).Str("version_id", res.VersionID).Msg("publish REGISTRY.VERSION_CREATED failed")
			respondError(w, http.StatusInternalServerError, fmt.Errorf("publish version created event: %w", pubErr))
			return
		}
	}

	respondJSON(w, res.HTTPStatus, uploadResponse{
		DocumentID:            res.DocumentID,
		VersionID:             res.VersionID,
		FileID:                res.FileID,
		FingerprintSHA256:     res.SHA256,
		IngestionStatus:       res.IngestionStatus,
		CorrelationID:         res.CorrelationID,
		PrimaryAxisSource:     string(res.PrimaryAxisSource),
		PrimaryAxisSuggestion: res.PrimaryAxisSuggestion,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := s.auth.Authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}
	if err := authn.RequireRole(claims, authn.RoleOperator, authn.RoleAuditor); err != nil {
		respondError(w, http.StatusForbidden, err)
		return
	}

	doc, err := s.store.GetDocument(ctx, r.PathValue("documentID"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, errors.New("document not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := s.auth.Authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}
	if err := authn.RequireRole(claims, authn.RoleOperator, authn.RoleAuditor); err != nil {
		respondError(w, http.StatusForbidden, err)
		return
	}

	v, err := s.store.GetVersion(ctx, r.PathValue("versionID"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, errors.New("version not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := s.auth.Authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}
	if err := authn.RequireRole(claims, authn.RoleOperator, authn.RoleAuditor); err != nil {
		respondError(w, http.StatusForbidden, err)
		return
	}

	f, err := s.store.GetEvidenceFile(ctx, r.PathValue("fileID"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, errors.New("file not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	scheme, key, err := objectstore.ParseURI(f.StorageURI)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if scheme == "s3" {
		url, err := s.objects.SignedURL(ctx, key, s.signedURLExpiry())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"file_id": f.FileID, "signed_url": url, "mime_type": f.MimeType, "sha256": f.SHA256,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"file_id": f.FileID, "storage_uri": f.StorageURI, "mime_type": f.MimeType, "sha256": f.SHA256,
	})
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := s.auth.Authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}
	if err := authn.RequireRole(claims, authn.RoleOperator, authn.RoleAuditor); err != nil {
		respondError(w, http.StatusForbidden, err)
		return
	}

	a, err := s.store.GetArtifact(ctx, r.PathValue("artifactID"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, errors.New("artifact not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func formValue(form map[string][]string, key string) string {
	if vs, ok := form[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func statusFromIngestionError(err error) int {
	var tooLarge *ingestion.ErrPDFTooLarge
	var mismatch *ingestion.ErrPrimaryAxisMismatch
	var missingFields *rules.MissingFieldsError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &mismatch):
		return http.StatusBadRequest
	case errors.As(err, &missingFields):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}
