// Package httpapi exposes the ingestion service's HTTP surface.
//
// Grounded on manifold's internal/httpapi/server.go for the Server/mux
// shape (Go 1.22+ method-pattern ServeMux routing) and on
// original_source/app/api/routes_epic1.py for endpoint semantics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/regulation-registry/core/internal/authn"
	"github.com/regulation-registry/core/internal/bus"
	"github.com/regulation-registry/core/internal/ingestion"
	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/store"
)

// Config carries the request-time limits and policy knobs the handlers
// need beyond their collaborators.
type Config struct {
	MaxUploadMB        int
	SignedURLExpiresSec int
}

// Server wires the ingestion pipeline to HTTP. A new REGISTRY.VERSION_CREATED
// event is only published once Ingest returns HTTP 201, matching
// routes_epic1.py's "emit only when a new version is created" rule.
type Server struct {
	ingestion *ingestion.Service
	store     *store.Store
	objects   objectstore.Store
	producer  *bus.Producer
	auth      *authn.Verifier
	cfg       Config
	log       zerolog.Logger
	mux       *http.ServeMux
}

// NewServer builds the HTTP API server.
func NewServer(ingestionSvc *ingestion.Service, st *store.Store, objects objectstore.Store, producer *bus.Producer, auth *authn.Verifier, cfg Config, log zerolog.Logger) *Server {
	s := &Server{
		ingestion: ingestionSvc,
		store:     st,
		objects:   objects,
		producer:  producer,
		auth:      auth,
		cfg:       cfg,
		log:       log,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/v1/regulations/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/v1/documents/{documentID}", s.handleGetDocument)
	s.mux.HandleFunc("GET /api/v1/versions/{versionID}", s.handleGetVersion)
	s.mux.HandleFunc("GET /api/v1/files/{fileID}", s.handleGetFile)
	s.mux.HandleFunc("GET /api/v1/artifacts/{artifactID}", s.handleGetArtifact)
}

func (s *Server) signedURLExpiry() time.Duration {
	if s.cfg.SignedURLExpiresSec <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.SignedURLExpiresSec) * time.Second
}
