// Command api serves the upload/document/version/file/artifact HTTP
// endpoints documented in original_source/app/api/routes_epic1.py.
//
// Grounded on manifold's cmd/orchestrator/main.go for the getenv/zerolog/
// graceful-shutdown shape of a long-running service entrypoint.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/regulation-registry/core/internal/audit"
	"github.com/regulation-registry/core/internal/authn"
	"github.com/regulation-registry/core/internal/bus"
	"github.com/regulation-registry/core/internal/config"
	"github.com/regulation-registry/core/internal/httpapi"
	"github.com/regulation-registry/core/internal/ingestion"
	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/rules"
	"github.com/regulation-registry/core/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	configureLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.EnsureDefaultUploadRules(ctx, rules.DefaultUploadRules(cfg.MaxPDFMB)); err != nil {
		return err
	}

	objects, err := objectstore.New(ctx, cfg)
	if err != nil {
		return err
	}

	auditSvc := audit.New(st)
	producer := bus.NewProducer([]string{cfg.KafkaBootstrap}, cfg.TopicEvents)
	defer producer.Close()

	suggester := ingestion.RuleSuggester{ModelName: cfg.LLMModelName, ModelVersion: cfg.LLMModelVersion}
	ingestionSvc := ingestion.New(st, objects, auditSvc, suggester, cfg.EnableLLMPrimaryAxisSuggestion, cfg.MaxPDFMB)

	verifier := authn.NewVerifier(cfg.AuthMode, []byte(cfg.JWTHS256Secret), cfg.JWTAudience, cfg.JWTIssuer)

	server := httpapi.NewServer(ingestionSvc, st, objects, producer, verifier, httpapi.Config{
		MaxUploadMB:         cfg.MaxPDFMB,
		SignedURLExpiresSec: cfg.SignedURLExpiresSec,
	}, log.Logger)

	httpServer := &http.Server{
		Addr:              ":8080",
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", httpServer.Addr).Msg("api listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	log.Info().Msg("api stopped")
	return nil
}

func configureLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.With().Timestamp().Logger()
}
