// Command canonicalizeworker consumes REGISTRY.VERSION_CREATED events and
// runs the canonicalize/chunk stage.
//
// Grounded on original_source/app/workers/worker_canonicalize.py and
// manifold's cmd/orchestrator/main.go entrypoint shape.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/regulation-registry/core/internal/audit"
	"github.com/regulation-registry/core/internal/bus"
	"github.com/regulation-registry/core/internal/config"
	"github.com/regulation-registry/core/internal/extract"
	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/store"
	"github.com/regulation-registry/core/internal/worker/canonicalize"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("canonicalizeworker")
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

	objects, err := objectstore.New(ctx, cfg)
	if err != nil {
		return err
	}

	auditSvc := audit.New(st)
	producer := bus.NewProducer([]string{cfg.KafkaBootstrap}, cfg.TopicEvents)
	defer producer.Close()

	worker := canonicalize.New(st, objects, auditSvc, producer, extract.NewPDFExtractor(), canonicalize.Config{
		ExtractorVersion:   cfg.ExtractorVersion,
		LayoutVersion:      cfg.LayoutVersion,
		ChunkerVersion:     cfg.ChunkerVersion,
		ChunkSchemaVersion: cfg.ChunkSchemaVersion,
		ChunkMaxChars:      cfg.ChunkMaxChars,
		ChunkOverlapChars:  cfg.ChunkOverlapChars,
	})

	consumer := bus.NewConsumer([]string{cfg.KafkaBootstrap}, cfg.KafkaClientID+"-canonicalize", cfg.TopicEvents, cfg.KafkaWorkerCount, worker.Handle, log.Logger)

	log.Info().Str("topic", cfg.TopicEvents).Msg("canonicalizeworker listening")
	if err := consumer.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("canonicalizeworker stopped")
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
