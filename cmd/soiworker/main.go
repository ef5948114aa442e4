// Command soiworker projects registry events into the read-optimized
// System-of-Insight tables.
//
// Grounded on original_source/app/services/soi_projector.py and manifold's
// cmd/orchestrator/main.go entrypoint shape.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/regulation-registry/core/internal/bus"
	"github.com/regulation-registry/core/internal/config"
	"github.com/regulation-registry/core/internal/store"
	"github.com/regulation-registry/core/internal/worker/soiprojector"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("soiworker")
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

	worker := soiprojector.New(st)
	consumer := bus.NewConsumer([]string{cfg.KafkaBootstrap}, cfg.KafkaClientID+"-soiprojector", cfg.TopicEvents, cfg.KafkaWorkerCount, worker.Handle, log.Logger)

	log.Info().Str("topic", cfg.TopicEvents).Msg("soiworker listening")
	if err := consumer.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("soiworker stopped")
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
