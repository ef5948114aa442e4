// Command llmworker consumes LLM.DERIVATION_REQUESTED events and runs the
// derived-only summarization stage.
//
// Grounded on original_source/app/workers/worker_llm.py and manifold's
// cmd/orchestrator/main.go entrypoint shape.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/regulation-registry/core/internal/audit"
	"github.com/regulation-registry/core/internal/bus"
	"github.com/regulation-registry/core/internal/config"
	"github.com/regulation-registry/core/internal/llm"
	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/store"
	"github.com/regulation-registry/core/internal/worker/llmderive"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("llmworker")
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

	var llmOpts []llm.Option
	if cfg.AnthropicAPIKey != "" {
		llmOpts = append(llmOpts,
			llm.WithClient(llm.NewAnthropicClient(cfg.AnthropicAPIKey, anthropic.ModelClaude3_5HaikuLatest)),
			llm.WithModel(cfg.LLMModelName, cfg.LLMModelVersion))
	} else {
		llmOpts = append(llmOpts, llm.WithModel(cfg.LLMModelName, cfg.LLMModelVersion))
	}
	llmSvc := llm.New(llmOpts...)

	worker := llmderive.New(st, objects, auditSvc, producer, llmSvc)

	consumer := bus.NewConsumer([]string{cfg.KafkaBootstrap}, cfg.KafkaClientID+"-llmderive", cfg.TopicEvents, cfg.KafkaWorkerCount, worker.Handle, log.Logger)

	log.Info().Str("topic", cfg.TopicEvents).Msg("llmworker listening")
	if err := consumer.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("llmworker stopped")
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
