// The audit worker binary. Drains the Postgres audit outbox into Kafka so
// request paths never block on the broker.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"nexus/internal/platform/config"
	"nexus/internal/platform/kafka"
	"nexus/internal/platform/logger"
	"nexus/internal/platform/postgres"
	"nexus/pkg/platform/audit"
	auditpostgres "nexus/pkg/platform/audit/store/postgres"
	"nexus/pkg/platform/audit/worker"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New().With("component", "audit_worker")

	if len(cfg.KafkaBrokers) == 0 {
		log.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	topics := []string{
		audit.CategoryCompliance.Topic(),
		audit.CategorySecurity.Topic(),
		audit.CategoryOperations.Topic(),
	}
	if err := producer.EnsureTopics(ctx, topics...); err != nil {
		log.Error("topic bootstrap failed", "error", err)
		os.Exit(1)
	}

	w := worker.New(auditpostgres.New(db), producer, log, cfg.OutboxInterval, cfg.OutboxBatchSize)

	log.Info("audit worker started",
		"brokers", cfg.KafkaBrokers,
		"interval", cfg.OutboxInterval,
		"batch_size", cfg.OutboxBatchSize,
	)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("audit worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("audit worker stopped")
}
