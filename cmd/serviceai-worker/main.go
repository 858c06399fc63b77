package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/PabloGalante/serviceai-agent/internal/adapters/queue"
	"github.com/PabloGalante/serviceai-agent/internal/config"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

// serviceai-worker drains the handoff queue. Each task is one user waiting
// for a human agent; here it is logged for the support desk to pick up.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.Logger().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := queue.NewWorker(cfg.RedisURL, cfg.WorkerConcurrency, cfg.WorkerQueues,
		func(ctx context.Context, req domain.HandoffRequest) error {
			observability.LoggerFromContext(ctx).Info("human support requested",
				"name", req.Name,
				"requested_at", req.RequestedAt,
			)
			return nil
		})
	if err != nil {
		log.Error("error initializing worker", "error", err)
		os.Exit(1)
	}

	log.Info("ServiceAI worker started", "concurrency", cfg.WorkerConcurrency, "queues", cfg.WorkerQueues)
	if err := worker.Run(ctx); err != nil {
		log.Error("worker failed", "error", err)
		os.Exit(1)
	}
}
