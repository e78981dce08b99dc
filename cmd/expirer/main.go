package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/snapmap/internal/adapters/nats"
	"github.com/samirrijal/snapmap/internal/adapters/postgres"
	"github.com/samirrijal/snapmap/internal/adapters/valkey"
	"github.com/samirrijal/snapmap/internal/core/ports"
	"github.com/samirrijal/snapmap/internal/core/usecases"
	"github.com/samirrijal/snapmap/internal/pkg/config"
	"github.com/samirrijal/snapmap/internal/pkg/logging"
	"github.com/samirrijal/snapmap/internal/workflows"
)

func main() {
	cfg, err := config.Load("snapmap-expirer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	if cfg.Temporal.HostPort == "" {
		log.Fatal("temporal.host_port is required for the expirer")
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Removals must reach live maps, so NATS is required here.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.PostExpiryWorkflow)
	w.RegisterActivity(&workflows.PostExpiryActivities{
		Posts: usecases.NewPostService(postgres.NewPostRepo(db), pub, cache, nil),
	})

	slog.Info("expirer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
