package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/snapmap/internal/adapters/geoquery"
	"github.com/samirrijal/snapmap/internal/adapters/http"
	natsadapter "github.com/samirrijal/snapmap/internal/adapters/nats"
	"github.com/samirrijal/snapmap/internal/adapters/postgres"
	"github.com/samirrijal/snapmap/internal/adapters/valkey"
	"github.com/samirrijal/snapmap/internal/core/ports"
	"github.com/samirrijal/snapmap/internal/core/usecases"
	"github.com/samirrijal/snapmap/internal/pkg/config"
	"github.com/samirrijal/snapmap/internal/pkg/logging"
	"github.com/samirrijal/snapmap/internal/pkg/telemetry"
	"github.com/samirrijal/snapmap/internal/workflows"
)

func main() {
	cfg, err := config.Load("snapmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var (
		cache     ports.CacheService
		cacheConn *valkey.Cache
	)
	if vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache, cacheConn = vc, vc
	}

	// NATS: JetStream publisher plus a feed on the same connection. Without
	// it posts still work but live maps are disabled.
	var (
		publisher ports.EventPublisher
		proximity ports.ProximityService
		natsPub   *natsadapter.Publisher
	)
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, live map disabled", "error", err)
	} else {
		defer pub.Close()
		natsPub = pub
		publisher = pub
		proximity = geoquery.NewService(postgres.NewPostRepo(db), natsadapter.NewFeed(pub.Conn(), logger), cfg.Map.SeedLimit, logger)
	}

	// Temporal (optional): schedules post expiry
	var expiry ports.ExpiryScheduler
	if cfg.Temporal.HostPort != "" {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			slog.Warn("temporal unavailable, posts will not expire", "error", err)
		} else {
			defer tc.Close()
			expiry = workflows.NewScheduler(tc, cfg.Temporal.TaskQueue)
		}
	}

	if expiry == nil {
		slog.Warn("post expiry disabled, expired posts stay on live maps until removed")
	}

	postSvc := usecases.NewPostService(postgres.NewPostRepo(db), publisher, cache, expiry)

	deps := &http.Dependencies{
		Posts:     postSvc,
		Proximity: proximity,
		Map: usecases.TrackerOptions{
			RadiusKm:         cfg.Map.RadiusKm,
			SpanMeters:       cfg.Map.SpanMeters,
			MinRequeryMeters: cfg.Map.MinRequeryMeters,
		},
		EventBuffer: cfg.Map.EventBuffer,
		DB:          db,
		Cache:       cacheConn,
	}
	if natsPub != nil {
		deps.NATS = natsPub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "snapmap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
