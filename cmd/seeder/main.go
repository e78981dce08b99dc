package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"go.temporal.io/sdk/client"

	natsadapter "github.com/samirrijal/snapmap/internal/adapters/nats"
	"github.com/samirrijal/snapmap/internal/adapters/postgres"
	"github.com/samirrijal/snapmap/internal/core/ports"
	"github.com/samirrijal/snapmap/internal/core/usecases"
	"github.com/samirrijal/snapmap/internal/pkg/config"
	"github.com/samirrijal/snapmap/internal/pkg/logging"
	"github.com/samirrijal/snapmap/internal/workflows"
)

const maxConcurrent = 8

func main() {
	cfg, err := config.Load("snapmap-seeder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Without NATS the posts are stored but live maps only see them on the next query.
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, seeding without live events", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	var expiry ports.ExpiryScheduler
	if cfg.Temporal.HostPort != "" {
		tc, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort, Namespace: cfg.Temporal.Namespace})
		if err != nil {
			slog.Warn("temporal unavailable, posts will not expire", "error", err)
		} else {
			defer tc.Close()
			expiry = workflows.NewScheduler(tc, cfg.Temporal.TaskQueue)
		}
	}

	posts := usecases.NewPostService(postgres.NewPostRepo(db), publisher, nil, expiry)

	slog.Info("seeding posts", "count", len(manifest.Posts), "manifest", manifestPath)

	var (
		wg      sync.WaitGroup
		created atomic.Int64
	)
	sem := make(chan struct{}, maxConcurrent)

	for i, entry := range manifest.Posts {
		wg.Add(1)
		go func(i int, e PostEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			post, err := posts.CreatePost(ctx, e.NewPost())
			if err != nil {
				slog.Error("seed post failed", "index", i, "author_id", e.AuthorID, "error", err)
				return
			}
			created.Add(1)
			slog.Debug("seeded post", "post_id", post.ID)
		}(i, entry)
	}

	wg.Wait()
	slog.Info("seeding complete", "created", created.Load(), "failed", int64(len(manifest.Posts))-created.Load())
}
