// Package geoquery implements live radius queries over posts: a PostGIS
// snapshot seeds membership and the post feed keeps it current, emitting
// entered/exited transitions the way a GeoFire query does.
package geoquery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/ports"
	"github.com/samirrijal/snapmap/internal/pkg/geospatial"
)

// DefaultSeedLimit caps the snapshot used to seed a query.
const DefaultSeedLimit = 500

// Service implements ports.ProximityService.
type Service struct {
	posts     ports.PostRepository
	feed      ports.PostFeed
	seedLimit int
	logger    *slog.Logger
}

// NewService creates a new Service.
func NewService(posts ports.PostRepository, feed ports.PostFeed, seedLimit int, logger *slog.Logger) *Service {
	if seedLimit <= 0 {
		seedLimit = DefaultSeedLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{posts: posts, feed: feed, seedLimit: seedLimit, logger: logger}
}

// Subscribe opens a live query. The feed is subscribed before the snapshot
// is read so no update between the two is lost. Initial entered events are
// delivered from a separate goroutine; Subscribe does not wait for them.
func (s *Service) Subscribe(ctx context.Context, query domain.ProximityQuery, h ports.ProximityHandlers) (ports.Subscription, error) {
	if err := query.Center.Validate(); err != nil {
		return nil, err
	}
	if query.RadiusKm <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %.3f km", query.RadiusKm)
	}

	lq := &liveQuery{
		query:    query,
		handlers: h,
		members:  make(map[string]domain.Coordinate),
		logger:   s.logger,
	}

	feedSub, err := s.feed.SubscribePostEvents(ctx, func(_ context.Context, event *domain.PostEvent) error {
		lq.apply(event)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe post feed: %w", err)
	}
	lq.feedSub = feedSub

	// The caller's ctx may be request-scoped; the seed outlives it.
	seedCtx := context.WithoutCancel(ctx)
	go func() {
		posts, err := s.posts.FindNearby(seedCtx, query.Center, query.RadiusMeters(), s.seedLimit)
		if err != nil {
			s.logger.Warn("proximity seed failed", "center", query.Center.String(), "error", err)
			return
		}
		lq.seed(posts)
	}()

	return lq, nil
}

// liveQuery tracks the membership of one query.
type liveQuery struct {
	query    domain.ProximityQuery
	handlers ports.ProximityHandlers
	feedSub  ports.Subscription
	logger   *slog.Logger

	closed atomic.Bool

	// mu serializes membership changes and handler calls so a single id's
	// events reach the handlers in the order they were decided.
	mu      sync.Mutex
	members map[string]domain.Coordinate
	// touched holds ids the feed decided before the snapshot landed; the
	// feed's view of those ids is newer than the snapshot's.
	touched map[string]struct{}
	seeded  bool
}

func (q *liveQuery) seed(posts []domain.Post) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seeded = true
	for _, p := range posts {
		if q.closed.Load() {
			return
		}
		if _, ok := q.touched[p.ID]; ok {
			continue
		}
		// Membership is decided by the same distance the feed uses.
		if !geospatial.Within(q.query, p.Location) {
			continue
		}
		q.members[p.ID] = p.Location
		q.handlers.Entered(p.ID, p.Location)
	}
	q.touched = nil
}

func (q *liveQuery) apply(event *domain.PostEvent) {
	if q.closed.Load() {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	_, member := q.members[event.PostID]

	switch event.Type {
	case domain.PostRemoved:
		q.touch(event.PostID)
		if member {
			delete(q.members, event.PostID)
			q.handlers.Exited(event.PostID)
		}

	case domain.PostLocated:
		if !event.Location.Valid() {
			q.logger.Debug("ignoring post event without location", "post_id", event.PostID)
			return
		}
		q.touch(event.PostID)
		inside := geospatial.Within(q.query, event.Location)
		switch {
		case inside && !member:
			q.members[event.PostID] = event.Location
			q.handlers.Entered(event.PostID, event.Location)
		case !inside && member:
			delete(q.members, event.PostID)
			q.handlers.Exited(event.PostID)
		case inside && member:
			q.members[event.PostID] = event.Location
		}
	}
}

func (q *liveQuery) touch(id string) {
	if q.seeded {
		return
	}
	if q.touched == nil {
		q.touched = make(map[string]struct{})
	}
	q.touched[id] = struct{}{}
}

// Unsubscribe stops delivery. Safe to call more than once.
func (q *liveQuery) Unsubscribe() error {
	if q.closed.Swap(true) {
		return nil
	}
	return q.feedSub.Unsubscribe()
}
