package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/ports"
	"github.com/samirrijal/snapmap/internal/pkg/geospatial"
	"github.com/samirrijal/snapmap/internal/pkg/metrics"
)

var (
	// ErrInvalidRadius is returned for nearby searches outside (0, MaxRadiusKm].
	ErrInvalidRadius = errors.New("invalid radius")
	// ErrInvalidPost is returned when a new post is missing required fields.
	ErrInvalidPost = errors.New("invalid post")
)

const (
	// MaxRadiusKm bounds nearby searches.
	MaxRadiusKm = 50.0

	defaultNearbyLimit = 100
	maxNearbyLimit     = 200
)

// NewPost is the input for CreatePost.
type NewPost struct {
	AuthorID string            `json:"author_id"`
	Caption  string            `json:"caption"`
	MediaURL string            `json:"media_url"`
	Location domain.Coordinate `json:"location"`
	TTL      time.Duration     `json:"-"`
}

// PostService handles post-related business logic and feeds the live map.
type PostService struct {
	posts     ports.PostRepository
	publisher ports.EventPublisher
	cache     ports.CacheService
	expiry    ports.ExpiryScheduler
	now       func() time.Time
}

// NewPostService creates a new PostService. publisher, cache and expiry may be nil.
func NewPostService(posts ports.PostRepository, publisher ports.EventPublisher, cache ports.CacheService, expiry ports.ExpiryScheduler) *PostService {
	return &PostService{posts: posts, publisher: publisher, cache: cache, expiry: expiry, now: time.Now}
}

// CreatePost stores a post and announces its location on the feed.
func (s *PostService) CreatePost(ctx context.Context, in NewPost) (*domain.Post, error) {
	ctx, span := tracer.Start(ctx, "PostService.CreatePost")
	defer span.End()

	if err := in.Location.Validate(); err != nil {
		return nil, err
	}
	if in.AuthorID == "" {
		return nil, fmt.Errorf("%w: author_id is required", ErrInvalidPost)
	}

	now := s.now().UTC()
	post := &domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  in.AuthorID,
		Caption:   in.Caption,
		MediaURL:  in.MediaURL,
		Location:  in.Location,
		CreatedAt: now,
	}
	if in.TTL > 0 {
		exp := now.Add(in.TTL)
		post.ExpiresAt = &exp
	}

	if err := s.posts.Upsert(ctx, post); err != nil {
		return nil, fmt.Errorf("upsert post: %w", err)
	}

	s.publish(ctx, domain.PostLocated, post.ID, post.Location)

	// Live maps only drop a post on a removed event, which the expiry
	// workflow publishes. Without a scheduler the post stays displayed.
	if post.ExpiresAt != nil {
		if s.expiry == nil {
			slog.WarnContext(ctx, "post expiry not scheduled, live maps keep it until removed", "post_id", post.ID)
		} else if err := s.expiry.ScheduleExpiry(ctx, post.ID, *post.ExpiresAt); err != nil {
			slog.WarnContext(ctx, "schedule post expiry failed", "post_id", post.ID, "error", err)
		}
	}

	return post, nil
}

// MovePost changes a post's location.
func (s *PostService) MovePost(ctx context.Context, id string, loc domain.Coordinate) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	if err := s.posts.UpdateLocation(ctx, id, loc); err != nil {
		return fmt.Errorf("update post location: %w", err)
	}
	s.invalidate(ctx, id)
	s.publish(ctx, domain.PostLocated, id, loc)
	return nil
}

// RemovePost deletes a post. Removing an unknown id still announces the
// removal, so a retried expiry converges.
func (s *PostService) RemovePost(ctx context.Context, id string) error {
	if err := s.posts.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrPostNotFound) {
		return fmt.Errorf("delete post: %w", err)
	}
	s.invalidate(ctx, id)
	s.publish(ctx, domain.PostRemoved, id, domain.Coordinate{})
	return nil
}

// FindNearby returns posts within radiusKm of center.
func (s *PostService) FindNearby(ctx context.Context, center domain.Coordinate, radiusKm float64, limit int) ([]domain.Post, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if radiusKm <= 0 || radiusKm > MaxRadiusKm {
		return nil, fmt.Errorf("%w: %.2f km (must be in (0, %.0f])", ErrInvalidRadius, radiusKm, MaxRadiusKm)
	}
	if limit <= 0 || limit > maxNearbyLimit {
		limit = defaultNearbyLimit
	}

	cacheKey := fmt.Sprintf("posts:nearby:%s:%.2f:%d",
		geospatial.CellToken(center, geospatial.CacheCellLevel), radiusKm, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var posts []domain.Post
			if err := json.Unmarshal(data, &posts); err == nil {
				metrics.CacheHits.WithLabelValues("posts_nearby").Inc()
				return posts, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("posts_nearby").Inc()
	}

	posts, err := s.posts.FindNearby(ctx, center, radiusKm*1000, limit)
	if err != nil {
		return nil, err
	}

	// Short TTL: the live map is the authoritative view.
	if s.cache != nil {
		if data, err := json.Marshal(posts); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 30)
		}
	}

	return posts, nil
}

// GetByID returns a single post.
func (s *PostService) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	cacheKey := "posts:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var post domain.Post
			if err := json.Unmarshal(data, &post); err == nil {
				metrics.CacheHits.WithLabelValues("post_by_id").Inc()
				return &post, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("post_by_id").Inc()
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(post); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}

	return post, nil
}

func (s *PostService) publish(ctx context.Context, typ domain.PostEventType, id string, loc domain.Coordinate) {
	if s.publisher == nil {
		return
	}
	event := &domain.PostEvent{Type: typ, PostID: id, Location: loc, Time: s.now().UTC()}
	if err := s.publisher.PublishPostEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish post event failed", "post_id", id, "type", string(typ), "error", err)
		return
	}
	metrics.PostEventsPublished.WithLabelValues(string(typ)).Inc()
}

func (s *PostService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "posts:id:"+id)
	}
}
