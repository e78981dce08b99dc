package ports

import (
	"context"
	"time"

	"github.com/samirrijal/snapmap/internal/core/domain"
)

// EventPublisher publishes post feed events to a message broker.
type EventPublisher interface {
	PublishPostEvent(ctx context.Context, event *domain.PostEvent) error
}

// PostFeed delivers every post feed event for as long as the subscription is open.
type PostFeed interface {
	SubscribePostEvents(ctx context.Context, handler func(ctx context.Context, event *domain.PostEvent) error) (Subscription, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ExpiryScheduler arranges for a post to be removed once it expires.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, postID string, expiresAt time.Time) error
}
