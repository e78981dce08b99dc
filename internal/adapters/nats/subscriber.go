package natsadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/ports"
)

// Feed implements ports.PostFeed with plain NATS subscriptions. Every
// subscriber sees every event, so each live proximity query gets its own.
type Feed struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewFeed creates a feed on an existing connection. A nil logger selects slog.Default().
func NewFeed(conn *nats.Conn, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{conn: conn, logger: logger}
}

// SubscribePostEvents delivers post events to handler until the returned
// subscription is closed. Undecodable messages are skipped.
func (f *Feed) SubscribePostEvents(ctx context.Context, handler func(ctx context.Context, event *domain.PostEvent) error) (ports.Subscription, error) {
	sub, err := f.conn.Subscribe(PostEventsSubject, func(msg *nats.Msg) {
		f.deliver(ctx, msg, handler)
	})
	if err != nil {
		return nil, err
	}
	return &subscription{sub: sub}, nil
}

func (f *Feed) deliver(ctx context.Context, msg *nats.Msg, handler func(ctx context.Context, event *domain.PostEvent) error) {
	var event domain.PostEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		f.logger.Warn("invalid post event", "subject", msg.Subject, "error", err)
		return
	}
	if err := handler(ctx, &event); err != nil {
		f.logger.Warn("post event handler failed", "post_id", event.PostID, "error", err)
	}
}

type subscription struct {
	sub *nats.Subscription
}

func (s *subscription) Unsubscribe() error {
	if !s.sub.IsValid() {
		return nil
	}
	return s.sub.Unsubscribe()
}
