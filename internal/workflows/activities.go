package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/snapmap/internal/core/usecases"
)

// PostExpiryActivities holds the activity implementations for the post expiry workflow.
type PostExpiryActivities struct {
	Posts *usecases.PostService
}

// RemovePost deletes an expired post and announces the removal on the feed.
// Removing an already deleted post succeeds, so retries are safe.
func (a *PostExpiryActivities) RemovePost(ctx context.Context, postID string) error {
	if err := a.Posts.RemovePost(ctx, postID); err != nil {
		return fmt.Errorf("remove post %s: %w", postID, err)
	}
	slog.InfoContext(ctx, "expired post removed", "post_id", postID)
	return nil
}
