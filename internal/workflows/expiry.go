package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DefaultTaskQueue is the queue post expiry workflows and activities run on.
const DefaultTaskQueue = "post-expiry"

// PostExpiryInput is the input for the post expiry workflow.
type PostExpiryInput struct {
	PostID    string
	ExpiresAt time.Time
}

// WorkflowID returns the deterministic workflow ID for a post, so a post has
// at most one pending expiry.
func WorkflowID(postID string) string {
	return "post-expiry-" + postID
}

// PostExpiryWorkflow waits on a durable timer until the post expires, then
// removes it, which also takes it off every live map.
func PostExpiryWorkflow(ctx workflow.Context, input PostExpiryInput) error {
	logger := workflow.GetLogger(ctx)

	if wait := input.ExpiresAt.Sub(workflow.Now(ctx)); wait > 0 {
		logger.Info("Waiting for post expiry", "postID", input.PostID, "wait", wait.String())
		if err := workflow.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	if err := workflow.ExecuteActivity(ctx, "RemovePost", input.PostID).Get(ctx, nil); err != nil {
		logger.Error("Post expiry failed", "postID", input.PostID, "error", err)
		return err
	}

	logger.Info("Post expired", "postID", input.PostID)
	return nil
}
