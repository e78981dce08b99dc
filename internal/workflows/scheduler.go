package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
)

// Scheduler implements ports.ExpiryScheduler by starting a PostExpiryWorkflow.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

// NewScheduler creates a new Scheduler. An empty taskQueue selects DefaultTaskQueue.
func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Scheduler{client: c, taskQueue: taskQueue}
}

// ScheduleExpiry starts the expiry workflow for postID.
func (s *Scheduler) ScheduleExpiry(ctx context.Context, postID string, expiresAt time.Time) error {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(postID),
		TaskQueue: s.taskQueue,
	}
	input := PostExpiryInput{PostID: postID, ExpiresAt: expiresAt}
	if _, err := s.client.ExecuteWorkflow(ctx, opts, PostExpiryWorkflow, input); err != nil {
		return fmt.Errorf("start expiry workflow for %s: %w", postID, err)
	}
	return nil
}
