package workflows_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/snapmap/internal/core/domain"
	"github.com/samirrijal/snapmap/internal/core/usecases"
	"github.com/samirrijal/snapmap/internal/workflows"
)

func TestPostExpiryWorkflow_RemovesAfterTimer(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&workflows.PostExpiryActivities{})

	var removedAt time.Time
	env.OnActivity("RemovePost", mock.Anything, "p1").Return(func(ctx context.Context, id string) error {
		removedAt = env.Now()
		return nil
	})

	expiresAt := env.Now().Add(2 * time.Hour)
	env.ExecuteWorkflow(workflows.PostExpiryWorkflow, workflows.PostExpiryInput{PostID: "p1", ExpiresAt: expiresAt})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected workflow error: %v", err)
	}
	if removedAt.Before(expiresAt) {
		t.Errorf("post removed at %v, before expiry %v", removedAt, expiresAt)
	}
	env.AssertExpectations(t)
}

func TestPostExpiryWorkflow_AlreadyExpired(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&workflows.PostExpiryActivities{})
	env.OnActivity("RemovePost", mock.Anything, "p1").Return(nil).Once()

	env.ExecuteWorkflow(workflows.PostExpiryWorkflow, workflows.PostExpiryInput{
		PostID:    "p1",
		ExpiresAt: env.Now().Add(-time.Minute),
	})

	if !env.IsWorkflowCompleted() || env.GetWorkflowError() != nil {
		t.Fatalf("expected completion, got %v", env.GetWorkflowError())
	}
	env.AssertExpectations(t)
}

func TestPostExpiryWorkflow_ActivityFailure(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&workflows.PostExpiryActivities{})
	env.OnActivity("RemovePost", mock.Anything, "p1").Return(errors.New("db down"))

	env.ExecuteWorkflow(workflows.PostExpiryWorkflow, workflows.PostExpiryInput{PostID: "p1", ExpiresAt: env.Now()})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Error("expected workflow error after retries are exhausted")
	}
}

type deleteRepo struct {
	deleted []string
	err     error
}

func (r *deleteRepo) Upsert(context.Context, *domain.Post) error { return nil }
func (r *deleteRepo) UpdateLocation(context.Context, string, domain.Coordinate) error {
	return nil
}
func (r *deleteRepo) Delete(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return r.err
}
func (r *deleteRepo) GetByID(context.Context, string) (*domain.Post, error) {
	return nil, domain.ErrPostNotFound
}
func (r *deleteRepo) FindNearby(context.Context, domain.Coordinate, float64, int) ([]domain.Post, error) {
	return nil, nil
}

func TestRemovePostActivity(t *testing.T) {
	repo := &deleteRepo{err: domain.ErrPostNotFound}
	acts := &workflows.PostExpiryActivities{Posts: usecases.NewPostService(repo, nil, nil, nil)}

	if err := acts.RemovePost(context.Background(), "p1"); err != nil {
		t.Fatalf("removing a missing post should succeed, got %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "p1" {
		t.Errorf("expected delete of p1, got %v", repo.deleted)
	}

	repo.err = errors.New("db down")
	if err := acts.RemovePost(context.Background(), "p2"); err == nil {
		t.Error("expected error from failing repository")
	}
}

func TestWorkflowID(t *testing.T) {
	if got := workflows.WorkflowID("abc"); got != "post-expiry-abc" {
		t.Errorf("unexpected workflow id %q", got)
	}
}
