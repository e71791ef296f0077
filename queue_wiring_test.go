package graphiti_test

import (
	"context"
	"testing"
	"time"

	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

func newCheckpointedTestClient(t *testing.T, checkpointDir string) *graphiti.Client {
	t.Helper()
	client, err := graphiti.NewClient(&MockGraphDriver{}, &MockLLMClient{}, &MockEmbedderClient{}, &graphiti.Config{
		GroupID:       "default",
		TimeZone:      time.UTC,
		CheckpointDir: checkpointDir,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// TestSubmitEpisodeCheckpointsFailedJob verifies that a checkpoint survives a
// failed SubmitEpisode job: it stays listed in PendingEpisodeCheckpoints with
// the error recorded, instead of vanishing the way an in-memory-only queue
// would lose it.
func TestSubmitEpisodeCheckpointsFailedJob(t *testing.T) {
	client := newCheckpointedTestClient(t, t.TempDir())
	ctx := context.Background()

	episode := types.Episode{
		ID:      "episode-bad-group",
		Name:    "broken",
		Content: "some content",
		GroupID: "not a valid group id!",
	}

	job := client.SubmitEpisode(episode, nil)
	if _, err := job.Wait(ctx); err == nil {
		t.Fatal("expected SubmitEpisode job to fail on an invalid group ID")
	}

	pending, err := client.PendingEpisodeCheckpoints(ctx)
	if err != nil {
		t.Fatalf("PendingEpisodeCheckpoints() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending checkpoint after a failed job, got %d", len(pending))
	}
	if pending[0].EpisodeID != episode.ID {
		t.Errorf("checkpoint EpisodeID = %q, want %q", pending[0].EpisodeID, episode.ID)
	}
	if pending[0].AttemptCount != 1 {
		t.Errorf("checkpoint AttemptCount = %d, want 1", pending[0].AttemptCount)
	}
	if pending[0].LastError == "" {
		t.Error("expected checkpoint to record the failure")
	}
}

// TestPendingEpisodeCheckpointsDisabledByDefault verifies that leaving
// Config.CheckpointDir empty disables checkpointing entirely rather than
// defaulting to some implicit directory.
func TestPendingEpisodeCheckpointsDisabledByDefault(t *testing.T) {
	client := newCheckpointedTestClient(t, "")
	ctx := context.Background()

	episode := types.Episode{ID: "episode-x", GroupID: "not valid!"}
	job := client.SubmitEpisode(episode, nil)
	if _, err := job.Wait(ctx); err == nil {
		t.Fatal("expected job to fail")
	}

	pending, err := client.PendingEpisodeCheckpoints(ctx)
	if err != nil {
		t.Fatalf("PendingEpisodeCheckpoints() error = %v", err)
	}
	if pending != nil {
		t.Errorf("expected no checkpoints when CheckpointDir is unset, got %v", pending)
	}
}
