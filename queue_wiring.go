package graphiti

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/checkpoint"
	"github.com/uniQorn-org/graphiti/pkg/queue"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// EpisodeJob tracks an episode submitted through SubmitEpisode.
type EpisodeJob struct {
	ID      string
	GroupID string
	Status  queue.Status

	job *queue.Job
}

// Wait blocks until the episode has finished processing.
func (j *EpisodeJob) Wait(ctx context.Context) (*types.AddEpisodeResults, error) {
	if err := j.job.Wait(ctx); err != nil {
		return nil, err
	}
	j.Status = j.job.Status
	if j.job.Err != nil {
		return nil, j.job.Err
	}
	result, _ := j.job.Result.(*types.AddEpisodeResults)
	return result, nil
}

func (c *Client) ensureQueue() *queue.Queue {
	c.queueOnce.Do(func() {
		c.queue = queue.New(queue.Config{Logger: c.logger})
	})
	return c.queue
}

// ensureCheckpoints lazily opens the checkpoint store configured via
// Config.CheckpointDir. Returns nil if checkpointing is disabled, in which
// case SubmitEpisode runs without a durability trail.
func (c *Client) ensureCheckpoints() *checkpoint.CheckpointManager {
	if c.config.CheckpointDir == "" {
		return nil
	}
	c.checkpointsOnce.Do(func() {
		mgr, err := checkpoint.NewCheckpointManager(c.config.CheckpointDir)
		if err != nil {
			c.logger.Error("failed to open checkpoint store, submissions will not be checkpointed",
				"checkpoint_dir", c.config.CheckpointDir, "error", err)
			return
		}
		c.checkpoints = mgr
	})
	return c.checkpoints
}

// SubmitEpisode enqueues episode for asynchronous ingestion under its group
// ID and returns immediately. Episodes submitted for the same group ID are
// processed one at a time, in submission order; episodes for different
// groups run concurrently, bounded by the queue's semaphore. Processing
// failures are recorded on the returned job and logged, never returned here.
//
// When Config.CheckpointDir is set, a checkpoint is written before the job
// runs and cleared on success; a failed job has its error recorded on the
// checkpoint instead, so PendingEpisodeCheckpoints can surface episodes that
// were still in flight across a restart.
func (c *Client) SubmitEpisode(episode types.Episode, options *AddEpisodeOptions) *EpisodeJob {
	groupID := episode.GroupID
	if groupID == "" {
		groupID = c.config.GroupID
	}

	checkpoints := c.ensureCheckpoints()
	if checkpoints != nil {
		cp := checkpoint.NewCheckpoint(episode, convertCheckpointOptions(options), 0)
		if err := checkpoints.Save(context.Background(), cp); err != nil {
			c.logger.Warn("failed to write episode checkpoint", "episode_id", episode.ID, "error", err)
		}
	}

	q := c.ensureQueue()
	job := q.Submit(groupID, func(ctx context.Context) (interface{}, error) {
		result, err := c.AddEpisode(ctx, episode, options)
		if checkpoints == nil {
			return result, err
		}
		if err != nil {
			if recErr := checkpoints.RecordError(ctx, episode.ID, err, string(debug.Stack())); recErr != nil {
				c.logger.Warn("failed to record episode checkpoint error", "episode_id", episode.ID, "error", recErr)
			}
			return result, err
		}
		if delErr := checkpoints.Delete(ctx, episode.ID); delErr != nil {
			c.logger.Warn("failed to clear completed episode checkpoint", "episode_id", episode.ID, "error", delErr)
		}
		return result, nil
	})

	return &EpisodeJob{ID: job.ID, GroupID: groupID, Status: job.Status, job: job}
}

// PendingEpisodeCheckpoints lists episodes whose SubmitEpisode checkpoint
// was never cleared, meaning the process restarted (or crashed) before the
// job finished. Returns nil if checkpointing is disabled.
func (c *Client) PendingEpisodeCheckpoints(ctx context.Context) ([]*checkpoint.EpisodeCheckpoint, error) {
	checkpoints := c.ensureCheckpoints()
	if checkpoints == nil {
		return nil, nil
	}
	return checkpoints.List(ctx)
}

// convertCheckpointOptions copies the public AddEpisodeOptions into the
// checkpoint package's own mirrored type, so pkg/checkpoint doesn't import
// the root package and create an import cycle.
func convertCheckpointOptions(options *AddEpisodeOptions) *checkpoint.AddEpisodeOptions {
	if options == nil {
		return nil
	}
	return &checkpoint.AddEpisodeOptions{
		EntityTypes:          options.EntityTypes,
		ExcludedEntityTypes:  options.ExcludedEntityTypes,
		PreviousEpisodeUUIDs: options.PreviousEpisodeUUIDs,
		EdgeTypes:            options.EdgeTypes,
		EdgeTypeMap:          options.EdgeTypeMap,
		OverwriteExisting:    options.OverwriteExisting,
		GenerateEmbeddings:   options.GenerateEmbeddings,
		MaxCharacters:        options.MaxCharacters,
	}
}

// QueueDepth returns the number of episodes still waiting (not yet running)
// for groupID.
func (c *Client) QueueDepth(groupID string) int {
	if c.queue == nil {
		return 0
	}
	return c.queue.Depth(groupID)
}

// ShutdownQueue waits up to graceDeadline for in-flight and pending queued
// episodes to finish processing.
func (c *Client) ShutdownQueue(graceDeadline time.Duration) error {
	if c.queue == nil {
		return nil
	}
	return c.queue.Shutdown(graceDeadline)
}
