// Package queue provides a per-namespace FIFO ingestion queue for episode
// submissions. Episodes submitted under the same group ID are processed one
// at a time and in submission order, while episodes across different groups
// run concurrently, bounded by a global semaphore.
package queue

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/utils"
)

// Status is the lifecycle state of a submitted job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ProcessFunc performs the actual work for a queued job.
type ProcessFunc func(ctx context.Context) (interface{}, error)

// Job tracks one submission through the queue.
type Job struct {
	ID        string
	GroupID   string
	Status    Status
	Result    interface{}
	Err       error
	QueuedAt  time.Time
	StartedAt time.Time
	EndedAt   time.Time

	process ProcessFunc
	done    chan struct{}
}

// Wait blocks until the job finishes processing, or ctx is cancelled.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// namespaceQueue is the FIFO lane for a single group ID. It owns one
// consumer goroutine that drains jobs strictly in submission order.
type namespaceQueue struct {
	mu      sync.Mutex
	pending *list.List
	running bool
}

// Queue dispatches jobs to per-group FIFO lanes, bounding total in-flight
// work across all lanes with a shared semaphore.
type Queue struct {
	mu         sync.Mutex
	lanes      map[string]*namespaceQueue
	semaphore  chan struct{}
	logger     *slog.Logger
	jobCounter int

	shutdown   chan struct{}
	inFlightWG sync.WaitGroup
}

// Config configures a Queue.
type Config struct {
	// MaxConcurrency bounds the total number of jobs running at once across
	// all groups. Defaults to utils.GetSemaphoreLimit() when <= 0.
	MaxConcurrency int
	Logger         *slog.Logger
}

// New creates a Queue ready to accept submissions.
func New(config Config) *Queue {
	maxConcurrency := config.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = utils.GetSemaphoreLimit()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Queue{
		lanes:     make(map[string]*namespaceQueue),
		semaphore: make(chan struct{}, maxConcurrency),
		logger:    logger,
		shutdown:  make(chan struct{}),
	}
}

// Submit enqueues fn under groupID and returns immediately with a handle to
// track it; fn itself is never run on the calling goroutine.
func (q *Queue) Submit(groupID string, fn ProcessFunc) *Job {
	q.mu.Lock()
	q.jobCounter++
	id := fmt.Sprintf("job-%d", q.jobCounter)
	q.mu.Unlock()

	job := &Job{
		ID:       id,
		GroupID:  groupID,
		Status:   StatusQueued,
		QueuedAt: time.Now(),
		process:  fn,
		done:     make(chan struct{}),
	}

	lane := q.laneFor(groupID)

	lane.mu.Lock()
	lane.pending.PushBack(job)
	needsConsumer := !lane.running
	if needsConsumer {
		lane.running = true
	}
	lane.mu.Unlock()

	q.logger.Debug("queued episode job", "job_id", job.ID, "group_id", groupID)

	if needsConsumer {
		q.inFlightWG.Add(1)
		go q.drainLane(groupID, lane)
	}

	return job
}

func (q *Queue) laneFor(groupID string) *namespaceQueue {
	q.mu.Lock()
	defer q.mu.Unlock()

	lane, ok := q.lanes[groupID]
	if !ok {
		lane = &namespaceQueue{pending: list.New()}
		q.lanes[groupID] = lane
	}
	return lane
}

// drainLane processes every job currently pending on lane, one at a time, in
// FIFO order, until the lane runs dry.
func (q *Queue) drainLane(groupID string, lane *namespaceQueue) {
	defer q.inFlightWG.Done()

	for {
		lane.mu.Lock()
		front := lane.pending.Front()
		if front == nil {
			lane.running = false
			lane.mu.Unlock()
			return
		}
		lane.pending.Remove(front)
		lane.mu.Unlock()

		job := front.Value.(*Job)
		q.runJob(job)
	}
}

func (q *Queue) runJob(job *Job) {
	select {
	case q.semaphore <- struct{}{}:
	case <-q.shutdown:
		job.Status = StatusFailed
		job.Err = fmt.Errorf("queue is shutting down")
		close(job.done)
		return
	}
	defer func() { <-q.semaphore }()

	job.Status = StatusRunning
	job.StartedAt = time.Now()

	result, err := func() (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic processing job %s: %v", job.ID, r)
			}
		}()
		return job.process(context.Background())
	}()

	job.EndedAt = time.Now()
	job.Result = result
	job.Err = err

	if err != nil {
		job.Status = StatusFailed
		q.logger.Error("episode job failed", "job_id", job.ID, "group_id", job.GroupID, "error", err)
	} else {
		job.Status = StatusSucceeded
		q.logger.Debug("episode job succeeded", "job_id", job.ID, "group_id", job.GroupID,
			"duration", job.EndedAt.Sub(job.StartedAt))
	}

	close(job.done)
}

// Shutdown stops accepting new work on the semaphore and waits up to
// graceDeadline for in-flight and already-queued jobs to finish.
func (q *Queue) Shutdown(graceDeadline time.Duration) error {
	close(q.shutdown)

	done := make(chan struct{})
	go func() {
		q.inFlightWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(graceDeadline):
		return fmt.Errorf("queue shutdown timed out after %s with work still in flight", graceDeadline)
	}
}

// Depth returns the number of jobs currently pending (not yet running) for
// groupID, for observability endpoints.
func (q *Queue) Depth(groupID string) int {
	q.mu.Lock()
	lane, ok := q.lanes[groupID]
	q.mu.Unlock()
	if !ok {
		return 0
	}

	lane.mu.Lock()
	defer lane.mu.Unlock()
	return lane.pending.Len()
}
