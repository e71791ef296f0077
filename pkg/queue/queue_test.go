package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJobAndReportsSuccess(t *testing.T) {
	q := queue.New(queue.Config{MaxConcurrency: 4})

	job := q.Submit("group-a", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, job.Wait(context.Background()))
	assert.Equal(t, queue.StatusSucceeded, job.Status)
	assert.Equal(t, "ok", job.Result)
	assert.NoError(t, job.Err)
}

func TestSubmitReportsFailureWithoutPropagatingToSubmitter(t *testing.T) {
	q := queue.New(queue.Config{MaxConcurrency: 4})

	wantErr := errors.New("extraction failed")
	job := q.Submit("group-a", func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})

	require.NoError(t, job.Wait(context.Background()))
	assert.Equal(t, queue.StatusFailed, job.Status)
	assert.ErrorIs(t, job.Err, wantErr)
}

func TestSameGroupProcessesInFIFOOrder(t *testing.T) {
	q := queue.New(queue.Config{MaxConcurrency: 4})

	var mu sync.Mutex
	var order []int

	var jobs []*queue.Job
	for i := 0; i < 5; i++ {
		i := i
		job := q.Submit("ordered-group", func(ctx context.Context) (interface{}, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil, nil
		})
		jobs = append(jobs, job)
	}

	for _, job := range jobs {
		require.NoError(t, job.Wait(context.Background()))
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDifferentGroupsRunConcurrently(t *testing.T) {
	q := queue.New(queue.Config{MaxConcurrency: 4})

	var inFlight int32
	var maxObserved int32
	release := make(chan struct{})

	track := func(ctx context.Context) (interface{}, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			observed := atomic.LoadInt32(&maxObserved)
			if cur <= observed || atomic.CompareAndSwapInt32(&maxObserved, observed, cur) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	}

	jobA := q.Submit("group-a", track)
	jobB := q.Submit("group-b", track)

	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, jobA.Wait(context.Background()))
	require.NoError(t, jobB.Wait(context.Background()))

	assert.Equal(t, int32(2), atomic.LoadInt32(&maxObserved))
}

func TestSubmitDoesNotBlockCaller(t *testing.T) {
	q := queue.New(queue.Config{MaxConcurrency: 1})
	block := make(chan struct{})

	q.Submit("group-a", func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	})

	start := time.Now()
	job := q.Submit("group-a", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 50*time.Millisecond)
	close(block)
	require.NoError(t, job.Wait(context.Background()))
}

func TestShutdownWaitsForInFlightWork(t *testing.T) {
	q := queue.New(queue.Config{MaxConcurrency: 2})

	q.Submit("group-a", func(ctx context.Context) (interface{}, error) {
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	})

	assert.NoError(t, q.Shutdown(time.Second))
}

func TestDepthReportsPendingJobs(t *testing.T) {
	q := queue.New(queue.Config{MaxConcurrency: 1})
	block := make(chan struct{})

	q.Submit("group-a", func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	})
	q.Submit("group-a", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})

	assert.Equal(t, 1, q.Depth("group-a"))
	close(block)
}
