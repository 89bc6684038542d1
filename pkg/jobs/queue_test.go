package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	processed := make(chan string, 1)
	queue := NewQueue("test", func(_ context.Context, job Job) error {
		processed <- job.ID
		return nil
	}, QueueConfig{Workers: 1})

	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "test"}))

	select {
	case id := <-processed:
		require.Equal(t, "job-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job never processed")
	}
}

func TestQueueReportsExhaustedJobs(t *testing.T) {
	exhausted := make(chan error, 1)
	queue := NewQueue("test", func(context.Context, Job) error {
		return errors.New("permanent failure")
	}, QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		OnExhausted: func(_ Job, err error) {
			exhausted <- err
		},
	})

	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "test"}))

	select {
	case err := <-exhausted:
		require.ErrorContains(t, err, "permanent failure")
	case <-time.After(2 * time.Second):
		t.Fatal("exhaustion callback never fired")
	}
}

func TestQueueRecoversFromPanickingHandler(t *testing.T) {
	exhausted := make(chan error, 1)
	queue := NewQueue("test", func(context.Context, Job) error {
		panic("boom")
	}, QueueConfig{
		Workers:    1,
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
		OnExhausted: func(_ Job, err error) {
			exhausted <- err
		},
	})

	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "test"}))

	// The panic must neither crash the worker nor lose the job.
	select {
	case err := <-exhausted:
		require.ErrorContains(t, err, "panicked")
	case <-time.After(2 * time.Second):
		t.Fatal("panicking job was dropped without a terminal failure")
	}

	done := make(chan struct{})
	go func() {
		queue.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not stop cleanly after panic")
	}
}
