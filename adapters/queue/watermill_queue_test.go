package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/scorer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWorker(t *testing.T, pubsub *gochannel.GoChannel, handle JobHandler) {
	t.Helper()

	worker, err := NewWorker(pubsub, handle, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = worker.Close()
		<-done
	})

	select {
	case <-worker.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not start")
	}
}

func TestEnqueueDeliversJob(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	var mu sync.Mutex
	var received []core.ScoringJob
	startWorker(t, pubsub, func(ctx context.Context, job core.ScoringJob) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, job)
		return nil
	})

	q := NewWatermillQueue(pubsub)
	job := core.ScoringJob{CommunityID: 7, Address: "0xabc", SubmissionID: "sub-1"}
	require.NoError(t, q.Enqueue(context.Background(), job))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, job, received[0])
}

func TestWorkerAcksFailures(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	var mu sync.Mutex
	calls := 0
	startWorker(t, pubsub, func(ctx context.Context, job core.ScoringJob) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return core.ErrScoringFailure
	})

	// malformed payloads are dropped without reaching the handler
	require.NoError(t, pubsub.Publish(TopicScorePassport, message.NewMessage(watermill.NewUUID(), []byte("{"))))

	q := NewWatermillQueue(pubsub)
	require.NoError(t, q.Enqueue(context.Background(), core.ScoringJob{CommunityID: 1, Address: "0xabc", SubmissionID: "a"}))
	require.NoError(t, q.Enqueue(context.Background(), core.ScoringJob{CommunityID: 1, Address: "0xabc", SubmissionID: "b"}))

	// a nacked message would be redelivered forever and block the second job
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}
