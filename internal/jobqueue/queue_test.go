package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsEnqueuedOpsInOrder(t *testing.T) {
	q := New(8)
	q.Start()
	defer q.Close()

	var mu sync.Mutex
	var order []int32
	for i := int32(1); i <= 3; i++ {
		i := i
		require.NoError(t, q.Enqueue(Func(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i) // guarded: the test goroutine reads order concurrently
			mu.Unlock()
			return nil
		})))
	}

	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return len(order) == 3 }, time.Second, time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int32{1, 2, 3}, order)
}

func TestCloseStopsAcceptingWork(t *testing.T) {
	q := New(1)
	q.Start()
	q.Close()
	err := q.Enqueue(Func(func(ctx context.Context) error { return nil }))
	assert.Error(t, err)
}

func TestEnqueueOnUninitializedQueueErrors(t *testing.T) {
	var q *Queue
	err := q.Enqueue(Func(func(ctx context.Context) error { return nil }))
	assert.Error(t, err)
}
