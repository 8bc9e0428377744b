package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailmesh/pkg/types"
)

func msgN(i int) *types.Message {
	return &types.Message{ID: fmt.Sprint(i), From: "a@x", To: []string{"b@y"}}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(4, nil)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Enqueue(ctx, msgN(i)))
	}
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, 4, q.Cap())

	for i := 0; i < 4; i++ {
		m, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), m.ID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_CapacityOneBlocksUntilDequeue(t *testing.T) {
	q := NewQueue(1, nil)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, msgN(1)))

	var dequeued atomic.Bool
	enqueued := make(chan struct{})
	go func() {
		defer close(enqueued)
		assert.NoError(t, q.Enqueue(ctx, msgN(2)))
		// 第二次入队只能发生在出队之后
		assert.True(t, dequeued.Load())
	}()

	select {
	case <-enqueued:
		t.Fatal("enqueue on a full queue must block")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 1, q.Len())

	dequeued.Store(true)
	m, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", m.ID)

	select {
	case <-enqueued:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue did not proceed after dequeue")
	}
	m, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", m.ID)

	t.Log("✅ 容量为 1 时第二次入队等待出队")
}

func TestQueue_NeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	var maxSeen atomic.Int64
	q := NewQueue(capacity, func(n int) {
		for {
			cur := maxSeen.Load()
			if int64(n) <= cur || maxSeen.CompareAndSwap(cur, int64(n)) {
				return
			}
		}
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, q.Enqueue(ctx, msgN(p*100+i)))
			}
		}(p)
	}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			_, err := q.Dequeue(ctx)
			assert.NoError(t, err)
		}
		close(done)
	}()
	wg.Wait()
	<-done
	assert.LessOrEqual(t, maxSeen.Load(), int64(capacity))
}

func TestQueue_DequeueBlocksOnEmpty(t *testing.T) {
	q := NewQueue(2, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_CloseWakesWaiters(t *testing.T) {
	q := NewQueue(1, nil)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, msgN(1)))

	errs := make(chan error, 2)
	go func() { errs <- q.Enqueue(ctx, msgN(2)) }()
	empty := NewQueue(1, nil)
	go func() {
		_, err := empty.Dequeue(ctx)
		errs <- err
	}()

	time.Sleep(50 * time.Millisecond)
	q.Close()
	empty.Close()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrClosed)
		case <-time.After(2 * time.Second):
			t.Fatal("waiter not woken by Close")
		}
	}

	assert.ErrorIs(t, q.Enqueue(ctx, msgN(3)), ErrClosed)
	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	q.Close()
}

func TestAcceptor(t *testing.T) {
	q := NewQueue(1, nil)
	a := NewAcceptor(q, 50*time.Millisecond)

	n, err := a.Recipients([]string{"a@x", "b@x", "c@y"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msg := msgN(1)
	require.NoError(t, a.Accept(context.Background(), msg))
	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.NotSame(t, msg, got)

	require.NoError(t, a.Accept(context.Background(), msgN(2)))
	assert.ErrorIs(t, a.Accept(context.Background(), msgN(3)), ErrQueueFull)
}
