package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := New[int]()
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Send(i))
	}
	assert.Equal(t, 10, q.Len())

	for i := 0; i < 10; i++ {
		v, ok := q.TryRecv()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	_, ok := q.TryRecv()
	assert.False(t, ok)
}

func TestQueueSendAfterClose(t *testing.T) {
	t.Parallel()

	q := New[string]()
	require.NoError(t, q.Send("kept"))
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Send("dropped"), ErrClosed)
	assert.True(t, q.IsClosed())
	assert.Equal(t, []string{"kept"}, q.Drain())
	assert.Empty(t, q.Drain())
}

func TestQueueReadySignalsPendingValues(t *testing.T) {
	t.Parallel()

	q := New[int]()
	require.NoError(t, q.Send(1))
	require.NoError(t, q.Send(2))

	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready not signalled")
	}

	// Popping one of two values re-arms the signal for the other.
	_, ok := q.TryRecv()
	require.True(t, ok)
	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready not re-armed")
	}
}

func TestQueueRecv(t *testing.T) {
	t.Parallel()

	t.Run("blocks until send", func(t *testing.T) {
		t.Parallel()

		q := New[int]()
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = q.Send(7)
		}()

		v, ok, err := q.Recv(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 7, v)
	})

	t.Run("returns after close", func(t *testing.T) {
		t.Parallel()

		q := New[int]()
		go func() {
			time.Sleep(20 * time.Millisecond)
			q.Close()
		}()

		_, ok, err := q.Recv(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("honours context", func(t *testing.T) {
		t.Parallel()

		q := New[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, ok, err := q.Recv(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()

	const producers, perProducer = 8, 500
	q := New[int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Send(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, v := range q.Drain() {
		seen[v] = true
	}
	assert.Len(t, seen, producers*perProducer)
}
