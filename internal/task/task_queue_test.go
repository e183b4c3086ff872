package task

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int]()
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Push(i))
	}
	assert.Equal(t, 3, q.Len())

	for want := 1; want <= 3; want++ {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_OfferStartsConsumerOncePerBusyPeriod(t *testing.T) {
	q := NewQueue[string]()

	start, err := q.Offer("a")
	require.NoError(t, err)
	assert.True(t, start, "first offer on an idle queue must start a consumer")

	start, err = q.Offer("b")
	require.NoError(t, err)
	assert.False(t, start, "consumer is already draining")
	assert.True(t, q.Draining())

	item, ok := q.Next()
	assert.True(t, ok)
	assert.Equal(t, "a", item)
	item, ok = q.Next()
	assert.True(t, ok)
	assert.Equal(t, "b", item)

	_, ok = q.Next()
	assert.False(t, ok)
	assert.False(t, q.Draining(), "empty Next must release the consumer")

	start, err = q.Offer("c")
	require.NoError(t, err)
	assert.True(t, start, "a new busy period starts a new consumer")
}

func TestQueue_ConcurrentOffersStartExactlyOneConsumer(t *testing.T) {
	q := NewQueue[int]()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		starts int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start, err := q.Offer(i)
			assert.NoError(t, err)
			if start {
				mu.Lock()
				starts++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, starts)
	assert.Equal(t, 50, q.Len())
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue[int]()
	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))

	assert.Equal(t, []int{1, 2}, q.Drain())
	assert.Empty(t, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue[int]()
	require.NoError(t, q.Push(1))
	q.Close()

	assert.ErrorIs(t, q.Push(2), ErrQueueClosed)
	_, err := q.Offer(3)
	assert.ErrorIs(t, err, ErrQueueClosed)

	item, ok := q.Pop()
	assert.True(t, ok, "queued items survive Close")
	assert.Equal(t, 1, item)
}
