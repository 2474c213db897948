package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	result := make(chan leads.ScanRequest, 1)
	errCh := make(chan error, 1)

	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- item
	}()

	time.Sleep(10 * time.Millisecond) // allow goroutine to block
	require.NoError(t, q.Enqueue(context.Background(), leads.ScanRequest{City: "Ankara", Keyword: "kuaför"}))

	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		require.Equal(t, "Ankara", got.City)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return request")
	}
}

func TestQueueIsFIFOAndUnbounded(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	const n = 1000
	for i := 0; i < n; i++ {
		require.NoError(t, q.Enqueue(context.Background(), leads.ScanRequest{City: fmt.Sprint(i)}))
	}
	require.Equal(t, n, q.Len())
	for i := 0; i < n; i++ {
		got, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		require.Equal(t, fmt.Sprint(i), got.City)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	const producers, perProducer = 8, 50
	for p := 0; p < producers; p++ {
		go func() {
			for i := 0; i < perProducer; i++ {
				_ = q.Enqueue(context.Background(), leads.ScanRequest{Keyword: "x"})
			}
		}()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < producers*perProducer; i++ {
		_, err := q.Dequeue(ctx)
		require.NoError(t, err)
	}
}

func TestQueueCancelation(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "dequeue canceled: context canceled", err.Error())

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	require.NoError(t, q.Enqueue(context.Background(), leads.ScanRequest{City: "buffered"}))
	q.Close()
	q.Close()

	err := q.Enqueue(context.Background(), leads.ScanRequest{})
	require.True(t, errors.Is(err, leads.ErrQueueClosed))

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "buffered", got.City)

	_, err = q.Dequeue(context.Background())
	require.ErrorIs(t, err, leads.ErrQueueClosed)
}

func TestQueueCloseWakesBlockedConsumer(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, leads.ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked dequeue was not released by Close")
	}
}
