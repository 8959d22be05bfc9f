package workers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(n int) Task {
	return TaskFunc{
		Name: fmt.Sprintf("square-%d", n),
		Fn: func(ctx context.Context) (interface{}, error) {
			return n * n, nil
		},
	}
}

func TestExecuteAllPreservesOrder(t *testing.T) {
	pool := NewPool(3)

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = square(i)
	}

	results := pool.ExecuteAll(context.Background(), tasks)
	require.Len(t, results, 10)
	for i, r := range results {
		assert.NoError(t, r.Error)
		assert.Equal(t, i*i, r.Value)
		assert.Equal(t, fmt.Sprintf("square-%d", i), r.TaskID)
	}
	assert.Equal(t, Stats{Completed: 10}, pool.Stats())
}

func TestConcurrencyIsBounded(t *testing.T) {
	pool := NewPool(2)

	var running, peak int32
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = TaskFunc{
			Name: fmt.Sprintf("t%d", i),
			Fn: func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			},
		}
	}

	pool.ExecuteAll(context.Background(), tasks)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunReturnsFirstError(t *testing.T) {
	pool := NewPool(4)
	boom := errors.New("boom")

	tasks := []Task{
		square(1),
		TaskFunc{Name: "broken", Fn: func(ctx context.Context) (interface{}, error) { return nil, boom }},
		square(3),
	}

	_, err := pool.Run(context.Background(), tasks)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "task broken")
}

func TestPanickingTaskIsReported(t *testing.T) {
	pool := NewPool(1)
	tasks := []Task{
		TaskFunc{Name: "panics", Fn: func(ctx context.Context) (interface{}, error) { panic("bad input") }},
		square(2),
	}

	results := pool.ExecuteAll(context.Background(), tasks)
	require.Error(t, results[0].Error)
	assert.Contains(t, results[0].Error.Error(), "bad input")
	assert.Equal(t, 4, results[1].Value)
}

func TestCancelledContext(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocker := TaskFunc{Name: "wait", Fn: func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	results := pool.ExecuteAll(ctx, []Task{blocker, blocker})
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
}

func TestProgressReporter(t *testing.T) {
	var last int64
	pool := NewPool(2).WithProgress(func(completed, total int64) {
		assert.Equal(t, int64(5), total)
		atomic.StoreInt64(&last, completed)
	})

	tasks := make([]Task, 5)
	for i := range tasks {
		tasks[i] = square(i)
	}
	pool.ExecuteAll(context.Background(), tasks)
	assert.Equal(t, int64(5), atomic.LoadInt64(&last))
}
