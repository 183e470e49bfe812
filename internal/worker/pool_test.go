package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	id    int
	delay time.Duration
	fail  bool
}

func runFake(callCount *atomic.Int32) Func[fakeTask, string] {
	return func(ctx context.Context, task fakeTask) (string, error) {
		callCount.Add(1)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(task.delay):
		}
		if task.fail {
			return "", errors.New("simulated failure")
		}
		return fmt.Sprintf("tile-%d", task.id), nil
	}
}

func TestPool_BasicExecution(t *testing.T) {
	var calls atomic.Int32
	pool := New(Config[fakeTask, string]{Workers: 2, Run: runFake(&calls)})

	tasks := []fakeTask{{id: 1, delay: 5 * time.Millisecond}, {id: 2, delay: 5 * time.Millisecond}, {id: 3, delay: 5 * time.Millisecond}}
	results := pool.Run(context.Background(), tasks)

	require.Len(t, results, len(tasks))
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotEmpty(t, r.Value)
	}
	require.Equal(t, int32(len(tasks)), calls.Load())
}

func TestPool_ErrorHandling(t *testing.T) {
	var calls atomic.Int32
	pool := New(Config[fakeTask, string]{Workers: 2, Run: runFake(&calls)})

	tasks := []fakeTask{{id: 1}, {id: 2, fail: true}, {id: 3}}
	results := pool.Run(context.Background(), tasks)

	require.Len(t, results, len(tasks))
	var successCount, failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
		} else {
			successCount++
		}
	}
	require.Equal(t, 2, successCount)
	require.Equal(t, 1, failCount)
}

func TestPool_Cancellation(t *testing.T) {
	var calls atomic.Int32
	pool := New(Config[fakeTask, string]{Workers: 2, Run: runFake(&calls)})

	tasks := make([]fakeTask, 10)
	for i := range tasks {
		tasks[i] = fakeTask{id: i, delay: 100 * time.Millisecond}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, tasks)
	elapsed := time.Since(start)

	require.Less(t, elapsed, 400*time.Millisecond)
	require.LessOrEqual(t, len(results), len(tasks))
}

func TestPool_ProgressCallback(t *testing.T) {
	var calls atomic.Int32
	var progressCalls atomic.Int32
	var lastCompleted, lastTotal int

	pool := New(Config[fakeTask, string]{
		Workers: 2,
		Run:     runFake(&calls),
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
		},
	})

	tasks := []fakeTask{{id: 1}, {id: 2}, {id: 3}}
	pool.Run(context.Background(), tasks)

	require.Greater(t, progressCalls.Load(), int32(0))
	require.Equal(t, len(tasks), lastCompleted)
	require.Equal(t, len(tasks), lastTotal)
}

func TestPool_EmptyTasks(t *testing.T) {
	var calls atomic.Int32
	pool := New(Config[fakeTask, string]{Workers: 2, Run: runFake(&calls)})

	results := pool.Run(context.Background(), nil)

	require.Empty(t, results)
	require.Equal(t, int32(0), calls.Load())
}
