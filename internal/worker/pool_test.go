package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPreservesTaskOrder(t *testing.T) {
	tasks := []int{5, 1, 4, 2, 3}
	got, err := Run(context.Background(), tasks, 3, func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range tasks {
		if got[i] != n*10 {
			t.Fatalf("results = %v, want task order", got)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	tasks := make([]int, 20)
	_, err := Run(context.Background(), tasks, 4, func(ctx context.Context, _ int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := peak.Load(); p > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", p)
	}
}

func TestRunFirstErrorCancels(t *testing.T) {
	errBoom := errors.New("boom")
	var cancelled atomic.Int32
	var started sync.WaitGroup
	started.Add(3)

	tasks := []int{0, 1, 2, 3}
	got, err := Run(context.Background(), tasks, len(tasks), func(ctx context.Context, n int) (int, error) {
		if n == 0 {
			started.Wait()
			return 0, errBoom
		}
		started.Done()
		select {
		case <-ctx.Done():
			cancelled.Add(1)
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return n, nil
		}
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want %v", err, errBoom)
	}
	if got != nil {
		t.Errorf("partial results returned: %v", got)
	}
	if cancelled.Load() != 3 {
		t.Errorf("%d tasks saw cancellation, want 3", cancelled.Load())
	}
}

func TestRunEmptyAndCancelled(t *testing.T) {
	got, err := Run(context.Background(), nil, 4, func(ctx context.Context, n int) (int, error) {
		t.Error("fn called for empty task list")
		return 0, nil
	})
	if err != nil || len(got) != 0 {
		t.Errorf("Run(nil) = %v, %v", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, []int{1, 2, 3}, 2, func(ctx context.Context, n int) (int, error) {
		return n, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
