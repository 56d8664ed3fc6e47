package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_DoReturnsResult(t *testing.T) {
	p := NewPool(context.Background(), 2, 0)
	defer p.Close()

	value, err := p.Do(context.Background(), Job{
		ID: "sum",
		Execute: func(ctx context.Context) (any, error) {
			return 42, nil
		},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if value.(int) != 42 {
		t.Errorf("Expected 42, got %v", value)
	}
}

func TestPool_DoReturnsError(t *testing.T) {
	p := NewPool(context.Background(), 1, 0)
	defer p.Close()

	wantErr := errors.New("backend unavailable")
	value, err := p.Do(context.Background(), Job{
		Execute: func(ctx context.Context) (any, error) {
			return nil, wantErr
		},
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected %v, got %v", wantErr, err)
	}
	if value != nil {
		t.Errorf("Expected nil value on error, got %v", value)
	}
}

func TestPool_ConcurrencyBounded(t *testing.T) {
	const workers = 3
	p := NewPool(context.Background(), workers, 0)
	defer p.Close()

	var running, peak atomic.Int64
	release := make(chan struct{})

	job := Job{
		Execute: func(ctx context.Context) (any, error) {
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil, nil
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < workers*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Do(context.Background(), job)
		}()
	}

	// Let the first wave of jobs occupy the workers.
	deadline := time.After(2 * time.Second)
	for running.Load() < workers {
		select {
		case <-deadline:
			t.Fatalf("Expected %d jobs running, got %d", workers, running.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if st := p.Status(); st.Active != workers || st.Max != workers {
		t.Errorf("Expected status {%d %d}, got %+v", workers, workers, st)
	}

	close(release)
	wg.Wait()

	if got := peak.Load(); got != workers {
		t.Errorf("Expected peak concurrency %d, got %d", workers, got)
	}
}

func TestPool_SubmissionBlocksWhenBusy(t *testing.T) {
	p := NewPool(context.Background(), 1, 0)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})

	go p.Do(context.Background(), Job{
		Execute: func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return nil, nil
		},
	})
	<-started

	// The single worker is busy, so a bounded-ctx submission must
	// give up rather than be accepted.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Do(ctx, Job{
		Execute: func(ctx context.Context) (any, error) {
			return nil, nil
		},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}

	close(release)
}

func TestPool_AbandonedCallerDoesNotBlockWorker(t *testing.T) {
	p := NewPool(context.Background(), 1, 0)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	accepted := make(chan struct{})
	finished := make(chan struct{})

	go p.Do(ctx, Job{
		Execute: func(jobCtx context.Context) (any, error) {
			close(accepted)
			time.Sleep(20 * time.Millisecond)
			close(finished)
			return "late", nil
		},
	})

	<-accepted
	cancel() // caller walks away mid-execution

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Job should run to completion after caller abandons it")
	}

	// The worker must be free again for the next job.
	value, err := p.Do(context.Background(), Job{
		Execute: func(ctx context.Context) (any, error) {
			return "next", nil
		},
	})
	if err != nil || value.(string) != "next" {
		t.Errorf("Expected follow-up job to run, got %v, %v", value, err)
	}
}

func TestPool_ClosedPoolRejectsSubmission(t *testing.T) {
	p := NewPool(context.Background(), 1, 0)
	p.Close()

	_, err := p.Do(context.Background(), Job{
		Execute: func(ctx context.Context) (any, error) {
			return nil, nil
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected canceled error from closed pool, got %v", err)
	}
}

func TestPool_StatusIdle(t *testing.T) {
	p := NewPool(context.Background(), 4, 0)
	defer p.Close()

	if st := p.Status(); st.Active != 0 || st.Max != 4 {
		t.Errorf("Expected idle status {0 4}, got %+v", st)
	}
	if p.Workers() != 4 {
		t.Errorf("Expected 4 workers, got %d", p.Workers())
	}
}
