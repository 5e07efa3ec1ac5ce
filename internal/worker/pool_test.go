package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct {
	err error
}

func (r *stubResult) Err() error {
	return r.err
}

type stubJob struct {
	duration  time.Duration
	shouldErr bool
	executed  *int32
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &stubResult{err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &stubResult{err: errors.New("job error")}
	}
	return &stubResult{}
}

func TestNewPool(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct{ in, want int }{{5, 5}, {0, 1}, {-1, 1}} {
		if got := NewPool(ctx, tc.in).Workers(); got != tc.want {
			t.Errorf("NewPool(%d).Workers() = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPool_Execution(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var executed int32
	count := 10

	go func() {
		for i := 0; i < count; i++ {
			if err := pool.Submit(&stubJob{executed: &executed}); err != nil {
				t.Errorf("submit: %v", err)
			}
		}
		pool.Close()
	}()

	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if got := atomic.LoadInt32(&executed); got != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, got)
	}
}

type trackingJob struct {
	start    func()
	end      func()
	duration time.Duration
}

func (j *trackingJob) Execute(ctx context.Context) Result {
	if j.start != nil {
		j.start()
	}
	time.Sleep(j.duration)
	if j.end != nil {
		j.end()
	}
	return &stubResult{}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	workers := 4
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var current, maxSeen, completed int32
	var mu sync.Mutex
	total := 20

	go func() {
		for i := 0; i < total; i++ {
			_ = pool.Submit(&trackingJob{
				start: func() {
					n := atomic.AddInt32(&current, 1)
					mu.Lock()
					if n > maxSeen {
						maxSeen = n
					}
					mu.Unlock()
				},
				end: func() {
					atomic.AddInt32(&current, -1)
					atomic.AddInt32(&completed, 1)
				},
				duration: 5 * time.Millisecond,
			})
		}
		pool.Close()
	}()

	for range pool.Results() {
	}

	if got := atomic.LoadInt32(&completed); got != int32(total) {
		t.Errorf("expected %d completed jobs, got %d", total, got)
	}
	mu.Lock()
	defer mu.Unlock()
	if maxSeen > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", maxSeen, workers)
	}
}

func TestPool_CloseCollect(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	if err := pool.Submit(&stubJob{shouldErr: true}); err != nil {
		t.Fatal(err)
	}
	if err := pool.Submit(&stubJob{}); err != nil {
		t.Fatal(err)
	}

	pool.Close()
	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	failed := 0
	for _, r := range results {
		if r.Err() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failed job, got %d", failed)
	}
}

func TestPool_CloseIdempotent(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()

	pool.Close()
	pool.Close()
	pool.Shutdown()

	if err := pool.Submit(&stubJob{}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed after Close, got %v", err)
	}
	for range pool.Results() {
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan error, 1)
	go func() { done <- pool.Submit(&stubJob{}) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrPoolClosed) {
			t.Errorf("expected ErrPoolClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{})
	if err := pool.Submit(&trackingJob{start: func() { close(started) }, duration: 20 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	<-started
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		for range pool.Results() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after parent cancel")
	}
}
