// Package worker runs document analysis concurrently on a bounded pool.
package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Submit once the pool stops accepting work
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produces
type Result interface {
	Err() error
}

// Pool executes submitted jobs on a fixed number of goroutines
type Pool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewPool creates a pool bound to parent. Cancelling parent stops the
// workers after their current job.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Workers returns the pool size
func (p *Pool) Workers() int {
	return p.workers
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It blocks while the queue is full and fails once the
// pool is closed or shut down.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return ErrPoolClosed
	}
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	case p.jobs <- job:
		return nil
	}
}

// Results exposes the result stream. It is closed once the workers exit.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs; workers drain the queue and exit. Calling it
// again is a no-op.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
	go func() {
		p.wg.Wait()
		p.closeResults()
	}()
}

// Shutdown stops the workers without draining the queue
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
