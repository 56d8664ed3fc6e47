// Package worker provides a bounded worker pool for CPU-heavy
// computations so the request-accepting path never runs them inline.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Job represents a unit of work to be executed by a worker.
type Job struct {
	// ID is an optional identifier for the job (useful for logging)
	ID string
	// Execute is the function to run. It receives a context and returns a result and error.
	Execute func(ctx context.Context) (any, error)
}

// Result represents the outcome of a job execution.
type Result struct {
	JobID string
	Value any
	Err   error
}

// Status reports the pool occupancy.
type Status struct {
	Active int `json:"active"`
	Max    int `json:"max"`
}

type envelope struct {
	job   Job
	reply chan Result
}

// Pool is a fixed-size worker pool. Submission blocks the calling
// goroutine until a worker is free, which bounds CPU and memory use
// under burst load at the cost of queueing latency.
type Pool struct {
	workers  int
	jobQueue chan envelope
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	active   atomic.Int64
	once     sync.Once
}

// NewPool creates a pool with the given number of workers. A zero
// queueSize makes submission rendezvous directly with a free worker.
func NewPool(ctx context.Context, workers int, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	poolCtx, cancel := context.WithCancel(ctx)

	p := &Pool{
		workers:  workers,
		jobQueue: make(chan envelope, queueSize),
		ctx:      poolCtx,
		cancel:   cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case env := <-p.jobQueue:
			p.active.Add(1)
			value, err := env.job.Execute(p.ctx)
			p.active.Add(-1)

			// Reply channels are buffered, so an abandoned caller
			// never blocks the worker.
			env.reply <- Result{JobID: env.job.ID, Value: value, Err: err}
		}
	}
}

// Do submits a job and waits for its result. It blocks until a worker
// accepts the job; once accepted the job runs to completion even if
// ctx expires, in which case Do returns ctx.Err() and the eventual
// result is discarded.
func (p *Pool) Do(ctx context.Context, job Job) (any, error) {
	env := envelope{job: job, reply: make(chan Result, 1)}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, p.ctx.Err()
	case p.jobQueue <- env:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, p.ctx.Err()
	case res := <-env.reply:
		return res.Value, res.Err
	}
}

// Status reports the number of busy workers and the pool size.
func (p *Pool) Status() Status {
	return Status{
		Active: int(p.active.Load()),
		Max:    p.workers,
	}
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// Close shuts the pool down and waits for workers to finish. The job
// queue is never closed so a racing Do observes cancellation instead
// of a send on a closed channel.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
