package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Job is one unit of background work, typically a whole batch run.
type Job func(ctx context.Context) error

// ResultCallback is invoked on job completion (from the worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(err error)

// Pool runs jobs on a fixed number of goroutines with a 1-slot input queue
// (strict back-pressure). The robot drives a single mouse and keyboard, so
// callers use one worker.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
	log  zerolog.Logger
}

type job struct {
	ctx context.Context
	fn  Job
	cb  ResultCallback
}

// New creates a pool with size workers (at least one).
func New(size int, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, 1), log: log}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				p.log.Debug().Msg("worker: job started")
				err := run(j)
				p.log.Debug().Err(err).Msg("worker: job finished")
				if j.cb != nil {
					j.cb(err)
				}
			}
		}()
	}
}

// run executes the job, turning a panic into an error so the worker survives.
func run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic no processamento: %v", r)
		}
	}()
	return j.fn(j.ctx)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, fn Job, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, fn: fn, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
