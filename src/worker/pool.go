package worker

import (
	"context"
	"log"
	"sync"
)

// Job runs on a worker goroutine. It must post any result back to its owner
// itself, e.g. by sending on the owner's channel.
type Job func(ctx context.Context)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs      chan task
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type task struct {
	ctx context.Context
	run Job
}

// New creates a worker pool. Size defaults to 1 when size<=0.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan task, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for t := range p.jobs {
				p.runOne(id, t)
			}
		}(i)
	}
}

func (p *Pool) runOne(id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: PANIC in job: %v", id, r)
		}
	}()
	if err := t.ctx.Err(); err != nil {
		log.Printf("Worker %d: skipping job, context done: %v", id, err)
		return
	}
	t.run(t.ctx)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, job Job) bool {
	select {
	case p.jobs <- task{ctx: ctx, run: job}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
