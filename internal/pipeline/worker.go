package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one unit of background work. Jobs own their error handling;
// the pool only logs.
type Job func(ctx context.Context) error

// Pool runs queued jobs on a fixed set of workers. Each worker drives
// one job to completion before taking the next; no ordering holds
// between jobs.
type Pool struct {
	jobs    chan Job
	workers int
	log     *zap.Logger
	g       *errgroup.Group
	stop    context.CancelFunc
}

func NewPool(workers, queueSize int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	return &Pool{jobs: make(chan Job, queueSize), workers: workers, log: log}
}

func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.stop = cancel
	g, ctx := errgroup.WithContext(ctx)
	p.g = g
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job, ok := <-p.jobs:
					if !ok {
						return nil
					}
					if err := job(ctx); err != nil {
						p.log.Error("background job failed", zap.Error(err))
					}
				}
			}
		})
	}
}

// Enqueue hands a job to the pool. It reports false when the queue is
// full rather than blocking the caller.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting work, drains in-flight jobs and waits for
// the workers to exit.
func (p *Pool) Shutdown() {
	close(p.jobs)
	if p.g != nil {
		p.g.Wait()
	}
	if p.stop != nil {
		p.stop()
	}
}
