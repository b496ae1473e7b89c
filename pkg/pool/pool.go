// Package pool runs tasks on a fixed number of goroutines.
package pool

import (
	"context"
	"errors"
	"sync"
)

// Task is a unit of work. Its error is collected by the pool.
type Task func(ctx context.Context) error

// WorkerPool manages a pool of goroutines to perform tasks.
type WorkerPool struct {
	ctx   context.Context
	tasks chan Task
	wg    sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// New creates a worker pool with numWorkers goroutines and a queue of
// taskQueueSize pending tasks. Tasks receive ctx.
func New(ctx context.Context, numWorkers, taskQueueSize int) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &WorkerPool{
		ctx:   ctx,
		tasks: make(chan Task, taskQueueSize),
	}

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker()
	}
	return p
}

// worker processes tasks until the queue is closed. Once ctx is done,
// remaining tasks are drained without running.
func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		if p.ctx.Err() != nil {
			continue
		}
		if err := task(p.ctx); err != nil {
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
	}
}

// Submit queues a task, blocking while the queue is full.
// It returns false if ctx ended before the task was queued.
func (p *WorkerPool) Submit(task Task) bool {
	select {
	case p.tasks <- task:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Stop waits for queued tasks to finish and returns their joined errors.
func (p *WorkerPool) Stop() error {
	close(p.tasks)
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}
