package plagiarism

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

type Job interface {
	Execute(ctx context.Context) error
}

// JobFunc adapts a plain function to the Job interface
type JobFunc func(ctx context.Context) error

func (f JobFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

// creates a new worker pool; size <= 0 sizes it from the CPU count
func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		size = cpuWorkers()
	}
	log.Info().
		Int("totalCPU", runtime.NumCPU()).
		Int("workers", size).
		Msg("Worker pool initialized")
	poolCtx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2),
		ctx:      poolCtx,
		cancel:   cancel,
	}

	pool.start()

	return pool
}

// cpuWorkers leaves a quarter of the cores to the rest of the system
func cpuWorkers() int {
	totalCPU := runtime.NumCPU()
	systemReserve := max(1, totalCPU/4)
	return max(1, totalCPU-systemReserve)
}

// starts all worker goroutines
func (p *WorkerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobQueue:
			p.run(id, job)
		}
	}
}

// run executes one job; a panicking job is logged and does not take the worker down
func (p *WorkerPool) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("worker", id).Msg("Job panicked")
		}
	}()
	if err := job.Execute(p.ctx); err != nil {
		log.Error().Err(err).Int("worker", id).Msg("Worker failed to execute job")
	}
}

// Submit queues a job, giving up when either the caller's or the pool's
// context ends. Submitting to a closed pool returns context.Canceled.
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// Close cancels the pool and waits for the workers to finish their current
// job. Queued jobs are dropped and callers blocked in runIndexed are released.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

// returns the number of workers
func (p *WorkerPool) Size() int {
	return p.workers
}

// runIndexed fans fn out over [0, n) on the pool and blocks until every index
// has reported. It returns early once ctx ends or the pool is closed.
// fn must only write state owned by its index.
func runIndexed(ctx context.Context, pool *WorkerPool, n int, fn func(ctx context.Context, i int)) error {
	done := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		idx := i
		job := JobFunc(func(context.Context) error {
			defer func() { done <- struct{}{} }()
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx, idx)
			return nil
		})
		if err := pool.Submit(ctx, job); err != nil {
			return err
		}
	}

	for remaining := n; remaining > 0; remaining-- {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pool.ctx.Done():
			// workers are gone, jobs still queued will never report
			return pool.ctx.Err()
		case <-done:
		}
	}
	return nil
}
