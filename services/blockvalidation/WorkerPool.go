package blockvalidation

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/ulogger"
)

// WorkerPool runs submitted jobs on a fixed set of goroutines. The pool is
// created once per process and shared by every block validation.
type WorkerPool struct {
	logger     ulogger.Logger
	numWorkers int

	jobs chan func()
	quit chan struct{}
	wg   sync.WaitGroup

	started sync.Once
	stopped sync.Once
}

// NewWorkerPool returns a stopped pool of size workers. A size below one is
// treated as one.
func NewWorkerPool(logger ulogger.Logger, size int) *WorkerPool {
	if size < 1 {
		size = 1
	}

	return &WorkerPool{
		logger:     logger,
		numWorkers: size,
		jobs:       make(chan func()),
		quit:       make(chan struct{}),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *WorkerPool) Start() {
	p.started.Do(func() {
		p.logger.Debugf("[WorkerPool] starting %d workers", p.numWorkers)

		for i := 0; i < p.numWorkers; i++ {
			p.wg.Add(1)

			go p.poolWorker()
		}
	})
}

// Close stops accepting jobs and waits for running jobs to finish.
func (p *WorkerPool) Close() {
	p.stopped.Do(func() {
		close(p.quit)
		p.wg.Wait()
	})
}

func (p *WorkerPool) Size() int {
	return p.numWorkers
}

// Submit hands job to an idle worker, blocking until one accepts it. A job
// accepted by a worker always runs to completion, so callers can rely on any
// completion signal the job emits.
func (p *WorkerPool) Submit(ctx context.Context, job func()) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return errors.NewContextCanceledError("[WorkerPool] job not submitted", ctx.Err())
	case <-p.quit:
		return errors.NewServiceNotStartedError("[WorkerPool] pool is closed")
	}
}

func (p *WorkerPool) poolWorker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			p.run(job)
		case <-p.quit:
			return
		}
	}
}

func (p *WorkerPool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("[WorkerPool] job panicked: %v", r)
		}
	}()

	job()
}
