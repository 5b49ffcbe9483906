package blockvalidation

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/looplab/fsm"
	"go.uber.org/atomic"
)

// TaskHandler validates one contiguous chunk of items on a single worker.
// Init is called on the worker before the first item, so per worker resources
// such as a resolver are never shared between chunks.
type TaskHandler[T, R any] interface {
	Init(ctx context.Context) error
	ExecuteTask(ctx context.Context, item T)
	// Result returns the outcome of the chunk, or false if the chunk did not
	// complete.
	Result() (R, bool)
	// Abort may be called from any goroutine while the chunk is running.
	Abort()
}

// TaskHandlerFactory creates a fresh handler for each chunk.
type TaskHandlerFactory[T, R any] func() TaskHandler[T, R]

const (
	spawnerStateIdle       = "IDLE"
	spawnerStateDispatched = "DISPATCHED"
	spawnerStateAborted    = "ABORTED"
	spawnerStateAggregated = "AGGREGATED"

	spawnerEventDispatch  = "DISPATCH"
	spawnerEventAbort     = "ABORT"
	spawnerEventAggregate = "AGGREGATE"
	spawnerEventReset     = "RESET"
)

type chunk[T, R any] struct {
	handler   TaskHandler[T, R]
	items     []T
	done      chan struct{}
	completed atomic.Bool
	aborted   atomic.Bool
	err       error
}

// TaskSpawner splits a list of items into contiguous chunks, runs one handler
// per chunk on the worker pool and collects the chunk results in order.
//
// A spawner runs one batch at a time: ExecuteTasks, then WaitForResults. It can
// be reused once the results have been collected.
type TaskSpawner[T, R any] struct {
	logger         ulogger.Logger
	name           string
	pool           *WorkerPool
	newHandler     TaskHandlerFactory[T, R]
	maxThreadCount int

	mu     sync.Mutex
	state  *fsm.FSM
	chunks []*chunk[T, R]
}

func NewTaskSpawner[T, R any](logger ulogger.Logger, name string, pool *WorkerPool, maxThreadCount int, newHandler TaskHandlerFactory[T, R]) *TaskSpawner[T, R] {
	if maxThreadCount < 1 {
		maxThreadCount = 1
	}

	return &TaskSpawner[T, R]{
		logger:         logger,
		name:           name,
		pool:           pool,
		newHandler:     newHandler,
		maxThreadCount: maxThreadCount,
		state:          newSpawnerFSM(),
	}
}

func newSpawnerFSM() *fsm.FSM {
	return fsm.NewFSM(
		spawnerStateIdle,
		fsm.Events{
			{
				Name: spawnerEventDispatch,
				Src:  []string{spawnerStateIdle},
				Dst:  spawnerStateDispatched,
			},
			{
				Name: spawnerEventAbort,
				Src:  []string{spawnerStateDispatched},
				Dst:  spawnerStateAborted,
			},
			{
				Name: spawnerEventAggregate,
				Src:  []string{spawnerStateDispatched, spawnerStateAborted},
				Dst:  spawnerStateAggregated,
			},
			{
				Name: spawnerEventReset,
				Src:  []string{spawnerStateAggregated},
				Dst:  spawnerStateIdle,
			},
		},
		fsm.Callbacks{},
	)
}

// State returns the current state of the spawner.
func (s *TaskSpawner[T, R]) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Current()
}

// Partition returns the chunk sizes used for itemCount items on at most
// maxThreads workers. Every chunk but the last holds itemCount/threads items;
// the last takes the remainder. No chunk is ever empty.
func Partition(itemCount int, maxThreads int) []int {
	if itemCount <= 0 {
		return nil
	}

	if maxThreads < 1 {
		maxThreads = 1
	}

	threadCount := min(maxThreads, max(1, itemCount/maxThreads))
	itemsPerThread := itemCount / threadCount

	sizes := make([]int, 0, threadCount)
	remaining := itemCount

	for i := 0; i < threadCount-1; i++ {
		size := min(itemsPerThread, remaining)
		sizes = append(sizes, size)
		remaining -= size
	}

	return append(sizes, remaining)
}

// ExecuteTasks partitions items and submits one job per chunk. It returns once
// every chunk has been handed to a worker; use WaitForResults to collect them.
func (s *TaskSpawner[T, R]) ExecuteTasks(ctx context.Context, items []T) error {
	s.mu.Lock()

	if err := s.state.Event(ctx, spawnerEventDispatch); err != nil {
		s.mu.Unlock()
		return errors.NewProcessingError("[%s] cannot dispatch from state %s", s.name, s.state.Current(), err)
	}

	threads := min(s.maxThreadCount, s.pool.Size())
	sizes := Partition(len(items), threads)

	s.chunks = make([]*chunk[T, R], 0, len(sizes))
	offset := 0

	for _, size := range sizes {
		s.chunks = append(s.chunks, &chunk[T, R]{
			handler: s.newHandler(),
			items:   items[offset : offset+size],
			done:    make(chan struct{}),
		})
		offset += size
	}

	chunks := s.chunks
	s.mu.Unlock()

	prometheusBlockValidationChunks.Observe(float64(len(chunks)))

	for i, c := range chunks {
		if err := s.pool.Submit(ctx, s.job(ctx, c)); err != nil {
			// the remaining chunks were never handed out so nothing will close them
			for _, unsubmitted := range chunks[i:] {
				unsubmitted.err = err
				unsubmitted.aborted.Store(true)
				close(unsubmitted.done)
			}

			s.Abort()

			return err
		}
	}

	s.logger.Debugf("[%s] dispatched %d items in %d chunks", s.name, len(items), len(chunks))

	return nil
}

func (s *TaskSpawner[T, R]) job(ctx context.Context, c *chunk[T, R]) func() {
	return func() {
		defer close(c.done)

		if c.aborted.Load() {
			return
		}

		if err := c.handler.Init(ctx); err != nil {
			c.err = err
			return
		}

		for _, item := range c.items {
			if c.aborted.Load() {
				return
			}

			if ctx.Err() != nil {
				c.err = errors.NewContextCanceledError("[%s] chunk interrupted", s.name, ctx.Err())
				return
			}

			c.handler.ExecuteTask(ctx, item)
		}

		c.completed.Store(true)
	}
}

// Abort asks every running chunk to stop. Items not yet started are skipped and
// WaitForResults reports the batch as incomplete.
func (s *TaskSpawner[T, R]) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Is(spawnerStateDispatched) {
		return
	}

	for _, c := range s.chunks {
		c.aborted.Store(true)
		c.handler.Abort()
	}

	_ = s.state.Event(context.Background(), spawnerEventAbort)

	prometheusBlockValidationAborts.Inc()
}

// WaitForResults blocks until every chunk has finished and returns their
// results in chunk order. If any chunk was aborted, failed to initialise or
// returned no result, the batch is incomplete and an error is returned instead.
func (s *TaskSpawner[T, R]) WaitForResults() ([]R, error) {
	s.mu.Lock()
	chunks := s.chunks
	s.mu.Unlock()

	for _, c := range chunks {
		<-c.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Event(context.Background(), spawnerEventAggregate); err != nil {
		return nil, errors.NewProcessingError("[%s] cannot aggregate from state %s", s.name, s.state.Current(), err)
	}

	defer func() {
		s.chunks = nil
		_ = s.state.Event(context.Background(), spawnerEventReset)
	}()

	results := make([]R, 0, len(chunks))

	for i, c := range chunks {
		if c.err != nil {
			return nil, errors.NewProcessingError("[%s] chunk %d did not complete", s.name, i, c.err)
		}

		if c.aborted.Load() || !c.completed.Load() {
			return nil, errors.NewAbortedError("[%s] chunk %d was aborted", s.name, i)
		}

		result, ok := c.handler.Result()
		if !ok {
			return nil, errors.NewAbortedError("[%s] chunk %d returned no result", s.name, i)
		}

		results = append(results, result)
	}

	return results, nil
}
