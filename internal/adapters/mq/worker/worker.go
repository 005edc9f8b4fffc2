// Package worker runs raw event records through a handler on a fixed set of
// goroutines. Each worker owns one queue and records are routed by user id,
// so one user's records are handled in submission order while different
// users proceed in parallel.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/okian/upskill/internal/adapters/mq/queue"
	"github.com/okian/upskill/pkg/logger"
	"github.com/okian/upskill/pkg/metrics"
)

const defaultQueueSize = 256

// Handler processes one job.
type Handler interface {
	Handle(ctx context.Context, job queue.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job queue.Job) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, job queue.Job) error { return f(ctx, job) }

// InMemoryWorker drains one queue into the handler.
type InMemoryWorker struct {
	name    string
	queue   queue.Queue
	handler Handler
	done    chan struct{}
	logger  logger.Logger

	handled atomic.Int64
	failed  atomic.Int64
}

func newWorker(name string, q queue.Queue, h Handler, l logger.Logger) *InMemoryWorker {
	return &InMemoryWorker{
		name:    name,
		queue:   q,
		handler: h,
		done:    make(chan struct{}),
		logger:  l.Named(name),
	}
}

// Run handles jobs until the queue is closed and drained or ctx ends. Once ctx
// ends no further job is taken, but the job in hand runs to completion.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobCtx := context.WithoutCancel(ctx)
	for job := range w.queue.Dequeue(ctx) {
		if ctx.Err() != nil {
			return
		}
		if err := w.handler.Handle(jobCtx, job); err != nil {
			w.failed.Add(1)
			metrics.RecordWorkerError()
			w.logger.Error(ctx, "error handling job",
				logger.Int("seq", job.Seq),
				logger.String("userID", job.UserID),
				logger.Error(err),
			)
			continue
		}
		w.handled.Add(1)
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers   []*InMemoryWorker
	queues    []*queue.InMemoryQueue
	queueSize int
	logger    logger.Logger
	started   atomic.Bool
	stop      context.CancelFunc
}

// NewPool creates a pool of workerCount workers around handler.
func NewPool(workerCount int, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}

	p.workers = make([]*InMemoryWorker, workerCount)
	p.queues = make([]*queue.InMemoryQueue, workerCount)
	for i := 0; i < workerCount; i++ {
		name := "worker-" + strconv.Itoa(i)
		p.queues[i] = queue.NewInMemoryQueue(queue.WithCapacity(p.queueSize), queue.WithName(name))
		p.workers[i] = newWorker(name, p.queues[i], handler, p.logger)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	ctx, p.stop = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Route returns the worker index for userID.
func (p *Pool) Route(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(p.workers)))
}

// Submit queues job on its user's worker, blocking while that queue is full.
func (p *Pool) Submit(ctx context.Context, job queue.Job) error {
	q := p.queues[p.Route(job.UserID)]
	if err := q.Put(ctx, job); err != nil {
		return fmt.Errorf("submit job %d: %w", job.Seq, err)
	}
	return nil
}

// Pending returns the number of jobs buffered across all queues.
func (p *Pool) Pending() int {
	n := 0
	for _, q := range p.queues {
		n += q.Len()
	}
	metrics.UpdateQueueSize(n)
	return n
}

// Handled returns how many jobs completed without and with handler errors.
func (p *Pool) Handled() (ok, failed int64) {
	for _, w := range p.workers {
		ok += w.handled.Load()
		failed += w.failed.Load()
	}
	return ok, failed
}

// Shutdown closes every queue and waits for workers to drain them. If ctx
// ends first the remaining jobs are abandoned, but Shutdown still returns only
// after every worker has finished the job it holds, so no handler runs once it
// has returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	for _, q := range p.queues {
		_ = q.Close()
	}
	defer metrics.UpdateWorkerCount(0)
	if !p.started.Load() {
		return nil
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "shutdown cut short, waiting for in-flight jobs", logger.Int("worker_id", i))
			p.stop()
			for _, w := range p.workers {
				<-w.done
			}
			return fmt.Errorf("%w: %d jobs left queued: %w", ErrShutdownAborted, p.Pending(), ctx.Err())
		}
	}
	p.stop()
	return nil
}
