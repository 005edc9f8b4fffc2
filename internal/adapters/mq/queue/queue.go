// Package queue buffers raw event records between a reader and the workers
// that feed them to the supervisor.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/upskill/pkg/metrics"
)

const defaultCapacity = 1024

// Job is one raw event record and its position in the input.
type Job struct {
	Seq    int
	UserID string
	Raw    []byte
}

// Queue provides enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job without blocking; false means full or closed.
	Enqueue(ctx context.Context, j Job) bool
	// Put blocks until the job is buffered, ctx ends, or the queue closes.
	Put(ctx context.Context, j Job) error
	// Dequeue returns a channel that yields jobs in order and is closed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job
	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	name     string
	capacity int
	jobs     chan Job

	mu      sync.RWMutex
	closed  bool
	closing chan struct{}
	sealed  chan struct{}
	once    sync.Once
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		name:     "queue",
		capacity: defaultCapacity,
		closing:  make(chan struct{}),
		sealed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}
	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

// Put implements Queue.
func (q *InMemoryQueue) Put(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return fmt.Errorf("%s: %w", q.name, ctx.Err())
	case <-q.closing:
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		send := func(j Job) bool {
			select {
			case out <- j:
				metrics.UpdateQueueSize(len(q.jobs))
				return true
			case <-ctx.Done():
				return false
			}
		}
		for {
			select {
			case j := <-q.jobs:
				if !send(j) {
					return
				}
			case <-q.sealed:
				for {
					select {
					case j := <-q.jobs:
						if !send(j) {
							return
						}
					default:
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue) Len() int { return len(q.jobs) }

// Close stops new jobs; buffered jobs are still delivered.
func (q *InMemoryQueue) Close() error {
	q.once.Do(func() {
		close(q.closing)
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.sealed)
	})
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
