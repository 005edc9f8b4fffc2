package worker

import (
	"github.com/okian/upskill/pkg/logger"
)

// Option applies a configuration option to a Pool.
type Option func(*Pool)

// WithQueueSize sets the capacity of each worker's queue.
func WithQueueSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
