package eventreplay

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/upskill/internal/adapters/mq/queue"
	"github.com/okian/upskill/internal/adapters/mq/worker"
	"github.com/okian/upskill/internal/domain/types"
	"github.com/okian/upskill/pkg/logger"
)

// Config controls a replay run.
type Config struct {
	Workers   int
	QueueSize int
	Logger    logger.Logger
}

// Summary tallies a replay run.
type Summary struct {
	Total    int
	Applied  int
	Replayed int
	Rejected int
	Failed   int
	// Skipped counts records never dispatched because the run was cut short.
	Skipped  int
	ByCode   map[types.Code]int
	Duration time.Duration
}

func (s *Summary) add(o Outcome, err error) {
	switch {
	case err != nil:
		s.Failed++
		return
	case o.Replayed:
		s.Replayed++
	case o.Code == "":
		s.Applied++
	case o.Code == types.CodeInternal:
		s.Failed++
	default:
		s.Rejected++
	}
	if o.Code != "" {
		s.ByCode[o.Code]++
	}
}

// String renders the summary on one line with codes sorted.
func (s *Summary) String() string {
	codes := make([]string, 0, len(s.ByCode))
	for c, n := range s.ByCode {
		codes = append(codes, fmt.Sprintf("%s=%d", c, n))
	}
	sort.Strings(codes)
	return fmt.Sprintf("total=%d applied=%d replayed=%d rejected=%d failed=%d skipped=%d codes=[%s] duration=%s",
		s.Total, s.Applied, s.Replayed, s.Rejected, s.Failed, s.Skipped, strings.Join(codes, " "), s.Duration.Round(time.Millisecond))
}

// Run dispatches every record. Records for one user are dispatched in input
// order; different users run concurrently. When ctx ends early Run stops
// taking records, waits for in-flight dispatches, and reports the rest as
// skipped. No dispatch is running once Run returns.
func Run(ctx context.Context, cfg Config, records []Record, d Dispatcher) (*Summary, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Named("replay")
	}
	start := time.Now()
	sum := &Summary{Total: len(records), ByCode: make(map[types.Code]int)}
	var mu sync.Mutex

	handler := worker.HandlerFunc(func(ctx context.Context, job queue.Job) error {
		o, err := d.Dispatch(ctx, job.Raw)
		mu.Lock()
		sum.add(o, err)
		mu.Unlock()
		if err != nil {
			return fmt.Errorf("event %d: %w", job.Seq, err)
		}
		return nil
	})

	pool := worker.NewPool(cfg.Workers, handler, worker.WithQueueSize(cfg.QueueSize), worker.WithLogger(log))
	pool.Start(ctx)
	log.Info(ctx, "replaying events", logger.Int("events", len(records)), logger.Int("workers", pool.Size()))

	var submitErr error
	for _, r := range records {
		if err := pool.Submit(ctx, queue.Job{Seq: r.Seq, UserID: r.UserID, Raw: r.Raw}); err != nil {
			submitErr = err
			break
		}
	}
	shutdownErr := pool.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	sum.Duration = time.Since(start)
	sum.Skipped = sum.Total - (sum.Applied + sum.Replayed + sum.Rejected + sum.Failed)
	log.Info(ctx, "replay finished",
		logger.Int("total", sum.Total),
		logger.Int("failed", sum.Failed),
		logger.Int("skipped", sum.Skipped),
		logger.Duration("took", sum.Duration))
	if submitErr != nil {
		return sum, submitErr
	}
	return sum, shutdownErr
}
