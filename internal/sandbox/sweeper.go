package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the pool's eviction pass on a fixed schedule. It is the
// only recurring background task the pool depends on; it never inspects
// job state, keeping sandbox cost control decoupled from job bookkeeping.
type Sweeper struct {
	pool     *Pool
	cron     *cron.Cron
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper schedules a sweep of the pool every interval.
func NewSweeper(pool *Pool, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	s := &Sweeper{
		pool:     pool,
		cron:     cron.New(),
		interval: interval,
		logger:   logger,
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.runOnce)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}

	return s, nil
}

// Start begins the schedule. It returns immediately.
func (s *Sweeper) Start() {
	s.logger.Info("sandbox sweeper starting", "interval", s.interval.String())
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if n := s.pool.Sweep(ctx); n > 0 {
		s.logger.Info("sweep reclaimed idle sandboxes", "count", n)
	}
}
