package sweep

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives periodic sweep runs. Each tick it tries to take the
// cross-replica lease; losers skip the tick instead of queueing behind the
// holder. Every run gets its own wall-clock budget so a slow store cannot
// stack runs on top of each other.
type Scheduler struct {
	sweeper  *Sweeper
	locker   Locker
	logger   *slog.Logger
	interval time.Duration
	budget   time.Duration
}

// NewScheduler constructs a Scheduler. interval is the tick period, budget
// is the per-run deadline.
func NewScheduler(sweeper *Sweeper, locker Locker, logger *slog.Logger, interval, budget time.Duration) *Scheduler {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Scheduler{
		sweeper:  sweeper,
		locker:   locker,
		logger:   logger,
		interval: interval,
		budget:   budget,
	}
}

// Start blocks until ctx is cancelled, running one sweep per tick. The
// first run happens after one full interval; a fresh deployment has
// nothing due yet.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sweep scheduler started",
		"interval", s.interval.String(),
		"budget", s.budget.String(),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sweep scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	// The lease outlives the run budget slightly so a run at the deadline
	// cannot overlap its successor on another replica.
	release, ok, err := s.locker.Acquire(ctx, s.budget+time.Minute)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep lease acquisition failed", "error", err)
		return
	}
	if !ok {
		if s.sweeper.metrics != nil {
			s.sweeper.metrics.LockSkipped.Inc()
		}
		s.logger.InfoContext(ctx, "sweep skipped, lease held elsewhere")
		return
	}
	defer release()

	runCtx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()
	if _, err := s.sweeper.Run(runCtx); err != nil {
		s.logger.ErrorContext(ctx, "sweep run failed", "error", err)
	}
}
