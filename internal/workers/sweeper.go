package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/queue"
	"go.uber.org/zap"
)

const (
	// DefaultProfileMaxAge is how old a profile may get before the sweep
	// queues a refresh for it.
	DefaultProfileMaxAge = 7 * 24 * time.Hour
	// DefaultIdleAfter is how long a user may go without API activity before
	// background refresh is paused for them.
	DefaultIdleAfter = 30 * 24 * time.Hour
)

// Sweeper periodically pauses refresh for idle users and queues pattern
// refresh jobs for users whose profiles have gone stale. It runs from a cron
// entry in the worker process.
type Sweeper struct {
	patterns  database.PatternRepositoryInterface
	activity  database.UserActivityRepositoryInterface
	jobQueue  queue.JobQueue
	maxAge    time.Duration
	idleAfter time.Duration
	logger    *zap.Logger
}

// NewSweeper creates a new sweeper
func NewSweeper(
	patterns database.PatternRepositoryInterface,
	activity database.UserActivityRepositoryInterface,
	jobQueue queue.JobQueue,
	maxAge time.Duration,
	idleAfter time.Duration,
	logger *zap.Logger,
) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultProfileMaxAge
	}
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		patterns:  patterns,
		activity:  activity,
		jobQueue:  jobQueue,
		maxAge:    maxAge,
		idleAfter: idleAfter,
		logger:    logger,
	}
}

// Sweep pauses idle users, then enqueues a refresh job per stale profile.
// Enqueue failures are logged and do not stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context) error {
	paused, err := s.activity.PauseInactive(ctx, s.idleAfter)
	if err != nil {
		return fmt.Errorf("failed to pause inactive users: %w", err)
	}
	if paused > 0 {
		s.logger.Info("paused_refresh_for_inactive_users",
			zap.Int64("user_count", paused),
		)
	}

	staleUsers, err := s.patterns.GetStaleUserIDs(ctx, s.maxAge)
	if err != nil {
		return fmt.Errorf("failed to list stale profiles: %w", err)
	}

	queued := 0
	for _, userID := range staleUsers {
		job := queue.NewJob(queue.JobTypePatternRefresh, userID, nil)
		// Drop the job if it sits unprocessed for a full day; the next sweep
		// will pick the user up again.
		notAfter := time.Now().Add(24 * time.Hour)
		job.NotAfter = &notAfter

		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Warn("failed_to_enqueue_pattern_refresh_job",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			continue
		}
		queued++
	}

	s.logger.Info("stale_profile_sweep_complete",
		zap.Int("stale_profiles", len(staleUsers)),
		zap.Int("jobs_queued", queued),
	)
	return nil
}
