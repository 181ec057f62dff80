package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/studyspark/scheduler-api/internal/queue"
	"github.com/studyspark/scheduler-api/internal/services/ai"
	"go.uber.org/zap"
)

// Dispatcher routes queue messages to the right job processor and owns the
// ack, retry and dead-letter decisions.
type Dispatcher struct {
	refresher *PatternRefresher
	rebuilder *ScheduleRebuilder
	jobQueue  queue.JobQueue
	logger    *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(refresher *PatternRefresher, rebuilder *ScheduleRebuilder, jobQueue queue.JobQueue, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		refresher: refresher,
		rebuilder: rebuilder,
		jobQueue:  jobQueue,
		logger:    logger,
	}
}

// ProcessMessage handles a single queue message end to end.
func (d *Dispatcher) ProcessMessage(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	// Expired jobs are acked away without processing
	if job.IsExpired() {
		d.logger.Info("skipping_expired_job",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			d.logger.Warn("failed_to_ack_expired_job", zap.Error(ackErr))
		}
		return nil
	}

	// Jobs delivered before their NotBefore go back through the delayed
	// exchange rather than spinning in the consumer
	if !job.ShouldProcess() {
		d.logger.Debug("job_not_ready_re_enqueueing",
			zap.String("job_id", job.ID.String()),
			zap.Timep("not_before", job.NotBefore),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			d.logger.Warn("failed_to_ack_deferred_job", zap.Error(ackErr))
		}
		if d.jobQueue != nil {
			if enqueueErr := d.jobQueue.Enqueue(ctx, job); enqueueErr != nil {
				return fmt.Errorf("failed to re-enqueue deferred job: %w", enqueueErr)
			}
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypePatternRefresh:
		if err := d.refresher.ProcessPatternRefreshJob(ctx, job); err != nil {
			return d.handleJobError(ctx, msg, job, err)
		}
	case queue.JobTypeScheduleRebuild:
		if err := d.rebuilder.ProcessScheduleRebuildJob(ctx, job); err != nil {
			return d.handleJobError(ctx, msg, job, err)
		}
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			d.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError retries transient failures with a delay and dead-letters the
// rest. Quota errors from the advice provider get a longer backoff.
func (d *Dispatcher) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, err error) error {
	d.logger.Error("job_processing_failed",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	)

	if !job.CanRetry() {
		if nackErr := msg.Nack(false); nackErr != nil {
			d.logger.Warn("failed_to_nack_exhausted_job", zap.Error(nackErr))
		}
		return fmt.Errorf("job %s exhausted retries: %w", job.ID, err)
	}

	retryDelay := time.Duration(job.RetryCount+1) * 30 * time.Second
	if ai.IsQuotaError(err) {
		retryDelay = ai.GetRetryDelay(err, job.RetryCount)
	}

	job.IncrementRetry()
	notBefore := time.Now().Add(retryDelay)
	job.NotBefore = &notBefore

	if ackErr := msg.Ack(); ackErr != nil {
		d.logger.Warn("failed_to_ack_job_before_retry", zap.Error(ackErr))
	}

	if d.jobQueue == nil {
		return fmt.Errorf("no queue available for retry: %w", err)
	}
	if enqueueErr := d.jobQueue.Enqueue(ctx, job); enqueueErr != nil {
		return fmt.Errorf("failed to re-enqueue job for retry: %w", enqueueErr)
	}

	d.logger.Info("job_re_enqueued_for_retry",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Duration("retry_delay", retryDelay),
	)
	return nil
}
