package workers

import (
	"context"
	"fmt"

	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/queue"
	"github.com/studyspark/scheduler-api/internal/scheduling"
	"go.uber.org/zap"
)

// HistoryLimit bounds how many recent tasks a full re-analysis reads.
const HistoryLimit = 100

// PatternRefresher processes pattern refresh jobs. It re-derives a user's
// behavioral profile from their recent task history, updating incrementally
// when a prior profile exists.
type PatternRefresher struct {
	tasks       database.TaskRepositoryInterface
	patterns    database.PatternRepositoryInterface
	preferences database.PreferencesRepositoryInterface
	activity    database.UserActivityRepositoryInterface
	analyzer    *scheduling.Analyzer
	logger      *zap.Logger
}

// NewPatternRefresher creates a new pattern refresher
func NewPatternRefresher(
	tasks database.TaskRepositoryInterface,
	patterns database.PatternRepositoryInterface,
	preferences database.PreferencesRepositoryInterface,
	activity database.UserActivityRepositoryInterface,
	analyzer *scheduling.Analyzer,
	logger *zap.Logger,
) *PatternRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternRefresher{
		tasks:       tasks,
		patterns:    patterns,
		preferences: preferences,
		activity:    activity,
		analyzer:    analyzer,
		logger:      logger,
	}
}

// ProcessPatternRefreshJob refreshes the behavioral profile for the job's user
func (w *PatternRefresher) ProcessPatternRefreshJob(ctx context.Context, job *queue.Job) error {
	// Skip users who have paused background refresh
	activity, err := w.activity.GetByUserID(ctx, job.UserID)
	if err == nil && activity != nil && activity.RefreshPaused {
		w.logger.Info("skipping_pattern_refresh_paused_user",
			zap.String("user_id", job.UserID.String()),
		)
		return nil
	}

	profile, err := w.patterns.GetByUserID(ctx, job.UserID)
	if err != nil {
		w.logger.Warn("failed_to_load_pattern_profile_running_full_analysis",
			zap.String("user_id", job.UserID.String()),
			zap.Error(err),
		)
		profile = nil
	}

	if profile != nil {
		// Incremental update: fold in tasks completed since the last analysis.
		completed, err := w.tasks.GetCompletedSince(ctx, job.UserID, profile.LastAnalyzedAt)
		if err != nil {
			return fmt.Errorf("failed to load completed tasks: %w", err)
		}
		profile = w.analyzer.Learn(profile, completed)
	} else {
		history, err := w.tasks.GetRecentHistory(ctx, job.UserID, HistoryLimit)
		if err != nil {
			return fmt.Errorf("failed to load task history: %w", err)
		}
		prefs, err := w.preferences.GetByUserID(ctx, job.UserID)
		if err != nil {
			w.logger.Warn("failed_to_load_preferences_using_defaults",
				zap.String("user_id", job.UserID.String()),
				zap.Error(err),
			)
			prefs = nil
		}
		resolved := models.DefaultPreferences().Merge(scheduling.InferPreferences(history))
		if prefs != nil {
			resolved = resolved.Merge(*prefs)
		}
		resolved.UserID = job.UserID
		profile = w.analyzer.Analyze(resolved, history)
		profile.UserID = job.UserID
	}

	if err := w.patterns.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("failed to save pattern profile: %w", err)
	}

	w.logger.Info("pattern_profile_refreshed",
		zap.String("user_id", job.UserID.String()),
		zap.Int("tasks_analyzed", profile.TotalTasksAnalyzed),
		zap.Float64("data_quality", profile.DataQuality),
	)
	return nil
}
