package workers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/queue"
	"github.com/studyspark/scheduler-api/internal/scheduling"
	"go.uber.org/zap"
)

// ScheduleRebuilder processes schedule rebuild jobs. It regenerates a user's
// current schedule from their pending tasks, stored profile and timetable,
// using the same inputs the interactive endpoint resolves.
type ScheduleRebuilder struct {
	tasks       database.TaskRepositoryInterface
	patterns    database.PatternRepositoryInterface
	preferences database.PreferencesRepositoryInterface
	timetable   database.TimetableRepositoryInterface
	schedules   database.ScheduleRepositoryInterface
	analyzer    *scheduling.Analyzer
	generator   *scheduling.Generator
	logger      *zap.Logger
}

// NewScheduleRebuilder creates a new schedule rebuilder
func NewScheduleRebuilder(
	tasks database.TaskRepositoryInterface,
	patterns database.PatternRepositoryInterface,
	preferences database.PreferencesRepositoryInterface,
	timetable database.TimetableRepositoryInterface,
	schedules database.ScheduleRepositoryInterface,
	analyzer *scheduling.Analyzer,
	generator *scheduling.Generator,
	logger *zap.Logger,
) *ScheduleRebuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRebuilder{
		tasks:       tasks,
		patterns:    patterns,
		preferences: preferences,
		timetable:   timetable,
		schedules:   schedules,
		analyzer:    analyzer,
		generator:   generator,
		logger:      logger,
	}
}

// ProcessScheduleRebuildJob regenerates the current schedule for the job's user
func (w *ScheduleRebuilder) ProcessScheduleRebuildJob(ctx context.Context, job *queue.Job) error {
	pending, err := w.tasks.GetPendingByUserID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load pending tasks: %w", err)
	}
	if len(pending) == 0 {
		w.logger.Info("skipping_schedule_rebuild_no_pending_tasks",
			zap.String("user_id", job.UserID.String()),
		)
		return nil
	}

	history, err := w.tasks.GetRecentHistory(ctx, job.UserID, HistoryLimit)
	if err != nil {
		w.logger.Warn("failed_to_load_task_history_using_empty",
			zap.String("user_id", job.UserID.String()),
			zap.Error(err),
		)
		history = nil
	}

	prefs := w.resolvePreferences(ctx, job.UserID, history)

	profile, err := w.patterns.GetByUserID(ctx, job.UserID)
	if err != nil || profile == nil {
		profile = w.analyzer.Analyze(prefs, history)
		profile.UserID = job.UserID
	}

	now := w.generator.Now()
	var events []models.CalendarEvent
	entries, err := w.timetable.GetByUserID(ctx, job.UserID)
	if err != nil {
		w.logger.Warn("failed_to_load_timetable_using_empty",
			zap.String("user_id", job.UserID.String()),
			zap.Error(err),
		)
	}
	horizonEnd := now.AddDate(0, 0, scheduling.DefaultHorizonDays)
	for _, entry := range entries {
		events = append(events, entry.Expand(now, horizonEnd)...)
	}

	result := w.generator.Generate(scheduling.GenerateInput{
		Tasks:       pending,
		Profile:     profile,
		Events:      events,
		Preferences: prefs,
		HorizonDays: scheduling.DefaultHorizonDays,
	})

	schedule := &models.Schedule{
		ID:          uuid.New(),
		UserID:      job.UserID,
		Placements:  result.Placements,
		Adjustments: result.Adjustments,
		Metadata:    result.Metadata,
		HorizonDays: scheduling.DefaultHorizonDays,
		CreatedAt:   now,
	}
	if err := w.schedules.Save(ctx, schedule); err != nil {
		return fmt.Errorf("failed to save rebuilt schedule: %w", err)
	}

	w.logger.Info("schedule_rebuilt",
		zap.String("user_id", job.UserID.String()),
		zap.Int("scheduled_tasks", result.Metadata.ScheduledTasks),
		zap.Int("conflicts", result.Metadata.Conflicts),
	)
	return nil
}

func (w *ScheduleRebuilder) resolvePreferences(ctx context.Context, userID uuid.UUID, history []*models.Task) models.Preferences {
	prefs := models.DefaultPreferences().Merge(scheduling.InferPreferences(history))
	stored, err := w.preferences.GetByUserID(ctx, userID)
	if err == nil && stored != nil {
		prefs = prefs.Merge(*stored)
	}
	prefs.UserID = userID
	return prefs
}
