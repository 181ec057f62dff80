package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/models"
)

// TaskRepositoryInterface defines the task repository operations the handlers
// and workers consume. The interface exists so tests can swap in mocks.
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetPendingByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	GetRecentHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error)
	GetCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Task, error)
	GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, priority *models.TaskPriority, completed *bool, page, pageSize int) ([]*models.Task, int, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PatternRepositoryInterface defines pattern profile persistence operations
type PatternRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.PatternProfile, error)
	Upsert(ctx context.Context, profile *models.PatternProfile) error
	GetStaleUserIDs(ctx context.Context, maxAge time.Duration) ([]uuid.UUID, error)
}

// ScheduleRepositoryInterface defines schedule persistence operations
type ScheduleRepositoryInterface interface {
	Save(ctx context.Context, schedule *models.Schedule) error
	GetCurrent(ctx context.Context, userID uuid.UUID) (*models.Schedule, error)
	GetHistory(ctx context.Context, userID uuid.UUID, windowDays int) ([]*models.Schedule, error)
}

// TimetableRepositoryInterface defines timetable entry persistence operations
type TimetableRepositoryInterface interface {
	Create(ctx context.Context, entry *models.TimetableEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TimetableEntry, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.TimetableEntry, error)
	Update(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PreferencesRepositoryInterface defines preference persistence operations
type PreferencesRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Preferences, error)
	Upsert(ctx context.Context, prefs *models.Preferences) error
}

// UserActivityRepositoryInterface defines activity tracking operations
type UserActivityRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserActivity, error)
	Touch(ctx context.Context, userID uuid.UUID) error
	PauseInactive(ctx context.Context, idleFor time.Duration) (int64, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface         = (*TaskRepository)(nil)
	_ PatternRepositoryInterface      = (*PatternRepository)(nil)
	_ ScheduleRepositoryInterface     = (*ScheduleRepository)(nil)
	_ TimetableRepositoryInterface    = (*TimetableRepository)(nil)
	_ PreferencesRepositoryInterface  = (*PreferencesRepository)(nil)
	_ UserActivityRepositoryInterface = (*UserActivityRepository)(nil)
)
