package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/queue"
)

// mockTaskRepo is a mock implementation of TaskRepositoryInterface
type mockTaskRepo struct {
	createFunc               func(ctx context.Context, task *models.Task) error
	getByIDFunc              func(ctx context.Context, id uuid.UUID) (*models.Task, error)
	getPendingByUserIDFunc   func(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	getRecentHistoryFunc     func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error)
	getCompletedSinceFunc    func(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Task, error)
	getByUserIDPaginatedFunc func(ctx context.Context, userID uuid.UUID, priority *models.TaskPriority, completed *bool, page, pageSize int) ([]*models.Task, int, error)
	updateFunc               func(ctx context.Context, task *models.Task) error
	deleteFunc               func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockTaskRepo) GetPendingByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	if m.getPendingByUserIDFunc != nil {
		return m.getPendingByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockTaskRepo) GetRecentHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error) {
	if m.getRecentHistoryFunc != nil {
		return m.getRecentHistoryFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockTaskRepo) GetCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Task, error) {
	if m.getCompletedSinceFunc != nil {
		return m.getCompletedSinceFunc(ctx, userID, since)
	}
	return nil, nil
}

func (m *mockTaskRepo) GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, priority *models.TaskPriority, completed *bool, page, pageSize int) ([]*models.Task, int, error) {
	if m.getByUserIDPaginatedFunc != nil {
		return m.getByUserIDPaginatedFunc(ctx, userID, priority, completed, page, pageSize)
	}
	return nil, 0, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// mockPatternRepo is a mock implementation of PatternRepositoryInterface
type mockPatternRepo struct {
	getByUserIDFunc     func(ctx context.Context, userID uuid.UUID) (*models.PatternProfile, error)
	upsertFunc          func(ctx context.Context, profile *models.PatternProfile) error
	getStaleUserIDsFunc func(ctx context.Context, maxAge time.Duration) ([]uuid.UUID, error)
}

func (m *mockPatternRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.PatternProfile, error) {
	if m.getByUserIDFunc != nil {
		return m.getByUserIDFunc(ctx, userID)
	}
	return nil, sql.ErrNoRows
}

func (m *mockPatternRepo) Upsert(ctx context.Context, profile *models.PatternProfile) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, profile)
	}
	return nil
}

func (m *mockPatternRepo) GetStaleUserIDs(ctx context.Context, maxAge time.Duration) ([]uuid.UUID, error) {
	if m.getStaleUserIDsFunc != nil {
		return m.getStaleUserIDsFunc(ctx, maxAge)
	}
	return nil, nil
}

// mockScheduleRepo is a mock implementation of ScheduleRepositoryInterface
type mockScheduleRepo struct {
	saveFunc       func(ctx context.Context, schedule *models.Schedule) error
	getCurrentFunc func(ctx context.Context, userID uuid.UUID) (*models.Schedule, error)
	getHistoryFunc func(ctx context.Context, userID uuid.UUID, windowDays int) ([]*models.Schedule, error)
}

func (m *mockScheduleRepo) Save(ctx context.Context, schedule *models.Schedule) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, schedule)
	}
	return nil
}

func (m *mockScheduleRepo) GetCurrent(ctx context.Context, userID uuid.UUID) (*models.Schedule, error) {
	if m.getCurrentFunc != nil {
		return m.getCurrentFunc(ctx, userID)
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) GetHistory(ctx context.Context, userID uuid.UUID, windowDays int) ([]*models.Schedule, error) {
	if m.getHistoryFunc != nil {
		return m.getHistoryFunc(ctx, userID, windowDays)
	}
	return nil, nil
}

// mockTimetableRepo is a mock implementation of TimetableRepositoryInterface
type mockTimetableRepo struct {
	createFunc      func(ctx context.Context, entry *models.TimetableEntry) error
	getByIDFunc     func(ctx context.Context, id uuid.UUID) (*models.TimetableEntry, error)
	getByUserIDFunc func(ctx context.Context, userID uuid.UUID) ([]*models.TimetableEntry, error)
	updateFunc      func(ctx context.Context, entry *models.TimetableEntry) error
	deleteFunc      func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTimetableRepo) Create(ctx context.Context, entry *models.TimetableEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	return nil
}

func (m *mockTimetableRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TimetableEntry, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockTimetableRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.TimetableEntry, error) {
	if m.getByUserIDFunc != nil {
		return m.getByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockTimetableRepo) Update(ctx context.Context, entry *models.TimetableEntry) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, entry)
	}
	return nil
}

func (m *mockTimetableRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// mockPreferencesRepo is a mock implementation of PreferencesRepositoryInterface
type mockPreferencesRepo struct {
	getByUserIDFunc func(ctx context.Context, userID uuid.UUID) (*models.Preferences, error)
	upsertFunc      func(ctx context.Context, prefs *models.Preferences) error
}

func (m *mockPreferencesRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Preferences, error) {
	if m.getByUserIDFunc != nil {
		return m.getByUserIDFunc(ctx, userID)
	}
	return nil, sql.ErrNoRows
}

func (m *mockPreferencesRepo) Upsert(ctx context.Context, prefs *models.Preferences) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, prefs)
	}
	return nil
}

// mockJobQueue is a mock implementation of queue.JobQueue
type mockJobQueue struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, job)
	}
	return nil
}

func (m *mockJobQueue) Dequeue(ctx context.Context) (*queue.Message, error) {
	return nil, nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }
