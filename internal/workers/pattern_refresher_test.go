package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/queue"
	"github.com/studyspark/scheduler-api/internal/scheduling"
)

func completedTask(userID uuid.UUID, completedAt time.Time, minutes, difficulty int) *models.Task {
	return &models.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "review notes",
		Subject:     "math",
		Type:        models.TaskTypeAcademic,
		Priority:    models.TaskPriorityMedium,
		Completed:   true,
		CompletedAt: &completedAt,
		TimeSpent:   minutes,
		Difficulty:  difficulty,
	}
}

func TestPatternRefresher_SkipsPausedUser(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	activity := &mockActivityRepo{
		getByUserIDFunc: func(context.Context, uuid.UUID) (*models.UserActivity, error) {
			return &models.UserActivity{UserID: userID, RefreshPaused: true}, nil
		},
	}
	var upserted bool
	patterns := &mockPatternRepo{
		upsertFunc: func(context.Context, *models.PatternProfile) error {
			upserted = true
			return nil
		},
	}

	w := NewPatternRefresher(&mockTaskRepo{}, patterns, &mockPreferencesRepo{}, activity, scheduling.NewAnalyzer(), nil)
	job := queue.NewJob(queue.JobTypePatternRefresh, userID, nil)

	if err := w.ProcessPatternRefreshJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessPatternRefreshJob: %v", err)
	}
	if upserted {
		t.Error("expected no profile write for paused user")
	}
}

func TestPatternRefresher_FullAnalysisWithoutProfile(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now()
	history := make([]*models.Task, 0, 12)
	for i := 0; i < 12; i++ {
		history = append(history, completedTask(userID, now.Add(-time.Duration(i)*24*time.Hour), 45, 5))
	}

	tasks := &mockTaskRepo{
		getRecentHistoryFunc: func(_ context.Context, id uuid.UUID, limit int) ([]*models.Task, error) {
			if id != userID {
				t.Errorf("unexpected user ID %s", id)
			}
			if limit != HistoryLimit {
				t.Errorf("expected history limit %d, got %d", HistoryLimit, limit)
			}
			return history, nil
		},
	}

	var saved *models.PatternProfile
	patterns := &mockPatternRepo{
		upsertFunc: func(_ context.Context, profile *models.PatternProfile) error {
			saved = profile
			return nil
		},
	}

	w := NewPatternRefresher(tasks, patterns, &mockPreferencesRepo{}, &mockActivityRepo{}, scheduling.NewAnalyzer(), nil)
	job := queue.NewJob(queue.JobTypePatternRefresh, userID, nil)

	if err := w.ProcessPatternRefreshJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessPatternRefreshJob: %v", err)
	}
	if saved == nil {
		t.Fatal("expected profile upsert")
	}
	if saved.UserID != userID {
		t.Errorf("profile user ID = %s, want %s", saved.UserID, userID)
	}
	if saved.TotalTasksAnalyzed != 12 {
		t.Errorf("TotalTasksAnalyzed = %d, want 12", saved.TotalTasksAnalyzed)
	}
}

func TestPatternRefresher_IncrementalWithProfile(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	lastAnalyzed := time.Now().Add(-48 * time.Hour)
	existing := scheduling.NewAnalyzer().Analyze(models.DefaultPreferences(), nil)
	existing.UserID = userID
	existing.LastAnalyzedAt = lastAnalyzed
	existing.TotalTasksAnalyzed = 20

	patterns := &mockPatternRepo{
		getByUserIDFunc: func(context.Context, uuid.UUID) (*models.PatternProfile, error) {
			return existing, nil
		},
	}

	newTasks := make([]*models.Task, 0, 5)
	for i := 1; i <= 5; i++ {
		newTasks = append(newTasks, completedTask(userID, time.Now().Add(-time.Duration(i)*time.Hour), 30+i*5, 4))
	}
	var sinceSeen time.Time
	tasks := &mockTaskRepo{
		getCompletedSinceFunc: func(_ context.Context, _ uuid.UUID, since time.Time) ([]*models.Task, error) {
			sinceSeen = since
			return newTasks, nil
		},
		getRecentHistoryFunc: func(context.Context, uuid.UUID, int) ([]*models.Task, error) {
			t.Error("full history should not be loaded when a profile exists")
			return nil, nil
		},
	}

	var saved *models.PatternProfile
	patterns.upsertFunc = func(_ context.Context, profile *models.PatternProfile) error {
		saved = profile
		return nil
	}

	w := NewPatternRefresher(tasks, patterns, &mockPreferencesRepo{}, &mockActivityRepo{}, scheduling.NewAnalyzer(), nil)
	job := queue.NewJob(queue.JobTypePatternRefresh, userID, nil)

	if err := w.ProcessPatternRefreshJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessPatternRefreshJob: %v", err)
	}
	if !sinceSeen.Equal(lastAnalyzed) {
		t.Errorf("GetCompletedSince called with %v, want %v", sinceSeen, lastAnalyzed)
	}
	if saved == nil {
		t.Fatal("expected profile upsert")
	}
	if saved.TotalTasksAnalyzed != 25 {
		t.Errorf("TotalTasksAnalyzed = %d, want 25", saved.TotalTasksAnalyzed)
	}
}

func TestPatternRefresher_UpsertError(t *testing.T) {
	t.Parallel()

	patterns := &mockPatternRepo{
		upsertFunc: func(context.Context, *models.PatternProfile) error {
			return errors.New("db down")
		},
	}

	w := NewPatternRefresher(&mockTaskRepo{}, patterns, &mockPreferencesRepo{}, &mockActivityRepo{}, scheduling.NewAnalyzer(), nil)
	job := queue.NewJob(queue.JobTypePatternRefresh, uuid.New(), nil)

	if err := w.ProcessPatternRefreshJob(context.Background(), job); err == nil {
		t.Fatal("expected error when upsert fails")
	}
}
