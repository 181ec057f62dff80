package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &DB{DB: db}, mock
}

// Save stamps generation time into created_at on both tables, and GetCurrent
// reads it back from the same column. CreatedAt must mean generation time on
// every read path, current and history alike.
func TestScheduleRepositorySave_StampsGenerationTime(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	schedule := &models.Schedule{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		HorizonDays: 7,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO schedules.*created_at = EXCLUDED\.created_at`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO schedule_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	before := time.Now()
	if err := repo.Save(context.Background(), schedule); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if schedule.CreatedAt.Before(before) {
		t.Error("Expected Save to stamp the schedule's generation time")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestScheduleRepositoryGetCurrent_ReadsGenerationTime(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	scheduleID := uuid.New()
	userID := uuid.New()
	generatedAt := time.Date(2026, 3, 9, 15, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"schedule_id", "user_id", "placements", "adjustments", "metadata", "horizon_days", "created_at"}).
		AddRow(scheduleID.String(), userID.String(), []byte("[]"), []byte("[]"), []byte("{}"), 7, generatedAt)
	mock.ExpectQuery("SELECT schedule_id, user_id, placements, adjustments, metadata, horizon_days, created_at").
		WithArgs(userID).
		WillReturnRows(rows)

	schedule, err := repo.GetCurrent(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetCurrent failed: %v", err)
	}
	if schedule.ID != scheduleID {
		t.Errorf("Expected schedule %s, got %s", scheduleID, schedule.ID)
	}
	if !schedule.CreatedAt.Equal(generatedAt) {
		t.Errorf("Expected CreatedAt %v, got %v", generatedAt, schedule.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
