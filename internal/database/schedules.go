package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/models"
)

// ScheduleRepository durably records the most recent generated schedule per
// user and an append-only history of every generation.
type ScheduleRepository struct {
	db *DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Save upserts the current schedule for the user and appends an immutable
// history row in one transaction, so history is never lost even when the
// current record is replaced.
func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	placementsJSON, err := json.Marshal(schedule.Placements)
	if err != nil {
		return fmt.Errorf("failed to marshal placements: %w", err)
	}
	adjustmentsJSON, err := json.Marshal(schedule.Adjustments)
	if err != nil {
		return fmt.Errorf("failed to marshal adjustments: %w", err)
	}
	metadataJSON, err := json.Marshal(schedule.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			_ = rbErr
		}
	}()

	now := time.Now()

	current := `
		INSERT INTO schedules (user_id, schedule_id, placements, adjustments, metadata, horizon_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET schedule_id = EXCLUDED.schedule_id,
		    placements = EXCLUDED.placements,
		    adjustments = EXCLUDED.adjustments,
		    metadata = EXCLUDED.metadata,
		    horizon_days = EXCLUDED.horizon_days,
		    created_at = EXCLUDED.created_at,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, current,
		schedule.UserID, schedule.ID, placementsJSON, adjustmentsJSON, metadataJSON, schedule.HorizonDays, now,
	); err != nil {
		return fmt.Errorf("failed to upsert current schedule: %w", err)
	}

	history := `
		INSERT INTO schedule_history (id, user_id, placements, adjustments, metadata, horizon_days, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, history,
		schedule.ID, schedule.UserID, placementsJSON, adjustmentsJSON, metadataJSON, schedule.HorizonDays, now,
	); err != nil {
		return fmt.Errorf("failed to append schedule history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schedule save: %w", err)
	}
	schedule.CreatedAt = now
	return nil
}

// GetCurrent returns the most recent saved schedule for the user.
// Callers distinguish "no schedule yet" via errors.Is(err, sql.ErrNoRows).
func (r *ScheduleRepository) GetCurrent(ctx context.Context, userID uuid.UUID) (*models.Schedule, error) {
	// created_at tracks generation time on both tables, so CreatedAt means
	// the same thing whichever read path produced the schedule.
	query := `
		SELECT schedule_id, user_id, placements, adjustments, metadata, horizon_days, created_at
		FROM schedules
		WHERE user_id = $1
	`
	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no schedule for user: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current schedule: %w", err)
	}
	return schedule, nil
}

// GetHistory returns history rows within the trailing window, newest first.
func (r *ScheduleRepository) GetHistory(ctx context.Context, userID uuid.UUID, windowDays int) ([]*models.Schedule, error) {
	query := `
		SELECT id, user_id, placements, adjustments, metadata, horizon_days, created_at
		FROM schedule_history
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, time.Now().AddDate(0, 0, -windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule history: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule history row: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule history: %w", err)
	}
	return schedules, nil
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	schedule := &models.Schedule{}
	var placementsJSON, adjustmentsJSON, metadataJSON []byte

	err := row.Scan(
		&schedule.ID,
		&schedule.UserID,
		&placementsJSON,
		&adjustmentsJSON,
		&metadataJSON,
		&schedule.HorizonDays,
		&schedule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(placementsJSON, &schedule.Placements); err != nil {
		return nil, fmt.Errorf("failed to unmarshal placements: %w", err)
	}
	if err := json.Unmarshal(adjustmentsJSON, &schedule.Adjustments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal adjustments: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &schedule.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return schedule, nil
}
