package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/models"
)

// UserActivityRepository tracks API interaction recency per user.
type UserActivityRepository struct {
	db *DB
}

// NewUserActivityRepository creates a new user activity repository
func NewUserActivityRepository(db *DB) *UserActivityRepository {
	return &UserActivityRepository{db: db}
}

// GetByUserID retrieves activity for a user
func (r *UserActivityRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserActivity, error) {
	activity := &models.UserActivity{}
	query := `
		SELECT user_id, last_api_interaction, refresh_paused, created_at, updated_at
		FROM user_activity
		WHERE user_id = $1
	`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&activity.UserID,
		&activity.LastAPIInteraction,
		&activity.RefreshPaused,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user activity: %w", err)
	}
	return activity, nil
}

// Touch records an API interaction now, unpausing refresh for the user.
func (r *UserActivityRepository) Touch(ctx context.Context, userID uuid.UUID) error {
	query := `
		INSERT INTO user_activity (user_id, last_api_interaction, refresh_paused, created_at, updated_at)
		VALUES ($1, $2, FALSE, $2, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET last_api_interaction = EXCLUDED.last_api_interaction,
		    refresh_paused = FALSE,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to record user activity: %w", err)
	}
	return nil
}

// PauseInactive pauses pattern refresh for users idle longer than idleFor.
// Returns the number of users paused.
func (r *UserActivityRepository) PauseInactive(ctx context.Context, idleFor time.Duration) (int64, error) {
	query := `
		UPDATE user_activity
		SET refresh_paused = TRUE, updated_at = $1
		WHERE refresh_paused = FALSE AND last_api_interaction < $2
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query, now, now.Add(-idleFor))
	if err != nil {
		return 0, fmt.Errorf("failed to pause inactive users: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
