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

// PreferencesRepository stores explicit per-user scheduling preferences.
type PreferencesRepository struct {
	db *DB
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(db *DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetByUserID retrieves stored preferences for a user.
// Callers distinguish "not found" via errors.Is(err, sql.ErrNoRows).
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Preferences, error) {
	query := `SELECT user_id, preferences, updated_at FROM user_preferences WHERE user_id = $1`

	prefs := &models.Preferences{}
	var prefsJSON []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&prefs.UserID, &prefsJSON, &prefs.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("preferences not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	if err := json.Unmarshal(prefsJSON, prefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	prefs.UserID = userID
	return prefs, nil
}

// Upsert writes preferences for a user.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *models.Preferences) error {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	query := `
		INSERT INTO user_preferences (user_id, preferences, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET preferences = EXCLUDED.preferences,
		    updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`

	if err := r.db.QueryRowContext(ctx, query, prefs.UserID, prefsJSON, time.Now()).Scan(&prefs.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}
