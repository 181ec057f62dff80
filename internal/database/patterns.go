package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/studyspark/scheduler-api/internal/models"
)

// PatternRepository persists per-user behavioral pattern profiles.
// The profile body is stored as a JSONB blob; last_analyzed_at and the
// provenance columns are first-class so staleness checks stay cheap.
type PatternRepository struct {
	db *DB
}

// NewPatternRepository creates a new pattern repository
func NewPatternRepository(db *DB) *PatternRepository {
	return &PatternRepository{db: db}
}

// GetByUserID retrieves the stored pattern profile for a user.
// Callers distinguish "not found" via errors.Is(err, sql.ErrNoRows).
func (r *PatternRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.PatternProfile, error) {
	query := `
		SELECT user_id, profile, analysis_version, data_sources, last_analyzed_at
		FROM pattern_profiles
		WHERE user_id = $1
	`

	profile := &models.PatternProfile{}
	var profileJSON []byte
	var dataSources pq.StringArray

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profileJSON,
		&profile.AnalysisVersion,
		&dataSources,
		&profile.LastAnalyzedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pattern profile not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern profile: %w", err)
	}

	if err := json.Unmarshal(profileJSON, profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pattern profile: %w", err)
	}
	profile.UserID = userID
	profile.DataSources = dataSources

	return profile, nil
}

// Upsert writes the profile for a user, overwriting the blob but recording
// provenance and the analysis timestamp.
func (r *PatternRepository) Upsert(ctx context.Context, profile *models.PatternProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern profile: %w", err)
	}

	query := `
		INSERT INTO pattern_profiles (user_id, profile, analysis_version, data_sources, last_analyzed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET profile = EXCLUDED.profile,
		    analysis_version = EXCLUDED.analysis_version,
		    data_sources = EXCLUDED.data_sources,
		    last_analyzed_at = EXCLUDED.last_analyzed_at,
		    updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		profile.UserID,
		profileJSON,
		profile.AnalysisVersion,
		pq.Array(profile.DataSources),
		profile.LastAnalyzedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pattern profile: %w", err)
	}

	return nil
}

// GetStaleUserIDs returns users whose profile is older than maxAge and who
// have interacted with the API since then. The worker's cron sweep refreshes
// these.
func (r *PatternRepository) GetStaleUserIDs(ctx context.Context, maxAge time.Duration) ([]uuid.UUID, error) {
	query := `
		SELECT p.user_id
		FROM pattern_profiles p
		JOIN user_activity a ON a.user_id = p.user_id
		WHERE p.last_analyzed_at < $1
		  AND a.last_api_interaction > p.last_analyzed_at
		  AND a.refresh_paused = FALSE
	`

	rows, err := r.db.QueryContext(ctx, query, time.Now().Add(-maxAge))
	if err != nil {
		return nil, fmt.Errorf("failed to query stale profiles: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale profiles: %w", err)
	}
	return ids, nil
}
