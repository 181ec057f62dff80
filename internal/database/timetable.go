package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/studyspark/scheduler-api/internal/models"
)

// TimetableRepository handles recurring weekly timetable entries.
type TimetableRepository struct {
	db *DB
}

// NewTimetableRepository creates a new timetable repository
func NewTimetableRepository(db *DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create creates a new timetable entry
func (r *TimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	query := `
		INSERT INTO timetable_entries (id, user_id, course_name, days_of_week, start_time, end_time, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING created_at, updated_at
	`

	days := make([]int64, len(entry.DaysOfWeek))
	for i, d := range entry.DaysOfWeek {
		days[i] = int64(d)
	}

	err := r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.CourseName,
		pq.Array(days),
		entry.StartTime,
		entry.EndTime,
		entry.Location,
		time.Now(),
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create timetable entry: %w", err)
	}

	return nil
}

// GetByUserID returns all timetable entries for a user.
func (r *TimetableRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.TimetableEntry, error) {
	query := `
		SELECT id, user_id, course_name, days_of_week, start_time, end_time, location, created_at, updated_at
		FROM timetable_entries
		WHERE user_id = $1
		ORDER BY course_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query timetable entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.TimetableEntry
	for rows.Next() {
		entry, err := scanTimetableEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timetable entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timetable entries: %w", err)
	}
	return entries, nil
}

// GetByID retrieves a timetable entry by ID
func (r *TimetableRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TimetableEntry, error) {
	query := `
		SELECT id, user_id, course_name, days_of_week, start_time, end_time, location, created_at, updated_at
		FROM timetable_entries
		WHERE id = $1
	`
	entry, err := scanTimetableEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("timetable entry not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timetable entry: %w", err)
	}
	return entry, nil
}

// Update updates an existing timetable entry
func (r *TimetableRepository) Update(ctx context.Context, entry *models.TimetableEntry) error {
	query := `
		UPDATE timetable_entries
		SET course_name = $2, days_of_week = $3, start_time = $4, end_time = $5, location = $6, updated_at = $7
		WHERE id = $1
		RETURNING updated_at
	`

	days := make([]int64, len(entry.DaysOfWeek))
	for i, d := range entry.DaysOfWeek {
		days[i] = int64(d)
	}

	err := r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.CourseName,
		pq.Array(days),
		entry.StartTime,
		entry.EndTime,
		entry.Location,
		time.Now(),
	).Scan(&entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("timetable entry not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update timetable entry: %w", err)
	}
	return nil
}

// Delete deletes a timetable entry by ID
func (r *TimetableRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete timetable entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("timetable entry not found")
	}
	return nil
}

func scanTimetableEntry(row rowScanner) (*models.TimetableEntry, error) {
	entry := &models.TimetableEntry{}
	var days pq.Int64Array
	var location sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.CourseName,
		&days,
		&entry.StartTime,
		&entry.EndTime,
		&location,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.DaysOfWeek = make([]time.Weekday, len(days))
	for i, d := range days {
		entry.DaysOfWeek[i] = time.Weekday(d)
	}
	entry.Location = location.String
	return entry, nil
}
