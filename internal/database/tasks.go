package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, title, description, subject, due_date, priority, type,
	completed, completed_at, estimated_duration, time_spent, difficulty,
	reminder_enabled, recurrence_rule, created_at, updated_at`

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, subject, due_date, priority, type,
			completed, estimated_duration, difficulty, reminder_enabled, recurrence_rule,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Subject,
		task.DueDate,
		task.Priority,
		task.Type,
		task.Completed,
		task.EstimatedDuration,
		task.Difficulty,
		task.ReminderEnabled,
		task.RecurrenceRule,
		time.Now(),
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetPendingByUserID returns incomplete tasks for a user ordered by due date
// ascending with null due dates last.
func (r *TaskRepository) GetPendingByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND completed = FALSE
		ORDER BY due_date ASC NULLS LAST, created_at ASC
	`
	return r.queryTasks(ctx, query, userID)
}

// GetRecentHistory returns the most recent limit tasks for a user, completed
// or not, ordered by update time descending. The scheduler's pattern analysis
// consumes this as its history sample.
func (r *TaskRepository) GetRecentHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`
	return r.queryTasks(ctx, query, userID, limit)
}

// GetCompletedSince returns tasks completed after the given time, oldest first.
func (r *TaskRepository) GetCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND completed = TRUE AND completed_at > $2
		ORDER BY completed_at ASC
	`
	return r.queryTasks(ctx, query, userID, since)
}

// GetByUserIDPaginated retrieves tasks for a user with optional filters and pagination
func (r *TaskRepository) GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, priority *models.TaskPriority, completed *bool, page, pageSize int) ([]*models.Task, int, error) {
	where := "WHERE user_id = $1"
	args := []any{userID}
	argIndex := 2

	if priority != nil {
		where += fmt.Sprintf(" AND priority = $%d", argIndex)
		args = append(args, string(*priority))
		argIndex++
	}
	if completed != nil {
		where += fmt.Sprintf(" AND completed = $%d", argIndex)
		args = append(args, *completed)
		argIndex++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM tasks " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT "+taskColumns+" FROM tasks %s ORDER BY due_date ASC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d",
		where, argIndex, argIndex+1,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	tasks, err := r.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, subject = $4, due_date = $5, priority = $6,
		    type = $7, completed = $8, completed_at = $9, estimated_duration = $10,
		    time_spent = $11, difficulty = $12, reminder_enabled = $13,
		    recurrence_rule = $14, updated_at = $15
		WHERE id = $1
		RETURNING updated_at
	`

	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *task.CompletedAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Subject,
		task.DueDate,
		task.Priority,
		task.Type,
		task.Completed,
		completedAt,
		task.EstimatedDuration,
		task.TimeSpent,
		task.Difficulty,
		task.ReminderEnabled,
		task.RecurrenceRule,
		time.Now(),
	).Scan(&task.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Delete deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var description, subject, recurrence sql.NullString
	var dueDate, completedAt sql.NullTime
	var estimated, timeSpent, difficulty sql.NullInt64

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&subject,
		&dueDate,
		&task.Priority,
		&task.Type,
		&task.Completed,
		&completedAt,
		&estimated,
		&timeSpent,
		&difficulty,
		&task.ReminderEnabled,
		&recurrence,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.Subject = subject.String
	task.RecurrenceRule = recurrence.String
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	task.EstimatedDuration = int(estimated.Int64)
	task.TimeSpent = int(timeSpent.Int64)
	task.Difficulty = int(difficulty.Int64)

	return task, nil
}
