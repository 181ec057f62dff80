package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskPriority represents how urgent a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskType distinguishes coursework from everything else
type TaskType string

const (
	TaskTypeAcademic TaskType = "academic"
	TaskTypePersonal TaskType = "personal"
)

// Task represents a unit of work a student must complete.
// The scheduling core treats tasks as read-only input; derived fields
// (estimated duration, difficulty) are computed when absent.
type Task struct {
	ID                uuid.UUID    `json:"id"`
	UserID            uuid.UUID    `json:"user_id"`
	Title             string       `json:"title"`
	Description       string       `json:"description,omitempty"`
	Subject           string       `json:"subject,omitempty"`
	DueDate           *time.Time   `json:"due_date,omitempty"`
	Priority          TaskPriority `json:"priority"`
	Type              TaskType     `json:"type"`
	Completed         bool         `json:"completed"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
	EstimatedDuration int          `json:"estimated_duration,omitempty"` // minutes
	TimeSpent         int          `json:"time_spent,omitempty"`         // minutes, recorded on completion
	Difficulty        int          `json:"difficulty,omitempty"`         // 1-10, 0 = unknown
	ReminderEnabled   bool         `json:"reminder_enabled"`
	RecurrenceRule    string       `json:"recurrence_rule,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
