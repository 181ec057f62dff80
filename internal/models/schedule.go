package models

import (
	"time"

	"github.com/google/uuid"
)

// AdjustmentType classifies a generator-emitted suggestion
type AdjustmentType string

const (
	AdjustmentTimeOptimization         AdjustmentType = "time_optimization"
	AdjustmentConflictResolution       AdjustmentType = "conflict_resolution"
	AdjustmentDifficultyAdjustment     AdjustmentType = "difficulty_adjustment"
	AdjustmentProductivityOptimization AdjustmentType = "productivity_optimization"
)

// ImpactLevel grades the impact or effort of an adjustment
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// Placement binds a task to a concrete time window.
// Invariant: End > Start and Duration == End-Start in minutes.
type Placement struct {
	TaskID              uuid.UUID `json:"task_id"`
	Start               time.Time `json:"scheduled_start"`
	End                 time.Time `json:"scheduled_end"`
	Duration            int       `json:"duration"`   // minutes
	Confidence          float64   `json:"confidence"` // [0,1]
	Reasoning           string    `json:"reasoning"`
	AdjustmentReason    string    `json:"adjustment_reason,omitempty"`
	EstimatedDifficulty int       `json:"estimated_difficulty,omitempty"`
}

// Adjustment is a suggested change to a placement or a conflict record.
type Adjustment struct {
	ID            uuid.UUID      `json:"id"`
	TaskID        uuid.UUID      `json:"task_id"`
	OriginalTime  *time.Time     `json:"original_time,omitempty"`
	SuggestedTime time.Time      `json:"suggested_time"`
	Reason        string         `json:"reason"`
	Confidence    float64        `json:"confidence"`
	Priority      TaskPriority   `json:"priority"`
	Type          AdjustmentType `json:"type"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Impact        ImpactLevel    `json:"impact"`
	Effort        ImpactLevel    `json:"effort"`
}

// ScheduleMetadata carries aggregate quality measures for a generated schedule.
type ScheduleMetadata struct {
	TotalTasks     int     `json:"total_tasks"`
	ScheduledTasks int     `json:"scheduled_tasks"`
	Conflicts      int     `json:"conflicts"`
	Efficiency     float64 `json:"efficiency"` // productive-hour placements / total
	Confidence     float64 `json:"confidence"` // mean per-placement confidence
}

// Schedule is a persisted generation result for one user.
type Schedule struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	Placements  []Placement      `json:"placements"`
	Adjustments []Adjustment     `json:"adjustments"`
	Metadata    ScheduleMetadata `json:"metadata"`
	HorizonDays int              `json:"horizon_days"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CalendarEvent is an externally fixed time block the generator must not overlap.
type CalendarEvent struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
