package scheduling

import (
	"strings"
	"testing"

	"github.com/studyspark/scheduler-api/internal/models"
)

func TestEffectiveDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task *models.Task
		want int
	}{
		{
			name: "time spent wins",
			task: &models.Task{TimeSpent: 50, EstimatedDuration: 90},
			want: 50,
		},
		{
			name: "estimate when no time spent",
			task: &models.Task{EstimatedDuration: 90},
			want: 90,
		},
		{
			name: "heuristic fallback",
			task: &models.Task{Priority: models.TaskPriorityMedium},
			want: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EffectiveDuration(tt.task); got != tt.want {
				t.Errorf("EffectiveDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateDuration(t *testing.T) {
	t.Parallel()

	longDesc := strings.Repeat("x", 201)

	tests := []struct {
		name string
		task *models.Task
		want int
	}{
		{
			name: "base",
			task: &models.Task{},
			want: 60,
		},
		{
			name: "high priority",
			task: &models.Task{Priority: models.TaskPriorityHigh},
			want: 90,
		},
		{
			name: "low priority",
			task: &models.Task{Priority: models.TaskPriorityLow},
			want: 45,
		},
		{
			name: "academic",
			task: &models.Task{Type: models.TaskTypeAcademic},
			want: 72,
		},
		{
			name: "personal",
			task: &models.Task{Type: models.TaskTypePersonal},
			want: 48,
		},
		{
			name: "high priority academic with long description",
			task: &models.Task{Priority: models.TaskPriorityHigh, Type: models.TaskTypeAcademic, Description: longDesc},
			want: 140, // 60 * 1.5 * 1.2 * 1.3
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EstimateDuration(tt.task); got != tt.want {
				t.Errorf("EstimateDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEffectiveDifficulty(t *testing.T) {
	t.Parallel()

	longDesc := strings.Repeat("x", 201)

	tests := []struct {
		name string
		task *models.Task
		want int
	}{
		{
			name: "recorded difficulty wins",
			task: &models.Task{Difficulty: 8, Priority: models.TaskPriorityLow},
			want: 8,
		},
		{
			name: "base",
			task: &models.Task{},
			want: 5,
		},
		{
			name: "high priority academic long description",
			task: &models.Task{Priority: models.TaskPriorityHigh, Type: models.TaskTypeAcademic, Description: longDesc},
			want: 9,
		},
		{
			name: "low priority personal",
			task: &models.Task{Priority: models.TaskPriorityLow, Type: models.TaskTypePersonal},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EffectiveDifficulty(tt.task); got != tt.want {
				t.Errorf("EffectiveDifficulty() = %d, want %d", got, tt.want)
			}
		})
	}
}
