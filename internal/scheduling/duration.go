package scheduling

import (
	"math"

	"github.com/studyspark/scheduler-api/internal/models"
)

// EffectiveDuration resolves a task's working duration in minutes through the
// single fallback chain used everywhere duration is needed: recorded time
// spent, then the stored estimate, then a heuristic estimate.
func EffectiveDuration(t *models.Task) int {
	if t.TimeSpent > 0 {
		return t.TimeSpent
	}
	if t.EstimatedDuration > 0 {
		return t.EstimatedDuration
	}
	return EstimateDuration(t)
}

// EstimateDuration derives a duration in minutes for tasks that lack one.
func EstimateDuration(t *models.Task) int {
	d := 60.0
	switch t.Priority {
	case models.TaskPriorityHigh:
		d *= 1.5
	case models.TaskPriorityLow:
		d *= 0.75
	}
	switch t.Type {
	case models.TaskTypeAcademic:
		d *= 1.2
	case models.TaskTypePersonal:
		d *= 0.8
	}
	if len(t.Description) > 200 {
		d *= 1.3
	}
	return int(math.Round(d))
}

// EffectiveDifficulty returns the recorded difficulty, or estimates one on
// the 1-10 scale from priority, type and description length.
func EffectiveDifficulty(t *models.Task) int {
	if t.Difficulty > 0 {
		return t.Difficulty
	}
	d := 5
	switch t.Priority {
	case models.TaskPriorityHigh:
		d += 2
	case models.TaskPriorityLow:
		d -= 2
	}
	if t.Type == models.TaskTypeAcademic {
		d++
	}
	if len(t.Description) > 200 {
		d++
	}
	if d < 1 {
		d = 1
	}
	if d > 10 {
		d = 10
	}
	return d
}

// clamp01 bounds score and ratio fields to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
