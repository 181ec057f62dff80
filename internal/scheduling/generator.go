package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/models"
)

// DefaultHorizonDays bounds how far ahead tasks are placed unless the caller
// asks otherwise.
const DefaultHorizonDays = 7

// slotStep is the granularity of the candidate slot scan.
const slotStep = 30 * time.Minute

// Confidence weights. These are tunable heuristics, not a calibrated model:
// a slot in a productive hour and close to the preferred session length earns
// full marks, while a forced post-deadline placement is capped low.
const (
	confidenceBase          = 0.5
	confidenceProductive    = 0.3
	confidenceDurationFit   = 0.2
	confidenceConflictCap   = 0.3
	durationFitTolerance    = 0.25
)

// GenerateInput carries everything the generator needs. The generator itself
// performs no I/O; fetching is the orchestrator's job.
type GenerateInput struct {
	Tasks       []*models.Task
	Profile     *models.PatternProfile
	Events      []models.CalendarEvent
	Preferences models.Preferences
	HorizonDays int
}

// GenerateResult is a day-ordered set of placements plus suggested
// adjustments and aggregate quality measures.
type GenerateResult struct {
	Placements  []models.Placement
	Adjustments []models.Adjustment
	Metadata    models.ScheduleMetadata
}

// Generator places pending tasks into free time slots. Now is injectable for
// tests; everything else is deterministic over the input.
type Generator struct {
	Now func() time.Time
}

// NewGenerator creates a generator using wall-clock time.
func NewGenerator() *Generator {
	return &Generator{Now: time.Now}
}

// Generate builds a schedule. It never fails: an empty task list yields an
// empty result, and a task with no free slot before its deadline is placed
// after it with a conflict_resolution adjustment rather than dropped.
func (g *Generator) Generate(in GenerateInput) GenerateResult {
	result := GenerateResult{
		Metadata: models.ScheduleMetadata{TotalTasks: len(in.Tasks)},
	}
	if len(in.Tasks) == 0 {
		return result
	}

	horizonDays := in.HorizonDays
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	now := g.Now()
	scanStart := now.Truncate(slotStep).Add(slotStep)
	horizonEnd := scanStart.AddDate(0, 0, horizonDays)

	productive := make(map[int]bool)
	if in.Profile != nil {
		for _, h := range in.Profile.TimePattern.MostProductiveHours {
			productive[h] = true
		}
	}

	tasks := sortForScheduling(in.Tasks)

	// Existing calendar events are hard constraints; placements join the busy
	// set as they are made so tasks never overlap each other either.
	busy := make([]models.CalendarEvent, len(in.Events))
	copy(busy, in.Events)

	var productiveCount int
	var confidenceSum float64

	for _, task := range tasks {
		duration := time.Duration(EffectiveDuration(task)) * time.Minute

		slot, inProductiveHour, afterDue := findSlot(scanStart, horizonEnd, duration, task.DueDate, productive, busy)

		confidence := placementConfidence(in.Profile, slot, duration, inProductiveHour, afterDue)
		placement := models.Placement{
			TaskID:              task.ID,
			Start:               slot,
			End:                 slot.Add(duration),
			Duration:            int(duration / time.Minute),
			Confidence:          confidence,
			Reasoning:           placementReasoning(task, inProductiveHour, afterDue),
			EstimatedDifficulty: EffectiveDifficulty(task),
		}

		if afterDue {
			placement.AdjustmentReason = "no free slot before due date"
			result.Metadata.Conflicts++
			result.Adjustments = append(result.Adjustments, conflictAdjustment(task, slot, confidence))
		} else if !inProductiveHour && len(productive) > 0 {
			result.Adjustments = append(result.Adjustments, productivityAdjustment(task, slot, confidence))
		}

		result.Placements = append(result.Placements, placement)
		busy = append(busy, models.CalendarEvent{ID: task.ID, Title: task.Title, Start: placement.Start, End: placement.End})

		if inProductiveHour {
			productiveCount++
		}
		confidenceSum += confidence
	}

	result.Metadata.ScheduledTasks = len(result.Placements)
	if len(result.Placements) > 0 {
		result.Metadata.Efficiency = float64(productiveCount) / float64(len(result.Placements))
		result.Metadata.Confidence = confidenceSum / float64(len(result.Placements))
	}

	sort.SliceStable(result.Placements, func(i, j int) bool {
		return result.Placements[i].Start.Before(result.Placements[j].Start)
	})

	return result
}

// sortForScheduling orders by due date ascending with nil last, then by
// priority high to low. Ties keep input order.
func sortForScheduling(tasks []*models.Task) []*models.Task {
	out := append([]*models.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return priorityRank(a.Priority) > priorityRank(b.Priority)
	})
	return out
}

func priorityRank(p models.TaskPriority) int {
	switch p {
	case models.TaskPriorityHigh:
		return 3
	case models.TaskPriorityMedium:
		return 2
	case models.TaskPriorityLow:
		return 1
	}
	return 0
}

// findSlot scans candidate start times at slotStep granularity. Preference
// order: a productive-hour slot before the due date, then any free slot
// before the due date, then the earliest free slot regardless of deadline
// (reported as afterDue so the caller records the conflict).
func findSlot(scanStart, horizonEnd time.Time, duration time.Duration, due *time.Time, productive map[int]bool, busy []models.CalendarEvent) (slot time.Time, inProductiveHour, afterDue bool) {
	if len(productive) > 0 {
		for s := scanStart; s.Add(duration).Before(horizonEnd) || s.Add(duration).Equal(horizonEnd); s = s.Add(slotStep) {
			if !productive[s.Hour()] {
				continue
			}
			if due != nil && s.Add(duration).After(*due) {
				break
			}
			if isFree(s, s.Add(duration), busy) {
				return s, true, false
			}
		}
	}

	for s := scanStart; s.Add(duration).Before(horizonEnd) || s.Add(duration).Equal(horizonEnd); s = s.Add(slotStep) {
		if due != nil && s.Add(duration).After(*due) {
			break
		}
		if isFree(s, s.Add(duration), busy) {
			return s, productive[s.Hour()], false
		}
	}

	// Nothing fits before the deadline. Place the task as early as possible,
	// scanning past the horizon if the whole window is booked solid so a
	// placement is always produced.
	limit := horizonEnd.AddDate(0, 0, DefaultHorizonDays)
	for s := scanStart; s.Before(limit); s = s.Add(slotStep) {
		if isFree(s, s.Add(duration), busy) {
			return s, productive[s.Hour()], true
		}
	}
	return lastBusyEnd(busy, scanStart), false, true
}

func isFree(start, end time.Time, busy []models.CalendarEvent) bool {
	for _, e := range busy {
		if start.Before(e.End) && e.Start.Before(end) {
			return false
		}
	}
	return true
}

func lastBusyEnd(busy []models.CalendarEvent, fallback time.Time) time.Time {
	latest := fallback
	for _, e := range busy {
		if e.End.After(latest) {
			latest = e.End
		}
	}
	return latest
}

// placementConfidence scores how well a slot matches the learned pattern.
func placementConfidence(profile *models.PatternProfile, slot time.Time, duration time.Duration, inProductiveHour, afterDue bool) float64 {
	score := confidenceBase
	if inProductiveHour {
		score += confidenceProductive
	}
	if profile != nil && profile.TimePattern.PreferredSessionDuration > 0 {
		preferred := float64(profile.TimePattern.PreferredSessionDuration)
		actual := duration.Minutes()
		if actual >= preferred*(1-durationFitTolerance) && actual <= preferred*(1+durationFitTolerance) {
			score += confidenceDurationFit
		}
	}
	if afterDue && score > confidenceConflictCap {
		score = confidenceConflictCap
	}
	return clamp01(score)
}

func placementReasoning(task *models.Task, inProductiveHour, afterDue bool) string {
	switch {
	case afterDue:
		return fmt.Sprintf("scheduled %q after its due date: no earlier free slot was available", task.Title)
	case inProductiveHour:
		return fmt.Sprintf("scheduled %q in one of your most productive hours", task.Title)
	default:
		return fmt.Sprintf("scheduled %q in the earliest free slot before its due date", task.Title)
	}
}

func conflictAdjustment(task *models.Task, slot time.Time, confidence float64) models.Adjustment {
	return models.Adjustment{
		ID:            uuid.New(),
		TaskID:        task.ID,
		OriginalTime:  task.DueDate,
		SuggestedTime: slot,
		Reason:        "conflict_resolution",
		Confidence:    confidence,
		Priority:      task.Priority,
		Type:          models.AdjustmentConflictResolution,
		Title:         "Deadline conflict",
		Description:   fmt.Sprintf("%q could not fit before its due date; consider moving other commitments or extending the deadline", task.Title),
		Impact:        models.ImpactHigh,
		Effort:        models.ImpactMedium,
	}
}

func productivityAdjustment(task *models.Task, slot time.Time, confidence float64) models.Adjustment {
	return models.Adjustment{
		ID:            uuid.New(),
		TaskID:        task.ID,
		SuggestedTime: slot,
		Reason:        "outside productive hours",
		Confidence:    confidence,
		Priority:      task.Priority,
		Type:          models.AdjustmentProductivityOptimization,
		Title:         "Off-peak placement",
		Description:   fmt.Sprintf("%q landed outside your productive hours; freeing up a peak slot could improve focus", task.Title),
		Impact:        models.ImpactLow,
		Effort:        models.ImpactLow,
	}
}
