package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/studyspark/scheduler-api/internal/models"
	"go.uber.org/zap"
)

// Advisor turns a generated schedule and learning profile into a short piece
// of study advice via an AI provider.
type Advisor struct {
	provider AIProvider
	logger   *zap.Logger
}

// NewAdvisor creates a new advisor backed by the given provider
func NewAdvisor(provider AIProvider, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{provider: provider, logger: logger}
}

// StudyTips asks the provider for advice on the given schedule. The schedule
// and profile are summarised into a compact prompt; task titles and other
// free text never leave the service.
func (a *Advisor) StudyTips(ctx context.Context, schedule *models.Schedule, profile *models.PatternProfile) (string, error) {
	if a.provider == nil {
		return "", fmt.Errorf("no AI provider configured")
	}

	prompt := buildAdvicePrompt(schedule, profile)
	advice, err := a.provider.StudyAdvice(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("study advice request failed: %w", err)
	}
	return strings.TrimSpace(advice), nil
}

// buildAdvicePrompt summarises the schedule and profile without leaking task
// content to the provider.
func buildAdvicePrompt(schedule *models.Schedule, profile *models.PatternProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Schedule: %d of %d tasks placed over %d days, %d conflicts, average confidence %.2f, efficiency %.2f.\n",
		schedule.Metadata.ScheduledTasks,
		schedule.Metadata.TotalTasks,
		schedule.HorizonDays,
		schedule.Metadata.Conflicts,
		schedule.Metadata.Confidence,
		schedule.Metadata.Efficiency,
	)

	if profile != nil {
		hours := append([]int(nil), profile.TimePattern.MostProductiveHours...)
		sort.Ints(hours)
		fmt.Fprintf(&b, "Student profile: most productive at hours %v, preferred session length %d minutes, consistency %.2f, difficulty trend %s.\n",
			hours,
			profile.TimePattern.PreferredSessionDuration,
			profile.TimePattern.ConsistencyScore,
			profile.DifficultyProfile.Trend,
		)
		if len(profile.SubjectInsights.StrugglingSubjects) > 0 {
			fmt.Fprintf(&b, "Struggling subjects: %s.\n", strings.Join(profile.SubjectInsights.StrugglingSubjects, ", "))
		}
		fmt.Fprintf(&b, "Profile data quality: %.2f (based on %d analyzed tasks).\n",
			profile.DataQuality, profile.TotalTasksAnalyzed)
	}

	b.WriteString("Give the student advice on following this plan.")
	return b.String()
}
