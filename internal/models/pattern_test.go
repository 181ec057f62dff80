package models

import (
	"testing"
	"time"
)

func TestPatternProfileIsStale(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	maxAge := 7 * 24 * time.Hour

	fresh := &PatternProfile{LastAnalyzedAt: now.Add(-time.Hour)}
	if fresh.IsStale(now, maxAge) {
		t.Error("Expected hour-old profile to be fresh")
	}

	stale := &PatternProfile{LastAnalyzedAt: now.Add(-maxAge - time.Minute)}
	if !stale.IsStale(now, maxAge) {
		t.Error("Expected week-old profile to be stale")
	}
}

func TestPatternProfileMergePrior(t *testing.T) {
	t.Parallel()

	fresh := &PatternProfile{
		TimePattern: TimePattern{
			MostProductiveHours: []int{9, 10, 11},
		},
		DifficultyProfile: DifficultyProfile{
			SubjectDifficulty: map[string]float64{"math": 6},
		},
		SubjectInsights: SubjectInsights{
			PreferredSubjects: []string{"math"},
			Performance: map[string]SubjectPerformance{
				"math": {Score: 0.9},
			},
		},
		TotalTasksAnalyzed: 12,
	}
	prior := &PatternProfile{
		TimePattern: TimePattern{
			PeakPerformanceDays: []int{int(time.Tuesday)},
		},
		DifficultyProfile: DifficultyProfile{
			SubjectDifficulty: map[string]float64{"math": 4, "history": 7},
		},
		SubjectInsights: SubjectInsights{
			PreferredSubjects:  []string{"chemistry"},
			StrugglingSubjects: []string{"history", "math"},
			Performance: map[string]SubjectPerformance{
				"math":    {Score: 0.4},
				"history": {Score: 0.3},
			},
		},
		TotalTasksAnalyzed: 40,
	}

	fresh.MergePrior(prior)

	// Subjects learned before but absent from the recent sample survive.
	if !containsString(fresh.SubjectInsights.PreferredSubjects, "chemistry") {
		t.Error("Expected prior preferred subject chemistry to be kept")
	}
	if !containsString(fresh.SubjectInsights.StrugglingSubjects, "history") {
		t.Error("Expected prior struggling subject history to be kept")
	}
	// Fresh knowledge wins on conflict: math is preferred now, not struggling.
	if containsString(fresh.SubjectInsights.StrugglingSubjects, "math") {
		t.Error("Expected fresh classification of math to win over the prior one")
	}
	if fresh.SubjectInsights.Performance["math"].Score != 0.9 {
		t.Errorf("Expected fresh math performance to win, got %f", fresh.SubjectInsights.Performance["math"].Score)
	}
	if fresh.SubjectInsights.Performance["history"].Score != 0.3 {
		t.Error("Expected prior history performance to be kept")
	}
	if fresh.DifficultyProfile.SubjectDifficulty["math"] != 6 {
		t.Error("Expected fresh math difficulty to win")
	}
	if fresh.DifficultyProfile.SubjectDifficulty["history"] != 7 {
		t.Error("Expected prior history difficulty to be kept")
	}
	if len(fresh.TimePattern.PeakPerformanceDays) != 1 || fresh.TimePattern.PeakPerformanceDays[0] != int(time.Tuesday) {
		t.Error("Expected prior peak days to fill in when recomputation found none")
	}
	if fresh.TotalTasksAnalyzed != 40 {
		t.Errorf("Expected analyzed-task count to never shrink, got %d", fresh.TotalTasksAnalyzed)
	}
}

func TestPatternProfileMergePriorNil(t *testing.T) {
	t.Parallel()

	fresh := &PatternProfile{TotalTasksAnalyzed: 5}
	fresh.MergePrior(nil)
	if fresh.TotalTasksAnalyzed != 5 {
		t.Error("Expected merging a nil prior to be a no-op")
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
