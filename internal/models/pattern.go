package models

import (
	"time"

	"github.com/google/uuid"
)

// DifficultyTrend describes how a user's task difficulty is evolving
type DifficultyTrend string

const (
	DifficultyTrendIncreasing DifficultyTrend = "increasing"
	DifficultyTrendDecreasing DifficultyTrend = "decreasing"
	DifficultyTrendStable     DifficultyTrend = "stable"
)

// TimePattern captures when and how long a user studies best.
// Hours are hour-of-day integers in [0,23].
type TimePattern struct {
	MostProductiveHours      []int   `json:"most_productive_hours"`
	PreferredSessionDuration int     `json:"preferred_session_duration"` // minutes
	AverageBreakDuration     int     `json:"average_break_duration"`     // minutes
	PeakPerformanceDays      []int   `json:"peak_performance_days"`      // time.Weekday values
	ConsistencyScore         float64 `json:"consistency_score"`          // [0,1]
}

// DifficultyProfile captures a user's comfort with task difficulty.
type DifficultyProfile struct {
	AverageDifficulty float64            `json:"average_difficulty"` // 1-10
	Trend             DifficultyTrend    `json:"trend"`
	SubjectDifficulty map[string]float64 `json:"subject_difficulty"`
	AdaptationRate    float64            `json:"adaptation_rate"` // [0,1]
}

// SubjectPerformance summarises historical performance in one subject.
type SubjectPerformance struct {
	CompletionRate   float64   `json:"completion_rate"`    // [0,1]
	AverageTimeSpent float64   `json:"average_time_spent"` // minutes
	Score            float64   `json:"score"`              // [0,1] composite
	Difficulty       []float64 `json:"difficulty_progression,omitempty"`
}

// SubjectInsights lists the subjects a user does well or poorly in.
type SubjectInsights struct {
	PreferredSubjects  []string                      `json:"preferred_subjects"`
	StrugglingSubjects []string                      `json:"struggling_subjects"`
	Performance        map[string]SubjectPerformance `json:"performance"`
}

// PatternProfile is the per-user derived summary of study behavior.
// It is recomputed when stale and merged with prior values on save.
type PatternProfile struct {
	UserID             uuid.UUID         `json:"user_id"`
	TimePattern        TimePattern       `json:"time_pattern"`
	DifficultyProfile  DifficultyProfile `json:"difficulty_profile"`
	SubjectInsights    SubjectInsights   `json:"subject_insights"`
	TotalTasksAnalyzed int               `json:"total_tasks_analyzed"`
	DataQuality        float64           `json:"data_quality"` // [0,1]
	AnalysisVersion    string            `json:"analysis_version,omitempty"`
	DataSources        []string          `json:"data_sources,omitempty"`
	LastAnalyzedAt     time.Time         `json:"last_analyzed_at"`
}

// IsStale reports whether the profile is older than maxAge relative to now.
func (p *PatternProfile) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(p.LastAnalyzedAt) > maxAge
}

// MergePrior folds knowledge from a previously stored profile into a freshly
// recomputed one. Recomputation samples recent history only, so subject
// knowledge outside the sample window would otherwise be dropped on upsert.
// Fresh values win on conflict; prior entries are kept only where the fresh
// profile has nothing for that subject or field.
func (p *PatternProfile) MergePrior(prior *PatternProfile) {
	if prior == nil {
		return
	}

	known := make(map[string]bool, len(p.SubjectInsights.PreferredSubjects)+len(p.SubjectInsights.StrugglingSubjects))
	for _, s := range p.SubjectInsights.PreferredSubjects {
		known[s] = true
	}
	for _, s := range p.SubjectInsights.StrugglingSubjects {
		known[s] = true
	}
	for _, s := range prior.SubjectInsights.PreferredSubjects {
		if !known[s] {
			known[s] = true
			p.SubjectInsights.PreferredSubjects = append(p.SubjectInsights.PreferredSubjects, s)
		}
	}
	for _, s := range prior.SubjectInsights.StrugglingSubjects {
		if !known[s] {
			known[s] = true
			p.SubjectInsights.StrugglingSubjects = append(p.SubjectInsights.StrugglingSubjects, s)
		}
	}

	for subject, perf := range prior.SubjectInsights.Performance {
		if _, seen := p.SubjectInsights.Performance[subject]; seen {
			continue
		}
		if p.SubjectInsights.Performance == nil {
			p.SubjectInsights.Performance = make(map[string]SubjectPerformance)
		}
		p.SubjectInsights.Performance[subject] = perf
	}

	for subject, difficulty := range prior.DifficultyProfile.SubjectDifficulty {
		if _, seen := p.DifficultyProfile.SubjectDifficulty[subject]; seen {
			continue
		}
		if p.DifficultyProfile.SubjectDifficulty == nil {
			p.DifficultyProfile.SubjectDifficulty = make(map[string]float64)
		}
		p.DifficultyProfile.SubjectDifficulty[subject] = difficulty
	}

	if len(p.TimePattern.PeakPerformanceDays) == 0 {
		p.TimePattern.PeakPerformanceDays = prior.TimePattern.PeakPerformanceDays
	}
	if p.TotalTasksAnalyzed < prior.TotalTasksAnalyzed {
		p.TotalTasksAnalyzed = prior.TotalTasksAnalyzed
	}
}
