package scheduling

import (
	"math"
	"sort"
	"time"

	"github.com/studyspark/scheduler-api/internal/models"
)

// AnalysisVersion tags persisted profiles with the analyzer revision that
// produced them.
const AnalysisVersion = "2.1"

// Thresholds below which a learning step stays on preference-derived defaults.
// Small samples produce noisy signals, so refinements only activate once
// enough completions exist.
const (
	minHistoryForLearning   = 10
	minTasksForIncremental  = 5
	minGroupForAdaptation   = 3
	minTasksForConsistency  = 7
	trendWindow             = 20
	maxProductiveHours      = 5
)

// Analyzer converts stated preferences plus task history into a PatternProfile.
// It is a pure function over its inputs apart from Now, which stamps
// LastAnalyzedAt and is injectable for tests.
type Analyzer struct {
	Now func() time.Time
}

// NewAnalyzer creates an analyzer using wall-clock time.
func NewAnalyzer() *Analyzer {
	return &Analyzer{Now: time.Now}
}

// Analyze builds a best-effort profile. An empty history degrades gracefully
// to preference-only inference; it never fails.
func (a *Analyzer) Analyze(prefs models.Preferences, history []*models.Task) *models.PatternProfile {
	profile := &models.PatternProfile{
		TimePattern:       seedTimePattern(prefs),
		DifficultyProfile: seedDifficultyProfile(prefs),
		SubjectInsights:   seedSubjectInsights(prefs),
		AnalysisVersion:   AnalysisVersion,
		DataSources:       []string{"preferences"},
		LastAnalyzedAt:    a.Now(),
	}

	completed := completedTasks(history)
	profile.TotalTasksAnalyzed = len(completed)
	profile.DataQuality = clamp01(0.2 + float64(len(completed))/25.0)

	if len(completed) >= minHistoryForLearning {
		profile.DataSources = append(profile.DataSources, "task_history")
		a.learn(profile, history, completed)
	}

	return profile
}

// Learn incrementally refines an existing profile with newly completed tasks.
// It activates at minTasksForIncremental completions so the profile is not
// whipsawed by one or two data points; below that the profile is returned
// unchanged.
func (a *Analyzer) Learn(profile *models.PatternProfile, newlyCompleted []*models.Task) *models.PatternProfile {
	completed := completedTasks(newlyCompleted)
	if len(completed) < minTasksForIncremental {
		return profile
	}

	out := *profile
	out.TimePattern.MostProductiveHours = blendHours(
		profile.TimePattern.MostProductiveHours, learnProductiveHours(completed))
	if d := meanSessionDuration(completed); d > 0 {
		// Weighted toward the established value so online refinement converges
		// rather than oscillating.
		out.TimePattern.PreferredSessionDuration =
			(profile.TimePattern.PreferredSessionDuration*3 + d) / 4
	}
	out.DifficultyProfile.Trend = difficultyTrend(completed)
	out.TotalTasksAnalyzed = profile.TotalTasksAnalyzed + len(completed)
	out.DataQuality = clamp01(0.2 + float64(out.TotalTasksAnalyzed)/25.0)
	out.LastAnalyzedAt = a.Now()
	return &out
}

// learn runs the history-derived refinements on top of the seeded profile.
// history carries both complete and incomplete tasks so per-subject completion
// rates are meaningful; completed is the filtered subset.
func (a *Analyzer) learn(profile *models.PatternProfile, history, completed []*models.Task) {
	profile.TimePattern.MostProductiveHours = blendHours(
		profile.TimePattern.MostProductiveHours, learnProductiveHours(completed))

	if d := meanSessionDuration(completed); d > 0 {
		profile.TimePattern.PreferredSessionDuration = d
	}

	profile.DifficultyProfile.Trend = difficultyTrend(completed)
	profile.DifficultyProfile.AverageDifficulty = meanDifficulty(completed)
	profile.DifficultyProfile.AdaptationRate = adaptationRate(completed)

	learnSubjects(&profile.SubjectInsights, &profile.DifficultyProfile, history)

	if len(completed) >= minTasksForConsistency {
		score, peakDays := consistency(completed)
		profile.TimePattern.ConsistencyScore = score
		profile.TimePattern.PeakPerformanceDays = peakDays
	}
}

// seedTimePattern maps stated preferences onto concrete defaults.
func seedTimePattern(prefs models.Preferences) models.TimePattern {
	var hours []int
	switch prefs.StudyTimePreference {
	case models.StudyTimeMorning:
		hours = []int{9, 10, 11}
	case models.StudyTimeAfternoon:
		hours = []int{14, 15, 16}
	case models.StudyTimeEvening:
		hours = []int{19, 20, 21}
	case models.StudyTimeNight:
		hours = []int{22, 23, 0}
	default:
		hours = []int{14, 15, 16}
	}

	session := 45
	switch prefs.SessionLengthPreference {
	case models.SessionLengthShort:
		session = 30
	case models.SessionLengthLong:
		session = 60
	}

	breakDur := 10
	switch prefs.BreakFrequency {
	case models.BreakFrequent:
		breakDur = 5
	case models.BreakMinimal:
		breakDur = 15
	}

	return models.TimePattern{
		MostProductiveHours:      hours,
		PreferredSessionDuration: session,
		AverageBreakDuration:     breakDur,
		ConsistencyScore:         0.5,
	}
}

func seedDifficultyProfile(prefs models.Preferences) models.DifficultyProfile {
	avg := 5.0
	if prefs.DifficultyComfort > 0 {
		avg = float64(prefs.DifficultyComfort)
	}
	bySubject := make(map[string]float64)
	for _, s := range prefs.PreferredSubjects {
		bySubject[s] = 3
	}
	for _, s := range prefs.StrugglingSubjects {
		bySubject[s] = 7
	}
	return models.DifficultyProfile{
		AverageDifficulty: avg,
		Trend:             models.DifficultyTrendStable,
		SubjectDifficulty: bySubject,
		AdaptationRate:    0.5,
	}
}

func seedSubjectInsights(prefs models.Preferences) models.SubjectInsights {
	return models.SubjectInsights{
		PreferredSubjects:  append([]string(nil), prefs.PreferredSubjects...),
		StrugglingSubjects: append([]string(nil), prefs.StrugglingSubjects...),
		Performance:        make(map[string]models.SubjectPerformance),
	}
}

// learnProductiveHours ranks completion hours by efficiency (difficulty per
// hour spent), takes the top 4, and unions them with the top 4 by raw
// completion count.
func learnProductiveHours(completed []*models.Task) []int {
	type hourStats struct {
		hour       int
		count      int
		difficulty float64
		minutes    float64
	}
	stats := make(map[int]*hourStats)
	for _, t := range completed {
		h := t.CompletedAt.Hour()
		s, ok := stats[h]
		if !ok {
			s = &hourStats{hour: h}
			stats[h] = s
		}
		s.count++
		s.difficulty += float64(EffectiveDifficulty(t))
		s.minutes += float64(EffectiveDuration(t))
	}

	all := make([]*hourStats, 0, len(stats))
	for _, s := range stats {
		all = append(all, s)
	}

	efficiency := func(s *hourStats) float64 {
		avgHours := s.minutes / float64(s.count) / 60.0
		if avgHours <= 0 {
			return 0
		}
		return (s.difficulty / float64(s.count)) / avgHours
	}

	byEfficiency := append([]*hourStats(nil), all...)
	sort.SliceStable(byEfficiency, func(i, j int) bool {
		ei, ej := efficiency(byEfficiency[i]), efficiency(byEfficiency[j])
		if ei != ej {
			return ei > ej
		}
		return byEfficiency[i].hour < byEfficiency[j].hour
	})

	byCount := append([]*hourStats(nil), all...)
	sort.SliceStable(byCount, func(i, j int) bool {
		if byCount[i].count != byCount[j].count {
			return byCount[i].count > byCount[j].count
		}
		return byCount[i].hour < byCount[j].hour
	})

	var hours []int
	for i := 0; i < len(byEfficiency) && i < 4; i++ {
		hours = appendHour(hours, byEfficiency[i].hour)
	}
	for i := 0; i < len(byCount) && i < 4; i++ {
		hours = appendHour(hours, byCount[i].hour)
	}
	return hours
}

// blendHours unions learned hours into the seeded set, capped at
// maxProductiveHours, so learned data augments rather than replaces stated
// preference.
func blendHours(seeded, learned []int) []int {
	out := append([]int(nil), seeded...)
	for _, h := range learned {
		if len(out) >= maxProductiveHours {
			break
		}
		out = appendHour(out, h)
	}
	if len(out) > maxProductiveHours {
		out = out[:maxProductiveHours]
	}
	return out
}

func appendHour(hours []int, h int) []int {
	if h < 0 || h > 23 {
		return hours
	}
	for _, existing := range hours {
		if existing == h {
			return hours
		}
	}
	return append(hours, h)
}

func meanSessionDuration(completed []*models.Task) int {
	if len(completed) == 0 {
		return 0
	}
	var total float64
	for _, t := range completed {
		total += float64(EffectiveDuration(t))
	}
	return int(math.Round(total / float64(len(completed))))
}

func meanDifficulty(completed []*models.Task) float64 {
	if len(completed) == 0 {
		return 5
	}
	var total float64
	for _, t := range completed {
		total += float64(EffectiveDifficulty(t))
	}
	return total / float64(len(completed))
}

// difficultyTrend compares the mean difficulty of the 10 most recent
// completions against the 10 before them. A gap of at least 0.5 either way
// marks the trend; anything strictly inside the band is stable.
func difficultyTrend(completed []*models.Task) models.DifficultyTrend {
	recentFirst := append([]*models.Task(nil), completed...)
	sort.SliceStable(recentFirst, func(i, j int) bool {
		return recentFirst[i].CompletedAt.After(*recentFirst[j].CompletedAt)
	})
	if len(recentFirst) > trendWindow {
		recentFirst = recentFirst[:trendWindow]
	}
	half := len(recentFirst) / 2
	if half == 0 {
		return models.DifficultyTrendStable
	}
	recent, older := recentFirst[:half], recentFirst[half:]

	diff := meanDifficulty(recent) - meanDifficulty(older)
	switch {
	case diff >= 0.5:
		return models.DifficultyTrendIncreasing
	case diff <= -0.5:
		return models.DifficultyTrendDecreasing
	default:
		return models.DifficultyTrendStable
	}
}

// adaptationRate measures how much faster a user gets within each difficulty
// level: tasks are grouped by difficulty, each group split chronologically,
// and the relative speedup from the first half to the second averaged across
// groups with at least minGroupForAdaptation members.
func adaptationRate(completed []*models.Task) float64 {
	groups := make(map[int][]*models.Task)
	for _, t := range completed {
		groups[EffectiveDifficulty(t)] = append(groups[EffectiveDifficulty(t)], t)
	}

	var total float64
	var qualifying int
	for _, group := range groups {
		if len(group) < minGroupForAdaptation {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CompletedAt.Before(*group[j].CompletedAt)
		})
		half := len(group) / 2
		early := meanMinutes(group[:half])
		later := meanMinutes(group[half:])
		if early <= 0 {
			continue
		}
		total += math.Max(0, (early-later)/early)
		qualifying++
	}
	if qualifying == 0 {
		return 0.5
	}
	return clamp01(total / float64(qualifying))
}

func meanMinutes(tasks []*models.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var total float64
	for _, t := range tasks {
		total += float64(EffectiveDuration(t))
	}
	return total / float64(len(tasks))
}

// learnSubjects computes per-subject completion rate, time spent and a
// composite performance score, then unions poor performers into struggling
// and strong performers into preferred. Known lists are never shrunk.
func learnSubjects(insights *models.SubjectInsights, diff *models.DifficultyProfile, history []*models.Task) {
	type subjectStats struct {
		total      int
		completed  int
		minutes    float64
		difficulty float64
	}
	stats := make(map[string]*subjectStats)
	for _, t := range history {
		if t.Subject == "" {
			continue
		}
		s, ok := stats[t.Subject]
		if !ok {
			s = &subjectStats{}
			stats[t.Subject] = s
		}
		s.total++
		if t.Completed {
			s.completed++
			s.minutes += float64(EffectiveDuration(t))
			s.difficulty += float64(EffectiveDifficulty(t))
		}
	}

	subjects := make([]string, 0, len(stats))
	for name := range stats {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)

	for _, name := range subjects {
		s := stats[name]
		completionRate := float64(s.completed) / float64(s.total)

		// Efficiency is difficulty earned per minute spent; roughly 0.08 for
		// an average task, which centers the 0.05/0.1 thresholds below.
		var efficiency float64
		if s.completed > 0 {
			avgMinutes := s.minutes / float64(s.completed)
			avgDifficulty := s.difficulty / float64(s.completed)
			if avgMinutes > 0 {
				efficiency = avgDifficulty / avgMinutes
			}
			diff.SubjectDifficulty[name] = avgDifficulty
		}

		perf := models.SubjectPerformance{
			CompletionRate: clamp01(completionRate),
			Score:          clamp01(0.7*completionRate + 0.3*(efficiency/10)),
		}
		if s.completed > 0 {
			perf.AverageTimeSpent = s.minutes / float64(s.completed)
		}
		insights.Performance[name] = perf

		switch {
		case completionRate < 0.7 || efficiency < 0.05:
			insights.StrugglingSubjects = appendSubject(insights.StrugglingSubjects, name)
		case completionRate > 0.9 && efficiency > 0.1:
			insights.PreferredSubjects = appendSubject(insights.PreferredSubjects, name)
		}
	}
}

func appendSubject(subjects []string, s string) []string {
	for _, existing := range subjects {
		if existing == s {
			return subjects
		}
	}
	return append(subjects, s)
}

// consistency scores how evenly completions spread across weekdays: the
// variance of per-day counts is normalized against the mean, so an even
// distribution approaches 1. The three busiest weekdays become peak days.
func consistency(completed []*models.Task) (float64, []int) {
	var counts [7]float64
	for _, t := range completed {
		counts[int(t.CompletedAt.Weekday())]++
	}

	var mean float64
	for _, c := range counts {
		mean += c
	}
	mean /= 7

	var variance float64
	for _, c := range counts {
		variance += (c - mean) * (c - mean)
	}
	variance /= 7

	score := clamp01(math.Max(0, 1-variance/(mean+1)))

	days := []int{0, 1, 2, 3, 4, 5, 6}
	sort.SliceStable(days, func(i, j int) bool {
		if counts[days[i]] != counts[days[j]] {
			return counts[days[i]] > counts[days[j]]
		}
		return days[i] < days[j]
	})
	peak := append([]int(nil), days[:3]...)
	sort.Ints(peak)
	return score, peak
}

// completedTasks filters history down to tasks with a completion timestamp.
func completedTasks(history []*models.Task) []*models.Task {
	var out []*models.Task
	for _, t := range history {
		if t.Completed && t.CompletedAt != nil {
			out = append(out, t)
		}
	}
	return out
}
