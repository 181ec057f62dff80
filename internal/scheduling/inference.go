package scheduling

import (
	"github.com/studyspark/scheduler-api/internal/models"
)

// InferPreferences derives coarse preferences from completed-task history for
// users who never stated any. It sits between hard defaults and stored
// settings in the resolution order, so anything the user actually said wins.
// Below the learning threshold it returns the zero value, which merges as a
// no-op.
func InferPreferences(history []*models.Task) models.Preferences {
	completed := completedTasks(history)
	if len(completed) < minHistoryForLearning {
		return models.Preferences{}
	}

	var byBand [4]int // morning, afternoon, evening, night
	for _, t := range completed {
		switch h := t.CompletedAt.Hour(); {
		case h >= 5 && h < 12:
			byBand[0]++
		case h >= 12 && h < 17:
			byBand[1]++
		case h >= 17 && h < 22:
			byBand[2]++
		default:
			byBand[3]++
		}
	}
	best := 0
	for i, count := range byBand {
		if count > byBand[best] {
			best = i
		}
	}
	bands := []models.StudyTimePreference{
		models.StudyTimeMorning,
		models.StudyTimeAfternoon,
		models.StudyTimeEvening,
		models.StudyTimeNight,
	}

	var session models.SessionLengthPreference
	switch d := meanSessionDuration(completed); {
	case d == 0:
	case d <= 35:
		session = models.SessionLengthShort
	case d <= 55:
		session = models.SessionLengthMedium
	default:
		session = models.SessionLengthLong
	}

	return models.Preferences{
		StudyTimePreference:     bands[best],
		SessionLengthPreference: session,
	}
}
