package models

import (
	"time"

	"github.com/google/uuid"
)

// StudyTimePreference is a coarse time-of-day band
type StudyTimePreference string

const (
	StudyTimeMorning   StudyTimePreference = "morning"
	StudyTimeAfternoon StudyTimePreference = "afternoon"
	StudyTimeEvening   StudyTimePreference = "evening"
	StudyTimeNight     StudyTimePreference = "night"
)

// SessionLengthPreference is a coarse study-session length
type SessionLengthPreference string

const (
	SessionLengthShort  SessionLengthPreference = "short"
	SessionLengthMedium SessionLengthPreference = "medium"
	SessionLengthLong   SessionLengthPreference = "long"
)

// BreakFrequency is how often a user wants breaks
type BreakFrequency string

const (
	BreakFrequent BreakFrequency = "frequent"
	BreakModerate BreakFrequency = "moderate"
	BreakMinimal  BreakFrequency = "minimal"
)

// Preferences are a user's explicit scheduling preferences. Zero values mean
// "unset"; resolution order is request override > stored settings >
// task-derived inference > defaults.
type Preferences struct {
	UserID                  uuid.UUID               `json:"user_id,omitzero"`
	StudyTimePreference     StudyTimePreference     `json:"study_time_preference,omitempty"`
	SessionLengthPreference SessionLengthPreference `json:"session_length_preference,omitempty"`
	DifficultyComfort       int                     `json:"difficulty_comfort,omitempty"` // 1-10
	BreakFrequency          BreakFrequency          `json:"break_frequency,omitempty"`
	PreferredSubjects       []string                `json:"preferred_subjects,omitempty"`
	StrugglingSubjects      []string                `json:"struggling_subjects,omitempty"`
	StudyGoals              []string                `json:"study_goals,omitempty"`
	AvailableHours          []int                   `json:"available_hours,omitempty"` // hour-of-day
	UpdatedAt               time.Time               `json:"updated_at,omitzero"`
}

// Merge overlays set fields of override onto p, returning the result.
// Slice fields are replaced wholesale when the override provides them.
func (p Preferences) Merge(override Preferences) Preferences {
	out := p
	if override.StudyTimePreference != "" {
		out.StudyTimePreference = override.StudyTimePreference
	}
	if override.SessionLengthPreference != "" {
		out.SessionLengthPreference = override.SessionLengthPreference
	}
	if override.DifficultyComfort != 0 {
		out.DifficultyComfort = override.DifficultyComfort
	}
	if override.BreakFrequency != "" {
		out.BreakFrequency = override.BreakFrequency
	}
	if len(override.PreferredSubjects) > 0 {
		out.PreferredSubjects = override.PreferredSubjects
	}
	if len(override.StrugglingSubjects) > 0 {
		out.StrugglingSubjects = override.StrugglingSubjects
	}
	if len(override.StudyGoals) > 0 {
		out.StudyGoals = override.StudyGoals
	}
	if len(override.AvailableHours) > 0 {
		out.AvailableHours = override.AvailableHours
	}
	return out
}

// DefaultPreferences are the hard fallbacks applied when nothing else is known.
func DefaultPreferences() Preferences {
	return Preferences{
		StudyTimePreference:     StudyTimeAfternoon,
		SessionLengthPreference: SessionLengthMedium,
		DifficultyComfort:       5,
		BreakFrequency:          BreakModerate,
	}
}
