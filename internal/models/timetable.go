package models

import (
	"time"

	"github.com/google/uuid"
)

// TimetableEntry is a recurring weekly class or commitment. Entries expand
// into concrete CalendarEvents per occurrence inside the scheduling horizon.
type TimetableEntry struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	CourseName string         `json:"course_name"`
	DaysOfWeek []time.Weekday `json:"days_of_week"`
	StartTime  string         `json:"start_time"` // "15:04" wall clock
	EndTime    string         `json:"end_time"`   // "15:04" wall clock
	Location   string         `json:"location,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Expand generates the concrete occurrences of the entry between from and to.
// Entries with unparseable clock times expand to nothing.
func (e *TimetableEntry) Expand(from, to time.Time) []CalendarEvent {
	start, err := time.Parse("15:04", e.StartTime)
	if err != nil {
		return nil
	}
	end, err := time.Parse("15:04", e.EndTime)
	if err != nil || !end.After(start) {
		return nil
	}

	onDay := make(map[time.Weekday]bool, len(e.DaysOfWeek))
	for _, d := range e.DaysOfWeek {
		onDay[d] = true
	}

	var events []CalendarEvent
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		if !onDay[day.Weekday()] {
			continue
		}
		occStart := time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), 0, 0, from.Location())
		occEnd := time.Date(day.Year(), day.Month(), day.Day(), end.Hour(), end.Minute(), 0, 0, from.Location())
		if occEnd.Before(from) || occStart.After(to) {
			continue
		}
		events = append(events, CalendarEvent{
			ID:    e.ID,
			Title: e.CourseName,
			Start: occStart,
			End:   occEnd,
		})
	}
	return events
}
