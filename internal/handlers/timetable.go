package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/middleware"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/validation"
)

// TimetableHandler handles recurring weekly timetable entries.
type TimetableHandler struct {
	timetable database.TimetableRepositoryInterface
}

// NewTimetableHandler creates a new timetable handler
func NewTimetableHandler(timetable database.TimetableRepositoryInterface) *TimetableHandler {
	return &TimetableHandler{timetable: timetable}
}

// RegisterRoutes registers timetable routes on the given router.
// The router should already have the /timetable prefix.
func (h *TimetableHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListEntries).Methods("GET")
	r.HandleFunc("", h.CreateEntry).Methods("POST")
	r.HandleFunc("/{id}", h.UpdateEntry).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteEntry).Methods("DELETE")
}

// TimetableEntryRequest is the create/update body for a timetable entry.
type TimetableEntryRequest struct {
	CourseName string `json:"course_name" validate:"required,min=1,max=200"`
	DaysOfWeek []int  `json:"days_of_week" validate:"required,min=1,max=7,dive,min=0,max=6"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	Location   string `json:"location,omitempty" validate:"max=200"`
}

func (req *TimetableEntryRequest) clockTimes() error {
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start_time: must be HH:MM")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end_time: must be HH:MM")
	}
	if !end.After(start) {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}

// ListEntries returns all timetable entries for the authenticated user
func (h *TimetableHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	entries, err := h.timetable.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve timetable")
		return
	}
	if entries == nil {
		entries = []*models.TimetableEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// CreateEntry creates a new timetable entry
func (h *TimetableHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	req, ok := decodeEntryRequest(w, r)
	if !ok {
		return
	}

	entry := &models.TimetableEntry{
		ID:         uuid.New(),
		UserID:     user.ID,
		CourseName: validation.SanitizeText(req.CourseName),
		DaysOfWeek: toWeekdays(req.DaysOfWeek),
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Location:   validation.SanitizeText(req.Location),
	}

	if err := h.timetable.Create(r.Context(), entry); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create timetable entry")
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// UpdateEntry replaces an existing timetable entry's fields
func (h *TimetableHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid entry ID")
		return
	}

	entry, err := h.timetable.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Timetable entry not found")
		return
	}
	if entry.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Timetable entry does not belong to user")
		return
	}

	req, ok := decodeEntryRequest(w, r)
	if !ok {
		return
	}

	entry.CourseName = validation.SanitizeText(req.CourseName)
	entry.DaysOfWeek = toWeekdays(req.DaysOfWeek)
	entry.StartTime = req.StartTime
	entry.EndTime = req.EndTime
	entry.Location = validation.SanitizeText(req.Location)

	if err := h.timetable.Update(r.Context(), entry); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update timetable entry")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// DeleteEntry deletes a timetable entry
func (h *TimetableHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid entry ID")
		return
	}

	entry, err := h.timetable.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Timetable entry not found")
		return
	}
	if entry.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Timetable entry does not belong to user")
		return
	}

	if err := h.timetable.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete timetable entry")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func decodeEntryRequest(w http.ResponseWriter, r *http.Request) (*TimetableEntryRequest, bool) {
	var req TimetableEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return nil, false
	}
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return nil, false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return nil, false
	}
	if err := req.clockTimes(); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return nil, false
	}
	return &req, true
}

func toWeekdays(days []int) []time.Weekday {
	out := make([]time.Weekday, len(days))
	for i, d := range days {
		out[i] = time.Weekday(d)
	}
	return out
}
