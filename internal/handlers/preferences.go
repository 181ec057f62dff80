package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/middleware"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/validation"
)

// PreferencesHandler handles stored study preferences.
type PreferencesHandler struct {
	preferences database.PreferencesRepositoryInterface
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(preferences database.PreferencesRepositoryInterface) *PreferencesHandler {
	return &PreferencesHandler{preferences: preferences}
}

// RegisterRoutes registers preference routes on the given router.
// The router should already have the /preferences prefix.
func (h *PreferencesHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetPreferences).Methods("GET")
	r.HandleFunc("", h.PutPreferences).Methods("PUT")
}

// PreferencesRequest is the body for replacing stored preferences. Omitted
// fields fall back to defaults rather than clearing previous values, so a
// PUT is a full replacement of the stored document.
type PreferencesRequest struct {
	StudyTimePreference     string   `json:"study_time_preference,omitempty" validate:"omitempty,study_time"`
	SessionLengthPreference string   `json:"session_length_preference,omitempty" validate:"omitempty,session_length"`
	DifficultyComfort       int      `json:"difficulty_comfort,omitempty" validate:"omitempty,min=1,max=10"`
	BreakFrequency          string   `json:"break_frequency,omitempty" validate:"omitempty,break_frequency"`
	PreferredSubjects       []string `json:"preferred_subjects,omitempty" validate:"max=50,dive,min=1,max=100"`
	StrugglingSubjects      []string `json:"struggling_subjects,omitempty" validate:"max=50,dive,min=1,max=100"`
	AvailableStudyHours     []int    `json:"available_study_hours,omitempty" validate:"max=24,dive,min=0,max=23"`
}

// GetPreferences returns the stored preferences for the authenticated user,
// falling back to defaults when none have been saved.
func (h *PreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	prefs, err := h.preferences.GetByUserID(r.Context(), user.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve preferences")
			return
		}
		defaults := models.DefaultPreferences()
		defaults.UserID = user.ID
		prefs = &defaults
	}
	respondJSON(w, http.StatusOK, prefs)
}

// PutPreferences replaces the stored preferences for the authenticated user
func (h *PreferencesHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	prefs := models.DefaultPreferences()
	prefs.UserID = user.ID
	override := models.Preferences{
		StudyTimePreference:     models.StudyTimePreference(req.StudyTimePreference),
		SessionLengthPreference: models.SessionLengthPreference(req.SessionLengthPreference),
		DifficultyComfort:       req.DifficultyComfort,
		BreakFrequency:          models.BreakFrequency(req.BreakFrequency),
		PreferredSubjects:       sanitizeSubjects(req.PreferredSubjects),
		StrugglingSubjects:      sanitizeSubjects(req.StrugglingSubjects),
		AvailableHours:          req.AvailableStudyHours,
	}
	prefs = prefs.Merge(override)

	if err := h.preferences.Upsert(r.Context(), &prefs); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

func sanitizeSubjects(subjects []string) []string {
	if len(subjects) == 0 {
		return nil
	}
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if cleaned := validation.SanitizeText(s); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
