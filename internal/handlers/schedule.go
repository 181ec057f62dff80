package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/middleware"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/scheduling"
	"github.com/studyspark/scheduler-api/internal/services/ai"
	"github.com/studyspark/scheduler-api/internal/validation"
	"go.uber.org/zap"
)

const (
	// HistoryLimit caps the completed-task sample loaded for pattern analysis.
	HistoryLimit = 100
	// PatternMaxAge is how old a stored profile may be before regeneration.
	PatternMaxAge = 7 * 24 * time.Hour
	// MaxHorizonDays bounds the caller-supplied scheduling horizon.
	MaxHorizonDays = 30
	// HistoryWindowDays is the trailing window returned by include_history.
	HistoryWindowDays = 30
)

// ScheduleHandler orchestrates schedule generation: it loads the user's
// tasks, history, timetable and preferences, refreshes the pattern profile
// when stale, runs the generator and persists the result.
type ScheduleHandler struct {
	tasks     database.TaskRepositoryInterface
	patterns  database.PatternRepositoryInterface
	schedules database.ScheduleRepositoryInterface
	timetable database.TimetableRepositoryInterface
	prefs     database.PreferencesRepositoryInterface
	analyzer  *scheduling.Analyzer
	generator *scheduling.Generator
	advisor   *ai.Advisor
	logger    *zap.Logger
}

// ScheduleHandlerOption configures optional collaborators.
type ScheduleHandlerOption func(*ScheduleHandler)

// WithScheduleAdvisor wires the optional LLM study-advice service.
func WithScheduleAdvisor(advisor *ai.Advisor) ScheduleHandlerOption {
	return func(h *ScheduleHandler) { h.advisor = advisor }
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(
	tasks database.TaskRepositoryInterface,
	patterns database.PatternRepositoryInterface,
	schedules database.ScheduleRepositoryInterface,
	timetable database.TimetableRepositoryInterface,
	prefs database.PreferencesRepositoryInterface,
	logger *zap.Logger,
	opts ...ScheduleHandlerOption,
) *ScheduleHandler {
	h := &ScheduleHandler{
		tasks:     tasks,
		patterns:  patterns,
		schedules: schedules,
		timetable: timetable,
		prefs:     prefs,
		analyzer:  scheduling.NewAnalyzer(),
		generator: scheduling.NewGenerator(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers schedule routes on the given router.
// The router should already have the /schedule prefix.
func (h *ScheduleHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate", h.GenerateSchedule).Methods("POST")
	r.HandleFunc("", h.GetSchedule).Methods("GET")
}

// GenerateScheduleRequest is the POST body. Everything is optional; an empty
// body generates with stored preferences over the default horizon.
type GenerateScheduleRequest struct {
	Preferences    *models.Preferences    `json:"preferences,omitempty"`
	CalendarEvents []models.CalendarEvent `json:"calendar_events,omitempty"`
	HorizonDays    int                    `json:"horizon_days,omitempty" validate:"omitempty,min=1,max=30"`
	ForceRefresh   bool                   `json:"force_refresh,omitempty"`
}

// ScheduleResponse is returned by both the generate and read endpoints.
type ScheduleResponse struct {
	Schedule    *models.Schedule   `json:"schedule"`
	Adjustments []models.Adjustment `json:"adjustments"`
	Metadata    ScheduleResponseMeta `json:"metadata"`
	Advice      string             `json:"advice,omitempty"`
	History     []*models.Schedule `json:"history,omitempty"`
}

// ScheduleResponseMeta reports aggregate quality plus pattern provenance.
type ScheduleResponseMeta struct {
	models.ScheduleMetadata
	DataQuality      float64   `json:"data_quality"`
	PatternFreshness time.Time `json:"pattern_freshness"`
	PatternRefreshed bool      `json:"pattern_refreshed"`
}

// GenerateSchedule runs one full analyze-then-generate-then-persist cycle.
func (h *ScheduleHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req GenerateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
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

	ctx := r.Context()
	horizonDays := req.HorizonDays
	if horizonDays <= 0 {
		horizonDays = scheduling.DefaultHorizonDays
	}

	// The pending task list is the primary input; without it there is nothing
	// to schedule and the request fails.
	pending, err := h.tasks.GetPendingByUserID(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed_to_load_pending_tasks",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load tasks")
		return
	}

	// Secondary inputs degrade to defaults rather than failing the request.
	history, err := h.tasks.GetRecentHistory(ctx, user.ID, HistoryLimit)
	if err != nil {
		h.logger.Warn("failed_to_load_task_history_using_empty",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		history = nil
	}

	entries, err := h.timetable.GetByUserID(ctx, user.ID)
	if err != nil {
		h.logger.Warn("failed_to_load_timetable_using_empty",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		entries = nil
	}

	prefs := h.resolvePreferences(ctx, user.ID, history, req.Preferences)

	profile, refreshed := h.resolveProfile(ctx, user.ID, prefs, history, req.ForceRefresh)

	now := h.generator.Now()
	events := append([]models.CalendarEvent(nil), req.CalendarEvents...)
	for _, entry := range entries {
		events = append(events, entry.Expand(now, now.AddDate(0, 0, horizonDays))...)
	}

	result := h.generator.Generate(scheduling.GenerateInput{
		Tasks:       pending,
		Profile:     profile,
		Events:      events,
		Preferences: prefs,
		HorizonDays: horizonDays,
	})

	schedule := &models.Schedule{
		ID:          uuid.New(),
		UserID:      user.ID,
		Placements:  result.Placements,
		Adjustments: result.Adjustments,
		Metadata:    result.Metadata,
		HorizonDays: horizonDays,
		CreatedAt:   now,
	}

	// The computed schedule is returned even when it could not be saved.
	if err := h.schedules.Save(ctx, schedule); err != nil {
		h.logger.Error("failed_to_save_schedule",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}

	resp := ScheduleResponse{
		Schedule:    schedule,
		Adjustments: result.Adjustments,
		Metadata: ScheduleResponseMeta{
			ScheduleMetadata: result.Metadata,
			DataQuality:      profile.DataQuality,
			PatternFreshness: profile.LastAnalyzedAt,
			PatternRefreshed: refreshed,
		},
	}

	if h.advisor != nil {
		advice, err := h.advisor.StudyTips(ctx, schedule, profile)
		if err != nil {
			h.logger.Warn("failed_to_generate_study_advice",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		} else {
			resp.Advice = advice
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetSchedule returns the current saved schedule. ?include_history=true adds
// the trailing window of prior generations.
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	schedule, err := h.schedules.GetCurrent(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "No schedule has been generated yet")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load schedule")
		return
	}

	resp := ScheduleResponse{
		Schedule:    schedule,
		Adjustments: schedule.Adjustments,
		Metadata:    ScheduleResponseMeta{ScheduleMetadata: schedule.Metadata},
	}

	if r.URL.Query().Get("include_history") == "true" {
		history, err := h.schedules.GetHistory(ctx, user.ID, HistoryWindowDays)
		if err != nil {
			h.logger.Warn("failed_to_load_schedule_history",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		} else {
			resp.History = history
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// resolvePreferences layers preference sources by precedence: hard defaults,
// then task-derived inference, then stored settings, then the request
// override.
func (h *ScheduleHandler) resolvePreferences(ctx context.Context, userID uuid.UUID, history []*models.Task, override *models.Preferences) models.Preferences {
	prefs := models.DefaultPreferences().Merge(scheduling.InferPreferences(history))

	stored, err := h.prefs.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			h.logger.Warn("failed_to_load_preferences_using_defaults",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	} else {
		prefs = prefs.Merge(*stored)
	}

	if override != nil {
		prefs = prefs.Merge(*override)
	}
	prefs.UserID = userID
	return prefs
}

// resolveProfile reuses the stored pattern profile unless it is absent, a
// refresh was forced, or it is older than PatternMaxAge. Recomputed profiles
// are persisted best-effort.
func (h *ScheduleHandler) resolveProfile(ctx context.Context, userID uuid.UUID, prefs models.Preferences, history []*models.Task, force bool) (*models.PatternProfile, bool) {
	stored, err := h.patterns.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		h.logger.Warn("failed_to_load_pattern_profile_recomputing",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	if stored != nil && !force && !stored.IsStale(h.analyzer.Now(), PatternMaxAge) {
		return stored, false
	}

	profile := h.analyzer.Analyze(prefs, history)
	profile.UserID = userID
	profile.MergePrior(stored)

	if err := h.patterns.Upsert(ctx, profile); err != nil {
		h.logger.Error("failed_to_save_pattern_profile",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
	return profile, true
}
