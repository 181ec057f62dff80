package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/middleware"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/queue"
	"github.com/studyspark/scheduler-api/internal/validation"
	"go.uber.org/zap"
)

const (
	// MaxTaskTitleLength is the maximum length for a task title
	MaxTaskTitleLength = 500
	// MaxTaskDescriptionLength is the maximum length for a task description
	MaxTaskDescriptionLength = 10000
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 100
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 500

	// refreshDebounce delays pattern-refresh jobs so a burst of completions
	// produces one analysis run rather than one per task.
	refreshDebounce = 30 * time.Second
)

// TaskHandler handles task CRUD and completion.
type TaskHandler struct {
	tasks    database.TaskRepositoryInterface
	jobQueue queue.JobQueue
	logger   *zap.Logger
}

// TaskHandlerOption configures optional collaborators.
type TaskHandlerOption func(*TaskHandler)

// WithTaskJobQueue wires the queue used to enqueue pattern-refresh jobs on
// task completion.
func WithTaskJobQueue(q queue.JobQueue) TaskHandlerOption {
	return func(h *TaskHandler) { h.jobQueue = q }
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskRepositoryInterface, logger *zap.Logger, opts ...TaskHandlerOption) *TaskHandler {
	h := &TaskHandler{tasks: tasks, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers task routes on the given router.
// The router should already have the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title             string              `json:"title" validate:"required,min=1,max=500"`
	Description       string              `json:"description,omitempty" validate:"max=10000"`
	Subject           string              `json:"subject,omitempty" validate:"max=200"`
	DueDate           *time.Time          `json:"due_date,omitempty"`
	Priority          models.TaskPriority `json:"priority,omitempty" validate:"omitempty,task_priority"`
	Type              models.TaskType     `json:"type,omitempty" validate:"omitempty,task_type"`
	EstimatedDuration int                 `json:"estimated_duration,omitempty" validate:"omitempty,min=1,max=1440"`
	Difficulty        int                 `json:"difficulty,omitempty" validate:"omitempty,min=1,max=10"`
	ReminderEnabled   bool                `json:"reminder_enabled,omitempty"`
	RecurrenceRule    string              `json:"recurrence_rule,omitempty" validate:"max=200"`
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title             *string              `json:"title,omitempty"`
	Description       *string              `json:"description,omitempty"`
	Subject           *string              `json:"subject,omitempty"`
	DueDate           *time.Time           `json:"due_date,omitempty"`
	Priority          *models.TaskPriority `json:"priority,omitempty"`
	Type              *models.TaskType     `json:"type,omitempty"`
	EstimatedDuration *int                 `json:"estimated_duration,omitempty"`
	Difficulty        *int                 `json:"difficulty,omitempty"`
	ReminderEnabled   *bool                `json:"reminder_enabled,omitempty"`
	RecurrenceRule    *string              `json:"recurrence_rule,omitempty"`
}

// CompleteTaskRequest records how long the task actually took.
type CompleteTaskRequest struct {
	TimeSpent  int `json:"time_spent,omitempty" validate:"omitempty,min=1,max=1440"`
	Difficulty int `json:"difficulty,omitempty" validate:"omitempty,min=1,max=10"`
}

// ListTasksResponse represents the paginated response for listing tasks
type ListTasksResponse struct {
	Tasks      []*models.Task `json:"tasks"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// ListTasks lists tasks for the authenticated user with pagination
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	pageSize := DefaultPageSize
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = min(parsed, MaxPageSize)
		}
	}

	var priority *models.TaskPriority
	if p := r.URL.Query().Get("priority"); p != "" {
		if err := validation.ValidateTaskPriority(p); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		pEnum := models.TaskPriority(p)
		priority = &pEnum
	}

	var completed *bool
	if c := r.URL.Query().Get("completed"); c != "" {
		parsed, err := strconv.ParseBool(c)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid completed filter")
			return
		}
		completed = &parsed
	}

	tasks, total, err := h.tasks.GetByUserIDPaginated(r.Context(), user.ID, priority, completed, page, pageSize)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks:      tasks,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	task := &models.Task{
		ID:                uuid.New(),
		UserID:            user.ID,
		Title:             req.Title,
		Description:       validation.SanitizeText(req.Description),
		Subject:           validation.SanitizeText(req.Subject),
		DueDate:           req.DueDate,
		Priority:          req.Priority,
		Type:              req.Type,
		EstimatedDuration: req.EstimatedDuration,
		Difficulty:        req.Difficulty,
		ReminderEnabled:   req.ReminderEnabled,
		RecurrenceRule:    req.RecurrenceRule,
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.Type == "" {
		task.Type = models.TaskTypeAcademic
	}

	if err := h.tasks.Create(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	_, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update to an existing task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	_, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.Title != nil {
		sanitized := validation.SanitizeText(*req.Title)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		if len(sanitized) > MaxTaskTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTaskTitleLength))
			return
		}
		task.Title = sanitized
	}
	if req.Description != nil {
		sanitized := validation.SanitizeText(*req.Description)
		if len(sanitized) > MaxTaskDescriptionLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Description exceeds maximum length of %d characters", MaxTaskDescriptionLength))
			return
		}
		task.Description = sanitized
	}
	if req.Subject != nil {
		task.Subject = validation.SanitizeText(*req.Subject)
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Priority != nil {
		if err := validation.ValidateTaskPriority(string(*req.Priority)); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Priority = *req.Priority
	}
	if req.Type != nil {
		if err := validation.ValidateTaskType(string(*req.Type)); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Type = *req.Type
	}
	if req.EstimatedDuration != nil {
		if *req.EstimatedDuration < 1 || *req.EstimatedDuration > 1440 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Estimated duration must be between 1 and 1440 minutes")
			return
		}
		task.EstimatedDuration = *req.EstimatedDuration
	}
	if req.Difficulty != nil {
		if *req.Difficulty < 1 || *req.Difficulty > 10 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Difficulty must be between 1 and 10")
			return
		}
		task.Difficulty = *req.Difficulty
	}
	if req.ReminderEnabled != nil {
		task.ReminderEnabled = *req.ReminderEnabled
	}
	if req.RecurrenceRule != nil {
		task.RecurrenceRule = *req.RecurrenceRule
	}

	if err := h.tasks.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	_, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), task.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"id": task.ID.String()})
}

// CompleteTask marks a task completed, records actuals, and enqueues a
// debounced pattern-refresh job so the profile learns from the completion.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user, task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		if err := validation.Validate.Struct(req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid completion details")
			return
		}
	}

	if task.Completed {
		respondJSON(w, http.StatusOK, task)
		return
	}

	now := time.Now()
	task.Completed = true
	task.CompletedAt = &now
	if req.TimeSpent > 0 {
		task.TimeSpent = req.TimeSpent
	}
	if req.Difficulty > 0 {
		task.Difficulty = req.Difficulty
	}

	if err := h.tasks.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete task")
		return
	}

	if h.jobQueue != nil {
		job := queue.NewJob(queue.JobTypePatternRefresh, user.ID, nil)
		notBefore := now.Add(refreshDebounce)
		job.NotBefore = &notBefore
		if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
			h.logger.Warn("failed_to_enqueue_pattern_refresh_job",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
	}

	respondJSON(w, http.StatusOK, task)
}

// loadOwnedTask resolves the path ID and enforces ownership.
func (h *TaskHandler) loadOwnedTask(w http.ResponseWriter, r *http.Request) (*models.User, *models.Task, bool) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return nil, nil, false
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return nil, nil, false
	}
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return nil, nil, false
	}
	return user, task, true
}
