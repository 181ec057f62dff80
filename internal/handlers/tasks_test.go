package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/studyspark/scheduler-api/internal/models"
	"github.com/studyspark/scheduler-api/internal/queue"
	"go.uber.org/zap"
)

func taskRouter(h *TaskHandler) *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router.PathPrefix("/api/v1/tasks").Subrouter())
	return router
}

func TestListTasks_Pagination(t *testing.T) {
	t.Parallel()

	user := testUser()
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
	}{
		{name: "defaults", query: "", wantPage: 1, wantPageSize: DefaultPageSize},
		{name: "explicit page and size", query: "?page=3&page_size=25", wantPage: 3, wantPageSize: 25},
		{name: "page size capped", query: "?page_size=9999", wantPage: 1, wantPageSize: MaxPageSize},
		{name: "invalid page ignored", query: "?page=-2", wantPage: 1, wantPageSize: DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotPage, gotPageSize int
			h := NewTaskHandler(&mockTaskRepo{
				getByUserIDPaginatedFunc: func(ctx context.Context, userID uuid.UUID, priority *models.TaskPriority, completed *bool, page, pageSize int) ([]*models.Task, int, error) {
					gotPage, gotPageSize = page, pageSize
					return nil, 0, nil
				},
			}, zap.NewNop())

			rr := httptest.NewRecorder()
			taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodGet, "/api/v1/tasks"+tt.query, ""))

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", rr.Code)
			}
			if gotPage != tt.wantPage || gotPageSize != tt.wantPageSize {
				t.Errorf("Expected page %d size %d, got page %d size %d", tt.wantPage, tt.wantPageSize, gotPage, gotPageSize)
			}
		})
	}
}

func TestListTasks_Filters(t *testing.T) {
	t.Parallel()

	user := testUser()
	var gotPriority *models.TaskPriority
	var gotCompleted *bool
	h := NewTaskHandler(&mockTaskRepo{
		getByUserIDPaginatedFunc: func(ctx context.Context, userID uuid.UUID, priority *models.TaskPriority, completed *bool, page, pageSize int) ([]*models.Task, int, error) {
			gotPriority, gotCompleted = priority, completed
			return nil, 0, nil
		},
	}, zap.NewNop())

	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodGet, "/api/v1/tasks?priority=high&completed=false", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if gotPriority == nil || *gotPriority != models.TaskPriorityHigh {
		t.Errorf("Expected priority filter high, got %v", gotPriority)
	}
	if gotCompleted == nil || *gotCompleted != false {
		t.Errorf("Expected completed filter false, got %v", gotCompleted)
	}
}

func TestListTasks_InvalidPriorityFilter(t *testing.T) {
	t.Parallel()

	h := NewTaskHandler(&mockTaskRepo{}, zap.NewNop())
	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(testUser(), http.MethodGet, "/api/v1/tasks?priority=urgent", ""))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid priority, got %d", rr.Code)
	}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	user := testUser()
	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(*testing.T, *models.Task)
	}{
		{
			name:       "fills defaults",
			body:       `{"title":"Finish lab report"}`,
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, task *models.Task) {
				if task.Priority != models.TaskPriorityMedium {
					t.Errorf("Expected default priority medium, got %s", task.Priority)
				}
				if task.Type != models.TaskTypeAcademic {
					t.Errorf("Expected default type academic, got %s", task.Type)
				}
				if task.UserID != user.ID {
					t.Error("Expected task owned by the requesting user")
				}
			},
		},
		{
			name:       "sanitizes text fields",
			body:       "{\"title\":\"  Essay draft\\u0000  \",\"subject\":\"History \"}",
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, task *models.Task) {
				if task.Title != "Essay draft" {
					t.Errorf("Expected sanitized title, got %q", task.Title)
				}
				if task.Subject != "History" {
					t.Errorf("Expected trimmed subject, got %q", task.Subject)
				}
			},
		},
		{
			name:       "whitespace-only title rejected",
			body:       `{"title":"   "}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing title rejected",
			body:       `{"description":"no title"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid priority rejected",
			body:       `{"title":"x","priority":"urgent"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "difficulty out of range rejected",
			body:       `{"title":"x","difficulty":11}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json rejected",
			body:       `{"title":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var created *models.Task
			h := NewTaskHandler(&mockTaskRepo{
				createFunc: func(ctx context.Context, task *models.Task) error {
					created = task
					return nil
				},
			}, zap.NewNop())

			rr := httptest.NewRecorder()
			taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodPost, "/api/v1/tasks", tt.body))

			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus == http.StatusCreated {
				if created == nil {
					t.Fatal("Expected task to be created")
				}
				if tt.check != nil {
					tt.check(t, created)
				}
			} else if created != nil {
				t.Error("Expected no task to be created on rejection")
			}
		})
	}
}

func TestGetTask_Ownership(t *testing.T) {
	t.Parallel()

	user := testUser()
	otherTask := &models.Task{ID: uuid.New(), UserID: uuid.New(), Title: "not yours"}
	h := NewTaskHandler(&mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			return otherTask, nil
		},
	}, zap.NewNop())

	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodGet, "/api/v1/tasks/"+otherTask.ID.String(), ""))

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for another user's task, got %d", rr.Code)
	}
}

func TestGetTask_InvalidID(t *testing.T) {
	t.Parallel()

	h := NewTaskHandler(&mockTaskRepo{}, zap.NewNop())
	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(testUser(), http.MethodGet, "/api/v1/tasks/not-a-uuid", ""))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed ID, got %d", rr.Code)
	}
}

func TestUpdateTask_PartialUpdate(t *testing.T) {
	t.Parallel()

	user := testUser()
	existing := &models.Task{
		ID:          uuid.New(),
		UserID:      user.ID,
		Title:       "Original title",
		Description: "Original description",
		Subject:     "math",
		Priority:    models.TaskPriorityMedium,
		Type:        models.TaskTypeAcademic,
	}

	var updated *models.Task
	h := NewTaskHandler(&mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			copy := *existing
			return &copy, nil
		},
		updateFunc: func(ctx context.Context, task *models.Task) error {
			updated = task
			return nil
		},
	}, zap.NewNop())

	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodPatch, "/api/v1/tasks/"+existing.ID.String(), `{"priority":"high","difficulty":8}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if updated == nil {
		t.Fatal("Expected update to be persisted")
	}
	if updated.Priority != models.TaskPriorityHigh {
		t.Errorf("Expected priority high, got %s", updated.Priority)
	}
	if updated.Difficulty != 8 {
		t.Errorf("Expected difficulty 8, got %d", updated.Difficulty)
	}
	if updated.Title != existing.Title || updated.Description != existing.Description {
		t.Error("Expected unset fields to remain unchanged")
	}
}

func TestUpdateTask_InvalidFields(t *testing.T) {
	t.Parallel()

	user := testUser()
	existing := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "t"}
	tests := []struct {
		name string
		body string
	}{
		{name: "empty title after sanitization", body: `{"title":"   "}`},
		{name: "invalid priority", body: `{"priority":"urgent"}`},
		{name: "invalid type", body: `{"type":"chore"}`},
		{name: "difficulty out of range", body: `{"difficulty":0}`},
		{name: "duration out of range", body: `{"estimated_duration":2000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewTaskHandler(&mockTaskRepo{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
					copy := *existing
					return &copy, nil
				},
				updateFunc: func(ctx context.Context, task *models.Task) error {
					t.Error("Expected no update on invalid input")
					return nil
				},
			}, zap.NewNop())

			rr := httptest.NewRecorder()
			taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodPatch, "/api/v1/tasks/"+existing.ID.String(), tt.body))

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	user := testUser()
	existing := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "t"}
	deleted := false
	h := NewTaskHandler(&mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			return existing, nil
		},
		deleteFunc: func(ctx context.Context, id uuid.UUID) error {
			if id != existing.ID {
				t.Errorf("Expected delete of %s, got %s", existing.ID, id)
			}
			deleted = true
			return nil
		},
	}, zap.NewNop())

	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodDelete, "/api/v1/tasks/"+existing.ID.String(), ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !deleted {
		t.Error("Expected task to be deleted")
	}
}

func TestCompleteTask_EnqueuesDebouncedRefresh(t *testing.T) {
	t.Parallel()

	user := testUser()
	existing := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "t", Difficulty: 5}

	var updatedTask *models.Task
	var enqueued *queue.Job
	before := time.Now()
	h := NewTaskHandler(&mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			copy := *existing
			return &copy, nil
		},
		updateFunc: func(ctx context.Context, task *models.Task) error {
			updatedTask = task
			return nil
		},
	}, zap.NewNop(), WithTaskJobQueue(&mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			enqueued = job
			return nil
		},
	}))

	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/complete", existing.ID), `{"time_spent":50,"difficulty":7}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if updatedTask == nil {
		t.Fatal("Expected task to be updated")
	}
	if !updatedTask.Completed || updatedTask.CompletedAt == nil {
		t.Error("Expected task marked completed with a timestamp")
	}
	if updatedTask.TimeSpent != 50 {
		t.Errorf("Expected time spent 50, got %d", updatedTask.TimeSpent)
	}
	if updatedTask.Difficulty != 7 {
		t.Errorf("Expected recorded difficulty 7, got %d", updatedTask.Difficulty)
	}

	if enqueued == nil {
		t.Fatal("Expected a pattern refresh job to be enqueued")
	}
	if enqueued.Type != queue.JobTypePatternRefresh {
		t.Errorf("Expected job type %s, got %s", queue.JobTypePatternRefresh, enqueued.Type)
	}
	if enqueued.UserID != user.ID {
		t.Errorf("Expected job for user %s, got %s", user.ID, enqueued.UserID)
	}
	if enqueued.NotBefore == nil {
		t.Fatal("Expected job to carry a debounce delay")
	}
	delay := enqueued.NotBefore.Sub(before)
	if delay < 29*time.Second || delay > 31*time.Second {
		t.Errorf("Expected roughly 30s debounce, got %s", delay)
	}
}

func TestCompleteTask_AlreadyCompletedIsIdempotent(t *testing.T) {
	t.Parallel()

	user := testUser()
	done := time.Now().Add(-time.Hour)
	existing := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "t", Completed: true, CompletedAt: &done}

	h := NewTaskHandler(&mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			copy := *existing
			return &copy, nil
		},
		updateFunc: func(ctx context.Context, task *models.Task) error {
			t.Error("Expected no update for an already completed task")
			return nil
		},
	}, zap.NewNop(), WithTaskJobQueue(&mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			t.Error("Expected no job for an already completed task")
			return nil
		},
	}))

	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/complete", existing.ID), ""))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200 for repeated completion, got %d", rr.Code)
	}
}

func TestCompleteTask_EnqueueFailureNonFatal(t *testing.T) {
	t.Parallel()

	user := testUser()
	existing := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "t"}
	h := NewTaskHandler(&mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Task, error) {
			copy := *existing
			return &copy, nil
		},
	}, zap.NewNop(), WithTaskJobQueue(&mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			return context.DeadlineExceeded
		},
	}))

	rr := httptest.NewRecorder()
	taskRouter(h).ServeHTTP(rr, authedRequest(user, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/complete", existing.ID), ""))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200 despite enqueue failure, got %d", rr.Code)
	}
}
