package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/models"
)

type mockActivityRepo struct {
	touched []uuid.UUID
}

var _ database.UserActivityRepositoryInterface = (*mockActivityRepo)(nil)

func (m *mockActivityRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserActivity, error) {
	return nil, nil
}

func (m *mockActivityRepo) Touch(ctx context.Context, userID uuid.UUID) error {
	m.touched = append(m.touched, userID)
	return nil
}

func (m *mockActivityRepo) PauseInactive(ctx context.Context, idleFor time.Duration) (int64, error) {
	return 0, nil
}

func fakeAuth(user *models.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(SetUserInContext(r.Context(), user)))
		})
	}
}

// Activity tracking must be registered after auth on the protected
// subrouter. The inactivity sweep reads the timestamps Touch writes, so
// an authenticated request that does not touch activity would leave the
// background refresh permanently paused for that user.
func TestActivityTracking_TouchesAuthenticatedUser(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "student@example.com"}
	repo := &mockActivityRepo{}

	// Mirrors the server wiring: auth then activity tracking on the
	// same protected subrouter.
	r := mux.NewRouter()
	sub := r.PathPrefix("/api/v1/tasks").Subrouter()
	sub.Use(fakeAuth(user))
	sub.Use(ActivityTracking(repo))
	sub.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if len(repo.touched) != 1 {
		t.Fatalf("Expected Touch to be called once, got %d calls", len(repo.touched))
	}
	if repo.touched[0] != user.ID {
		t.Errorf("Expected Touch for user %s, got %s", user.ID, repo.touched[0])
	}
}

func TestActivityTracking_SkipsAnonymousRequests(t *testing.T) {
	t.Parallel()

	repo := &mockActivityRepo{}

	handler := ActivityTracking(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if len(repo.touched) != 0 {
		t.Errorf("Expected no Touch calls for anonymous request, got %d", len(repo.touched))
	}
}
