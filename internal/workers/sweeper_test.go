package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studyspark/scheduler-api/internal/queue"
)

func TestSweeper_QueuesStaleProfiles(t *testing.T) {
	t.Parallel()

	stale := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	patterns := &mockPatternRepo{
		getStaleUserIDsFunc: func(_ context.Context, maxAge time.Duration) ([]uuid.UUID, error) {
			if maxAge != DefaultProfileMaxAge {
				t.Errorf("maxAge = %v, want %v", maxAge, DefaultProfileMaxAge)
			}
			return stale, nil
		},
	}

	var jobs []*queue.Job
	jq := &mockJobQueue{
		enqueueFunc: func(_ context.Context, job *queue.Job) error {
			jobs = append(jobs, job)
			return nil
		},
	}

	s := NewSweeper(patterns, &mockActivityRepo{}, jq, 0, 0, nil)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(jobs) != len(stale) {
		t.Fatalf("queued %d jobs, want %d", len(jobs), len(stale))
	}
	for i, job := range jobs {
		if job.Type != queue.JobTypePatternRefresh {
			t.Errorf("job type = %s, want %s", job.Type, queue.JobTypePatternRefresh)
		}
		if job.UserID != stale[i] {
			t.Errorf("job user = %s, want %s", job.UserID, stale[i])
		}
		if job.NotAfter == nil {
			t.Error("expected NotAfter to be set for sweep jobs")
		}
	}
}

func TestSweeper_PausesInactiveUsers(t *testing.T) {
	t.Parallel()

	var pausedWith time.Duration
	activity := &mockActivityRepo{
		pauseInactiveFunc: func(_ context.Context, idleFor time.Duration) (int64, error) {
			pausedWith = idleFor
			return 4, nil
		},
	}

	s := NewSweeper(&mockPatternRepo{}, activity, &mockJobQueue{}, time.Hour, 48*time.Hour, nil)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if pausedWith != 48*time.Hour {
		t.Errorf("PauseInactive idleFor = %v, want 48h", pausedWith)
	}
}

func TestSweeper_ContinuesOnEnqueueFailure(t *testing.T) {
	t.Parallel()

	stale := []uuid.UUID{uuid.New(), uuid.New()}
	patterns := &mockPatternRepo{
		getStaleUserIDsFunc: func(context.Context, time.Duration) ([]uuid.UUID, error) {
			return stale, nil
		},
	}

	calls := 0
	jq := &mockJobQueue{
		enqueueFunc: func(context.Context, *queue.Job) error {
			calls++
			if calls == 1 {
				return errors.New("queue full")
			}
			return nil
		},
	}

	s := NewSweeper(patterns, &mockActivityRepo{}, jq, 0, 0, nil)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep should not fail on enqueue errors: %v", err)
	}
	if calls != len(stale) {
		t.Errorf("enqueue attempted %d times, want %d", calls, len(stale))
	}
}

func TestSweeper_StaleListError(t *testing.T) {
	t.Parallel()

	patterns := &mockPatternRepo{
		getStaleUserIDsFunc: func(context.Context, time.Duration) ([]uuid.UUID, error) {
			return nil, errors.New("db down")
		},
	}

	s := NewSweeper(patterns, &mockActivityRepo{}, &mockJobQueue{}, 0, 0, nil)
	if err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error when stale list fails")
	}
}
