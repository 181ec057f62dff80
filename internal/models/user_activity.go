package models

import (
	"time"

	"github.com/google/uuid"
)

// UserActivity tracks when a user last touched the API. The worker's stale
// profile sweep only refreshes patterns for users seen recently.
type UserActivity struct {
	UserID             uuid.UUID `json:"user_id"`
	LastAPIInteraction time.Time `json:"last_api_interaction"`
	RefreshPaused      bool      `json:"refresh_paused"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
