package middleware

import (
	"log"
	"net/http"

	"github.com/studyspark/scheduler-api/internal/database"
)

// ActivityTracking records the last API interaction per authenticated user.
// The worker's inactivity sweep reads these timestamps to decide whose
// background refresh to pause, and a touch here un-pauses a returning user.
func ActivityTracking(activityRepo database.UserActivityRepositoryInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := UserFromContext(r); user != nil {
				if err := activityRepo.Touch(r.Context(), user.ID); err != nil {
					log.Printf("Failed to update user activity: %v", err)
					// Don't fail the request if activity tracking fails
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
