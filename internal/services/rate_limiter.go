package services

import (
	"context"
	"time"

	db "github.com/coursehub-api/coursehub/internal/core/database"
)

// RateLimiter throttles chat messages per (user, course). The window is
// derived freshly on every call from persisted message timestamps, so it
// survives restarts and needs no counter state of its own.
type RateLimiter struct {
	db             db.DbClient
	limitPerMinute int
}

func NewRateLimiter(dbClient db.DbClient, limitPerMinute int) *RateLimiter {
	if limitPerMinute <= 0 {
		limitPerMinute = 10
	}
	return &RateLimiter{db: dbClient, limitPerMinute: limitPerMinute}
}

// Allow reports whether the user may send another message for the course:
// messages across all of the user's sessions for the course within the
// trailing 60 seconds must stay below the limit. Data-access errors propagate
// as hard failures; there is no fail-open.
func (l *RateLimiter) Allow(ctx context.Context, userID, courseID string) (bool, error) {
	sessionIDs, err := l.db.ListSessionIDs(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	if len(sessionIDs) == 0 {
		return true, nil
	}

	count, err := l.db.CountMessagesSince(ctx, sessionIDs, time.Now().Add(-time.Minute))
	if err != nil {
		return false, err
	}
	return count < l.limitPerMinute, nil
}
