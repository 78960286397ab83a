package chat

import (
	"context"
	"time"

	"github.com/mind-engage/studycoach/internal/cache"
)

const sessionTrackerTTL = 7 * 24 * time.Hour

// SessionTracker remembers each student's most recent chat session.
type SessionTracker struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewSessionTracker(c cache.Cache) *SessionTracker {
	return &SessionTracker{cache: c, ttl: sessionTrackerTTL}
}

func trackerKey(studentID string) string { return "chat:last:" + studentID }

func (t *SessionTracker) Track(ctx context.Context, studentID, sessionID string) error {
	return t.cache.Set(ctx, trackerKey(studentID), sessionID, t.ttl)
}

// Last reports the tracked session id, or false once it has expired.
func (t *SessionTracker) Last(ctx context.Context, studentID string) (string, bool, error) {
	var id string
	ok, err := t.cache.Get(ctx, trackerKey(studentID), &id)
	if err != nil || !ok {
		return "", false, err
	}
	return id, id != "", nil
}
