package domain

import "time"

// Event is a single logged occurrence. Events are append-only.
type Event struct {
	ID         int64
	UserKey    int64
	OccurredAt time.Time
}
