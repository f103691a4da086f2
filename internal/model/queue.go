package model

import "time"

// QueueEntry is one user's matchmaking ticket (spec §3, §4.3). Keyed by
// UserID; Matchmaking enforces at most one entry per user.
type QueueEntry struct {
	UserID     string
	Mode       Mode
	Difficulty string
	Category   string
	Rating     int
	EnqueuedAt time.Time
}
