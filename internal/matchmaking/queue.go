// Package matchmaking implements the Matchmaking component of spec §4.3:
// an enqueue/pairing queue plus a two-phase accept handshake before a
// match is handed to the Match Engine.
//
// Grounded on udisondev/la2go internal/login.SessionManager's mutex-guarded
// map style (same shape as internal/registry here), with the pairing
// search itself modeled as a plain linear scan the way a queue this size
// (single process, no sharding per spec Non-goals) would be written.
package matchmaking

import (
	"sync"

	"github.com/quizbattle/server/internal/model"
)

const ratingWindowDefault = 200

// Queue holds at most one QueueEntry per user (spec §4.3 enqueue rule).
type Queue struct {
	mu      sync.Mutex
	entries map[string]*model.QueueEntry
}

// NewQueue constructs an empty matchmaking queue.
func NewQueue() *Queue {
	return &Queue{entries: make(map[string]*model.QueueEntry)}
}

// Enqueue inserts or replaces userID's ticket.
func (q *Queue) Enqueue(e *model.QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[e.UserID] = e
}

// Remove deletes userID's ticket, if present.
func (q *Queue) Remove(userID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries, userID)
}

// Contains reports whether userID currently has a ticket.
func (q *Queue) Contains(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[userID]
	return ok
}

// Len returns the number of queued tickets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// FindMatch searches for a pairing candidate for caller per the spec §4.3
// pairing rule, removing both tickets from the queue on success.
func (q *Queue) FindMatch(caller *model.QueueEntry, ratingWindow int) (*model.QueueEntry, bool) {
	if ratingWindow <= 0 {
		ratingWindow = ratingWindowDefault
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var candidate *model.QueueEntry

	if caller.Mode == model.ModeRanked {
		candidate = q.bestRankedCandidateLocked(caller, ratingWindow)
	} else {
		candidate = q.firstCasualCandidateLocked(caller)
	}

	if candidate == nil {
		return nil, false
	}

	delete(q.entries, caller.UserID)
	delete(q.entries, candidate.UserID)
	return candidate, true
}

func (q *Queue) firstCasualCandidateLocked(caller *model.QueueEntry) *model.QueueEntry {
	var earliest *model.QueueEntry
	for userID, e := range q.entries {
		if userID == caller.UserID {
			continue
		}
		if e.Mode != caller.Mode {
			continue
		}
		if !difficultyMatches(e.Difficulty, caller.Difficulty) {
			continue
		}
		if !categoryMatches(e.Category, caller.Category) {
			continue
		}
		if earliest == nil || e.EnqueuedAt.Before(earliest.EnqueuedAt) {
			earliest = e
		}
	}
	return earliest
}

func (q *Queue) bestRankedCandidateLocked(caller *model.QueueEntry, ratingWindow int) *model.QueueEntry {
	var inWindow *model.QueueEntry
	inWindowDelta := ratingWindow + 1

	var closestOverall *model.QueueEntry
	closestDelta := -1

	for userID, e := range q.entries {
		if userID == caller.UserID || e.Mode != model.ModeRanked {
			continue
		}
		delta := abs(e.Rating - caller.Rating)

		if delta <= ratingWindow && delta < inWindowDelta {
			inWindow, inWindowDelta = e, delta
		}
		if closestOverall == nil || delta < closestDelta {
			closestOverall, closestDelta = e, delta
		}
	}

	if inWindow != nil {
		return inWindow
	}
	return closestOverall
}

func difficultyMatches(a, b string) bool {
	return a == b || a == "all" || b == "all"
}

func categoryMatches(a, b string) bool {
	return a == b || a == "all" || b == "all"
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// EstimatedWait is a coarse estimate surfaced in matchmaking.searching: 5
// seconds per queued competitor ahead, capped at 60s. It is advisory only
// and not covered by any testable property.
func EstimatedWait(playersInQueue int) int {
	estimate := playersInQueue * 5
	if estimate > 60 {
		return 60
	}
	return estimate
}
