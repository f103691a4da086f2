package matchmaking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizbattle/server/internal/apperr"
	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/model"
)

// MatchStarter is invoked once both sides confirm; it hands the paired
// match off to the Match Engine (spec §4.3 "schedule Match Engine start
// after a fixed delay").
type MatchStarter interface {
	StartMatch(ctx context.Context, matchID, playerA, playerB string, settings model.MatchSettings)
}

// Notifier delivers outbound wire frames; Manager never encodes frames
// itself — the app layer's eventNotifier in notifier.go does that — so this interface
// exists purely for the occupancy callbacks below.
type Notifier interface {
	MatchmakingSearching(ctx context.Context, userID string, playersInQueue, estimatedWait int)
	MatchmakingCancelled(ctx context.Context, userID, matchID string)
	MatchmakingConfirmRequest(ctx context.Context, userID, matchID, opponentID string, settings model.MatchSettings, deadlineSeconds int)
	MatchmakingConfirmStatus(ctx context.Context, userA, userB, matchID string, status model.ConfirmStatus)
}

// startDelay is the fixed pause between both-confirm and Match Engine
// start (spec §4.3: "3-5 s").
const startDelay = 4 * time.Second

// Manager coordinates the queue and the two-phase confirmation handshake.
type Manager struct {
	queue *Queue

	mu      sync.Mutex
	pending map[string]*model.PendingConfirmation // keyed by matchId
	byUser  map[string]string                      // userId -> matchId, for in-pending lookup

	clock          clock.Clock
	ratingWindow   int
	confirmTimeout time.Duration
	notifier       Notifier
	starter        MatchStarter
}

// Config bundles Manager's tunables, sourced from internal/config.
type Config struct {
	RatingWindow   int
	ConfirmTimeout time.Duration
}

// New constructs a Manager.
func New(clk clock.Clock, cfg Config, notifier Notifier, starter MatchStarter) *Manager {
	return &Manager{
		queue:          NewQueue(),
		pending:        make(map[string]*model.PendingConfirmation),
		byUser:         make(map[string]string),
		clock:          clk,
		ratingWindow:   cfg.RatingWindow,
		confirmTimeout: cfg.ConfirmTimeout,
		notifier:       notifier,
		starter:        starter,
	}
}

// InQueueOrPending reports whether userID currently holds a queue ticket
// or a pending confirmation (spec I2: at most one of queue/match/lobby).
func (m *Manager) InQueueOrPending(userID string) bool {
	if m.queue.Contains(userID) {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byUser[userID]
	return ok
}

// Find enqueues userID and attempts an immediate pairing. On success it
// creates a PendingConfirmation and notifies both sides via
// MatchmakingConfirmRequest; on no pairing it notifies via
// MatchmakingSearching.
func (m *Manager) Find(ctx context.Context, entry *model.QueueEntry) {
	if candidate, ok := m.queue.FindMatch(entry, m.ratingWindow); ok {
		m.pair(ctx, entry, candidate)
		return
	}

	m.queue.Enqueue(entry)
	m.notifier.MatchmakingSearching(ctx, entry.UserID, m.queue.Len(), EstimatedWait(m.queue.Len()))
}

func (m *Manager) pair(ctx context.Context, a, b *model.QueueEntry) {
	matchID := uuid.NewString()
	settings := model.MatchSettings{
		Mode:       a.Mode,
		Difficulty: a.Difficulty,
		Category:   a.Category,
	}

	deadline := m.clock.Now().Add(m.confirmTimeout)
	pc := &model.PendingConfirmation{
		MatchID:  matchID,
		PlayerA:  a.UserID,
		PlayerB:  b.UserID,
		Settings: settings,
		Deadline: deadline,
	}
	pc.Timer = m.clock.AfterFunc(m.confirmTimeout, func() {
		m.onTimeout(context.Background(), matchID)
	})

	m.mu.Lock()
	m.pending[matchID] = pc
	m.byUser[a.UserID] = matchID
	m.byUser[b.UserID] = matchID
	m.mu.Unlock()

	deadlineSeconds := int(m.confirmTimeout / time.Second)
	m.notifier.MatchmakingConfirmRequest(ctx, a.UserID, matchID, b.UserID, settings, deadlineSeconds)
	m.notifier.MatchmakingConfirmRequest(ctx, b.UserID, matchID, a.UserID, settings, deadlineSeconds)
}

// Cancel removes userID's queue ticket. It is a no-op if userID is not
// queued (e.g. already paired).
func (m *Manager) Cancel(userID string) {
	m.queue.Remove(userID)
}

// Confirm records one side's reply to a pending match. Returns
// MATCH_NOT_FOUND if the match has already been resolved or expired, and
// NOT_IN_MATCH if userID is not one of its two players (spec §4.3 Errors).
func (m *Manager) Confirm(ctx context.Context, userID, matchID string, confirmed bool) error {
	m.mu.Lock()
	pc, ok := m.pending[matchID]
	if !ok {
		m.mu.Unlock()
		return apperr.New(apperr.CodeMatchNotFound, "match not found or already resolved")
	}
	if userID != pc.PlayerA && userID != pc.PlayerB {
		m.mu.Unlock()
		return apperr.New(apperr.CodeNotInMatch, "user is not a participant in this match")
	}

	if !confirmed {
		m.removeLocked(matchID)
		m.mu.Unlock()
		pc.Timer.Stop()
		m.notifier.MatchmakingConfirmStatus(ctx, pc.PlayerA, pc.PlayerB, matchID, model.ConfirmDeclined)
		return nil
	}

	if userID == pc.PlayerA {
		pc.ConfirmedA = true
	} else {
		pc.ConfirmedB = true
	}
	bothConfirmed := pc.BothConfirmed()
	if bothConfirmed {
		m.removeLocked(matchID)
	}
	m.mu.Unlock()

	if !bothConfirmed {
		return nil
	}

	pc.Timer.Stop()
	m.notifier.MatchmakingConfirmStatus(ctx, pc.PlayerA, pc.PlayerB, matchID, model.ConfirmBothConfirmed)

	timer := m.clock.AfterFunc(startDelay, func() {
		m.starter.StartMatch(context.Background(), matchID, pc.PlayerA, pc.PlayerB, pc.Settings)
	})
	_ = timer // fire-and-forget: nothing cancels the engine start once confirmed

	return nil
}

func (m *Manager) onTimeout(ctx context.Context, matchID string) {
	m.mu.Lock()
	pc, ok := m.pending[matchID]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.removeLocked(matchID)
	m.mu.Unlock()

	slog.Info("matchmaking confirmation timed out", "matchId", matchID, "playerA", pc.PlayerA, "playerB", pc.PlayerB)
	m.notifier.MatchmakingConfirmStatus(ctx, pc.PlayerA, pc.PlayerB, matchID, model.ConfirmTimeout)
}

// removeLocked deletes a pending confirmation and its user index entries.
// Callers must hold m.mu.
func (m *Manager) removeLocked(matchID string) {
	pc, ok := m.pending[matchID]
	if !ok {
		return
	}
	delete(m.pending, matchID)
	if m.byUser[pc.PlayerA] == matchID {
		delete(m.byUser, pc.PlayerA)
	}
	if m.byUser[pc.PlayerB] == matchID {
		delete(m.byUser, pc.PlayerB)
	}
}

// QueueLen exposes the current queue depth, for metrics/diagnostics.
func (m *Manager) QueueLen() int { return m.queue.Len() }
