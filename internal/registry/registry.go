// Package registry is the process-wide directory of live sessions: a
// session-id -> Session map and its user-id -> session-id inverse, with
// duplicate-login eviction and an idle sweeper (spec §4.1).
//
// Grounded on udisondev/la2go internal/login.SessionManager (sync.Map-backed
// session directory with a CleanExpired sweep), generalized from a
// sync.Map to an explicit mutex-guarded pair of maps because the Registry
// must also walk-and-evict under a single critical section during
// duplicate-login handling, which sync.Map's API does not offer atomically.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/transport"
	"github.com/quizbattle/server/internal/wire"
)

// DisconnectReasonDuplicateSession is sent to a socket evicted by a newer
// login for the same user (spec I1).
const DisconnectReasonDuplicateSession = "duplicate_session"

// EvictionHook is invoked whenever the Registry deregisters a session,
// whether from idle sweep, socket close, or duplicate-login eviction. The
// application wires this to cancel the session's timers and unwind any
// queue/lobby/match membership (spec §4.7).
type EvictionHook func(ctx context.Context, s *model.Session)

// Registry is the live-session directory (spec §4.1).
type Registry struct {
	mu        sync.Mutex
	bySession map[string]*model.Session
	byUser    map[string]string

	clock       clock.Clock
	idleTimeout time.Duration

	onEvict EvictionHook
}

// New constructs an empty Registry. idleTimeout is the default from
// spec §6 ("idleTimeoutSec", default 60).
func New(clk clock.Clock, idleTimeout time.Duration, onEvict EvictionHook) *Registry {
	return &Registry{
		bySession:   make(map[string]*model.Session),
		byUser:      make(map[string]string),
		clock:       clk,
		idleTimeout: idleTimeout,
		onEvict:     onEvict,
	}
}

// Register creates a new Session for userID, evicting any existing session
// for that user first (I1: at most one live session per user). Returns the
// new session.
func (r *Registry) Register(ctx context.Context, userID, displayName string, conn transport.Conn) *model.Session {
	r.mu.Lock()
	existingID, hadExisting := r.byUser[userID]
	var evicted *model.Session
	if hadExisting {
		evicted = r.bySession[existingID]
		delete(r.bySession, existingID)
	}

	now := r.clock.Now()
	session := &model.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		DisplayName: displayName,
		Conn:        conn,
		Status:      model.StatusOnline,
		LastPingAt:  now,
		ConnectedAt: now,
	}
	r.bySession[session.ID] = session
	r.byUser[userID] = session.ID
	r.mu.Unlock()

	if evicted != nil {
		slog.Info("evicting duplicate session", "userId", userID, "oldSessionId", evicted.ID, "newSessionId", session.ID)
		if r.onEvict != nil {
			r.onEvict(ctx, evicted)
		}
		if evicted.Conn != nil {
			// The old socket must learn it was replaced before it is torn
			// down (spec §4.1, scenario S6: the evicted socket receives
			// connection.disconnect before auth.connected goes out on the
			// new one).
			if frame, err := wire.Encode(wire.TypeConnectionDisconnect, wire.ConnectionDisconnectPayload{
				Reason: DisconnectReasonDuplicateSession,
			}); err == nil {
				_ = evicted.Conn.Send(ctx, frame)
			}
			_ = evicted.Conn.Close()
		}
	}

	return session
}

// LookupBySession returns the session for the given session id, if any.
func (r *Registry) LookupBySession(sessionID string) (*model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.bySession[sessionID]
	return s, ok
}

// LookupByUser returns the session currently owned by userID, if any.
func (r *Registry) LookupByUser(userID string) (*model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	s, ok := r.bySession[sessionID]
	return s, ok
}

// Deregister removes a session (socket close or idle sweep). Returns the
// removed session, or nil if it was already gone.
func (r *Registry) Deregister(sessionID string) *model.Session {
	r.mu.Lock()
	s, ok := r.bySession[sessionID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.bySession, sessionID)
	if r.byUser[s.UserID] == sessionID {
		delete(r.byUser, s.UserID)
	}
	r.mu.Unlock()
	return s
}

// UpdateStatus sets a session's visible status.
func (r *Registry) UpdateStatus(sessionID string, status model.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.bySession[sessionID]
	if !ok {
		return fmt.Errorf("updating status: session %s not found", sessionID)
	}
	s.Status = status
	return nil
}

// SetCurrentMatch sets or clears (matchID == "") the session's live match.
func (r *Registry) SetCurrentMatch(sessionID, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.bySession[sessionID]
	if !ok {
		return fmt.Errorf("setting current match: session %s not found", sessionID)
	}
	s.CurrentMatchID = matchID
	return nil
}

// SetCurrentLobby sets or clears (lobbyID == "") the session's lobby
// membership.
func (r *Registry) SetCurrentLobby(sessionID, lobbyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.bySession[sessionID]
	if !ok {
		return fmt.Errorf("setting current lobby: session %s not found", sessionID)
	}
	s.CurrentLobbyID = lobbyID
	return nil
}

// Touch updates a session's lastPingAt to now, keeping it alive against the
// idle sweeper.
func (r *Registry) Touch(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.bySession[sessionID]; ok {
		s.LastPingAt = r.clock.Now()
	}
}

// ReplaceConn swaps a session's socket and refreshes lastPingAt. Nothing
// in the app calls it: connection.reconnect works on the session that
// Register created for the new socket.
func (r *Registry) ReplaceConn(sessionID string, conn transport.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.bySession[sessionID]
	if !ok {
		return fmt.Errorf("replacing conn: session %s not found", sessionID)
	}
	s.Conn = conn
	s.LastPingAt = r.clock.Now()
	return nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySession)
}

// SweepIdle deregisters every session whose lastPingAt is older than the
// configured idleTimeout, invoking onEvict for each (spec §4.1: "triggers
// the same cleanup path as socket close").
func (r *Registry) SweepIdle(ctx context.Context) {
	cutoff := r.clock.Now().Add(-r.idleTimeout)

	r.mu.Lock()
	var stale []*model.Session
	for id, s := range r.bySession {
		if s.LastPingAt.Before(cutoff) {
			stale = append(stale, s)
			delete(r.bySession, id)
			if r.byUser[s.UserID] == id {
				delete(r.byUser, s.UserID)
			}
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		slog.Info("idle sweeper evicting session", "sessionId", s.ID, "userId", s.UserID)
		if r.onEvict != nil {
			r.onEvict(ctx, s)
		}
		if s.Conn != nil {
			_ = s.Conn.Close()
		}
	}
}

// RunIdleSweeper runs SweepIdle on a fixed cadence until ctx is cancelled
// (spec §4.1: "on a fixed cadence (30-60s)").
func (r *Registry) RunIdleSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.SweepIdle(ctx)
		case <-ctx.Done():
			return
		}
	}
}
