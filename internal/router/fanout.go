package router

import (
	"context"
	"log/slog"

	"github.com/quizbattle/server/internal/model"
)

// SessionLookup resolves sessions by id or user id, the minimal surface
// Fanout needs from the Registry (spec §4.1/§4.2).
type SessionLookup interface {
	LookupBySession(sessionID string) (*model.Session, bool)
	LookupByUser(userID string) (*model.Session, bool)
}

// MatchAudience resolves the two participants of a match.
type MatchAudience interface {
	MatchParticipants(matchID string) (playerA, playerB string, ok bool)
}

// LobbyAudience resolves the current member user-ids of a lobby.
type LobbyAudience interface {
	LobbyMemberIDs(lobbyID string) ([]string, bool)
}

// FriendAudience resolves a user's friends. BroadcastToFriends delivers
// only to those of them with a live session.
type FriendAudience interface {
	OnlineFriendIDs(ctx context.Context, userID string) ([]string, error)
}

// Fanout implements the Message Router's fan-out primitives (spec §4.2):
// sendToSession, sendToUser, broadcastToMatch, broadcastToLobby,
// broadcastToFriends. Every send is best-effort — a failed or absent
// socket is logged and never aborts the caller.
type Fanout struct {
	sessions SessionLookup
	matches  MatchAudience
	lobbies  LobbyAudience
	friends  FriendAudience
}

// NewFanout builds a Fanout over the given audience resolvers. matches,
// lobbies and friends may be nil if the embedding component never needs
// that audience (e.g. a standalone test harness).
func NewFanout(sessions SessionLookup, matches MatchAudience, lobbies LobbyAudience, friends FriendAudience) *Fanout {
	return &Fanout{sessions: sessions, matches: matches, lobbies: lobbies, friends: friends}
}

// SendToSession implements the router.Sender interface so a Fanout can
// also serve as the Router's reply channel.
func (f *Fanout) SendToSession(ctx context.Context, sessionID string, frame []byte) {
	s, ok := f.sessions.LookupBySession(sessionID)
	if !ok || s.Conn == nil {
		slog.Debug("sendToSession: no live socket", "sessionId", sessionID)
		return
	}
	if err := s.Conn.Send(ctx, frame); err != nil {
		slog.Warn("sendToSession failed", "sessionId", sessionID, "err", err)
	}
}

// SendToUser resolves userID's current session and delivers frame to it.
func (f *Fanout) SendToUser(ctx context.Context, userID string, frame []byte) {
	s, ok := f.sessions.LookupByUser(userID)
	if !ok {
		slog.Debug("sendToUser: user not connected", "userId", userID)
		return
	}
	f.SendToSession(ctx, s.ID, frame)
}

// BroadcastToMatch delivers frame to both participants of matchID.
func (f *Fanout) BroadcastToMatch(ctx context.Context, matchID string, frame []byte) {
	if f.matches == nil {
		return
	}
	a, b, ok := f.matches.MatchParticipants(matchID)
	if !ok {
		slog.Debug("broadcastToMatch: match not found", "matchId", matchID)
		return
	}
	f.SendToUser(ctx, a, frame)
	f.SendToUser(ctx, b, frame)
}

// BroadcastToLobby delivers frame to every current member of lobbyID.
func (f *Fanout) BroadcastToLobby(ctx context.Context, lobbyID string, frame []byte) {
	if f.lobbies == nil {
		return
	}
	memberIDs, ok := f.lobbies.LobbyMemberIDs(lobbyID)
	if !ok {
		slog.Debug("broadcastToLobby: lobby not found", "lobbyId", lobbyID)
		return
	}
	for _, userID := range memberIDs {
		f.SendToUser(ctx, userID, frame)
	}
}

// BroadcastToFriends delivers frame to every online friend of userID.
func (f *Fanout) BroadcastToFriends(ctx context.Context, userID string, frame []byte) {
	if f.friends == nil {
		return
	}
	onlineIDs, err := f.friends.OnlineFriendIDs(ctx, userID)
	if err != nil {
		slog.Warn("broadcastToFriends: resolving friends failed", "userId", userID, "err", err)
		return
	}
	for _, friendID := range onlineIDs {
		f.SendToUser(ctx, friendID, frame)
	}
}
