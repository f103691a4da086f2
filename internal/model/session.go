package model

import (
	"time"

	"github.com/quizbattle/server/internal/transport"
)

// Session is the authoritative record for one live, authenticated connection.
//
// Exclusively owned by the Registry (spec §4.1): every field here is read or
// mutated only while the Registry's own mutex is held. Other components ask
// the Registry to look up or mutate a Session rather than touching the
// pointer's fields directly, so the "one Session per userId" invariant (I1)
// and the "at most one of {match, lobby, queue}" invariant (I2) only ever
// have a single writer.
type Session struct {
	ID             string
	UserID         string
	DisplayName    string
	Conn           transport.Conn
	Status         SessionStatus
	CurrentMatchID string
	CurrentLobbyID string
	LastPingAt     time.Time
	ConnectedAt    time.Time
}

// InGame reports whether the session currently holds a live match.
func (s *Session) InGame() bool {
	return s.CurrentMatchID != ""
}

// InLobby reports whether the session currently holds a lobby membership.
func (s *Session) InLobby() bool {
	return s.CurrentLobbyID != ""
}
