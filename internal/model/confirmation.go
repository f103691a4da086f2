package model

import (
	"time"

	"github.com/quizbattle/server/internal/clock"
)

// PendingConfirmation tracks the two-sided accept handshake between pairing
// and match start (spec §4.3). Owned by Matchmaking; destroyed on
// both-confirm, decline, or timeout.
type PendingConfirmation struct {
	MatchID    string
	PlayerA    string
	PlayerB    string
	Settings   MatchSettings
	ConfirmedA bool
	ConfirmedB bool
	Deadline   time.Time
	Timer      clock.Timer
}

// BothConfirmed reports whether both sides have accepted.
func (p *PendingConfirmation) BothConfirmed() bool {
	return p.ConfirmedA && p.ConfirmedB
}

// Opponent returns the other player's userId given one side of the pair.
func (p *PendingConfirmation) Opponent(userID string) string {
	if userID == p.PlayerA {
		return p.PlayerB
	}
	return p.PlayerA
}
