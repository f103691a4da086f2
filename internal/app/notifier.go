// Package app wires every core component into one running process: the
// Registry, Router, Fanout, matchmaking/lobby/match managers and the
// Settlement Pipeline, constructed once in New and handed to handlers
// through this struct rather than touched via package-level state (spec §9
// "no global singletons").
//
// Grounded on udisondev/la2go's cmd/gameserver wiring (one GameServer struct
// built in main, holding every manager it needs), generalized from two
// servers (login/game) into one process with more internal managers.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/quizbattle/server/internal/lobby"
	"github.com/quizbattle/server/internal/match"
	"github.com/quizbattle/server/internal/matchmaking"
	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/registry"
	"github.com/quizbattle/server/internal/router"
	"github.com/quizbattle/server/internal/settlement"
	"github.com/quizbattle/server/internal/wire"
)

// eventNotifier implements match.Notifier, matchmaking.Notifier and
// settlement.Notifier by encoding wire frames and handing them to a Fanout.
// It is the single point where in-memory domain events become bytes on a
// socket (spec §4.2's "the core never imports transport/encoding
// concerns directly").
type eventNotifier struct {
	fanout *router.Fanout
}

func newEventNotifier(fanout *router.Fanout) *eventNotifier {
	return &eventNotifier{fanout: fanout}
}

func (n *eventNotifier) send(ctx context.Context, userID, msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		slog.Error("encoding outbound frame failed", "type", msgType, "err", err)
		return
	}
	n.fanout.SendToUser(ctx, userID, frame)
}

func (n *eventNotifier) broadcastMatch(ctx context.Context, matchID, msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		slog.Error("encoding outbound frame failed", "type", msgType, "err", err)
		return
	}
	n.fanout.BroadcastToMatch(ctx, matchID, frame)
}

func (n *eventNotifier) broadcastLobby(ctx context.Context, lobbyID, msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		slog.Error("encoding outbound frame failed", "type", msgType, "err", err)
		return
	}
	n.fanout.BroadcastToLobby(ctx, lobbyID, frame)
}

// --- match.Notifier ---

func playerRefs(m *model.MatchState) []wire.PlayerRef {
	return []wire.PlayerRef{{UserID: m.PlayerA}, {UserID: m.PlayerB}}
}

func gameState(m *model.MatchState) wire.GameState {
	return wire.GameState{
		CurrentIndex:   m.CurrentIndex,
		TotalQuestions: len(m.Questions),
		HealthA:        m.HealthA,
		HealthB:        m.HealthB,
	}
}

func (n *eventNotifier) GameStarted(ctx context.Context, m *model.MatchState, serverTime time.Time) {
	n.broadcastMatch(ctx, m.ID, wire.TypeGameStarted, wire.GameStartedPayload{
		MatchID:    m.ID,
		Players:    playerRefs(m),
		GameState:  gameState(m),
		ServerTime: serverTime,
	})
}

func (n *eventNotifier) GameQuestionsAll(ctx context.Context, m *model.MatchState) {
	questions := make([]wire.WireQuestion, len(m.Questions))
	for i, q := range m.Questions {
		questions[i] = wire.WireQuestion{ID: q.ID, Index: i, Text: q.Text, Choices: q.Choices}
	}
	n.broadcastMatch(ctx, m.ID, wire.TypeGameQuestionsAll, wire.GameQuestionsAllPayload{
		MatchID:   m.ID,
		Questions: questions,
	})
}

func (n *eventNotifier) GameAnswerReceived(ctx context.Context, m *model.MatchState, userID string, correctIndex int, correct bool, points int) {
	n.send(ctx, userID, wire.TypeGameAnswerReceived, wire.GameAnswerReceivedPayload{
		QuestionIndex:      m.CurrentIndex,
		CorrectAnswerIndex: correctIndex,
		Correct:            correct,
		Points:             points,
		PlayerHealth:       m.HealthOf(userID),
		OpponentHealth:     m.HealthOf(m.Opponent(userID)),
	})
}

func (n *eventNotifier) GameOpponentAnswered(ctx context.Context, m *model.MatchState, answererID string, correct bool) {
	animation := "correct"
	if !correct {
		animation = "incorrect"
	}
	n.send(ctx, m.Opponent(answererID), wire.TypeGameOpponentAnswered, wire.GameOpponentAnsweredPayload{
		QuestionIndex: m.CurrentIndex,
		Correct:       correct,
		Animation:     animation,
	})
}

func (n *eventNotifier) GameBattleUpdate(ctx context.Context, m *model.MatchState) {
	n.broadcastMatch(ctx, m.ID, wire.TypeGameBattleUpdate, wire.GameBattleUpdatePayload{
		QuestionIndex: m.CurrentIndex,
		HealthA:       m.HealthA,
		HealthB:       m.HealthB,
	})
}

func (n *eventNotifier) GameQuestionTimeout(ctx context.Context, m *model.MatchState, correctIndex int, damaged []string, damage int) {
	players := make([]wire.TimeoutPlayer, len(damaged))
	for i, userID := range damaged {
		players[i] = wire.TimeoutPlayer{UserID: userID, TookDamage: damage, Health: m.HealthOf(userID)}
	}
	n.broadcastMatch(ctx, m.ID, wire.TypeGameQuestionTimeout, wire.GameQuestionTimeoutPayload{
		QuestionIndex:      m.CurrentIndex,
		CorrectAnswerIndex: correctIndex,
		Players:            players,
	})
}

func (n *eventNotifier) GamePlayerDisconnected(ctx context.Context, m *model.MatchState, userID string) {
	n.send(ctx, m.Opponent(userID), wire.TypeGamePlayerDisconnected, wire.GamePlayerDisconnectedPayload{
		UserID:  userID,
		AutoWin: true,
	})
}

func (n *eventNotifier) GamePlayerReconnected(ctx context.Context, m *model.MatchState, userID string) {
	n.send(ctx, m.Opponent(userID), wire.TypeGamePlayerReconnected, wire.GamePlayerReconnectedPayload{
		UserID: userID,
	})
}

// --- settlement.Notifier ---

func toWireRewards(r settlement.Rewards) wire.Rewards {
	return wire.Rewards{Points: r.Points, XP: r.XP, Coins: r.Coins}
}

func (n *eventNotifier) GameOver(ctx context.Context, m *model.MatchState, winnerRewards, loserRewards settlement.Rewards) {
	history := make([]wire.AnswerLog, len(m.AnswersLog))
	for i, a := range m.AnswersLog {
		history[i] = wire.AnswerLog{UserID: a.UserID, QuestionIndex: a.QuestionIndex, Correct: a.Correct, AnswerTimeMs: a.AnswerTimeMs}
	}
	n.broadcastMatch(ctx, m.ID, wire.TypeGameOver, wire.GameOverPayload{
		MatchID:      m.ID,
		Winner:       m.Winner,
		Loser:        m.Loser,
		Reason:       string(m.Reason),
		FinalHealths: gameState(m),
		Rewards:      toWireRewards(winnerRewards),
		LoserRewards: toWireRewards(loserRewards),
		GameHistory:  history,
	})
}

func (n *eventNotifier) RankedMMRChanged(ctx context.Context, userID string, oldRating, newRating int, tier settlement.TierChange) {
	n.send(ctx, userID, wire.TypeRankedMMRChanged, wire.RankedMMRChangedPayload{
		Old:      oldRating,
		New:      newRating,
		Change:   newRating - oldRating,
		OldTier:  string(tier.OldTier),
		NewTier:  string(tier.NewTier),
		Promoted: tier.Promoted,
		Demoted:  tier.Demoted,
	})
}

// --- matchmaking.Notifier ---

func (n *eventNotifier) MatchmakingSearching(ctx context.Context, userID string, playersInQueue, estimatedWait int) {
	n.send(ctx, userID, wire.TypeMatchmakingSearching, wire.MatchmakingSearchingPayload{
		PlayersInQueue:    playersInQueue,
		EstimatedWaitTime: estimatedWait,
	})
}

func (n *eventNotifier) MatchmakingCancelled(ctx context.Context, userID, matchID string) {
	n.send(ctx, userID, wire.TypeMatchmakingCancelled, wire.MatchmakingCancelledPayload{MatchID: matchID})
}

func (n *eventNotifier) MatchmakingConfirmRequest(ctx context.Context, userID, matchID, opponentID string, settings model.MatchSettings, deadlineSeconds int) {
	n.send(ctx, userID, wire.TypeMatchmakingConfirmReq, wire.MatchmakingConfirmRequestPayload{
		MatchID:        matchID,
		OpponentUserID: opponentID,
		Settings:       toWireSettings(settings),
		DeadlineSeconds: deadlineSeconds,
	})
}

func (n *eventNotifier) MatchmakingConfirmStatus(ctx context.Context, userA, userB, matchID string, status model.ConfirmStatus) {
	n.send(ctx, userA, wire.TypeMatchmakingConfirmStatus, wire.MatchmakingConfirmStatusPayload{MatchID: matchID, Status: string(status)})
	n.send(ctx, userB, wire.TypeMatchmakingConfirmStatus, wire.MatchmakingConfirmStatusPayload{MatchID: matchID, Status: string(status)})
}

func toWireSettings(s model.MatchSettings) wire.MatchSettings {
	return wire.MatchSettings{
		Mode:               string(s.Mode),
		Difficulty:         s.Difficulty,
		Category:           s.Category,
		TotalQuestions:     s.TotalQuestions,
		TimePerQuestionSec: s.TimePerQuestionSec,
	}
}

// sessionCleanup implements settlement.SessionCleanup: it clears the
// finished match off both players' sessions and returns them to online
// status (spec §4.6 step 7). It does not touch the match Manager, which
// drops a finished engine as soon as the engine's Done channel closes,
// with no grace window.
type sessionCleanup struct {
	sessions *registry.Registry
}

func (c *sessionCleanup) OnMatchFinished(ctx context.Context, playerA, playerB string) {
	for _, userID := range []string{playerA, playerB} {
		s, ok := c.sessions.LookupByUser(userID)
		if !ok {
			continue
		}
		_ = c.sessions.SetCurrentMatch(s.ID, "")
		_ = c.sessions.UpdateStatus(s.ID, model.StatusOnline)
	}
}

var _ match.Notifier = (*eventNotifier)(nil)
var _ matchmaking.Notifier = (*eventNotifier)(nil)
var _ settlement.Notifier = (*eventNotifier)(nil)
var _ lobby.MatchStarter = (*match.Manager)(nil)
var _ matchmaking.MatchStarter = (*match.Manager)(nil)
