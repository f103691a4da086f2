package match

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quizbattle/server/internal/apperr"
	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/store"
)

func errMatchNotFound(matchID string) error {
	return apperr.New(apperr.CodeMatchNotFound, "match "+matchID+" not found")
}

// Manager creates and tracks one Engine per live match, routing commands
// from the Message Router to the right actor (spec §4.5, §9 "actor-per-
// match").
type Manager struct {
	mu      sync.RWMutex
	engines map[string]*Engine

	clock     clock.Clock
	questions store.Questions
	matches   store.Matches
	notifier  Notifier
	onFinish  SettlementHook
	cfg       Config
}

// New constructs a Manager. notifier and onFinish may be nil at
// construction and supplied later via SetNotifier/SetSettlementHook, since
// both typically depend on a Fanout built over this very Manager (spec §9
// wiring order: the audience resolver needs the manager before the
// manager's own outbound events can be encoded).
func New(clk clock.Clock, questions store.Questions, matches store.Matches, notifier Notifier, onFinish SettlementHook, cfg Config) *Manager {
	return &Manager{
		engines:   make(map[string]*Engine),
		clock:     clk,
		questions: questions,
		matches:   matches,
		notifier:  notifier,
		onFinish:  onFinish,
		cfg:       cfg,
	}
}

// SetNotifier supplies the outbound event sink, once it exists.
func (m *Manager) SetNotifier(notifier Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = notifier
}

// SetSettlementHook supplies the Settlement Pipeline hook, once it exists.
func (m *Manager) SetSettlementHook(hook SettlementHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinish = hook
}

// StartMatch implements matchmaking.MatchStarter and lobby.MatchStarter:
// it loads the question sample, builds the MatchState and Engine, and
// runs the engine on its own goroutine (spec §4.5 Start).
func (m *Manager) StartMatch(ctx context.Context, matchID, playerA, playerB string, settings model.MatchSettings) {
	totalQuestions := settings.TotalQuestions
	if totalQuestions <= 0 {
		totalQuestions = 5
	}
	if settings.TimePerQuestionSec <= 0 {
		settings.TimePerQuestionSec = 10
	}

	questions, err := m.questions.RandomSample(ctx, settings.Difficulty, settings.Category, totalQuestions)
	if err != nil {
		slog.Error("loading question sample failed", "matchId", matchID, "err", err)
		questions = nil
	}

	state := model.NewMatchState(matchID, playerA, playerB, settings)
	if err := m.matches.Insert(ctx, state); err != nil {
		slog.Error("persisting match insert failed", "matchId", matchID, "err", err)
	}

	engine := NewEngine(state, m.clock, m.notifier, m.wrapFinish(), m.cfg)

	m.mu.Lock()
	m.engines[matchID] = engine
	m.mu.Unlock()

	go engine.Run(ctx, shuffle(questions))

	go func() {
		<-engine.Done()
		m.mu.Lock()
		delete(m.engines, matchID)
		m.mu.Unlock()
	}()
}

// wrapFinish persists the terminal match row before invoking the
// configured settlement hook.
func (m *Manager) wrapFinish() SettlementHook {
	return func(ctx context.Context, state *model.MatchState) {
		if err := m.matches.Update(ctx, state); err != nil {
			slog.Error("persisting match update failed", "matchId", state.ID, "err", err)
		}
		if m.onFinish != nil {
			m.onFinish(ctx, state)
		}
	}
}

// SubmitAnswer routes an answer submission to matchID's engine.
func (m *Manager) SubmitAnswer(ctx context.Context, matchID, userID, questionID string, questionIndex, chosenIndex, answerTimeMs int) error {
	e, ok := m.lookup(matchID)
	if !ok {
		return errMatchNotFound(matchID)
	}
	return e.SubmitAnswer(ctx, userID, questionID, questionIndex, chosenIndex, answerTimeMs)
}

// Disconnect notifies matchID's engine that userID's socket dropped.
func (m *Manager) Disconnect(ctx context.Context, matchID, userID string) error {
	e, ok := m.lookup(matchID)
	if !ok {
		return nil
	}
	return e.Disconnect(ctx, userID)
}

// Reconnect notifies matchID's engine that userID re-attached.
func (m *Manager) Reconnect(ctx context.Context, matchID, userID string) error {
	e, ok := m.lookup(matchID)
	if !ok {
		return errMatchNotFound(matchID)
	}
	return e.Reconnect(ctx, userID)
}

// MatchParticipants implements router.MatchAudience for broadcastToMatch.
func (m *Manager) MatchParticipants(matchID string) (string, string, bool) {
	e, ok := m.lookup(matchID)
	if !ok {
		return "", "", false
	}
	a, b := e.Participants()
	return a, b, true
}

// IsParticipant reports whether userID is one of matchID's two players,
// used to enforce per-message userId/session matching (spec §6).
func (m *Manager) IsParticipant(matchID, userID string) bool {
	e, ok := m.lookup(matchID)
	if !ok {
		return false
	}
	a, b := e.Participants()
	return a == userID || b == userID
}

func (m *Manager) lookup(matchID string) (*Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.engines[matchID]
	return e, ok
}

// Count returns the number of live matches, for metrics/diagnostics.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.engines)
}
