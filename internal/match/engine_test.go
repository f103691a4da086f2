package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/model"
)

type recordedEvent struct {
	kind string
	data any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) record(kind string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{kind, data})
}

func (n *recordingNotifier) GameStarted(ctx context.Context, m *model.MatchState, serverTime time.Time) {
	n.record("started", nil)
}
func (n *recordingNotifier) GameQuestionsAll(ctx context.Context, m *model.MatchState) {
	n.record("questions", nil)
}
func (n *recordingNotifier) GameAnswerReceived(ctx context.Context, m *model.MatchState, userID string, correctIndex int, correct bool, points int) {
	n.record("answer_received", map[string]any{"user": userID, "correct": correct})
}
func (n *recordingNotifier) GameOpponentAnswered(ctx context.Context, m *model.MatchState, answererID string, correct bool) {
	n.record("opponent_answered", nil)
}
func (n *recordingNotifier) GameBattleUpdate(ctx context.Context, m *model.MatchState) {
	n.record("battle_update", map[string]any{"healthA": m.HealthA, "healthB": m.HealthB})
}
func (n *recordingNotifier) GameQuestionTimeout(ctx context.Context, m *model.MatchState, correctIndex int, damaged []string, damage int) {
	n.record("timeout", damage)
}
func (n *recordingNotifier) GamePlayerDisconnected(ctx context.Context, m *model.MatchState, userID string) {
	n.record("disconnected", userID)
}
func (n *recordingNotifier) GamePlayerReconnected(ctx context.Context, m *model.MatchState, userID string) {
	n.record("reconnected", userID)
}

func (n *recordingNotifier) lastOf(kind string) (recordedEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].kind == kind {
			return n.events[i], true
		}
	}
	return recordedEvent{}, false
}

func (n *recordingNotifier) countOf(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.events {
		if e.kind == kind {
			count++
		}
	}
	return count
}

func newTestEngine(fc *clock.Fake, notifier *recordingNotifier, totalQuestions int) (*Engine, *model.MatchState) {
	settings := model.MatchSettings{Mode: model.ModeCasual, TotalQuestions: totalQuestions, TimePerQuestionSec: 10}
	state := model.NewMatchState("match-1", "alice", "bob", settings)
	cfg := Config{DamagePerAnswer: 10, DamageOnTimeout: 15}
	var finished *model.MatchState
	onFinish := func(ctx context.Context, m *model.MatchState) { finished = m }
	e := NewEngine(state, fc, notifier, onFinish, cfg)
	_ = finished
	return e, state
}

func questionsOf(n int) []model.Question {
	out := make([]model.Question, n)
	for i := range out {
		out[i] = model.Question{ID: "q", Text: "text", Choices: []string{"a", "b", "c"}, CorrectIndex: 2}
	}
	return out
}

func TestEngine_SingleQuestionHappyPath(t *testing.T) {
	fc := clock.NewFake(time.Now())
	notifier := &recordingNotifier{}
	e, state := newTestEngine(fc, notifier, 1)

	go e.Run(context.Background(), questionsOf(1))

	require.NoError(t, e.SubmitAnswer(context.Background(), "alice", "q", 0, 2, 3000))
	require.NoError(t, e.SubmitAnswer(context.Background(), "bob", "q", 0, 0, 4000))

	<-e.Done()

	assert.Equal(t, model.MatchFinished, state.Status)
	assert.Equal(t, "alice", state.Winner)
	assert.Equal(t, model.ReasonAllAnswered, state.Reason)
	assert.Equal(t, 100, state.HealthA)
	assert.Equal(t, 90, state.HealthB)
}

func TestEngine_HealthDepletionEndsImmediately(t *testing.T) {
	fc := clock.NewFake(time.Now())
	notifier := &recordingNotifier{}
	e, state := newTestEngine(fc, notifier, 20)

	go e.Run(context.Background(), questionsOf(20))

	for i := 0; i < 10; i++ {
		require.NoError(t, e.SubmitAnswer(context.Background(), "bob", "q", i, 0, 1000))
		require.NoError(t, e.SubmitAnswer(context.Background(), "alice", "q", i, 2, 1000))
		if state.Status == model.MatchFinished {
			break
		}
		fc.Advance(4 * time.Second)
	}

	<-e.Done()

	assert.Equal(t, model.ReasonHealthDepleted, state.Reason)
	assert.Equal(t, "alice", state.Winner)
	assert.Equal(t, 0, state.HealthB)
}

func TestEngine_DoubleTimeoutDamagesBoth(t *testing.T) {
	fc := clock.NewFake(time.Now())
	notifier := &recordingNotifier{}
	e, state := newTestEngine(fc, notifier, 20)

	go e.Run(context.Background(), questionsOf(20))

	fc.Advance(11 * time.Second)

	require.Eventually(t, func() bool {
		return notifier.countOf("timeout") >= 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, 85, state.HealthA)
	assert.Equal(t, 85, state.HealthB)

	ev, ok := notifier.lastOf("timeout")
	require.True(t, ok)
	assert.Equal(t, 15, ev.data, "TookDamage must reflect DamageOnTimeout, not TimePerQuestionSec")

	e.Stop(context.Background())
}

func TestEngine_DisconnectEndsMatchWithOpponentWinning(t *testing.T) {
	fc := clock.NewFake(time.Now())
	notifier := &recordingNotifier{}
	e, state := newTestEngine(fc, notifier, 5)

	go e.Run(context.Background(), questionsOf(5))

	require.NoError(t, e.Disconnect(context.Background(), "bob"))
	<-e.Done()

	assert.Equal(t, model.ReasonDisconnected, state.Reason)
	assert.Equal(t, "alice", state.Winner)
	assert.Equal(t, "bob", state.Loser)

	ev, ok := notifier.lastOf("disconnected")
	require.True(t, ok)
	assert.Equal(t, "bob", ev.data)
}

func TestEngine_InsufficientQuestionsEndsImmediately(t *testing.T) {
	fc := clock.NewFake(time.Now())
	notifier := &recordingNotifier{}
	e, state := newTestEngine(fc, notifier, 5)

	e.Run(context.Background(), nil)

	assert.Equal(t, model.MatchFinished, state.Status)
	assert.Equal(t, model.ReasonInsufficientQ, state.Reason)
}

func TestEngine_DuplicateAnswerIgnored(t *testing.T) {
	fc := clock.NewFake(time.Now())
	notifier := &recordingNotifier{}
	e, state := newTestEngine(fc, notifier, 5)

	go e.Run(context.Background(), questionsOf(5))

	require.NoError(t, e.SubmitAnswer(context.Background(), "alice", "q", 0, 0, 1000))
	healthAAfterFirst := state.HealthA
	require.Equal(t, 90, healthAAfterFirst)

	require.NoError(t, e.SubmitAnswer(context.Background(), "alice", "q", 0, 0, 1000))
	assert.Equal(t, healthAAfterFirst, state.HealthA)

	e.Stop(context.Background())
}
