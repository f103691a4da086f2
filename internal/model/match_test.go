package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbattle/server/internal/model"
)

func newTestMatch() *model.MatchState {
	m := model.NewMatchState("match-1", "alice", "bob", model.MatchSettings{
		Mode:               model.ModeCasual,
		Difficulty:         "easy",
		Category:           "all",
		TotalQuestions:     3,
		TimePerQuestionSec: 15,
	})
	m.Questions = []model.Question{
		{ID: "q1", Text: "2+2?", Choices: []string{"3", "4"}, CorrectIndex: 1},
		{ID: "q2", Text: "3+3?", Choices: []string{"5", "6"}, CorrectIndex: 1},
		{ID: "q3", Text: "capital of France?", Choices: []string{"Rome", "Paris"}, CorrectIndex: 1},
	}
	return m
}

func TestNewMatchState_StartsWaitingAtFullHealth(t *testing.T) {
	m := newTestMatch()
	assert.Equal(t, model.MatchWaiting, m.Status)
	assert.Equal(t, model.StartingHealth, m.HealthA)
	assert.Equal(t, model.StartingHealth, m.HealthB)
	assert.Equal(t, 0, m.CurrentIndex)
}

func TestOpponent_ReturnsTheOtherPlayer(t *testing.T) {
	m := newTestMatch()
	assert.Equal(t, "bob", m.Opponent("alice"))
	assert.Equal(t, "alice", m.Opponent("bob"))
}

func TestApplyDamage_ClampsToZeroAndHundred(t *testing.T) {
	m := newTestMatch()

	h := m.ApplyDamage("alice", 30)
	assert.Equal(t, 70, h)
	assert.Equal(t, 70, m.HealthOf("alice"))

	h = m.ApplyDamage("alice", 1000)
	assert.Equal(t, 0, h, "health must clamp at zero, not go negative")

	h = m.ApplyDamage("bob", -1000)
	assert.Equal(t, 100, h, "health must clamp at 100, never exceed starting health")
}

func TestHealthDepleted_TrueWhenEitherPlayerHitsZero(t *testing.T) {
	m := newTestMatch()
	assert.False(t, m.HealthDepleted())

	m.ApplyDamage("bob", 100)
	assert.True(t, m.HealthDepleted())
}

func TestMarkAnswered_ReportsBothAnsweredOnlyOnSecondDistinctPlayer(t *testing.T) {
	m := newTestMatch()

	both := m.MarkAnswered("alice")
	assert.False(t, both)
	assert.True(t, m.HasAnswered("alice"))
	assert.False(t, m.HasAnswered("bob"))

	both = m.MarkAnswered("bob")
	assert.True(t, both)
}

func TestMarkAnswered_DuplicateSubmissionDoesNotDoubleCount(t *testing.T) {
	m := newTestMatch()

	m.MarkAnswered("alice")
	both := m.MarkAnswered("alice")
	assert.False(t, both, "a repeated submission from the same player must not fake a both-answered transition")
}

func TestAdvanceQuestion_IncrementsAndClearsAnsweredSet(t *testing.T) {
	m := newTestMatch()
	m.MarkAnswered("alice")
	m.MarkAnswered("bob")

	m.AdvanceQuestion()

	assert.Equal(t, 1, m.CurrentIndex)
	assert.False(t, m.HasAnswered("alice"))
	assert.False(t, m.HasAnswered("bob"))
}

func TestCurrentQuestion_FalseAfterLastQuestion(t *testing.T) {
	m := newTestMatch()
	m.CurrentIndex = len(m.Questions)

	_, ok := m.CurrentQuestion()
	assert.False(t, ok)
}

func TestCorrectCountAndPointsSum_OnlyCountUserIDsAnswers(t *testing.T) {
	m := newTestMatch()
	m.AnswersLog = []model.AnswerRecord{
		{UserID: "alice", Correct: true, Points: 10},
		{UserID: "bob", Correct: true, Points: 10},
		{UserID: "alice", Correct: false, Points: 0},
		{UserID: "alice", Correct: true, Points: 8},
	}

	assert.Equal(t, 2, m.CorrectCount("alice"))
	assert.Equal(t, 1, m.CorrectCount("bob"))
	assert.Equal(t, 18, m.PointsSum("alice"))
}

func TestFinish_IsIdempotent(t *testing.T) {
	m := newTestMatch()
	at := time.Now()

	ok := m.Finish("alice", "bob", model.ReasonHealthDepleted, at)
	require.True(t, ok)
	assert.Equal(t, model.MatchFinished, m.Status)
	assert.Equal(t, "alice", m.Winner)
	assert.Equal(t, "bob", m.Loser)

	ok = m.Finish("bob", "alice", model.ReasonAllAnswered, at.Add(time.Second))
	assert.False(t, ok, "a second Finish call must be a no-op")
	assert.Equal(t, "alice", m.Winner, "winner recorded by the first Finish call must not change")
}
