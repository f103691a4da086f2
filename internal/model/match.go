package model

import "time"

// MatchSettings is the agreed configuration for a single match (spec §3).
type MatchSettings struct {
	Mode               Mode
	Difficulty         string
	Category           string
	TotalQuestions     int
	TimePerQuestionSec int
}

// Question is one round's prompt. CorrectIndex is server-only: the wire
// encoder for outbound question payloads must never serialize it (spec
// §4.5 "without the correct indices").
type Question struct {
	ID           string
	Text         string
	Choices      []string
	CorrectIndex int
}

// AnswerRecord is one player's graded response to one question (spec §3).
// The tuple (MatchID, UserID, QuestionIndex) is unique (I5).
type AnswerRecord struct {
	MatchID       string
	UserID        string
	QuestionIndex int
	ChosenIndex   int
	Correct       bool
	AnswerTimeMs  int
	Points        int
}

// MatchState is the Match Engine's authoritative per-match record
// (spec §3, §4.5). The engine actor is the sole writer.
type MatchState struct {
	ID                string
	PlayerA           string
	PlayerB           string
	Settings          MatchSettings
	Questions         []Question
	CurrentIndex      int
	QuestionStartedAt time.Time
	HealthA           int
	HealthB           int
	Status            MatchStatus
	AnswersLog        []AnswerRecord
	StartedAt         time.Time
	FinishedAt        time.Time
	Winner            string
	Loser             string
	Reason            EndReason

	// answered tracks, for CurrentIndex, which players have already
	// submitted a graded answer this round (spec I3: advance only on
	// timeout or when all live players have answered).
	answered map[string]bool
}

const (
	// StartingHealth is each player's health at match start (spec §3).
	StartingHealth = 100
	// DamageUnit is the HP lost per scoring event (spec §3, §6 damage.*).
	DamageUnit = 10
)

// NewMatchState constructs a fresh waiting match between two players.
func NewMatchState(id, playerA, playerB string, settings MatchSettings) *MatchState {
	return &MatchState{
		ID:       id,
		PlayerA:  playerA,
		PlayerB:  playerB,
		Settings: settings,
		HealthA:  StartingHealth,
		HealthB:  StartingHealth,
		Status:   MatchWaiting,
		answered: make(map[string]bool),
	}
}

// Opponent returns the other player's userId.
func (m *MatchState) Opponent(userID string) string {
	if userID == m.PlayerA {
		return m.PlayerB
	}
	return m.PlayerA
}

// HealthOf returns the current health for the given player.
func (m *MatchState) HealthOf(userID string) int {
	if userID == m.PlayerA {
		return m.HealthA
	}
	return m.HealthB
}

// ApplyDamage subtracts amount HP from userID's health, clamped to [0,100]
// (I4), and returns the new value.
func (m *MatchState) ApplyDamage(userID string, amount int) int {
	h := m.HealthOf(userID) - amount
	if h < 0 {
		h = 0
	}
	if h > 100 {
		h = 100
	}
	if userID == m.PlayerA {
		m.HealthA = h
	} else {
		m.HealthB = h
	}
	return h
}

// HealthDepleted reports whether either player has reached 0 HP.
func (m *MatchState) HealthDepleted() bool {
	return m.HealthA <= 0 || m.HealthB <= 0
}

// MarkAnswered records that userID has answered the current question and
// reports whether both live players have now answered it.
func (m *MatchState) MarkAnswered(userID string) (bothAnswered bool) {
	m.answered[userID] = true
	return len(m.answered) >= 2
}

// HasAnswered reports whether userID already answered the current question
// (used to silently ignore duplicate submissions and preserve I5).
func (m *MatchState) HasAnswered(userID string) bool {
	return m.answered[userID]
}

// AdvanceQuestion moves to the next question index and clears the
// per-question answered set. currentIndex is monotonically non-decreasing
// (I3) since this is the only mutator and it always increments.
func (m *MatchState) AdvanceQuestion() {
	m.CurrentIndex++
	m.answered = make(map[string]bool)
}

// CurrentQuestion returns the question at CurrentIndex, or false if the
// match has run past the last question.
func (m *MatchState) CurrentQuestion() (Question, bool) {
	if m.CurrentIndex < 0 || m.CurrentIndex >= len(m.Questions) {
		return Question{}, false
	}
	return m.Questions[m.CurrentIndex], true
}

// CorrectCount returns how many of userID's logged answers were correct.
func (m *MatchState) CorrectCount(userID string) int {
	n := 0
	for _, a := range m.AnswersLog {
		if a.UserID == userID && a.Correct {
			n++
		}
	}
	return n
}

// PointsSum returns the sum of userID's logged display points.
func (m *MatchState) PointsSum(userID string) int {
	sum := 0
	for _, a := range m.AnswersLog {
		if a.UserID == userID {
			sum += a.Points
		}
	}
	return sum
}

// Finish transitions the match to finished with the given winner/loser and
// reason. It is idempotent: a second call is a no-op and reports false,
// satisfying the I6 / endGame re-entrance guard (spec §4.5).
func (m *MatchState) Finish(winner, loser string, reason EndReason, at time.Time) bool {
	if m.Status == MatchFinished {
		return false
	}
	m.Status = MatchFinished
	m.Winner = winner
	m.Loser = loser
	m.Reason = reason
	m.FinishedAt = at
	return true
}
