package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/store"
)

type fakeStats struct {
	mu     sync.Mutex
	byUser map[string]model.UserStats
}

func newFakeStats(seed map[string]model.UserStats) *fakeStats {
	s := &fakeStats{byUser: make(map[string]model.UserStats)}
	for k, v := range seed {
		s.byUser[k] = v
	}
	return s
}

func (s *fakeStats) GetByUser(ctx context.Context, userID string) (model.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byUser[userID]
	if !ok {
		st = model.UserStats{Rating: 1000}
	}
	return st, nil
}

func (s *fakeStats) ApplyDelta(ctx context.Context, userID string, delta store.StatsDelta) (model.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.byUser[userID]
	if delta.Win {
		st.Wins++
	}
	if delta.Loss {
		st.Losses++
	}
	st.Rating += delta.RatingDelta
	if st.Rating < 0 {
		st.Rating = 0
	}
	st.XP += delta.XP
	st.Coins += delta.Coins
	st.Correct += delta.Correct
	st.TotalAnswered += delta.Answered
	s.byUser[userID] = st
	return st, nil
}

type fakeMatchAnswers struct {
	mu      sync.Mutex
	records []model.AnswerRecord
}

func (f *fakeMatchAnswers) Insert(ctx context.Context, a model.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, a)
	return nil
}

type fakeAchievements struct{ calls []string }

func (f *fakeAchievements) CheckAndAward(ctx context.Context, userID string, stats model.UserStats) ([]string, error) {
	f.calls = append(f.calls, userID)
	return nil, nil
}

type fakeMissions struct{ calls []string }

func (f *fakeMissions) RecordProgress(ctx context.Context, userID string, stats model.UserStats) error {
	f.calls = append(f.calls, userID)
	return nil
}

type fakeNotifications struct{ calls []string }

func (f *fakeNotifications) Notify(ctx context.Context, userID, kind, message string) error {
	f.calls = append(f.calls, userID)
	return nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	gameOvers  []gameOverCall
	mmrChanges []mmrCall
}

type gameOverCall struct {
	winner, loser Rewards
}

type mmrCall struct {
	userID   string
	old, new int
	tier     TierChange
}

func (n *recordingNotifier) GameOver(ctx context.Context, m *model.MatchState, winnerRewards, loserRewards Rewards) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gameOvers = append(n.gameOvers, gameOverCall{winnerRewards, loserRewards})
}

func (n *recordingNotifier) RankedMMRChanged(ctx context.Context, userID string, old, newRating int, tier TierChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mmrChanges = append(n.mmrChanges, mmrCall{userID, old, newRating, tier})
}

type recordingCleanup struct {
	mu    sync.Mutex
	calls [][2]string
}

func (c *recordingCleanup) OnMatchFinished(ctx context.Context, playerA, playerB string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, [2]string{playerA, playerB})
}

type fakeStore struct {
	stats         *fakeStats
	matchAnswers  *fakeMatchAnswers
	achievements  *fakeAchievements
	missions      *fakeMissions
	notifications *fakeNotifications
}

func (s *fakeStore) Users() store.Users                 { return nil }
func (s *fakeStore) Stats() store.Stats                 { return s.stats }
func (s *fakeStore) Questions() store.Questions         { return nil }
func (s *fakeStore) Matches() store.Matches             { return nil }
func (s *fakeStore) MatchAnswers() store.MatchAnswers   { return s.matchAnswers }
func (s *fakeStore) Lobbies() store.Lobbies             { return nil }
func (s *fakeStore) LobbyMembers() store.LobbyMembers   { return nil }
func (s *fakeStore) Friendships() store.Friendships     { return nil }
func (s *fakeStore) Notifications() store.Notifications { return s.notifications }
func (s *fakeStore) Achievements() store.Achievements   { return s.achievements }
func (s *fakeStore) Missions() store.Missions           { return s.missions }

func newFakePipeline(seed map[string]model.UserStats, k int) (*Pipeline, *recordingNotifier, *recordingCleanup, *fakeStore) {
	fs := &fakeStore{
		stats:         newFakeStats(seed),
		matchAnswers:  &fakeMatchAnswers{},
		achievements:  &fakeAchievements{},
		missions:      &fakeMissions{},
		notifications: &fakeNotifications{},
	}
	notifier := &recordingNotifier{}
	cleanup := &recordingCleanup{}
	p := New(fs, notifier, cleanup, Config{RatingK: k})
	return p, notifier, cleanup, fs
}

func finishedMatch(mode model.Mode, winner, loser string) *model.MatchState {
	settings := model.MatchSettings{Mode: mode, TotalQuestions: 5, TimePerQuestionSec: 10}
	m := model.NewMatchState("match-1", winner, loser, settings)
	m.AnswersLog = []model.AnswerRecord{
		{MatchID: m.ID, UserID: winner, QuestionIndex: 0, Correct: true, Points: 100},
		{MatchID: m.ID, UserID: loser, QuestionIndex: 0, Correct: false, Points: 0},
	}
	m.Finish(winner, loser, model.ReasonAllAnswered, time.Now())
	return m
}

func TestPipeline_CasualRewardsMatchWorkedExample(t *testing.T) {
	p, notifier, cleanup, _ := newFakePipeline(nil, 32)
	m := finishedMatch(model.ModeCasual, "alice", "bob")

	p.Process(context.Background(), m)

	require.Len(t, notifier.gameOvers, 1)
	over := notifier.gameOvers[0]
	assert.Equal(t, Rewards{Points: 100, XP: 150, Coins: 50}, over.winner)
	assert.Equal(t, Rewards{Points: 30, XP: 50, Coins: 10}, over.loser)

	require.Len(t, cleanup.calls, 1)
	assert.Equal(t, [2]string{"alice", "bob"}, cleanup.calls[0])

	assert.Empty(t, notifier.mmrChanges, "casual matches must not touch rating")
}

func TestPipeline_RankedEloMatchesWorkedExample(t *testing.T) {
	seed := map[string]model.UserStats{
		"alice": {Rating: 1500},
		"bob":   {Rating: 1700},
	}
	p, notifier, _, fs := newFakePipeline(seed, 32)
	m := finishedMatch(model.ModeRanked, "alice", "bob")

	p.Process(context.Background(), m)

	require.Len(t, notifier.mmrChanges, 2)

	aliceAfter, _ := fs.stats.GetByUser(context.Background(), "alice")
	bobAfter, _ := fs.stats.GetByUser(context.Background(), "bob")

	assert.Equal(t, 1524, aliceAfter.Rating)
	assert.Equal(t, 1676, bobAfter.Rating)
}

func TestPipeline_RatingNeverGoesNegative(t *testing.T) {
	seed := map[string]model.UserStats{
		"alice": {Rating: 5},
		"bob":   {Rating: 2000},
	}
	p, _, _, fs := newFakePipeline(seed, 32)
	m := finishedMatch(model.ModeRanked, "bob", "alice")

	p.Process(context.Background(), m)

	aliceAfter, _ := fs.stats.GetByUser(context.Background(), "alice")
	assert.GreaterOrEqual(t, aliceAfter.Rating, 0)
}

func TestPipeline_PersistsGradedAnswersFromEngineLog(t *testing.T) {
	p, _, _, fs := newFakePipeline(nil, 32)
	m := finishedMatch(model.ModeCasual, "alice", "bob")

	p.Process(context.Background(), m)

	require.Len(t, fs.matchAnswers.records, 2)
	byUser := map[string]model.AnswerRecord{}
	for _, r := range fs.matchAnswers.records {
		byUser[r.UserID] = r
	}
	assert.True(t, byUser["alice"].Correct)
	assert.Equal(t, 100, byUser["alice"].Points)
	assert.False(t, byUser["bob"].Correct)
	assert.Equal(t, 0, byUser["bob"].Points)
}

func TestPipeline_HooksFireAsyncWithoutBlockingGameOver(t *testing.T) {
	p, notifier, _, fs := newFakePipeline(nil, 32)
	m := finishedMatch(model.ModeCasual, "alice", "bob")

	p.Process(context.Background(), m)

	require.Len(t, notifier.gameOvers, 1, "game.over must be delivered synchronously")

	require.Eventually(t, func() bool {
		return len(fs.achievements.calls) == 2 && len(fs.missions.calls) == 2 && len(fs.notifications.calls) == 2
	}, time.Second, time.Millisecond)
}

func TestPipeline_NoContestSettlesWithZeroRewards(t *testing.T) {
	p, notifier, cleanup, _ := newFakePipeline(nil, 32)
	settings := model.MatchSettings{Mode: model.ModeCasual, TotalQuestions: 5, TimePerQuestionSec: 10}
	m := model.NewMatchState("match-2", "alice", "bob", settings)
	m.Finish("", "", model.ReasonInsufficientQ, time.Now())

	p.Process(context.Background(), m)

	require.Len(t, notifier.gameOvers, 1)
	assert.Equal(t, Rewards{}, notifier.gameOvers[0].winner)
	require.Len(t, cleanup.calls, 1)
}
