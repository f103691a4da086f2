package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quizbattle/server/internal/store"
	"github.com/quizbattle/server/internal/store/postgres"
	"github.com/quizbattle/server/internal/testutil"
)

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	pool := testutil.SetupTestDB(t)

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, display_name) VALUES ('alice', 'Alice'), ('bob', 'Bob')`)
	require.NoError(t, err)

	st, err := postgres.NewFromPool(pool)
	require.NoError(t, err)
	return st
}

func TestStats_GetByUser_SeedsDefaultRating(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.Stats().GetByUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, 1000, stats.Rating)
	require.Equal(t, 0, stats.Wins)
}

func TestStats_ApplyDelta_AccumulatesAndClampsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Stats().GetByUser(ctx, "bob")
	require.NoError(t, err)

	after, err := s.Stats().ApplyDelta(ctx, "bob", store.StatsDelta{
		RatingDelta: -5000, Win: true, Correct: 3, Answered: 5, XP: 150, Coins: 50,
	})
	require.NoError(t, err)
	require.Equal(t, 0, after.Rating, "rating must clamp at zero")
	require.Equal(t, 1, after.Wins)
	require.Equal(t, 1, after.TotalGames)
	require.Equal(t, 3, after.Correct)
	require.Equal(t, 5, after.TotalAnswered)
	require.Equal(t, 150, after.XP)
	require.Equal(t, 50, after.Coins)
}

func TestQuestions_RandomSample_FiltersAndRespectsCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pool := s.Pool()

	_, err := pool.Exec(ctx, `
		INSERT INTO questions (id, text, choices, correct_index, difficulty, category) VALUES
		('q1', '2+2?', ARRAY['3','4','5','6'], 1, 'easy', 'math'),
		('q2', '3+3?', ARRAY['5','6','7','8'], 1, 'easy', 'math'),
		('q3', 'capital of France?', ARRAY['Rome','Paris','Berlin','Madrid'], 1, 'easy', 'geography')`)
	require.NoError(t, err)

	sample, err := s.Questions().RandomSample(ctx, "easy", "math", 10)
	require.NoError(t, err)
	require.Len(t, sample, 2)
	for _, q := range sample {
		require.Contains(t, []string{"q1", "q2"}, q.ID)
	}

	capped, err := s.Questions().RandomSample(ctx, "all", "all", 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
}
