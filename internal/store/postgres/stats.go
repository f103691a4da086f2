package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/store"
)

// defaultRating seeds a brand-new user's rating: the lowest Silver rating
// in model.TierOf (Bronze is everything below 1000).
const defaultRating = 1000

type statsStore struct {
	pool *pgxpool.Pool
}

func scanUserStats(row pgx.Row) (model.UserStats, error) {
	var st model.UserStats
	err := row.Scan(
		&st.UserID, &st.Rating, &st.Wins, &st.Losses, &st.Draws, &st.TotalGames,
		&st.CurrentStreak, &st.BestStreak, &st.Correct, &st.TotalAnswered,
		&st.Level, &st.XP, &st.Coins,
	)
	return st, err
}

func (s statsStore) GetByUser(ctx context.Context, userID string) (model.UserStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, rating, wins, losses, draws, total_games,
		       current_streak, best_streak, correct, total_answered, level, xp, coins
		FROM user_stats WHERE user_id = $1`, userID)
	st, err := scanUserStats(row)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.UserStats{}, fmt.Errorf("querying stats for %q: %w", userID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_stats (user_id, rating) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, defaultRating)
	if err != nil {
		return model.UserStats{}, fmt.Errorf("seeding stats for %q: %w", userID, err)
	}
	row = s.pool.QueryRow(ctx, `
		SELECT user_id, rating, wins, losses, draws, total_games,
		       current_streak, best_streak, correct, total_answered, level, xp, coins
		FROM user_stats WHERE user_id = $1`, userID)
	return scanUserStats(row)
}

func (s statsStore) ApplyDelta(ctx context.Context, userID string, delta store.StatsDelta) (model.UserStats, error) {
	if _, err := s.GetByUser(ctx, userID); err != nil {
		return model.UserStats{}, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE user_stats SET
			rating = GREATEST(rating + $2, 0),
			wins = wins + CASE WHEN $3 THEN 1 ELSE 0 END,
			losses = losses + CASE WHEN $4 THEN 1 ELSE 0 END,
			draws = draws + CASE WHEN $5 THEN 1 ELSE 0 END,
			total_games = total_games + CASE WHEN $3 OR $4 OR $5 THEN 1 ELSE 0 END,
			current_streak = CASE WHEN $3 THEN current_streak + 1 ELSE 0 END,
			best_streak = GREATEST(best_streak, CASE WHEN $3 THEN current_streak + 1 ELSE best_streak END),
			correct = correct + $6,
			total_answered = total_answered + $7,
			xp = xp + $8,
			coins = coins + $9
		WHERE user_id = $1
		RETURNING user_id, rating, wins, losses, draws, total_games,
		          current_streak, best_streak, correct, total_answered, level, xp, coins`,
		userID, delta.RatingDelta, delta.Win, delta.Loss, delta.Draw,
		delta.Correct, delta.Answered, delta.XP, delta.Coins,
	)
	st, err := scanUserStats(row)
	if err != nil {
		return model.UserStats{}, fmt.Errorf("applying stats delta for %q: %w", userID, err)
	}
	return st, nil
}

var _ store.Stats = statsStore{}
