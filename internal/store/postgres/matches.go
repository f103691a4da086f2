package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/store"
)

type matchesStore struct {
	pool *pgxpool.Pool
}

func (s matchesStore) Insert(ctx context.Context, m *model.MatchState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matches (id, player_a, player_b, mode, difficulty, category, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.PlayerA, m.PlayerB, m.Settings.Mode, m.Settings.Difficulty, m.Settings.Category,
		m.Status, m.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting match %q: %w", m.ID, err)
	}
	return nil
}

func (s matchesStore) Update(ctx context.Context, m *model.MatchState) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE matches SET
			status = $2, winner = $3, loser = $4, reason = $5,
			final_health_a = $6, final_health_b = $7, finished_at = $8
		WHERE id = $1`,
		m.ID, m.Status, nullableString(m.Winner), nullableString(m.Loser), m.Reason,
		m.HealthA, m.HealthB, nullableTime(m.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("updating match %q: %w", m.ID, err)
	}
	return nil
}

type matchAnswersStore struct {
	pool *pgxpool.Pool
}

func (s matchAnswersStore) Insert(ctx context.Context, a model.AnswerRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_answers (match_id, user_id, question_index, chosen_index, correct, answer_time_ms, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (match_id, user_id, question_index) DO NOTHING`,
		a.MatchID, a.UserID, a.QuestionIndex, a.ChosenIndex, a.Correct, a.AnswerTimeMs, a.Points,
	)
	if err != nil {
		return fmt.Errorf("inserting answer for match %q user %q: %w", a.MatchID, a.UserID, err)
	}
	return nil
}

var _ store.Matches = matchesStore{}
var _ store.MatchAnswers = matchAnswersStore{}
