package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/store"
)

// wildcard is the sentinel difficulty/category value meaning "don't filter"
// (spec §6 Questions.RandomSample).
const wildcard = "all"

type questionsStore struct {
	pool *pgxpool.Pool
}

func (s questionsStore) RandomSample(ctx context.Context, difficulty, category string, count int) ([]model.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, text, choices, correct_index
		FROM questions
		WHERE ($1 = $2 OR difficulty = $1)
		  AND ($3 = $2 OR category = $3)
		ORDER BY random()
		LIMIT $4`,
		difficulty, wildcard, category, count,
	)
	if err != nil {
		return nil, fmt.Errorf("sampling questions: %w", err)
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Choices, &q.CorrectIndex); err != nil {
			return nil, fmt.Errorf("scanning question row: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating question rows: %w", err)
	}
	return out, nil
}

var _ store.Questions = questionsStore{}
