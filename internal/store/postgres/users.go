package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizbattle/server/internal/store"
)

type usersStore struct {
	pool *pgxpool.Pool
}

func (s usersStore) FindByID(ctx context.Context, userID string) (store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, created_at FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.User{}, fmt.Errorf("user %q not found", userID)
		}
		return store.User{}, fmt.Errorf("querying user %q: %w", userID, err)
	}
	return u, nil
}

func (s usersStore) FindByName(ctx context.Context, displayName string) (store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, created_at FROM users WHERE display_name = $1`, displayName,
	).Scan(&u.ID, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.User{}, fmt.Errorf("user %q not found", displayName)
		}
		return store.User{}, fmt.Errorf("querying user %q: %w", displayName, err)
	}
	return u, nil
}

func (s usersStore) Upsert(ctx context.Context, u store.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, display_name, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name`,
		u.ID, u.DisplayName, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", u.ID, err)
	}
	return nil
}

var _ store.Users = usersStore{}
