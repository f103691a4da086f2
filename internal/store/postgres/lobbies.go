package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/store"
)

type lobbiesStore struct {
	pool *pgxpool.Pool
}

func (s lobbiesStore) Insert(ctx context.Context, l *model.Lobby) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO lobbies (id, code, host_user_id, max_players, is_private, difficulty, category, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.Code, l.HostUserID, l.MaxPlayers, l.IsPrivate, l.Settings.Difficulty, l.Settings.Category,
		l.Status, l.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting lobby %q: %w", l.ID, err)
	}
	return nil
}

func (s lobbiesStore) Update(ctx context.Context, l *model.Lobby) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE lobbies SET host_user_id = $2, status = $3 WHERE id = $1`,
		l.ID, l.HostUserID, l.Status,
	)
	if err != nil {
		return fmt.Errorf("updating lobby %q: %w", l.ID, err)
	}
	return nil
}

func (s lobbiesStore) Delete(ctx context.Context, lobbyID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM lobbies WHERE id = $1`, lobbyID)
	if err != nil {
		return fmt.Errorf("deleting lobby %q: %w", lobbyID, err)
	}
	return nil
}

type lobbyMembersStore struct {
	pool *pgxpool.Pool
}

func (s lobbyMembersStore) Insert(ctx context.Context, lobbyID string, m model.LobbyMember) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO lobby_members (lobby_id, user_id, display_name, is_host, is_ready, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (lobby_id, user_id) DO NOTHING`,
		lobbyID, m.UserID, m.DisplayName, m.IsHost, m.IsReady, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting lobby member %q/%q: %w", lobbyID, m.UserID, err)
	}
	return nil
}

func (s lobbyMembersStore) Delete(ctx context.Context, lobbyID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM lobby_members WHERE lobby_id = $1 AND user_id = $2`, lobbyID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting lobby member %q/%q: %w", lobbyID, userID, err)
	}
	return nil
}

func (s lobbyMembersStore) SetReady(ctx context.Context, lobbyID, userID string, ready bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE lobby_members SET is_ready = $3 WHERE lobby_id = $1 AND user_id = $2`,
		lobbyID, userID, ready,
	)
	if err != nil {
		return fmt.Errorf("setting ready for lobby member %q/%q: %w", lobbyID, userID, err)
	}
	return nil
}

var _ store.Lobbies = lobbiesStore{}
var _ store.LobbyMembers = lobbyMembersStore{}
