package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/store"
)

type friendshipsStore struct {
	pool *pgxpool.Pool
}

// OnlineFriendIDs returns the userIds of userID's accepted friendships,
// regardless of presence. The online filter happens in router.Fanout:
// BroadcastToFriends sends through SendToUser, which skips users with no
// live session in the Registry.
func (s friendshipsStore) OnlineFriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT CASE WHEN user_a = $1 THEN user_b ELSE user_a END
		FROM friendships
		WHERE (user_a = $1 OR user_b = $1) AND status = 'accepted'`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying friendships for %q: %w", userID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning friendship row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type notificationsStore struct {
	pool *pgxpool.Pool
}

func (s notificationsStore) Notify(ctx context.Context, userID, kind, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (user_id, kind, message, created_at) VALUES ($1, $2, $3, now())`,
		userID, kind, message,
	)
	if err != nil {
		return fmt.Errorf("recording notification for %q: %w", userID, err)
	}
	return nil
}

type achievementsStore struct {
	pool *pgxpool.Pool
}

// CheckAndAward grants every achievement whose threshold is newly met by
// stats and returns the keys awarded this call.
func (s achievementsStore) CheckAndAward(ctx context.Context, userID string, stats model.UserStats) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		INSERT INTO user_achievements (user_id, achievement_key, awarded_at)
		SELECT $1, a.key, now()
		FROM achievements a
		WHERE (a.metric = 'wins' AND a.threshold <= $2)
		   OR (a.metric = 'correct' AND a.threshold <= $3)
		ON CONFLICT (user_id, achievement_key) DO NOTHING
		RETURNING achievement_key`,
		userID, stats.Wins, stats.Correct,
	)
	if err != nil {
		return nil, fmt.Errorf("awarding achievements for %q: %w", userID, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning awarded achievement row: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

type missionsStore struct {
	pool *pgxpool.Pool
}

func (s missionsStore) RecordProgress(ctx context.Context, userID string, stats model.UserStats) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_missions SET progress = $2, updated_at = now()
		WHERE user_id = $1 AND NOT completed`,
		userID, stats.TotalGames,
	)
	if err != nil {
		return fmt.Errorf("recording mission progress for %q: %w", userID, err)
	}
	return nil
}

var _ store.Friendships = friendshipsStore{}
var _ store.Notifications = notificationsStore{}
var _ store.Achievements = achievementsStore{}
var _ store.Missions = missionsStore{}
