// Package postgres is the only concrete implementation of store.Store:
// every table lives behind a pgxpool.Pool, wired the way la2go's
// internal/db.DB wraps one pool for every account operation, generalized
// here into one pool shared by several narrow sub-stores, one per
// store.go interface.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizbattle/server/internal/store"
)

// Store is the pgx-backed store.Store implementation. Each accessor
// returns a thin value wrapping the same pool; there is no per-resource
// connection management beyond what pgxpool already provides.
type Store struct {
	pool *pgxpool.Pool

	users         usersStore
	stats         statsStore
	questions     questionsStore
	matches       matchesStore
	matchAnswers  matchAnswersStore
	lobbies       lobbiesStore
	lobbyMembers  lobbyMembersStore
	friendships   friendshipsStore
	notifications notificationsStore
	achievements  achievementsStore
	missions      missionsStore
}

// New connects to PostgreSQL and returns a Store handle. Call Close when
// the process shuts down.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return NewFromPool(pool)
}

// NewFromPool builds a Store over an already-connected pool, for tests
// that set up their own pgxpool (e.g. against a testcontainers instance).
func NewFromPool(pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	s.users = usersStore{pool}
	s.stats = statsStore{pool}
	s.questions = questionsStore{pool}
	s.matches = matchesStore{pool}
	s.matchAnswers = matchAnswersStore{pool}
	s.lobbies = lobbiesStore{pool}
	s.lobbyMembers = lobbyMembersStore{pool}
	s.friendships = friendshipsStore{pool}
	s.notifications = notificationsStore{pool}
	s.achievements = achievementsStore{pool}
	s.missions = missionsStore{pool}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool returns the underlying pgx pool, for migrations and health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Users() store.Users                 { return s.users }
func (s *Store) Stats() store.Stats                 { return s.stats }
func (s *Store) Questions() store.Questions         { return s.questions }
func (s *Store) Matches() store.Matches             { return s.matches }
func (s *Store) MatchAnswers() store.MatchAnswers   { return s.matchAnswers }
func (s *Store) Lobbies() store.Lobbies             { return s.lobbies }
func (s *Store) LobbyMembers() store.LobbyMembers   { return s.lobbyMembers }
func (s *Store) Friendships() store.Friendships     { return s.friendships }
func (s *Store) Notifications() store.Notifications { return s.notifications }
func (s *Store) Achievements() store.Achievements   { return s.achievements }
func (s *Store) Missions() store.Missions           { return s.missions }

var _ store.Store = (*Store)(nil)
