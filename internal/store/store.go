// Package store defines the core's only dependency on the durable world
// (spec §6 Store interface): question bank, user directory, persistent
// counters, lobby rows and the social/engagement tables touched by
// settlement hooks. The in-memory components (registry, matchmaking,
// lobby manager, match engine) never talk to a database directly — they
// depend on this interface, grounded the way udisondev/la2go's
// internal/db/repository interfaces separate game logic from pgx.
package store

import (
	"context"
	"time"

	"github.com/quizbattle/server/internal/model"
)

// Users is the user directory.
type Users interface {
	FindByID(ctx context.Context, userID string) (User, error)
	FindByName(ctx context.Context, displayName string) (User, error)
	Upsert(ctx context.Context, u User) error
}

// User is a durable account row.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// Stats is the persistent per-user counters and rating, mutated only by
// the Settlement Pipeline (spec §4.6).
type Stats interface {
	GetByUser(ctx context.Context, userID string) (model.UserStats, error)
	ApplyDelta(ctx context.Context, userID string, delta StatsDelta) (model.UserStats, error)
}

// StatsDelta is an atomic counter adjustment applied by ApplyDelta. Zero
// values are no-ops for that field.
type StatsDelta struct {
	RatingDelta int
	Win         bool
	Loss        bool
	Draw        bool
	Correct     int
	Answered    int
	XP          int
	Coins       int
}

// Questions is the question bank.
type Questions interface {
	// RandomSample returns up to count questions matching difficulty and
	// category (each may be "all" as a wildcard), in uniform random order
	// with no duplicates, including the server-only CorrectIndex (spec
	// §4.5 Start, §6).
	RandomSample(ctx context.Context, difficulty, category string, count int) ([]model.Question, error)
}

// Matches persists match lifecycle rows.
type Matches interface {
	Insert(ctx context.Context, m *model.MatchState) error
	Update(ctx context.Context, m *model.MatchState) error
}

// MatchAnswers persists graded answers with a unique constraint on
// (matchId, userId, questionIndex), enforcing I5.
type MatchAnswers interface {
	Insert(ctx context.Context, a model.AnswerRecord) error
}

// Lobbies persists lobby rows.
type Lobbies interface {
	Insert(ctx context.Context, l *model.Lobby) error
	Update(ctx context.Context, l *model.Lobby) error
	Delete(ctx context.Context, lobbyID string) error
}

// LobbyMembers persists lobby membership rows.
type LobbyMembers interface {
	Insert(ctx context.Context, lobbyID string, m model.LobbyMember) error
	Delete(ctx context.Context, lobbyID, userID string) error
	SetReady(ctx context.Context, lobbyID, userID string, ready bool) error
}

// Friendships, Notifications, Achievements and Missions are opaque to the
// core (spec §6). Notifications, Achievements and Missions are invoked
// from the §4.6 settlement hooks, fire-and-forget; Friendships backs the
// Fanout's friend audience.
type Friendships interface {
	OnlineFriendIDs(ctx context.Context, userID string) ([]string, error)
}

type Notifications interface {
	Notify(ctx context.Context, userID, kind, message string) error
}

type Achievements interface {
	CheckAndAward(ctx context.Context, userID string, stats model.UserStats) ([]string, error)
}

type Missions interface {
	RecordProgress(ctx context.Context, userID string, stats model.UserStats) error
}

// Store aggregates every durable dependency the core needs. A concrete
// implementation (see internal/store/postgres) wires all of these to one
// connection pool; tests wire an in-memory fake.
type Store interface {
	Users() Users
	Stats() Stats
	Questions() Questions
	Matches() Matches
	MatchAnswers() MatchAnswers
	Lobbies() Lobbies
	LobbyMembers() LobbyMembers
	Friendships() Friendships
	Notifications() Notifications
	Achievements() Achievements
	Missions() Missions
}
