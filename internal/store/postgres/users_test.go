package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbattle/server/internal/store"
)

func TestUsers_UpsertThenFindByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := store.User{ID: "carol", DisplayName: "Carol", CreatedAt: time.Now().Truncate(time.Second)}
	require.NoError(t, s.Users().Upsert(ctx, u))

	got, err := s.Users().FindByID(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol", got.DisplayName)
}

func TestUsers_UpsertIsIdempotentOnDisplayNameChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := store.User{ID: "carol", DisplayName: "Carol", CreatedAt: time.Now()}
	require.NoError(t, s.Users().Upsert(ctx, u))

	u.DisplayName = "CarolRenamed"
	require.NoError(t, s.Users().Upsert(ctx, u))

	got, err := s.Users().FindByID(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "CarolRenamed", got.DisplayName)
}

func TestUsers_FindByID_NotFoundReturnsError(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Users().FindByID(context.Background(), "nobody")
	assert.Error(t, err)
}

func TestUsers_FindByName_MatchesSeededAlice(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Users().FindByName(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.ID)
}
