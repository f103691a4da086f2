package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quizbattle/server/internal/model"
)

func newTestLobby() *model.Lobby {
	base := time.Now()
	return &model.Lobby{
		ID:         "lobby-1",
		Code:       "ABCD",
		HostUserID: "alice",
		MaxPlayers: 4,
		Status:     model.LobbyWaiting,
		Members: map[string]*model.LobbyMember{
			"alice": {UserID: "alice", IsHost: true, IsReady: true, JoinedAt: base},
			"bob":   {UserID: "bob", JoinedAt: base.Add(time.Second)},
			"carol": {UserID: "carol", JoinedAt: base.Add(2 * time.Second)},
		},
	}
}

func TestReadyCount_CountsOnlyReadyMembers(t *testing.T) {
	l := newTestLobby()
	assert.Equal(t, 1, l.ReadyCount())
}

func TestAllReady_FalseBelowTwoMembers(t *testing.T) {
	l := &model.Lobby{Members: map[string]*model.LobbyMember{
		"alice": {UserID: "alice", IsReady: true},
	}}
	assert.False(t, l.AllReady())
}

func TestAllReady_TrueOnlyWhenEveryMemberIsReady(t *testing.T) {
	l := newTestLobby()
	assert.False(t, l.AllReady())

	l.Members["bob"].IsReady = true
	l.Members["carol"].IsReady = true
	assert.True(t, l.AllReady())
}

func TestMemberIDs_ReturnsJoinOrder(t *testing.T) {
	l := newTestLobby()
	assert.Equal(t, []string{"alice", "bob", "carol"}, l.MemberIDs())
}
