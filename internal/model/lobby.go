package model

import "time"

// LobbyMember is one participant's membership record within a Lobby
// (spec §3).
type LobbyMember struct {
	UserID      string
	DisplayName string
	IsHost      bool
	IsReady     bool
	JoinedAt    time.Time
}

// Lobby is a host-organised, code-addressed private room (spec §3, §4.4).
// Owned by the Lobby Manager.
type Lobby struct {
	ID         string
	Code       string
	HostUserID string
	MaxPlayers int
	IsPrivate  bool
	Settings   MatchSettings
	Members    map[string]*LobbyMember
	Status     LobbyStatus
	ExpiresAt  time.Time
}

// ReadyCount returns how many members currently have IsReady set.
func (l *Lobby) ReadyCount() int {
	n := 0
	for _, m := range l.Members {
		if m.IsReady {
			n++
		}
	}
	return n
}

// AllReady reports whether every member is ready and the lobby has at
// least two members (spec §4.4 start precondition).
func (l *Lobby) AllReady() bool {
	if len(l.Members) < 2 {
		return false
	}
	return l.ReadyCount() == len(l.Members)
}

// MemberIDs returns the userIDs of every member, in join order.
func (l *Lobby) MemberIDs() []string {
	type entry struct {
		id       string
		joinedAt time.Time
	}
	entries := make([]entry, 0, len(l.Members))
	for id, m := range l.Members {
		entries = append(entries, entry{id, m.JoinedAt})
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].joinedAt.Before(entries[j-1].joinedAt); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}
