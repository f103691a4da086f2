// Package lobby implements the Lobby Manager of spec §4.4: private-room
// creation by invite code, host-authoritative ready/start, host transfer
// or close on departure, kick, and TTL-based expiry.
//
// Grounded on Seednode/partybox's lobby-as-map-of-members model
// (celebrity.go's Lobby/lockLobby/kick/startGame handling), adapted to a
// mutex-guarded manager the way udisondev/la2go protects shared session
// state, since the spec calls for "mutex is sufficient for ... Lobby
// Manager" (§9 Design Notes).
package lobby

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizbattle/server/internal/apperr"
	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/model"
)

// MatchStarter hands a ready-to-play lobby off to the Match Engine.
type MatchStarter interface {
	StartMatch(ctx context.Context, matchID, playerA, playerB string, settings model.MatchSettings)
}

// Manager owns every live Lobby.
type Manager struct {
	mu      sync.Mutex
	lobbies map[string]*model.Lobby
	byCode  map[string]string // code -> lobbyId

	clock   clock.Clock
	ttl     time.Duration
	starter MatchStarter
}

// New constructs an empty Manager. ttl is the lobby lifetime from
// creation (spec §6 "lobbyTtlMin", default 30).
func New(clk clock.Clock, ttl time.Duration, starter MatchStarter) *Manager {
	return &Manager{
		lobbies: make(map[string]*model.Lobby),
		byCode:  make(map[string]string),
		clock:   clk,
		ttl:     ttl,
		starter: starter,
	}
}

// Create makes a new private lobby with hostID auto-ready as its sole
// member.
func (m *Manager) Create(hostID, hostDisplayName string, maxPlayers int, difficulty, category string, isPrivate bool) (*model.Lobby, error) {
	code, err := m.uniqueCodeLocked()
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	l := &model.Lobby{
		ID:         uuid.NewString(),
		Code:       code,
		HostUserID: hostID,
		MaxPlayers: maxPlayers,
		IsPrivate:  isPrivate,
		Settings: model.MatchSettings{
			Mode:       model.ModeFriend,
			Difficulty: difficulty,
			Category:   category,
		},
		Members: map[string]*model.LobbyMember{
			hostID: {UserID: hostID, DisplayName: hostDisplayName, IsHost: true, IsReady: true, JoinedAt: now},
		},
		Status:    model.LobbyWaiting,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.lobbies[l.ID] = l
	m.byCode[l.Code] = l.ID
	m.mu.Unlock()

	return l, nil
}

// uniqueCodeLocked generates a code not currently in use, retrying up to
// maxCodeRetries times (spec §4.4).
func (m *Manager) uniqueCodeLocked() (string, error) {
	for i := 0; i < maxCodeRetries; i++ {
		code, err := generateCode()
		if err != nil {
			return "", apperr.Wrap(apperr.CodeLobbyCodeGenerationFailed, "failed to generate lobby code", err)
		}
		m.mu.Lock()
		_, taken := m.byCode[code]
		m.mu.Unlock()
		if !taken {
			return code, nil
		}
	}
	return "", apperr.New(apperr.CodeLobbyCodeGenerationFailed, "exhausted retries generating a unique lobby code")
}

// Join adds userID to the lobby identified by code.
func (m *Manager) Join(code, userID, displayName string) (*model.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lobbyID, ok := m.byCode[code]
	if !ok {
		return nil, apperr.New(apperr.CodeLobbyNotFound, "no lobby with that code")
	}
	l := m.lobbies[lobbyID]
	if l == nil || l.Status != model.LobbyWaiting {
		return nil, apperr.New(apperr.CodeLobbyNotFound, "lobby has already started or ended")
	}
	if len(l.Members) >= l.MaxPlayers {
		return nil, apperr.New(apperr.CodeInvalidRequest, "lobby is full")
	}

	l.Members[userID] = &model.LobbyMember{
		UserID:      userID,
		DisplayName: displayName,
		JoinedAt:    m.clock.Now(),
	}
	return l, nil
}

// Get returns the lobby for lobbyID.
func (m *Manager) Get(lobbyID string) (*model.Lobby, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lobbies[lobbyID]
	return l, ok
}

// SetReady toggles userID's ready state within lobbyID.
func (m *Manager) SetReady(lobbyID, userID string, ready bool) (*model.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lobbies[lobbyID]
	if !ok {
		return nil, apperr.New(apperr.CodeLobbyNotFound, "lobby not found")
	}
	member, ok := l.Members[userID]
	if !ok {
		return nil, apperr.New(apperr.CodeLobbyNotFound, "user is not a member of this lobby")
	}
	member.IsReady = ready
	return l, nil
}

// Start begins the match if hostID is the host and every member is ready
// (spec §4.4: "host-authoritative and requires >= 2 members all ready").
// Returns the new matchId.
func (m *Manager) Start(ctx context.Context, lobbyID, hostID string) (string, error) {
	m.mu.Lock()
	l, ok := m.lobbies[lobbyID]
	if !ok {
		m.mu.Unlock()
		return "", apperr.New(apperr.CodeLobbyNotFound, "lobby not found")
	}
	if l.HostUserID != hostID {
		m.mu.Unlock()
		return "", apperr.New(apperr.CodeUnauthorized, "only the host may start the match")
	}
	if !l.AllReady() {
		m.mu.Unlock()
		return "", apperr.New(apperr.CodeNotReady, "not all members are ready")
	}

	ids := l.MemberIDs()
	playerA, playerB := ids[0], ids[1]
	settings := l.Settings
	settings.TotalQuestions = defaultTotalQuestions(settings)
	l.Status = model.LobbyStarting
	m.mu.Unlock()

	matchID := uuid.NewString()
	m.starter.StartMatch(ctx, matchID, playerA, playerB, settings)
	return matchID, nil
}

func defaultTotalQuestions(s model.MatchSettings) int {
	if s.TotalQuestions > 0 {
		return s.TotalQuestions
	}
	return 5
}

// LeaveResult reports what happened to the lobby after a departure.
type LeaveResult struct {
	Closed    bool
	NewHostID string
	Members   []model.LobbyMember
}

// Leave removes userID from lobbyID. If userID was the host, host
// transfers to the oldest remaining member, or the lobby closes if no
// members remain (spec §4.4).
func (m *Manager) Leave(lobbyID, userID string) (LeaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lobbies[lobbyID]
	if !ok {
		return LeaveResult{}, apperr.New(apperr.CodeLobbyNotFound, "lobby not found")
	}

	wasHost := l.HostUserID == userID
	delete(l.Members, userID)

	if len(l.Members) == 0 {
		m.closeLocked(l)
		return LeaveResult{Closed: true}, nil
	}

	result := LeaveResult{}
	if wasHost {
		ids := l.MemberIDs()
		newHostID := ids[0]
		l.HostUserID = newHostID
		l.Members[newHostID].IsHost = true
		result.NewHostID = newHostID
	}
	result.Members = snapshotMembers(l)
	return result, nil
}

// Kick removes targetUserID from lobbyID, authorized only for the host.
func (m *Manager) Kick(lobbyID, hostID, targetUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lobbies[lobbyID]
	if !ok {
		return apperr.New(apperr.CodeLobbyNotFound, "lobby not found")
	}
	if l.HostUserID != hostID {
		return apperr.New(apperr.CodeUnauthorized, "only the host may kick")
	}
	if targetUserID == hostID {
		return apperr.New(apperr.CodeInvalidRequest, "host cannot kick itself")
	}
	if _, ok := l.Members[targetUserID]; !ok {
		return apperr.New(apperr.CodeLobbyNotFound, "target is not a member of this lobby")
	}
	delete(l.Members, targetUserID)
	return nil
}

// ListOpen returns a snapshot of every public, still-waiting lobby.
func (m *Manager) ListOpen() []*model.Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Lobby
	for _, l := range m.lobbies {
		if !l.IsPrivate && l.Status == model.LobbyWaiting {
			out = append(out, l)
		}
	}
	return out
}

// LobbyMemberIDs returns the current member user-ids of lobbyID, implementing
// router.LobbyAudience for broadcastToLobby.
func (m *Manager) LobbyMemberIDs(lobbyID string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lobbies[lobbyID]
	if !ok {
		return nil, false
	}
	return l.MemberIDs(), true
}

// SweepExpired closes every lobby whose ExpiresAt has passed (spec §4.4
// "Expiry sweeper closes lobbies past expiresAt").
func (m *Manager) SweepExpired() []string {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var closedIDs []string
	for id, l := range m.lobbies {
		if l.Status != model.LobbyFinished && now.After(l.ExpiresAt) {
			m.closeLocked(l)
			closedIDs = append(closedIDs, id)
		}
	}
	return closedIDs
}

// closeLocked marks a lobby finished and removes its code index entry.
// Callers must hold m.mu.
func (m *Manager) closeLocked(l *model.Lobby) {
	l.Status = model.LobbyFinished
	delete(m.byCode, l.Code)
	delete(m.lobbies, l.ID)
}

func snapshotMembers(l *model.Lobby) []model.LobbyMember {
	out := make([]model.LobbyMember, 0, len(l.Members))
	for _, id := range l.MemberIDs() {
		out = append(out, *l.Members[id])
	}
	return out
}

// RunExpirySweeper runs SweepExpired on a fixed cadence until ctx is
// cancelled.
func (m *Manager) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.SweepExpired()
		case <-ctx.Done():
			return
		}
	}
}
