package app

import (
	"context"

	"github.com/quizbattle/server/internal/apperr"
	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/wire"
)

// registerHandlers binds every inbound message type to its handler, the
// way la2go's gameserver registers one ClientPacketHandler per opcode in
// its packet table.
func (a *App) registerHandlers() {
	a.router.Register(wire.TypeConnectionPing, a.handleConnectionPing)
	a.router.Register(wire.TypeConnectionReconnect, a.handleConnectionReconnect)
	a.router.Register(wire.TypeUserStatusUpdate, a.handleUserStatusUpdate)
	a.router.Register(wire.TypeMatchmakingFind, a.handleMatchmakingFind)
	a.router.Register(wire.TypeMatchmakingCancel, a.handleMatchmakingCancel)
	a.router.Register(wire.TypeMatchmakingConfirm, a.handleMatchmakingConfirm)
	a.router.Register(wire.TypeLobbyCreate, a.handleLobbyCreate)
	a.router.Register(wire.TypeLobbyJoin, a.handleLobbyJoin)
	a.router.Register(wire.TypeLobbyReady, a.handleLobbyReady)
	a.router.Register(wire.TypeLobbyStart, a.handleLobbyStart)
	a.router.Register(wire.TypeLobbyLeave, a.handleLobbyLeave)
	a.router.Register(wire.TypeLobbyKick, a.handleLobbyKick)
	a.router.Register(wire.TypeLobbyListSync, a.handleLobbyListSync)
	a.router.Register(wire.TypeGameConnect, a.handleGameConnect)
	a.router.Register(wire.TypeGameAnswerSubmit, a.handleGameAnswerSubmit)
}

// requireSession resolves sessionID and verifies it belongs to claimedUserID,
// rejecting a request whose payload userId doesn't match the authenticated
// socket (spec §6 "every payload's userId must match the session's").
func (a *App) requireSession(sessionID, claimedUserID string) (*model.Session, error) {
	s, ok := a.sessions.LookupBySession(sessionID)
	if !ok {
		return nil, apperr.New(apperr.CodeUnauthorized, "session not found")
	}
	if claimedUserID != "" && claimedUserID != s.UserID {
		return nil, apperr.New(apperr.CodeUnauthorized, "userId does not match session")
	}
	return s, nil
}

func (a *App) handleConnectionPing(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeConnectionPing(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	if _, err := a.requireSession(sessionID, p.UserID); err != nil {
		return err
	}
	a.sessions.Touch(sessionID)
	frame, err := wire.Encode(wire.TypeConnectionPong, wire.ConnectionPongPayload{ServerTime: a.clock.Now()})
	if err != nil {
		return apperr.Internal(err)
	}
	a.fanout.SendToSession(ctx, sessionID, frame)
	return nil
}

// handleConnectionReconnect re-attaches sessionID's socket to a live
// waiting-phase match (spec §4.7, §9 "no replay, only attachment during
// waiting"). The socket swap itself already happened at the transport
// layer by the time this fires — Register replaced the prior session — so
// this only needs to notify the opponent and restore bookkeeping.
func (a *App) handleConnectionReconnect(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeConnectionReconnect(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	if !a.matches.IsParticipant(p.MatchID, s.UserID) {
		return apperr.New(apperr.CodeNotInMatch, "user is not a participant in this match")
	}
	if err := a.matches.Reconnect(ctx, p.MatchID, s.UserID); err != nil {
		return err
	}
	if err := a.sessions.SetCurrentMatch(sessionID, p.MatchID); err != nil {
		return apperr.Internal(err)
	}
	frame, err := wire.Encode(wire.TypeConnectionReconnected, wire.ConnectionReconnectedPayload{MatchID: p.MatchID})
	if err != nil {
		return apperr.Internal(err)
	}
	a.fanout.SendToSession(ctx, sessionID, frame)
	return nil
}

func (a *App) handleUserStatusUpdate(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeUserStatusUpdate(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	if _, err := a.requireSession(sessionID, p.UserID); err != nil {
		return err
	}
	if err := a.sessions.UpdateStatus(sessionID, model.SessionStatus(p.Status)); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (a *App) handleMatchmakingFind(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeMatchmakingFind(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	if s.InGame() || s.InLobby() || a.matchmaker.InQueueOrPending(s.UserID) {
		return apperr.New(apperr.CodeAlreadyInGame, "already queued, paired or in a match")
	}

	mode := model.Mode(p.Mode)
	entry := &model.QueueEntry{
		UserID:     s.UserID,
		Mode:       mode,
		Difficulty: p.Difficulty,
		Category:   p.Category,
		EnqueuedAt: a.clock.Now(),
	}
	if mode == model.ModeRanked {
		stats, err := a.store.Stats().GetByUser(ctx, s.UserID)
		if err != nil {
			return apperr.Internal(err)
		}
		entry.Rating = stats.Rating
	}

	a.matchmaker.Find(ctx, entry)
	return nil
}

func (a *App) handleMatchmakingCancel(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeMatchmakingCancel(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	a.matchmaker.Cancel(s.UserID)
	return nil
}

func (a *App) handleMatchmakingConfirm(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeMatchmakingConfirm(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	return a.matchmaker.Confirm(ctx, s.UserID, p.MatchID, p.Confirmed)
}

func (a *App) handleLobbyCreate(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeLobbyCreate(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	if s.InGame() || s.InLobby() {
		return apperr.New(apperr.CodeAlreadyInGame, "already in a lobby or match")
	}

	maxPlayers := p.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = 2
	}
	l, err := a.lobbies.Create(s.UserID, s.DisplayName, maxPlayers, p.Difficulty, p.Category, p.IsPrivate)
	if err != nil {
		return err
	}
	if err := a.sessions.SetCurrentLobby(sessionID, l.ID); err != nil {
		return apperr.Internal(err)
	}
	_ = a.sessions.UpdateStatus(sessionID, model.StatusInLobby)

	frame, err := wire.Encode(wire.TypeLobbyCreated, wire.LobbyCreatedPayload{
		LobbyID: l.ID,
		Code:    l.Code,
		Host:    toWireMember(*l.Members[s.UserID]),
		Members: toWireMembers(l),
	})
	if err != nil {
		return apperr.Internal(err)
	}
	a.fanout.SendToSession(ctx, sessionID, frame)
	return nil
}

func (a *App) handleLobbyJoin(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeLobbyJoin(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	if s.InGame() || s.InLobby() {
		return apperr.New(apperr.CodeAlreadyInGame, "already in a lobby or match")
	}

	l, err := a.lobbies.Join(p.Code, s.UserID, s.DisplayName)
	if err != nil {
		return err
	}
	if err := a.sessions.SetCurrentLobby(sessionID, l.ID); err != nil {
		return apperr.Internal(err)
	}
	_ = a.sessions.UpdateStatus(sessionID, model.StatusInLobby)

	a.broadcastLobbyFrame(ctx, l.ID, wire.TypeLobbyPlayerJoined, wire.LobbyPlayerJoinedPayload{
		LobbyID: l.ID,
		Member:  toWireMember(*l.Members[s.UserID]),
		Members: toWireMembers(l),
	})
	return nil
}

func (a *App) handleLobbyReady(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeLobbyReady(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	if _, err := a.lobbies.SetReady(p.LobbyID, s.UserID, p.Ready); err != nil {
		return err
	}
	a.broadcastLobbyFrame(ctx, p.LobbyID, wire.TypeLobbyPlayerReady, wire.LobbyPlayerReadyPayload{
		LobbyID: p.LobbyID,
		UserID:  s.UserID,
		Ready:   p.Ready,
	})
	return nil
}

func (a *App) handleLobbyStart(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeLobbyStart(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	matchID, err := a.lobbies.Start(ctx, p.LobbyID, s.UserID)
	if err != nil {
		return err
	}
	a.broadcastLobbyFrame(ctx, p.LobbyID, wire.TypeLobbyGameStarting, wire.LobbyGameStartingPayload{
		LobbyID: p.LobbyID,
		MatchID: matchID,
	})
	return nil
}

func (a *App) handleLobbyLeave(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeLobbyLeave(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	result, err := a.lobbies.Leave(p.LobbyID, s.UserID)
	if err != nil {
		return err
	}
	_ = a.sessions.SetCurrentLobby(sessionID, "")
	_ = a.sessions.UpdateStatus(sessionID, model.StatusOnline)

	payload := wire.LobbyPlayerLeftPayload{
		LobbyID:   p.LobbyID,
		UserID:    s.UserID,
		NewHostID: result.NewHostID,
		Closed:    result.Closed,
	}
	if !result.Closed {
		payload.Members = toWireMemberSlice(result.Members)
		a.broadcastLobbyFrame(ctx, p.LobbyID, wire.TypeLobbyPlayerLeft, payload)
	}
	return nil
}

func (a *App) handleLobbyKick(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeLobbyKick(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	if err := a.lobbies.Kick(p.LobbyID, s.UserID, p.TargetUserID); err != nil {
		return err
	}

	if target, ok := a.sessions.LookupByUser(p.TargetUserID); ok {
		_ = a.sessions.SetCurrentLobby(target.ID, "")
		_ = a.sessions.UpdateStatus(target.ID, model.StatusOnline)
	}
	frame, err := wire.Encode(wire.TypeLobbyPlayerKicked, wire.LobbyPlayerKickedPayload{LobbyID: p.LobbyID})
	if err != nil {
		return apperr.Internal(err)
	}
	a.fanout.SendToUser(ctx, p.TargetUserID, frame)
	return nil
}

func (a *App) handleLobbyListSync(ctx context.Context, sessionID string, env wire.Envelope) error {
	if _, err := wire.DecodeLobbyListSync(env); err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	open := a.lobbies.ListOpen()
	summaries := make([]wire.LobbySummary, len(open))
	for i, l := range open {
		summaries[i] = wire.LobbySummary{
			LobbyID:     l.ID,
			Code:        l.Code,
			MemberCount: len(l.Members),
			MaxPlayers:  l.MaxPlayers,
			Difficulty:  l.Settings.Difficulty,
			Category:    l.Settings.Category,
		}
	}
	frame, err := wire.Encode(wire.TypeLobbyListData, wire.LobbyListDataPayload{Lobbies: summaries})
	if err != nil {
		return apperr.Internal(err)
	}
	a.fanout.SendToSession(ctx, sessionID, frame)
	return nil
}

func (a *App) handleGameConnect(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeGameConnect(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	if !a.matches.IsParticipant(p.MatchID, s.UserID) {
		return apperr.New(apperr.CodeNotInMatch, "user is not a participant in this match")
	}
	return a.sessions.SetCurrentMatch(sessionID, p.MatchID)
}

func (a *App) handleGameAnswerSubmit(ctx context.Context, sessionID string, env wire.Envelope) error {
	p, err := wire.DecodeGameAnswerSubmit(env)
	if err != nil {
		return apperr.New(apperr.CodeInvalidMessage, err.Error())
	}
	s, err := a.requireSession(sessionID, p.UserID)
	if err != nil {
		return err
	}
	// AnswerRecord persistence happens once, at settlement time, from the
	// engine's own graded AnswersLog (spec §3) — see
	// settlement.Pipeline.Process.
	return a.matches.SubmitAnswer(ctx, p.MatchID, s.UserID, p.QuestionID, p.QuestionIndex, p.ChosenIndex, p.AnswerTimeMs)
}

func (a *App) broadcastLobbyFrame(ctx context.Context, lobbyID, msgType string, payload any) {
	frame, err := wire.Encode(msgType, payload)
	if err != nil {
		return
	}
	a.fanout.BroadcastToLobby(ctx, lobbyID, frame)
}

func toWireMember(m model.LobbyMember) wire.LobbyMember {
	return wire.LobbyMember{UserID: m.UserID, DisplayName: m.DisplayName, IsHost: m.IsHost, IsReady: m.IsReady}
}

func toWireMembers(l *model.Lobby) []wire.LobbyMember {
	ids := l.MemberIDs()
	out := make([]wire.LobbyMember, len(ids))
	for i, id := range ids {
		out[i] = toWireMember(*l.Members[id])
	}
	return out
}

func toWireMemberSlice(members []model.LobbyMember) []wire.LobbyMember {
	out := make([]wire.LobbyMember, len(members))
	for i, m := range members {
		out[i] = toWireMember(m)
	}
	return out
}
