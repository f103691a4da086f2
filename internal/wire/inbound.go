package wire

import (
	"encoding/json"
	"fmt"
)

// decodePayload unmarshals env.Payload into dst, wrapping failures as
// INVALID_MESSAGE-worthy errors (the router attaches the code; this
// package only reports the decode failure).
func decodePayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("decoding %s: empty payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("decoding %s payload: %w", env.Type, err)
	}
	return nil
}

// AuthConnectPayload authenticates a new transport connection.
type AuthConnectPayload struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func DecodeAuthConnect(env Envelope) (AuthConnectPayload, error) {
	var p AuthConnectPayload
	err := decodePayload(env, &p)
	return p, err
}

// ConnectionPingPayload keeps a session's lastPingAt fresh.
type ConnectionPingPayload struct {
	UserID string `json:"userId"`
}

func DecodeConnectionPing(env Envelope) (ConnectionPingPayload, error) {
	var p ConnectionPingPayload
	err := decodePayload(env, &p)
	return p, err
}

// ConnectionReconnectPayload re-attaches a socket to a live waiting match.
type ConnectionReconnectPayload struct {
	UserID  string `json:"userId"`
	MatchID string `json:"matchId"`
}

func DecodeConnectionReconnect(env Envelope) (ConnectionReconnectPayload, error) {
	var p ConnectionReconnectPayload
	err := decodePayload(env, &p)
	return p, err
}

// UserStatusUpdatePayload sets a session's visible status (e.g. "away").
type UserStatusUpdatePayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

func DecodeUserStatusUpdate(env Envelope) (UserStatusUpdatePayload, error) {
	var p UserStatusUpdatePayload
	err := decodePayload(env, &p)
	return p, err
}

// MatchmakingFindPayload enqueues the caller for pairing (spec §4.3).
type MatchmakingFindPayload struct {
	UserID     string `json:"userId"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
}

func DecodeMatchmakingFind(env Envelope) (MatchmakingFindPayload, error) {
	var p MatchmakingFindPayload
	err := decodePayload(env, &p)
	return p, err
}

// MatchmakingCancelPayload removes the caller from the queue.
type MatchmakingCancelPayload struct {
	UserID string `json:"userId"`
}

func DecodeMatchmakingCancel(env Envelope) (MatchmakingCancelPayload, error) {
	var p MatchmakingCancelPayload
	err := decodePayload(env, &p)
	return p, err
}

// MatchmakingConfirmPayload is one side's reply to a confirm.request.
type MatchmakingConfirmPayload struct {
	UserID    string `json:"userId"`
	MatchID   string `json:"matchId"`
	Confirmed bool   `json:"confirmed"`
}

func DecodeMatchmakingConfirm(env Envelope) (MatchmakingConfirmPayload, error) {
	var p MatchmakingConfirmPayload
	err := decodePayload(env, &p)
	return p, err
}

// LobbyCreatePayload creates a new private lobby (spec §4.4).
type LobbyCreatePayload struct {
	UserID     string `json:"userId"`
	MaxPlayers int    `json:"maxPlayers"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
	IsPrivate  bool   `json:"isPrivate"`
}

func DecodeLobbyCreate(env Envelope) (LobbyCreatePayload, error) {
	var p LobbyCreatePayload
	err := decodePayload(env, &p)
	return p, err
}

// LobbyJoinPayload joins a lobby by its 6-char code.
type LobbyJoinPayload struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

func DecodeLobbyJoin(env Envelope) (LobbyJoinPayload, error) {
	var p LobbyJoinPayload
	err := decodePayload(env, &p)
	return p, err
}

// LobbyReadyPayload toggles the caller's ready state.
type LobbyReadyPayload struct {
	UserID  string `json:"userId"`
	LobbyID string `json:"lobbyId"`
	Ready   bool   `json:"ready"`
}

func DecodeLobbyReady(env Envelope) (LobbyReadyPayload, error) {
	var p LobbyReadyPayload
	err := decodePayload(env, &p)
	return p, err
}

// LobbyStartPayload is the host's request to start the match.
type LobbyStartPayload struct {
	UserID  string `json:"userId"`
	LobbyID string `json:"lobbyId"`
}

func DecodeLobbyStart(env Envelope) (LobbyStartPayload, error) {
	var p LobbyStartPayload
	err := decodePayload(env, &p)
	return p, err
}

// LobbyLeavePayload removes the caller from their lobby.
type LobbyLeavePayload struct {
	UserID  string `json:"userId"`
	LobbyID string `json:"lobbyId"`
}

func DecodeLobbyLeave(env Envelope) (LobbyLeavePayload, error) {
	var p LobbyLeavePayload
	err := decodePayload(env, &p)
	return p, err
}

// LobbyKickPayload is a host-only removal of another member.
type LobbyKickPayload struct {
	UserID       string `json:"userId"`
	LobbyID      string `json:"lobbyId"`
	TargetUserID string `json:"targetUserId"`
}

func DecodeLobbyKick(env Envelope) (LobbyKickPayload, error) {
	var p LobbyKickPayload
	err := decodePayload(env, &p)
	return p, err
}

// LobbyListSyncPayload requests a snapshot of open public lobbies.
type LobbyListSyncPayload struct {
	UserID string `json:"userId"`
}

func DecodeLobbyListSync(env Envelope) (LobbyListSyncPayload, error) {
	var p LobbyListSyncPayload
	err := decodePayload(env, &p)
	return p, err
}

// GameConnectPayload attaches (or re-attaches during waiting) to a match.
type GameConnectPayload struct {
	UserID  string `json:"userId"`
	MatchID string `json:"matchId"`
}

func DecodeGameConnect(env Envelope) (GameConnectPayload, error) {
	var p GameConnectPayload
	err := decodePayload(env, &p)
	return p, err
}

// GameAnswerSubmitPayload is a player's graded response (spec §4.5).
type GameAnswerSubmitPayload struct {
	UserID        string `json:"userId"`
	MatchID       string `json:"matchId"`
	QuestionID    string `json:"questionId"`
	QuestionIndex int    `json:"questionIndex"`
	ChosenIndex   int    `json:"chosenIndex"`
	AnswerTimeMs  int    `json:"answerTimeMs"`
}

func DecodeGameAnswerSubmit(env Envelope) (GameAnswerSubmitPayload, error) {
	var p GameAnswerSubmitPayload
	err := decodePayload(env, &p)
	return p, err
}
