// Package wire implements the JSON envelope and message catalogue the core
// speaks over a Transport (spec §4.2, §6). Each message type is decoded
// into a strict Go struct via an explicit per-type Decode function rather
// than a loose map, so an ill-typed payload is rejected with
// INVALID_MESSAGE instead of silently coerced (spec §9).
//
// The {type, payload} shape mirrors the tagged-message convention the pack
// already uses for JSON-over-websocket games (Seednode/partybox
// ClientMessage/ "type" switch in celebrity.go), generalized into strict
// per-type payload structs the way udisondev/la2go keeps one file per
// packet under gameserver/clientpackets.
package wire

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire shape for every inbound and outbound message
// (spec §4.2).
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types (spec §6).
const (
	TypeAuthConnect          = "auth:connect"
	TypeConnectionPing       = "connection.ping"
	TypeConnectionReconnect  = "connection.reconnect"
	TypeUserStatusUpdate     = "user.status.update"
	TypeMatchmakingFind      = "matchmaking.find"
	TypeMatchmakingCancel    = "matchmaking.cancel"
	TypeMatchmakingConfirm   = "matchmaking.confirm"
	TypeLobbyCreate          = "lobby.create"
	TypeLobbyJoin            = "lobby.join"
	TypeLobbyReady           = "lobby.ready"
	TypeLobbyStart           = "lobby.start"
	TypeLobbyLeave           = "lobby.leave"
	TypeLobbyKick            = "lobby.kick"
	TypeLobbyListSync        = "lobby.list.sync"
	TypeGameConnect          = "game.connect"
	TypeGameAnswerSubmit     = "game.answer.submit"
)

// Outbound message types (spec §6, exhaustive subset the core actually
// emits).
const (
	TypeAuthConnected            = "auth.connected"
	TypeAuthError                = "auth.error"
	TypeConnectionPong           = "connection.pong"
	TypeConnectionReconnected    = "connection.reconnected"
	TypeConnectionDisconnect     = "connection.disconnect"
	TypeMatchmakingSearching     = "matchmaking.searching"
	TypeMatchmakingConfirmReq    = "matchmaking.confirm.request"
	TypeMatchmakingConfirmStatus = "matchmaking.confirm.status"
	TypeMatchmakingCancelled     = "matchmaking.cancelled"
	TypeLobbyCreated             = "lobby.created"
	TypeLobbyPlayerJoined        = "lobby.player.joined"
	TypeLobbyPlayerReady         = "lobby.player.ready"
	TypeLobbyGameStarting        = "lobby.game.starting"
	TypeLobbyPlayerLeft          = "lobby.player_left"
	TypeLobbyPlayerKicked        = "lobby.player.kicked"
	TypeLobbyListData            = "lobby.list.data"
	TypeGameStarted              = "game.started"
	TypeGameQuestionsAll         = "game.questions.all"
	TypeGameAnswerReceived       = "game.answer.received"
	TypeGameOpponentAnswered     = "game.opponent.answered"
	TypeGameBattleUpdate         = "game.battle.update"
	TypeGameQuestionTimeout      = "game.question.timeout"
	TypeGameOver                 = "game.over"
	TypeGamePlayerDisconnected   = "game.player.disconnected"
	TypeGamePlayerReconnected    = "game.player.reconnected"
	TypeRankedMMRChanged         = "ranked.mmr.changed"
	TypeError                    = "error"
)

// Encode marshals an outbound payload into a full envelope frame.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", msgType, err)
	}
	frame, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshaling %s envelope: %w", msgType, err)
	}
	return frame, nil
}

// Decode unmarshals a raw frame into an Envelope. It does not validate the
// payload against its type; callers use the per-type decoders in
// inbound.go for that.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decoding envelope: missing type")
	}
	return env, nil
}

// ErrorPayload is the payload of every outbound `error` envelope (spec §7).
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
