// Package router is the Message Router of spec §4.2: it decodes an
// inbound Envelope, dispatches it to the owning component by a
// type-keyed table, and turns any error the handler returns into a wire
// `error` envelope sent back to the originating session.
//
// Grounded on the `switch msg.Type { case "...": ... }` dispatch in
// Seednode/partybox celebrity.go, generalized into an explicit handler
// table (a map[string]Handler) the way udisondev/la2go's gameserver packet
// handler registers one handler per opcode rather than a single switch,
// since this server's message catalogue is large enough that a table is
// more maintainable than a switch.
package router

import (
	"context"
	"log/slog"

	"github.com/quizbattle/server/internal/apperr"
	"github.com/quizbattle/server/internal/wire"
)

// Handler processes one decoded inbound message for one session.
type Handler func(ctx context.Context, sessionID string, env wire.Envelope) error

// Sender delivers an encoded frame to a single session, best-effort.
// What happens when a socket's bounded send queue is full is up to the
// transport, not the router: the websocket Conn waits for room until ctx
// is done or the connection closes, and drops nothing.
type Sender interface {
	SendToSession(ctx context.Context, sessionID string, frame []byte)
}

// Router dispatches decoded envelopes to registered handlers and reports
// handler failures back to the caller as wire error envelopes.
type Router struct {
	handlers map[string]Handler
	sender   Sender
}

// New constructs an empty Router. Handlers are registered with Register.
func New(sender Sender) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		sender:   sender,
	}
}

// Register binds a Handler to a message type. Re-registering a type
// replaces its handler (used by tests).
func (r *Router) Register(msgType string, h Handler) {
	r.handlers[msgType] = h
}

// Dispatch decodes frame into an Envelope and routes it to the handler for
// its type. Decode failures and unknown types are reported to the caller
// as wire error envelopes rather than returned, matching spec §4.2's "the
// router replies to the sender; it never propagates transport-layer
// failures to other components."
func (r *Router) Dispatch(ctx context.Context, sessionID string, frame []byte) {
	env, err := wire.Decode(frame)
	if err != nil {
		r.reply(ctx, sessionID, apperr.New(apperr.CodeInvalidMessage, err.Error()))
		return
	}

	h, ok := r.handlers[env.Type]
	if !ok {
		r.reply(ctx, sessionID, apperr.New(apperr.CodeUnknownMessageType, "unknown message type: "+env.Type))
		return
	}

	if err := h(ctx, sessionID, env); err != nil {
		appErr := apperr.As(err)
		if appErr.Code == apperr.CodeInternalError {
			slog.Error("handler failed", "type", env.Type, "sessionId", sessionID, "err", err)
		}
		r.reply(ctx, sessionID, appErr)
	}
}

func (r *Router) reply(ctx context.Context, sessionID string, appErr *apperr.Error) {
	frame, err := wire.Encode(wire.TypeError, wire.ErrorPayload{
		Code:    string(appErr.Code),
		Message: appErr.Message,
	})
	if err != nil {
		slog.Error("encoding error envelope failed", "err", err)
		return
	}
	r.sender.SendToSession(ctx, sessionID, frame)
}
