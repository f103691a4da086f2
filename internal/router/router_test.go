package router

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbattle/server/internal/apperr"
	"github.com/quizbattle/server/internal/wire"
)

type recordingSender struct {
	frames map[string][][]byte
}

func newRecordingSender() *recordingSender {
	return &recordingSender{frames: make(map[string][][]byte)}
}

func (s *recordingSender) SendToSession(ctx context.Context, sessionID string, frame []byte) {
	s.frames[sessionID] = append(s.frames[sessionID], frame)
}

func (s *recordingSender) lastEnvelope(t *testing.T, sessionID string) wire.Envelope {
	t.Helper()
	frames := s.frames[sessionID]
	require.NotEmpty(t, frames)
	env, err := wire.Decode(frames[len(frames)-1])
	require.NoError(t, err)
	return env
}

func TestDispatch_UnknownTypeRepliesWithError(t *testing.T) {
	sender := newRecordingSender()
	r := New(sender)

	frame, err := wire.Encode("not.a.real.type", struct{}{})
	require.NoError(t, err)

	r.Dispatch(context.Background(), "sess-1", frame)

	env := sender.lastEnvelope(t, "sess-1")
	assert.Equal(t, wire.TypeError, env.Type)
	var payload wire.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, string(apperr.CodeUnknownMessageType), payload.Code)
}

func TestDispatch_MalformedFrameRepliesWithInvalidMessage(t *testing.T) {
	sender := newRecordingSender()
	r := New(sender)

	r.Dispatch(context.Background(), "sess-1", []byte("not json"))

	env := sender.lastEnvelope(t, "sess-1")
	var payload wire.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, string(apperr.CodeInvalidMessage), payload.Code)
}

func TestDispatch_HandlerErrorIsTranslatedToErrorEnvelope(t *testing.T) {
	sender := newRecordingSender()
	r := New(sender)
	r.Register(wire.TypeConnectionPing, func(ctx context.Context, sessionID string, env wire.Envelope) error {
		return apperr.New(apperr.CodeInvalidRequest, "missing userId")
	})

	frame, err := wire.Encode(wire.TypeConnectionPing, wire.ConnectionPingPayload{})
	require.NoError(t, err)

	r.Dispatch(context.Background(), "sess-1", frame)

	env := sender.lastEnvelope(t, "sess-1")
	var payload wire.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, string(apperr.CodeInvalidRequest), payload.Code)
}

func TestDispatch_SuccessfulHandlerSendsNoErrorEnvelope(t *testing.T) {
	sender := newRecordingSender()
	r := New(sender)
	called := false
	r.Register(wire.TypeConnectionPing, func(ctx context.Context, sessionID string, env wire.Envelope) error {
		called = true
		return nil
	})

	frame, err := wire.Encode(wire.TypeConnectionPing, wire.ConnectionPingPayload{UserID: "u1"})
	require.NoError(t, err)

	r.Dispatch(context.Background(), "sess-1", frame)

	assert.True(t, called)
	assert.Empty(t, sender.frames["sess-1"])
}
