// Package transport defines the full-duplex, message-framed channel the
// core speaks over, and a concrete websocket implementation of it.
//
// The core's specification (spec §1) treats framing as an external
// collaborator: the Message Router only ever sees decoded []byte frames in
// and encoded []byte frames out. This package is that collaborator's
// concrete shape, grounded on the teacher's per-connection write-queue
// (udisondev/la2go internal/gameserver.GameClient: sendCh + writePump) and
// on the pack's websocket-game repo (Seednode/partybox: gorilla/websocket
// upgrader + readPump/writePump per client).
package transport

import "context"

// MaxMessageSize is the largest inbound frame the core accepts (spec §6).
const MaxMessageSize = 64 * 1024

// Conn is one full-duplex channel to an authenticated session.
//
// Send is safe for concurrent use: every implementation funnels writes
// through a single internal writer so that outbound order is preserved per
// socket (spec §5 "Per socket, outbound messages are strictly ordered").
type Conn interface {
	// Send enqueues a frame for delivery. It returns promptly; delivery
	// itself happens on the connection's own writer. A full send queue is
	// the implementation's choice (drop oldest, block with ctx, or close);
	// Router callers treat any returned error as best-effort (spec §4.2).
	Send(ctx context.Context, frame []byte) error

	// Messages returns the channel of inbound frames. It is closed when
	// the connection's reader terminates (remote close, read error, or
	// explicit Close).
	Messages() <-chan []byte

	// Closed returns a channel that is closed once this connection has
	// fully torn down (reader stopped, writer drained and stopped).
	Closed() <-chan struct{}

	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string

	// Close tears the connection down: stops the reader, drains and closes
	// the writer best-effort. Safe to call more than once.
	Close() error
}

// Listener accepts new authenticated-transport-layer connections. The
// handshake that turns an HTTP request into a Conn (websocket upgrade) is
// entirely inside the implementation; application-level authentication
// (auth:connect) happens afterward, over the first inbound frame.
type Listener interface {
	// Accept blocks until a new Conn is established or ctx is cancelled.
	Accept(ctx context.Context) (Conn, error)
	// Close stops accepting new connections.
	Close() error
}
