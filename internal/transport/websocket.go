package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Default write queue / timeout constants, overridden by config values when
// available (mirrors udisondev/la2go internal/gameserver.GameClient's
// defaultSendQueueSize / defaultWriteTimeout / defaultReadTimeout).
const (
	DefaultSendQueueSize = 64
	DefaultWriteTimeout  = 5 * time.Second
	DefaultPongWait      = 90 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn is the websocket implementation of Conn. One reader goroutine
// decodes inbound frames into recvCh; one writer goroutine (writePump)
// drains sendCh onto the socket, giving every connection a single writer as
// required by spec §5.
type wsConn struct {
	conn *websocket.Conn
	addr string

	sendCh  chan []byte
	recvCh  chan []byte
	closeCh chan struct{}

	writeTimeout time.Duration
	closeOnce    sync.Once
}

func newWSConn(conn *websocket.Conn, sendQueueSize int, writeTimeout time.Duration) *wsConn {
	if sendQueueSize <= 0 {
		sendQueueSize = DefaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	c := &wsConn{
		conn:         conn,
		addr:         conn.RemoteAddr().String(),
		sendCh:       make(chan []byte, sendQueueSize),
		recvCh:       make(chan []byte, sendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	conn.SetReadLimit(MaxMessageSize)
	go c.writePump()
	go c.readPump()
	return c
}

func (c *wsConn) Send(ctx context.Context, frame []byte) error {
	select {
	case c.sendCh <- frame:
		return nil
	case <-c.closeCh:
		return fmt.Errorf("sending to %s: connection closed", c.addr)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *wsConn) Messages() <-chan []byte   { return c.recvCh }
func (c *wsConn) Closed() <-chan struct{}   { return c.closeCh }
func (c *wsConn) RemoteAddr() string        { return c.addr }

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		_ = c.conn.Close()
	})
	return nil
}

// writePump is the connection's single writer: every outbound frame flows
// through sendCh, so concurrent Send calls never interleave bytes on the
// wire (spec §5). It also sends a ping every 9/10 of DefaultPongWait, so
// the pong handler in readPump keeps pushing the read deadline forward.
func (c *wsConn) writePump() {
	pingTicker := time.NewTicker(DefaultPongWait * 9 / 10)
	defer pingTicker.Stop()
	defer c.Close()
	for {
		select {
		case frame, ok := <-c.sendCh:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Warn("websocket write failed", "remote", c.addr, "error", err)
				return
			}
		case <-pingTicker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				slog.Warn("websocket ping failed", "remote", c.addr, "error", err)
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

// readPump decodes inbound frames and publishes them on recvCh until the
// remote closes or a read error occurs, then closes the connection.
func (c *wsConn) readPump() {
	defer func() {
		close(c.recvCh)
		c.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(DefaultPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(DefaultPongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case c.recvCh <- data:
		case <-c.closeCh:
			return
		}
	}
}

// WSListener accepts websocket upgrades on a single HTTP endpoint and hands
// completed Conns out through Accept, mirroring Seednode/partybox's
// upgrader+hub pattern generalized to the core's single battle endpoint
// (spec §6: "Endpoint: /api/quiz/battle").
type WSListener struct {
	server        *http.Server
	acceptCh      chan Conn
	sendQueueSize int
	writeTimeout  time.Duration
}

// NewWSListener builds a listener serving the given path on addr. Call Serve
// in its own goroutine, then repeatedly call Accept.
func NewWSListener(addr, path string, sendQueueSize int, writeTimeout time.Duration) *WSListener {
	l := &WSListener{
		acceptCh:      make(chan Conn),
		sendQueueSize: sendQueueSize,
		writeTimeout:  writeTimeout,
	}

	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, path, l.handleUpgrade)

	l.server = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return l
}

func (l *WSListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := newWSConn(conn, l.sendQueueSize, l.writeTimeout)
	select {
	case l.acceptCh <- c:
	case <-r.Context().Done():
		c.Close()
	}
}

// Serve starts accepting HTTP connections; blocks until the server stops.
func (l *WSListener) Serve() error {
	if err := l.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving websocket listener: %w", err)
	}
	return nil
}

func (l *WSListener) Accept(ctx context.Context) (Conn, error) {
	select {
	case c := <-l.acceptCh:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *WSListener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down websocket listener: %w", err)
	}
	return nil
}
