package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quizbattle/server/internal/apperr"
	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/config"
	"github.com/quizbattle/server/internal/lobby"
	"github.com/quizbattle/server/internal/match"
	"github.com/quizbattle/server/internal/matchmaking"
	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/registry"
	"github.com/quizbattle/server/internal/router"
	"github.com/quizbattle/server/internal/settlement"
	"github.com/quizbattle/server/internal/store"
	"github.com/quizbattle/server/internal/transport"
	"github.com/quizbattle/server/internal/wire"
)

// App holds every component the battle server needs for the lifetime of
// the process, constructed once by New and never reached through package-
// level state (spec §9 "no implicit process-wide state — everything is
// passed to handlers through an application context").
type App struct {
	cfg config.Server

	clock      clock.Clock
	store      store.Store
	sessions   *registry.Registry
	fanout     *router.Fanout
	router     *router.Router
	matchmaker *matchmaking.Manager
	lobbies    *lobby.Manager
	matches    *match.Manager
}

// New wires every component together. listener is not started here; call
// Run to begin accepting connections and serving background sweepers.
func New(cfg config.Server, st store.Store, clk clock.Clock) *App {
	a := &App{cfg: cfg, clock: clk, store: st}

	a.sessions = registry.New(clk, cfg.IdleTimeout(), a.onSessionEvicted)

	// match.Manager's notifier/settlement hook are supplied after the
	// Fanout exists, since the Fanout's match audience resolver is the
	// Manager itself (spec §9: the audience resolver needs the manager
	// before the manager's own outbound events can be encoded).
	a.matches = match.New(clk, st.Questions(), st.Matches(), nil, nil, match.Config{
		DamagePerAnswer: cfg.DamagePerAnswer,
		DamageOnTimeout: cfg.DamageOnTimeout,
	})
	a.lobbies = lobby.New(clk, cfg.LobbyTTL(), a.matches)
	a.fanout = router.NewFanout(a.sessions, a.matches, a.lobbies, st.Friendships())

	notifier := newEventNotifier(a.fanout)
	a.matches.SetNotifier(notifier)

	pipeline := settlement.New(st, notifier, &sessionCleanup{sessions: a.sessions}, settlement.Config{RatingK: cfg.RatingK})
	a.matches.SetSettlementHook(pipeline.Process)

	a.matchmaker = matchmaking.New(clk, matchmaking.Config{
		RatingWindow:   cfg.MMRWindow,
		ConfirmTimeout: cfg.ConfirmTimeout(),
	}, notifier, a.matches)

	a.router = router.New(a.fanout)
	a.registerHandlers()

	return a
}

// Run accepts connections from listener and runs the background sweepers
// until ctx is cancelled, mirroring la2go's cmd/gameserver errgroup
// supervision of the accept loop plus its idle/cleanup goroutines.
func (a *App) Run(ctx context.Context, listener transport.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})

	g.Go(func() error {
		a.sessions.RunIdleSweeper(ctx, 30*time.Second)
		return nil
	})

	g.Go(func() error {
		a.lobbies.RunExpirySweeper(ctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := listener.Accept(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("accept failed", "err", err)
				continue
			}
			go a.handleConn(ctx, conn)
		}
	})

	return g.Wait()
}

// handleConn authenticates the first frame on conn, then pumps every
// subsequent frame through the router until the connection closes (spec
// §4.1 "the first inbound frame on a new connection must be
// auth:connect").
func (a *App) handleConn(ctx context.Context, conn transport.Conn) {
	sessionID, ok := a.authenticate(ctx, conn)
	if !ok {
		_ = conn.Close()
		return
	}

	for {
		select {
		case frame, ok := <-conn.Messages():
			if !ok {
				a.onSocketClosed(ctx, sessionID)
				return
			}
			a.sessions.Touch(sessionID)
			a.router.Dispatch(ctx, sessionID, frame)
		case <-conn.Closed():
			a.onSocketClosed(ctx, sessionID)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) authenticate(ctx context.Context, conn transport.Conn) (string, bool) {
	select {
	case frame, ok := <-conn.Messages():
		if !ok {
			return "", false
		}
		env, err := wire.Decode(frame)
		if err != nil || env.Type != wire.TypeAuthConnect {
			a.sendError(ctx, conn, apperr.New(apperr.CodeInvalidMessage, "first frame must be auth:connect"))
			return "", false
		}
		payload, err := wire.DecodeAuthConnect(env)
		if err != nil {
			a.sendError(ctx, conn, apperr.New(apperr.CodeInvalidMessage, err.Error()))
			return "", false
		}

		user, err := a.store.Users().FindByID(ctx, payload.UserID)
		if err != nil {
			a.sendError(ctx, conn, apperr.New(apperr.CodeUserNotFound, "unknown user"))
			return "", false
		}

		s := a.sessions.Register(ctx, user.ID, user.DisplayName, conn)
		frame, err = wire.Encode(wire.TypeAuthConnected, wire.AuthConnectedPayload{
			SessionID:   s.ID,
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
		})
		if err != nil {
			slog.Error("encoding auth.connected failed", "err", err)
			return "", false
		}
		_ = conn.Send(ctx, frame)
		return s.ID, true
	case <-conn.Closed():
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

func (a *App) sendError(ctx context.Context, conn transport.Conn, appErr *apperr.Error) {
	frame, err := wire.Encode(wire.TypeAuthError, wire.ErrorPayload{Code: string(appErr.Code), Message: appErr.Message})
	if err != nil {
		return
	}
	_ = conn.Send(ctx, frame)
}

// onSocketClosed deregisters the session and unwinds any queue, lobby or
// match membership exactly like a duplicate-login eviction would (spec
// §4.7).
func (a *App) onSocketClosed(ctx context.Context, sessionID string) {
	s := a.sessions.Deregister(sessionID)
	if s == nil {
		return
	}
	a.onSessionEvicted(ctx, s)
}

func (a *App) onSessionEvicted(ctx context.Context, s *model.Session) {
	a.matchmaker.Cancel(s.UserID)
	if s.CurrentLobbyID != "" {
		_, _ = a.lobbies.Leave(s.CurrentLobbyID, s.UserID)
	}
	if s.CurrentMatchID != "" {
		_ = a.matches.Disconnect(ctx, s.CurrentMatchID, s.UserID)
	}
}
