package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/voxify/internal/app"
	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type handler func(ctx context.Context, conn *Connection, data json.RawMessage) error

type route struct {
	requiresAuth bool
	handle       handler
}

// Gateway owns the per-connection lifecycle: identity binding on connect,
// event dispatch, and cleanup on disconnect.
type Gateway struct {
	router  *Router
	limiter *app.RateLimiter
	routes  map[string]route
}

func NewGateway(router *Router, limiter *app.RateLimiter) *Gateway {
	g := &Gateway{router: router, limiter: limiter}
	g.routes = map[string]route{
		EventJoinVoiceRoom:  {handle: router.JoinVoiceRoom},
		EventLeaveVoiceRoom: {handle: router.LeaveVoiceRoom},
		EventPing:           {handle: router.Ping},

		EventOffer:        {requiresAuth: true, handle: router.sdpHandler(EventOffer, "offer")},
		EventAnswer:       {requiresAuth: true, handle: router.sdpHandler(EventAnswer, "answer")},
		EventICECandidate: {requiresAuth: true, handle: router.sdpHandler(EventICECandidate, "candidate")},

		EventVoiceCall:    {requiresAuth: true, handle: router.VoiceCall},
		EventCallAccepted: {requiresAuth: true, handle: router.callControlHandler(EventCallAccepted)},
		EventCallRejected: {requiresAuth: true, handle: router.callControlHandler(EventCallRejected)},
		EventEndCall:      {requiresAuth: true, handle: router.callControlHandler(EventCallEnded)},

		EventJoinVoiceChannel:    {requiresAuth: true, handle: router.JoinVoiceChannel},
		EventLeaveVoiceChannel:   {requiresAuth: true, handle: router.LeaveVoiceChannel},
		EventChannelOffer:        {requiresAuth: true, handle: router.channelSignalHandler(EventChannelOffer, "offer")},
		EventChannelAnswer:       {requiresAuth: true, handle: router.channelSignalHandler(EventChannelAnswer, "answer")},
		EventChannelICECandidate: {requiresAuth: true, handle: router.channelSignalHandler(EventChannelICECandidate, "candidate")},
	}
	return g
}

// Connect binds user (empty for anonymous sockets) to signal and makes an
// authenticated user reachable through its personal call room.
func (g *Gateway) Connect(user domain.UserID, signal core.SignalConnection) *Connection {
	conn := newConnection(core.SessionID(uuid.NewString()), user, signal)
	if key, ok := conn.Personal(); ok {
		g.router.Registry.Join(key, conn)
	}
	g.router.Metrics.ConnectionOpened()
	log.Info().
		Str("module", "relay.gateway").
		Str("sid", string(conn.ID())).
		Str("user", string(user)).
		Bool("authenticated", conn.Authenticated()).
		Msg("connected")
	return conn
}

// Dispatch handles one inbound frame. Failures are reported to the sender as
// an error event and never affect other connections.
func (g *Gateway) Dispatch(ctx context.Context, conn *Connection, frame []byte) {
	var env core.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		g.reject(conn, "", fmt.Errorf("%w: %w", app.ErrMalformedEvent, err))
		return
	}
	if env.Type == "" {
		g.reject(conn, "", fmt.Errorf("%w: type is required", app.ErrMalformedEvent))
		return
	}

	rt, ok := g.routes[env.Type]
	if !ok {
		log.Warn().Str("module", "relay.gateway").Str("sid", string(conn.ID())).Str("type", env.Type).Msg("unknown event")
		g.router.Metrics.EventRejected(env.Type, app.ErrorCode(app.ErrUnknownEvent))
		return
	}
	if rt.requiresAuth && !conn.Authenticated() {
		g.reject(conn, env.Type, app.ErrUnauthenticated)
		return
	}
	if !g.limiter.Allow(conn.limitKey()) {
		g.reject(conn, env.Type, app.ErrRateLimited)
		return
	}

	if err := rt.handle(ctx, conn, env.Data); err != nil {
		g.reject(conn, env.Type, err)
		return
	}
	g.router.Metrics.EventHandled(env.Type)
}

func (g *Gateway) reject(conn *Connection, event string, err error) {
	code := app.ErrorCode(err)
	lvl := zerolog.WarnLevel
	if errors.Is(err, app.ErrPersistence) {
		lvl = zerolog.ErrorLevel
	}
	log.WithLevel(lvl).
		Err(err).
		Str("module", "relay.gateway").
		Str("sid", string(conn.ID())).
		Str("user", string(conn.User())).
		Str("event", event).
		Msg("event rejected")
	g.router.Metrics.EventRejected(event, code)
	g.router.reply(conn, EventError, errorPayload{Event: event, Error: code})
}

// Disconnect leaves every joined room exactly once, announcing each departure
// and clearing voice presence. A user's voice presence and its leave
// announcement go only with its last connection in the channel. Disconnect is
// best effort, never fails and runs at most once per connection.
func (g *Gateway) Disconnect(ctx context.Context, conn *Connection) {
	rooms, first := conn.drain()
	if !first {
		return
	}
	r := g.router
	for key, announced := range rooms {
		channel, voice := key.Channel()
		if !voice {
			if r.Registry.Leave(key, conn.ID()) {
				r.broadcast(key, EventUserLeft, userPayload{UserID: caller(conn, announced)}, conn.ID())
			}
			continue
		}
		left, remains := r.Registry.Depart(key, conn.ID(), conn.User())
		if !left || remains {
			continue
		}
		if err := r.Presence.RecordLeave(ctx, conn.User(), channel); err != nil {
			r.Metrics.PersistenceFailed("record_leave")
			log.Error().Err(err).Str("module", "relay.gateway").Str("sid", string(conn.ID())).Str("room", string(key)).Msg("disconnect presence cleanup")
		}
		r.broadcast(key, EventUserLeftVoiceChannel, userPayload{UserID: conn.User()}, conn.ID())
	}

	if key, ok := conn.Personal(); ok {
		// the personal room holds every live connection of the user
		if _, remains := r.Registry.Depart(key, conn.ID(), conn.User()); !remains {
			g.limiter.Forget(conn.limitKey())
		}
	} else {
		g.limiter.Forget(conn.limitKey())
	}
	r.Metrics.ConnectionClosed()
	log.Info().Str("module", "relay.gateway").Str("sid", string(conn.ID())).Str("user", string(conn.User())).Msg("disconnected")
}
