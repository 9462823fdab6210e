package relay

import (
	"context"
	"encoding/json"

	"github.com/dkeye/voxify/internal/domain"
	"github.com/rs/zerolog/log"
)

// caller picks the identity for call room events: the bound user when there
// is one, the announced id otherwise.
func caller(conn *Connection, announced domain.UserID) domain.UserID {
	if conn.Authenticated() {
		return conn.User()
	}
	return announced
}

func (r *Router) JoinVoiceRoom(_ context.Context, conn *Connection, data json.RawMessage) error {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.Room == "" {
		return missing("room")
	}
	if req.UserID == "" {
		return missing("user_id")
	}

	uid := caller(conn, req.UserID)
	key := domain.CallRoom(req.Room)
	if !conn.track(key, uid) {
		return nil
	}
	r.Registry.Join(key, conn)
	log.Info().Str("module", "relay").Str("sid", string(conn.ID())).Str("user", string(uid)).Str("room", string(key)).Msg("joined call room")

	r.broadcast(key, EventUserJoined, userPayload{UserID: uid}, conn.ID())
	return nil
}

func (r *Router) LeaveVoiceRoom(_ context.Context, conn *Connection, data json.RawMessage) error {
	var req roomRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.Room == "" {
		return missing("room")
	}
	if req.UserID == "" {
		return missing("user_id")
	}

	key := domain.CallRoom(req.Room)
	announced, tracked := conn.untrack(key)
	if !tracked {
		return nil
	}
	// the personal room stays joined so the user remains addressable
	if personal, ok := conn.Personal(); !ok || personal != key {
		if !r.Registry.Leave(key, conn.ID()) {
			return nil
		}
	}
	uid := caller(conn, announced)
	log.Info().Str("module", "relay").Str("sid", string(conn.ID())).Str("user", string(uid)).Str("room", string(key)).Msg("left call room")

	r.broadcast(key, EventUserLeft, userPayload{UserID: uid}, conn.ID())
	return nil
}

// sdpHandler relays offer, answer and ice_candidate. The payload is carried
// under key both ways and never inspected.
func (r *Router) sdpHandler(event, key string) handler {
	return func(_ context.Context, conn *Connection, data json.RawMessage) error {
		var req signalRequest
		if err := decode(data, &req); err != nil {
			return err
		}
		payload := req.payload(key)
		if isNull(payload) {
			return missing(key)
		}
		if req.TargetUser == "" {
			return missing("target_user")
		}

		r.relay(req.TargetUser, event, map[string]any{
			key:       payload,
			"user_id": conn.User(),
		}, conn.ID())
		return nil
	}
}

func (r *Router) VoiceCall(_ context.Context, conn *Connection, data json.RawMessage) error {
	var req signalRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.TargetUser == "" {
		return missing("target_user")
	}
	username, err := requireUsername(req.Username)
	if err != nil {
		return err
	}

	log.Info().Str("module", "relay").Str("user", string(conn.User())).Str("target", string(req.TargetUser)).Msg("voice call")
	r.relay(req.TargetUser, EventIncomingCall, callPayload{UserID: conn.User(), Username: username}, conn.ID())
	return nil
}

// callControlHandler relays call_accepted, call_rejected and end_call as out.
func (r *Router) callControlHandler(out string) handler {
	return func(_ context.Context, conn *Connection, data json.RawMessage) error {
		var req signalRequest
		if err := decode(data, &req); err != nil {
			return err
		}
		if req.TargetUser == "" {
			return missing("target_user")
		}

		r.relay(req.TargetUser, out, userPayload{UserID: conn.User()}, conn.ID())
		return nil
	}
}

func (r *Router) Ping(_ context.Context, conn *Connection, _ json.RawMessage) error {
	r.reply(conn, EventPong, nil)
	return nil
}
