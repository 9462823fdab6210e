// Package relay routes signaling events between room members and keeps the
// room registry and voice presence in step with joins, leaves and disconnects.
package relay

import (
	"github.com/dkeye/voxify/internal/app"
	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Router holds the handlers behind the gateway's dispatch table.
type Router struct {
	Registry core.RoomRegistry
	Presence *app.PresenceTracker
	Auth     app.Authorizer
	Policy   app.Policy
	Metrics  *metrics.Metrics
}

func (r *Router) broadcast(key domain.RoomKey, event string, payload any, exclude core.SessionID) core.PublishResult {
	res := r.Registry.Broadcast(key, event, payload, exclude)
	r.settle(key, event, res)
	return res
}

// relay delivers to the connections of target inside target's personal room.
func (r *Router) relay(target domain.UserID, event string, payload any, exclude core.SessionID) core.PublishResult {
	key := domain.CallRoom(target)
	res := r.Registry.Relay(key, target, event, payload, exclude)
	if res.SendTo == 0 && len(res.Dropped) == 0 {
		log.Debug().Str("module", "relay").Str("target", string(target)).Str("event", event).Msg("target not present")
	}
	r.settle(key, event, res)
	return res
}

// settle applies the backpressure policy to every member that missed an event.
func (r *Router) settle(key domain.RoomKey, event string, res core.PublishResult) {
	for _, ms := range res.Dropped {
		action := app.DropFrame
		if r.Policy != nil {
			action = r.Policy.OnBackPressure(key, ms)
		}
		switch action {
		case app.KickMember:
			log.Warn().Str("module", "relay").Str("sid", string(ms.ID())).Str("room", string(key)).Msg("kicking slow member")
			r.Metrics.DeliveryDropped(event, "kick")
			ms.Signal().Close()
		case app.DropFrame:
			r.Metrics.DeliveryDropped(event, "drop")
		default:
			r.Metrics.DeliveryDropped(event, "none")
		}
	}
}

// reply sends an event to a single connection, ignoring a full buffer.
func (r *Router) reply(conn *Connection, event string, payload any) {
	frame, err := core.EncodeEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Str("event", event).Msg("encode reply")
		return
	}
	if err := conn.Signal().TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "relay").Str("sid", string(conn.ID())).Str("event", event).Msg("reply dropped")
		r.Metrics.DeliveryDropped(event, "drop")
	}
}
