package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/voxify/internal/app"
	"github.com/dkeye/voxify/internal/domain"
	"github.com/rs/zerolog/log"
)

func (r *Router) JoinVoiceChannel(ctx context.Context, conn *Connection, data json.RawMessage) error {
	var req channelRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.ChannelID == "" {
		return missing("channel_id")
	}
	username, err := requireUsername(req.Username)
	if err != nil {
		return err
	}

	user := conn.User()
	if err := r.authorize(ctx, user, req.ChannelID); err != nil {
		return err
	}

	key := domain.VoiceRoom(req.ChannelID)
	if !conn.track(key, user) {
		return nil
	}
	r.Registry.Join(key, conn)

	// presence is committed before peers hear about the join
	perr := r.Presence.RecordJoin(ctx, user, req.ChannelID)
	if perr != nil {
		r.Metrics.PersistenceFailed("record_join")
		log.Error().Err(perr).Str("module", "relay").Str("user", string(user)).Str("room", string(key)).Msg("record join")
	}
	log.Info().Str("module", "relay").Str("sid", string(conn.ID())).Str("user", string(user)).Str("room", string(key)).Msg("joined voice channel")

	r.broadcast(key, EventUserJoinedVoiceChannel, callPayload{UserID: user, Username: username}, conn.ID())
	return perr
}

func (r *Router) LeaveVoiceChannel(ctx context.Context, conn *Connection, data json.RawMessage) error {
	var req channelRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.ChannelID == "" {
		return missing("channel_id")
	}

	user := conn.User()
	key := domain.VoiceRoom(req.ChannelID)
	conn.untrack(key)
	changed, remains := r.Registry.Depart(key, conn.ID(), user)
	if remains {
		// another connection of the same user keeps the presence row
		log.Info().Str("module", "relay").Str("sid", string(conn.ID())).Str("user", string(user)).Str("room", string(key)).Msg("left voice channel, user still present")
		return nil
	}

	// rows can outlive membership, so the delete runs even when nothing changed
	perr := r.Presence.RecordLeave(ctx, user, req.ChannelID)
	if perr != nil {
		r.Metrics.PersistenceFailed("record_leave")
		log.Error().Err(perr).Str("module", "relay").Str("user", string(user)).Str("room", string(key)).Msg("record leave")
	}
	if changed {
		log.Info().Str("module", "relay").Str("sid", string(conn.ID())).Str("user", string(user)).Str("room", string(key)).Msg("left voice channel")
		r.broadcast(key, EventUserLeftVoiceChannel, userPayload{UserID: user}, conn.ID())
	}
	return perr
}

// channelSignalHandler relays channel_offer, channel_answer and
// channel_ice_candidate with the channel id attached.
func (r *Router) channelSignalHandler(event, key string) handler {
	return func(_ context.Context, conn *Connection, data json.RawMessage) error {
		var req signalRequest
		if err := decode(data, &req); err != nil {
			return err
		}
		payload := req.payload(key)
		if isNull(payload) {
			return missing(key)
		}
		if req.ChannelID == "" {
			return missing("channel_id")
		}
		if req.TargetUser == "" {
			return missing("target_user")
		}

		r.relay(req.TargetUser, event, map[string]any{
			key:          payload,
			"user_id":    conn.User(),
			"channel_id": req.ChannelID,
		}, conn.ID())
		return nil
	}
}

// authorize fails closed: a lookup error rejects the join.
func (r *Router) authorize(ctx context.Context, user domain.UserID, channel domain.ChannelID) error {
	ok, err := r.Auth.IsMember(ctx, user, channel)
	if err != nil {
		log.Warn().Err(err).Str("module", "relay").Str("user", string(user)).Str("channel", string(channel)).Msg("membership lookup failed")
		return fmt.Errorf("%w: %w", app.ErrUnauthorized, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not a member of channel %s", app.ErrUnauthorized, user, channel)
	}
	return nil
}
