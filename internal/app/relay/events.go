package relay

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/voxify/internal/app"
	"github.com/dkeye/voxify/internal/domain"
)

// Inbound event types.
const (
	EventJoinVoiceRoom       = "join_voice_room"
	EventLeaveVoiceRoom      = "leave_voice_room"
	EventOffer               = "offer"
	EventAnswer              = "answer"
	EventICECandidate        = "ice_candidate"
	EventVoiceCall           = "voice_call"
	EventCallAccepted        = "call_accepted"
	EventCallRejected        = "call_rejected"
	EventEndCall             = "end_call"
	EventJoinVoiceChannel    = "join_voice_channel"
	EventLeaveVoiceChannel   = "leave_voice_channel"
	EventChannelOffer        = "channel_offer"
	EventChannelAnswer       = "channel_answer"
	EventChannelICECandidate = "channel_ice_candidate"
	EventPing                = "ping"
)

// Outbound event types. Relayed SDP and ICE events keep their inbound name.
const (
	EventUserJoined             = "user_joined"
	EventUserLeft               = "user_left"
	EventIncomingCall           = "incoming_call"
	EventCallEnded              = "call_ended"
	EventUserJoinedVoiceChannel = "user_joined_voice_channel"
	EventUserLeftVoiceChannel   = "user_left_voice_channel"
	EventPong                   = "pong"
	EventError                  = "error"
)

type roomRequest struct {
	Room   domain.UserID `json:"room"`
	UserID domain.UserID `json:"user_id"`
}

// signalRequest covers every addressed event. Which of the payload fields is
// required depends on the event.
type signalRequest struct {
	TargetUser domain.UserID    `json:"target_user"`
	ChannelID  domain.ChannelID `json:"channel_id"`
	Username   *string          `json:"username"`
	Offer      json.RawMessage  `json:"offer"`
	Answer     json.RawMessage  `json:"answer"`
	Candidate  json.RawMessage  `json:"candidate"`
}

func (r *signalRequest) payload(key string) json.RawMessage {
	switch key {
	case "offer":
		return r.Offer
	case "answer":
		return r.Answer
	case "candidate":
		return r.Candidate
	default:
		return nil
	}
}

type channelRequest struct {
	ChannelID domain.ChannelID `json:"channel_id"`
	Username  *string          `json:"username"`
}

type userPayload struct {
	UserID domain.UserID `json:"user_id"`
}

type callPayload struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
}

type errorPayload struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

func decode(data json.RawMessage, v any) error {
	if isNull(data) {
		return fmt.Errorf("%w: missing data", app.ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", app.ErrMalformedEvent, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", app.ErrMalformedEvent, field)
}

func requireUsername(v *string) (string, error) {
	if v == nil {
		return "", missing("username")
	}
	if err := domain.ValidateUsername(*v); err != nil {
		return "", fmt.Errorf("%w: %w", app.ErrMalformedEvent, err)
	}
	return *v, nil
}
