package domain

import "strings"

type RoomKind int

const (
	RoomKindCall RoomKind = iota
	RoomKindVoice
)

func (k RoomKind) String() string {
	switch k {
	case RoomKindCall:
		return "call"
	case RoomKindVoice:
		return "voice"
	default:
		return "unknown"
	}
}

const (
	callRoomPrefix  = "user_"
	voiceRoomPrefix = "channel_"
)

// RoomKey identifies an ephemeral room. Call rooms are keyed by a user id,
// voice rooms by a channel id; the prefixes keep the two spaces apart.
type RoomKey string

func CallRoom(user UserID) RoomKey {
	return RoomKey(callRoomPrefix + string(user))
}

func VoiceRoom(channel ChannelID) RoomKey {
	return RoomKey(voiceRoomPrefix + string(channel))
}

func (k RoomKey) Kind() RoomKind {
	if strings.HasPrefix(string(k), voiceRoomPrefix) {
		return RoomKindVoice
	}
	return RoomKindCall
}

// Channel returns the channel id of a voice room key.
func (k RoomKey) Channel() (ChannelID, bool) {
	s, ok := strings.CutPrefix(string(k), voiceRoomPrefix)
	return ChannelID(s), ok
}
