package domain

import "time"

// PresenceRecord marks a user as currently in a channel's voice room.
// At most one record exists per (user, channel).
type PresenceRecord struct {
	UserID    UserID    `json:"user_id"`
	ChannelID ChannelID `json:"channel_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

func NewPresenceRecord(user UserID, channel ChannelID) PresenceRecord {
	return PresenceRecord{UserID: user, ChannelID: channel, JoinedAt: time.Now().UTC()}
}
