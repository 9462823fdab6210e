package model

import "time"

type Server struct {
	ID        string    `gorm:"size:64;primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	OwnerID   string    `gorm:"size:64;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
	Channels  []Channel `gorm:"constraint:OnDelete:CASCADE"`
}

type Channel struct {
	ID        string    `gorm:"size:64;primaryKey"`
	ServerID  string    `gorm:"size:64;index;not null"`
	Name      string    `gorm:"size:100;not null"`
	Type      string    `gorm:"size:16;not null;default:text"`
	Bitrate   int       `gorm:"not null;default:64000"`
	UserLimit int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
}

type ServerMember struct {
	ID       uint      `gorm:"primaryKey"`
	UserID   string    `gorm:"size:64;not null;uniqueIndex:idx_server_member"`
	ServerID string    `gorm:"size:64;not null;uniqueIndex:idx_server_member;index"`
	JoinedAt time.Time `gorm:"not null"`
}

type VoiceParticipant struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_voice_participant"`
	ChannelID string    `gorm:"size:64;not null;uniqueIndex:idx_voice_participant;index"`
	JoinedAt  time.Time `gorm:"not null"`
}

// All lists the tables owned or read by the relay, in migration order.
func All() []any {
	return []any{&Server{}, &Channel{}, &ServerMember{}, &VoiceParticipant{}}
}
