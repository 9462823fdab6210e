package repository

import (
	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/repository/model"
)

func toModelParticipant(rec domain.PresenceRecord) *model.VoiceParticipant {
	return &model.VoiceParticipant{
		UserID:    string(rec.UserID),
		ChannelID: string(rec.ChannelID),
		JoinedAt:  rec.JoinedAt,
	}
}

func toDomainPresence(p *model.VoiceParticipant) domain.PresenceRecord {
	return domain.PresenceRecord{
		UserID:    domain.UserID(p.UserID),
		ChannelID: domain.ChannelID(p.ChannelID),
		JoinedAt:  p.JoinedAt.UTC(),
	}
}
