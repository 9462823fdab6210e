package repository

import (
	"context"
	"errors"

	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormPresenceRepository struct {
	db *gorm.DB
}

func NewGormPresenceRepository(db *gorm.DB) *GormPresenceRepository {
	return &GormPresenceRepository{db: db}
}

func (r *GormPresenceRepository) Insert(ctx context.Context, rec domain.PresenceRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if rec.UserID == "" || rec.ChannelID == "" {
		return false, ErrInvalidRecord
	}

	row := toModelParticipant(rec)
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.VoiceParticipant{}).
			Where("user_id = ? AND channel_id = ?", row.UserID, row.ChannelID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		// a concurrent insert of the same pair lands on the unique index
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *GormPresenceRepository) Delete(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", string(user), string(channel)).
		Delete(&model.VoiceParticipant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormPresenceRepository) Exists(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&model.VoiceParticipant{}).
		Where("user_id = ? AND channel_id = ?", string(user), string(channel)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormPresenceRepository) ListByChannel(ctx context.Context, channel domain.ChannelID) ([]domain.PresenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []model.VoiceParticipant
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", string(channel)).
		Order("joined_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.PresenceRecord, 0, len(rows))
	for i := range rows {
		out = append(out, toDomainPresence(&rows[i]))
	}
	return out, nil
}

func (r *GormPresenceRepository) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.VoiceParticipant{})
	return res.RowsAffected, res.Error
}

type GormMembershipRepository struct {
	db *gorm.DB
}

func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

func (r *GormMembershipRepository) IsChannelMember(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var ch model.Channel
	err := r.db.WithContext(ctx).Select("id", "server_id").First(&ch, "id = ?", string(channel)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrChannelNotFound
		}
		return false, err
	}

	var count int64
	err = r.db.WithContext(ctx).Model(&model.ServerMember{}).
		Where("user_id = ? AND server_id = ?", string(user), ch.ServerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
