package repository

import (
	"context"
	"errors"

	"github.com/dkeye/voxify/internal/domain"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrInvalidRecord   = errors.New("presence record needs user and channel")
)

// PresenceRepository stores voice channel presence, one row per (user, channel).
type PresenceRepository interface {
	// Insert adds rec unless a row for the same pair exists and reports whether it inserted.
	Insert(ctx context.Context, rec domain.PresenceRecord) (bool, error)
	// Delete removes the pair and reports whether a row existed.
	Delete(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error)
	Exists(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error)
	ListByChannel(ctx context.Context, channel domain.ChannelID) ([]domain.PresenceRecord, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// MembershipRepository answers whether a user belongs to the server owning a channel.
type MembershipRepository interface {
	IsChannelMember(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error)
}
