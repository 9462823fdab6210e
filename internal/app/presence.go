package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/repository"
	"github.com/rs/zerolog/log"
)

// PresenceTracker owns the durable (user, channel) voice presence records.
// Every failure it returns wraps ErrPersistence.
type PresenceTracker struct {
	repo    repository.PresenceRepository
	timeout time.Duration
}

func NewPresenceTracker(repo repository.PresenceRepository, writeTimeout time.Duration) *PresenceTracker {
	return &PresenceTracker{repo: repo, timeout: writeTimeout}
}

func (p *PresenceTracker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// RecordJoin is idempotent: a second join of the same pair keeps one record.
func (p *PresenceTracker) RecordJoin(ctx context.Context, user domain.UserID, channel domain.ChannelID) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	inserted, err := p.repo.Insert(ctx, domain.NewPresenceRecord(user, channel))
	if err != nil {
		return fmt.Errorf("%w: record join %s in %s: %w", ErrPersistence, user, channel, err)
	}
	log.Debug().
		Str("module", "app.presence").
		Str("user", string(user)).
		Str("channel", string(channel)).
		Bool("inserted", inserted).
		Msg("record join")
	return nil
}

func (p *PresenceTracker) RecordLeave(ctx context.Context, user domain.UserID, channel domain.ChannelID) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	removed, err := p.repo.Delete(ctx, user, channel)
	if err != nil {
		return fmt.Errorf("%w: record leave %s in %s: %w", ErrPersistence, user, channel, err)
	}
	log.Debug().
		Str("module", "app.presence").
		Str("user", string(user)).
		Str("channel", string(channel)).
		Bool("removed", removed).
		Msg("record leave")
	return nil
}

func (p *PresenceTracker) IsPresent(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	ok, err := p.repo.Exists(ctx, user, channel)
	if err != nil {
		return false, fmt.Errorf("%w: lookup %s in %s: %w", ErrPersistence, user, channel, err)
	}
	return ok, nil
}

func (p *PresenceTracker) Participants(ctx context.Context, channel domain.ChannelID) ([]domain.PresenceRecord, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	recs, err := p.repo.ListByChannel(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrPersistence, channel, err)
	}
	return recs, nil
}

// Purge removes every record. Run at startup, while the registry is still empty.
func (p *PresenceTracker) Purge(ctx context.Context) (int64, error) {
	n, err := p.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: purge: %w", ErrPersistence, err)
	}
	log.Info().Str("module", "app.presence").Int64("removed", n).Msg("presence purged")
	return n, nil
}
