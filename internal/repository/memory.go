package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/voxify/internal/domain"
)

type presenceKey struct {
	user    domain.UserID
	channel domain.ChannelID
}

type InMemoryPresenceRepository struct {
	mu      sync.RWMutex
	records map[presenceKey]domain.PresenceRecord
}

func NewInMemoryPresenceRepository() *InMemoryPresenceRepository {
	return &InMemoryPresenceRepository{records: make(map[presenceKey]domain.PresenceRecord)}
}

func (r *InMemoryPresenceRepository) Insert(ctx context.Context, rec domain.PresenceRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if rec.UserID == "" || rec.ChannelID == "" {
		return false, ErrInvalidRecord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := presenceKey{rec.UserID, rec.ChannelID}
	if _, ok := r.records[k]; ok {
		return false, nil
	}
	r.records[k] = rec
	return true, nil
}

func (r *InMemoryPresenceRepository) Delete(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := presenceKey{user, channel}
	if _, ok := r.records[k]; !ok {
		return false, nil
	}
	delete(r.records, k)
	return true, nil
}

func (r *InMemoryPresenceRepository) Exists(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.records[presenceKey{user, channel}]
	return ok, nil
}

func (r *InMemoryPresenceRepository) ListByChannel(ctx context.Context, channel domain.ChannelID) ([]domain.PresenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.PresenceRecord, 0)
	for k, rec := range r.records {
		if k.channel == channel {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (r *InMemoryPresenceRepository) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.records))
	r.records = make(map[presenceKey]domain.PresenceRecord)
	return n, nil
}

// InMemoryMembershipRepository keeps channel → server and server → members maps.
type InMemoryMembershipRepository struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]string
	members  map[string]map[domain.UserID]struct{}
}

func NewInMemoryMembershipRepository() *InMemoryMembershipRepository {
	return &InMemoryMembershipRepository{
		channels: make(map[domain.ChannelID]string),
		members:  make(map[string]map[domain.UserID]struct{}),
	}
}

func (r *InMemoryMembershipRepository) AddChannel(server string, channel domain.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[channel] = server
}

func (r *InMemoryMembershipRepository) AddMember(server string, user domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[server]
	if !ok {
		set = make(map[domain.UserID]struct{})
		r.members[server] = set
	}
	set[user] = struct{}{}
}

func (r *InMemoryMembershipRepository) IsChannelMember(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	server, ok := r.channels[channel]
	if !ok {
		return false, ErrChannelNotFound
	}
	_, ok = r.members[server][user]
	return ok, nil
}
