package app

import (
	"context"
	"time"

	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/repository"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// Authorizer answers whether user may join the voice room of channel.
type Authorizer interface {
	IsMember(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error)
}

// CachedAuthorizer checks server membership through the repository and keeps
// answers for a short TTL. Lookup errors are never cached.
type CachedAuthorizer struct {
	repo  repository.MembershipRepository
	cache *cache.Cache
}

func NewCachedAuthorizer(repo repository.MembershipRepository, ttl time.Duration) *CachedAuthorizer {
	a := &CachedAuthorizer{repo: repo}
	if ttl > 0 {
		a.cache = cache.New(ttl, 2*ttl)
	}
	return a
}

func (a *CachedAuthorizer) IsMember(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	key := string(user) + "|" + string(channel)
	if a.cache != nil {
		if v, ok := a.cache.Get(key); ok {
			return v.(bool), nil
		}
	}

	ok, err := a.repo.IsChannelMember(ctx, user, channel)
	if err != nil {
		return false, err
	}
	if a.cache != nil {
		a.cache.SetDefault(key, ok)
	}
	log.Debug().
		Str("module", "app.authorizer").
		Str("user", string(user)).
		Str("channel", string(channel)).
		Bool("member", ok).
		Msg("membership lookup")
	return ok, nil
}
