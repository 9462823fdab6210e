package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMembership struct {
	inner repository.MembershipRepository
	calls int
	err   error
}

func (c *countingMembership) IsChannelMember(ctx context.Context, user domain.UserID, channel domain.ChannelID) (bool, error) {
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.inner.IsChannelMember(ctx, user, channel)
}

func TestCachedAuthorizer(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewInMemoryMembershipRepository()
	mem.AddChannel("s1", "7")
	mem.AddMember("s1", "U1")
	repo := &countingMembership{inner: mem}
	a := NewCachedAuthorizer(repo, time.Minute)

	ok, err := a.IsMember(ctx, "U1", "7")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = a.IsMember(ctx, "U1", "7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, repo.calls)

	ok, err = a.IsMember(ctx, "U2", "7")
	require.NoError(t, err)
	assert.False(t, ok)

	// a denial is cached too until the TTL runs out
	mem.AddMember("s1", "U2")
	ok, err = a.IsMember(ctx, "U2", "7")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, repo.calls)
}

func TestCachedAuthorizerDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	repo := &countingMembership{inner: repository.NewInMemoryMembershipRepository(), err: errors.New("db down")}
	a := NewCachedAuthorizer(repo, time.Minute)

	_, err := a.IsMember(ctx, "U1", "7")
	require.Error(t, err)
	_, err = a.IsMember(ctx, "U1", "7")
	require.Error(t, err)
	assert.Equal(t, 2, repo.calls)

	repo.err = nil
	_, err = a.IsMember(ctx, "U1", "7")
	assert.ErrorIs(t, err, repository.ErrChannelNotFound)
}

func TestAuthorizerWithoutCache(t *testing.T) {
	mem := repository.NewInMemoryMembershipRepository()
	mem.AddChannel("s1", "7")
	repo := &countingMembership{inner: mem}
	a := NewCachedAuthorizer(repo, 0)

	for range 3 {
		ok, err := a.IsMember(context.Background(), "U1", "7")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 3, repo.calls)
}
