package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"chirpnet/internal/cache"
	"chirpnet/internal/models"
	"chirpnet/internal/repository"
	"chirpnet/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	toggleFn      func(context.Context, uint, uint) (bool, error)
	isFollowingFn func(context.Context, uint, uint) (bool, error)
}

func (s *followRepoStub) Toggle(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.toggleFn(ctx, followerID, followingID)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followingID)
}

func TestGraphService_FollowScenario(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice, err := s.auth.Register(ctx, registerInput("alice"))
	require.NoError(t, err)
	bob, err := s.auth.Register(ctx, registerInput("bob"))
	require.NoError(t, err)

	following, err := s.graph.FollowUnfollow(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)
	assert.True(t, following)

	a, err := s.users.GetProfile(ctx, alice.User.ID)
	require.NoError(t, err)
	b, err := s.users.GetProfile(ctx, bob.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.User.ID}, a.Followings)
	assert.Equal(t, []uint{alice.User.ID}, b.Followers)

	following, err = s.graph.FollowUnfollow(ctx, alice.User.ID, bob.User.ID)
	require.NoError(t, err)
	assert.False(t, following)

	a, _ = s.users.GetProfile(ctx, alice.User.ID)
	b, _ = s.users.GetProfile(ctx, bob.User.ID)
	assert.Empty(t, a.Followings)
	assert.Empty(t, b.Followers)
}

func TestGraphService_FollowScenarioWithRedis(t *testing.T) {
	setupRedis(t)
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")

	assertSymmetric := func(t *testing.T, following bool) {
		t.Helper()
		a, err := s.users.GetProfile(ctx, alice.ID)
		require.NoError(t, err)
		b, err := s.users.GetProfile(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, following, slices.Contains(a.Followings, bob.ID))
		assert.Equal(t, following, slices.Contains(b.Followers, alice.ID))
		assert.Empty(t, a.Followers)
		assert.Empty(t, b.Followings)
	}

	// Prime both cached profiles before each toggle.
	assertSymmetric(t, false)
	for _, want := range []bool{true, false, true} {
		following, err := s.graph.FollowUnfollow(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		require.Equal(t, want, following)
		assertSymmetric(t, want)
	}
}

func TestGraphService_FollowErrors(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s.db, "alice")

	_, err := s.graph.FollowUnfollow(ctx, alice.ID, alice.ID)
	assertAppError(t, err, models.CodeValidation)

	_, err = s.graph.FollowUnfollow(ctx, alice.ID, 4242)
	assertAppError(t, err, models.CodeNotFound)

	_, err = s.graph.FollowUnfollow(ctx, 4242, alice.ID)
	assertAppError(t, err, models.CodeNotFound)
}

func TestGraphService_FollowLockBusy(t *testing.T) {
	mr := setupRedis(t)
	called := false
	graph := NewGraphService(&followRepoStub{
		toggleFn: func(context.Context, uint, uint) (bool, error) {
			called = true
			return true, nil
		},
	}, nil)

	require.NoError(t, mr.Set(cache.PairLockKey("follow", 1, 2), "someone-else"))

	_, err := graph.FollowUnfollow(context.Background(), 1, 2)
	assertAppError(t, err, models.CodeConflict)
	assert.False(t, called)
}

func TestGraphService_FollowPropagatesRepositoryError(t *testing.T) {
	boom := models.NewInternalError(errors.New("db down"))
	graph := NewGraphService(&followRepoStub{
		toggleFn: func(context.Context, uint, uint) (bool, error) { return false, boom },
	}, nil)

	_, err := graph.FollowUnfollow(context.Background(), 1, 2)
	assert.ErrorIs(t, err, boom)
}

func TestGraphService_SuggestedUsers(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	carol := testutil.CreateUser(t, s.db, "carol")
	dave := testutil.CreateUser(t, s.db, "dave")

	_, err := s.graph.FollowUnfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = s.graph.FollowUnfollow(ctx, carol.ID, alice.ID)
	require.NoError(t, err)

	suggested, err := s.graph.SuggestedUsers(ctx, alice.ID)
	require.NoError(t, err)
	ids := make([]uint, 0, len(suggested))
	for _, u := range suggested {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []uint{dave.ID}, ids)
}

func TestGraphService_SearchByUsername(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "Bobby")

	found, err := s.graph.SearchByUsername(ctx, "  bobby ", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)
	assert.Empty(t, found.Password)

	_, err = s.graph.SearchByUsername(ctx, "bob", alice.ID)
	assertAppError(t, err, models.CodeNotFound)

	_, err = s.graph.SearchByUsername(ctx, "alice", alice.ID)
	assertAppError(t, err, models.CodeNotFound)

	_, err = s.graph.SearchByUsername(ctx, "   ", alice.ID)
	assertAppError(t, err, models.CodeValidation)
}

var _ repository.FollowRepository = (*followRepoStub)(nil)
