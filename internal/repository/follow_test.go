package repository

import (
	"context"
	"testing"

	"chirpnet/internal/models"
	"chirpnet/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_Toggle(t *testing.T) {
	db := testutil.NewTestDB(t)
	follows := NewFollowRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	following, err := follows.Toggle(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	a, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	b, err := users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, a.Followings)
	assert.Equal(t, []uint{alice.ID}, b.Followers)
	assert.Empty(t, a.Followers)
	assert.Empty(t, b.Followings)

	ok, err := follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	following, err = follows.Toggle(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	a, _ = users.GetByID(ctx, alice.ID)
	b, _ = users.GetByID(ctx, bob.ID)
	assert.Empty(t, a.Followings)
	assert.Empty(t, b.Followers)

	var edges int64
	db.Model(&models.Follow{}).Count(&edges)
	assert.Zero(t, edges)
}

func TestFollowRepository_ToggleUnknownUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	follows := NewFollowRepository(db)
	alice := testutil.CreateUser(t, db, "alice")

	_, err := follows.Toggle(context.Background(), alice.ID, 999)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	var edges int64
	db.Model(&models.Follow{}).Count(&edges)
	assert.Zero(t, edges)
}

func TestFollowRepository_SymmetryAfterEveryToggle(t *testing.T) {
	db := testutil.NewTestDB(t)
	follows := NewFollowRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	for i := 0; i < 5; i++ {
		_, err := follows.Toggle(ctx, alice.ID, bob.ID)
		require.NoError(t, err)

		a, err := users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		b, err := users.GetByID(ctx, bob.ID)
		require.NoError(t, err)

		assert.Equal(t, contains(a.Followings, bob.ID), contains(b.Followers, alice.ID), "toggle %d", i)
		assert.Equal(t, i%2 == 0, contains(a.Followings, bob.ID), "toggle %d", i)
	}
}

func contains(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
