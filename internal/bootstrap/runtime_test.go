package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chirpnet/internal/config"
	"chirpnet/internal/models"
	"chirpnet/internal/seed"
	"chirpnet/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestResolvePreset(t *testing.T) {
	p, err := ResolvePreset("default")
	require.NoError(t, err)
	assert.Equal(t, seed.DefaultPreset(), p)

	path := filepath.Join(t.TempDir(), "small.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: 2\n"), 0o600))
	p, err = ResolvePreset(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Users)

	_, err = ResolvePreset("does-not-exist")
	assert.Error(t, err)
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tiny.yml")
	require.NoError(t, os.WriteFile(path, []byte("users: 2\nposts_per_user: 1\nseed: 3\n"), 0o600))

	countUsers := func(t *testing.T, cfg *config.Config) int64 {
		t.Helper()
		db := testutil.NewTestDB(t)
		require.NoError(t, seedIfEmpty(ctx, cfg, db))
		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		return n
	}

	t.Run("seeds empty database", func(t *testing.T) {
		cfg := &config.Config{Env: "development", SeedPreset: path, BcryptCost: bcrypt.MinCost}
		assert.Equal(t, int64(2), countUsers(t, cfg))
	})

	t.Run("skipped in production", func(t *testing.T) {
		cfg := &config.Config{Env: "production", SeedPreset: path, BcryptCost: bcrypt.MinCost}
		assert.Zero(t, countUsers(t, cfg))
	})

	t.Run("skipped without preset", func(t *testing.T) {
		cfg := &config.Config{Env: "development", BcryptCost: bcrypt.MinCost}
		assert.Zero(t, countUsers(t, cfg))
	})

	t.Run("skipped when users exist", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		testutil.CreateUser(t, db, "existing")
		cfg := &config.Config{Env: "development", SeedPreset: path, BcryptCost: bcrypt.MinCost}
		require.NoError(t, seedIfEmpty(ctx, cfg, db))
		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})
}
