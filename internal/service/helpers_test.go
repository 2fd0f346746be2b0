package service

import (
	"errors"
	"testing"

	"chirpnet/internal/cache"
	"chirpnet/internal/config"
	"chirpnet/internal/models"
	"chirpnet/internal/repository"
	"chirpnet/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "service-test-secret-at-least-32-chars"

// services bundles every service over one in-memory database.
type services struct {
	db     *gorm.DB
	store  *testutil.MemoryImageStore
	auth   *AuthService
	graph  *GraphService
	users  *UserService
	posts  *PostService
	images *ImageService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		JWTSecret:            testSecret,
		BcryptCost:           bcrypt.MinCost,
		ImageMaxUploadSizeMB: 1,
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)
	store := testutil.NewMemoryImageStore()
	images := NewImageService(store, cfg)

	return &services{
		db:     db,
		store:  store,
		auth:   NewAuthService(userRepo, cfg),
		graph:  NewGraphService(followRepo, userRepo),
		users:  NewUserService(userRepo, postRepo, images),
		posts:  NewPostService(postRepo, images),
		images: images,
	}
}

// setupRedis points the cache package at a fresh miniredis for the test.
func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		cache.SetClient(nil)
		mr.Close()
	})
	return mr
}

// assertAppError asserts that err is an AppError carrying code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
