package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chirpnet/internal/cache"
	"chirpnet/internal/config"
	"chirpnet/internal/models"
	"chirpnet/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsernameFold(ctx context.Context, username string, excludeID uint) (*models.User, error) {
	args := m.Called(ctx, username, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	args := m.Called(ctx, username, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockUserRepository) Suggested(ctx context.Context, actorID uint) ([]models.User, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func newMockAuthApp(repo *MockUserRepository) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret, BcryptCost: bcrypt.MinCost}
	s := &Server{config: cfg, authService: service.NewAuthService(repo, cfg)}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/signup", s.Signup)
	app.Post("/login", s.Login)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestSignupWithMockRepository(t *testing.T) {
	signup := map[string]string{
		"username": "alice",
		"fullName": "Alice Example",
		"email":    "Alice@ChirpNet.test",
		"password": "correct-horse",
	}

	t.Run("email taken", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("UsernameTaken", mock.Anything, "alice", uint(0)).Return(false, nil)
		repo.On("EmailTaken", mock.Anything, "alice@chirpnet.test", uint(0)).Return(true, nil)

		status, body := postJSON(t, newMockAuthApp(repo), "/signup", signup)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "Email already exists", body["message"])
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repository failure is hidden", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("UsernameTaken", mock.Anything, "alice", uint(0)).
			Return(false, models.NewInternalError(assert.AnError))

		status, body := postJSON(t, newMockAuthApp(repo), "/signup", signup)
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, models.CodeInternal, body["code"])
		assert.NotContains(t, body["message"], assert.AnError.Error())
	})

	t.Run("stores a bcrypt hash", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("UsernameTaken", mock.Anything, "alice", uint(0)).Return(false, nil)
		repo.On("EmailTaken", mock.Anything, "alice@chirpnet.test", uint(0)).Return(false, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "alice@chirpnet.test" &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("correct-horse")) == nil
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 7
		}).Return(nil)

		status, body := postJSON(t, newMockAuthApp(repo), "/signup", signup)
		require.Equal(t, fiber.StatusCreated, status, body)
		user, _ := body["user"].(map[string]any)
		assert.Equal(t, float64(7), user["_id"])
		assert.NotEmpty(t, body["token"])
		repo.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		repo := new(MockUserRepository)
		req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := newMockAuthApp(repo).Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		repo.AssertNotCalled(t, "UsernameTaken", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLoginUnknownEmailWithMockRepository(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByEmail", mock.Anything, "ghost@chirpnet.test").Return(nil, nil)

	status, body := postJSON(t, newMockAuthApp(repo), "/login", map[string]string{
		"email":    "ghost@chirpnet.test",
		"password": "correct-horse",
	})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "User not found", body["message"])
}

func TestLogoutRevokesSession(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})

	a := newTestApp(t)
	token, _ := a.signup(t, "alice")

	res := a.do(t, http.MethodGet, "/api/auth/checkAuth", token, nil)
	require.Equal(t, fiber.StatusOK, res.Status)

	res = a.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, res.Status)

	res = a.do(t, http.MethodGet, "/api/auth/checkAuth", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)
	assert.Equal(t, "Token Revoked", res.Body["message"])
}
