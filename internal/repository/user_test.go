package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"chirpnet/internal/models"
	"chirpnet/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func expectEmptyHydration(mock sqlmock.Sqlmock, id uint) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "follows" WHERE following_id IN ($1) ORDER BY id`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "follower_id", "following_id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "follows" WHERE follower_id IN ($1) ORDER BY id`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "follower_id", "following_id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "saved_posts" WHERE user_id IN ($1) ORDER BY id`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "post_id"}))
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email", "password"}).
					AddRow(1, "testuser", "test@example.com", "hash")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
				expectEmptyHydration(mock, 1)
			},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantCode: models.CodeNotFound,
		},
		{
			name:   "Database Error",
			userID: 5,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
					WithArgs(5, 1).
					WillReturnError(errors.New("connection timeout"))
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.wantCode != "" {
				assert.True(t, models.IsCode(err, tt.wantCode), "got %v", err)
				assert.Nil(t, user)
			} else if assert.NoError(t, err) {
				assert.Equal(t, "testuser", user.Username)
				assert.Equal(t, []uint{}, user.Followers)
				assert.Equal(t, []uint{}, user.Followings)
				assert.Equal(t, []uint{}, user.SavedPosts)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "username", "email", "password"}).
			AddRow(3, "alice", "alice@example.com", "$2a$10$hash")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
			WithArgs("alice@example.com", 1).
			WillReturnRows(rows)
		expectEmptyHydration(mock, 3)

		user, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "$2a$10$hash", user.Password)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown email returns nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
			WithArgs("nobody@example.com", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		user, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.NoError(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Create_PostgresUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "alice", Email: "alice@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, "Email already exists", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg unique", &pgconn.PgError{Code: "23505"}, true},
		{"pg fk", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: users.username"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}

func TestUserRepository_SQLite(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "Bob")
	carol := testutil.CreateUser(t, db, "carol")

	t.Run("Create duplicate username is a conflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "alice", FullName: "A", Email: "other@chirpnet.test", Password: "x"})
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.CodeConflict))
		assert.Equal(t, "Username already exists", err.Error())

		var count int64
		db.Model(&models.User{}).Where("username = ?", "alice").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Create duplicate email is a conflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "alice2", FullName: "A", Email: alice.Email, Password: "x"})
		require.Error(t, err)
		assert.Equal(t, "Email already exists", err.Error())
	})

	t.Run("FindByUsernameFold is case-insensitive and excludes self", func(t *testing.T) {
		found, err := repo.FindByUsernameFold(ctx, "bob", alice.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, bob.ID, found.ID)

		self, err := repo.FindByUsernameFold(ctx, "BOB", bob.ID)
		require.NoError(t, err)
		assert.Nil(t, self)

		partial, err := repo.FindByUsernameFold(ctx, "bo", alice.ID)
		require.NoError(t, err)
		assert.Nil(t, partial)
	})

	t.Run("Taken checks exclude the given id", func(t *testing.T) {
		taken, err := repo.UsernameTaken(ctx, "carol", alice.ID)
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.UsernameTaken(ctx, "carol", carol.ID)
		require.NoError(t, err)
		assert.False(t, taken)

		taken, err = repo.EmailTaken(ctx, "nobody@chirpnet.test", 0)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("UsernameTaken ignores case", func(t *testing.T) {
		taken, err := repo.UsernameTaken(ctx, "ALICE", 0)
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.UsernameTaken(ctx, "bob", 0)
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.UsernameTaken(ctx, "Alice", alice.ID)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("Create case variant of a username is a conflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "ALICE", FullName: "A", Email: "upper@chirpnet.test", Password: "x"})
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.CodeConflict))
		assert.Equal(t, "Username already exists", err.Error())

		found, err := repo.FindByUsernameFold(ctx, "alice", bob.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, alice.ID, found.ID)
	})

	t.Run("UpdateFields keeps the password", func(t *testing.T) {
		require.NoError(t, repo.UpdateFields(ctx, carol.ID, map[string]any{"bio": "hello"}))

		var stored models.User
		require.NoError(t, db.First(&stored, carol.ID).Error)
		assert.Equal(t, "hello", stored.Bio)
		assert.Equal(t, carol.Password, stored.Password)

		err := repo.UpdateFields(ctx, 4242, map[string]any{"bio": "x"})
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		err = repo.UpdateFields(ctx, carol.ID, map[string]any{"email": alice.Email})
		assert.True(t, models.IsCode(err, models.CodeConflict))
	})

	t.Run("Suggested excludes self and both follow directions", func(t *testing.T) {
		dave := testutil.CreateUser(t, db, "dave")
		require.NoError(t, db.Create(&models.Follow{FollowerID: alice.ID, FollowingID: bob.ID}).Error)
		require.NoError(t, db.Create(&models.Follow{FollowerID: carol.ID, FollowingID: alice.ID}).Error)

		users, err := repo.Suggested(ctx, alice.ID)
		require.NoError(t, err)
		ids := make([]uint, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []uint{dave.ID}, ids)
	})

	t.Run("GetByID hydrates relationship sets", func(t *testing.T) {
		got, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{bob.ID}, got.Followings)
		assert.Equal(t, []uint{carol.ID}, got.Followers)
	})
}
