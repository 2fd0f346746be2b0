// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"testing"

	"chirpnet/internal/database"
	"chirpnet/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database. The pool is pinned to
// one connection because every connection to :memory: is a separate database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user whose password is "password123".
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Username: username,
		FullName: username + " tester",
		Email:    username + "@chirpnet.test",
		Password: string(hash),
	}
	require.NoError(t, db.WithContext(context.Background()).Create(u).Error)
	return u
}

// CreatePost inserts a post by author with the given description.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, description string) *models.Post {
	t.Helper()
	p := &models.Post{UserID: author.ID, Description: description}
	require.NoError(t, db.Omit("User", "Comments").Create(p).Error)
	return p
}
