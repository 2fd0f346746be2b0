package repository

import (
	"context"
	"errors"

	"chirpnet/internal/cache"
	"chirpnet/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines persistence operations for follow edges.
type FollowRepository interface {
	// Toggle removes the follower->following edge if present and creates it
	// otherwise, in one transaction. It reports whether the edge exists afterwards.
	Toggle(ctx context.Context, followerID, followingID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Toggle(ctx context.Context, followerID, followingID uint) (bool, error) {
	following := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&models.User{}).Where("id IN ?", []uint{followerID, followingID}).Count(&users).Error; err != nil {
			return err
		}
		if users != 2 {
			return models.NewNotFoundMessage("User not found")
		}

		var edge models.Follow
		err := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).First(&edge).Error
		switch {
		case err == nil:
			return tx.Delete(&edge).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			following = true
			return tx.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
		default:
			return err
		}
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return false, appErr
		}
		if isUniqueConstraintError(err) {
			// A concurrent request created the same edge first.
			cache.InvalidateUser(ctx, followerID, followingID)
			return true, nil
		}
		return false, models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, followerID, followingID)
	return following, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
