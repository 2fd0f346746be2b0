package repository

import (
	"context"
	"errors"

	"chirpnet/internal/cache"
	"chirpnet/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsernameFold(ctx context.Context, username string, excludeID uint) (*models.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	Suggested(ctx context.Context, actorID uint) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID caches only the profile columns. The relation sets change on every
// toggle, so they are read from the database on each call.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User

	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundMessage("User not found")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := hydrateUsers(ctx, r.db, []*models.User{&user}); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns the user with the credential hash loaded, or nil when
// no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	if err := hydrateUsers(ctx, r.db, []*models.User{&user}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsernameFold(ctx context.Context, username string, excludeID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?) AND id <> ?", username, excludeID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	if err := hydrateUsers(ctx, r.db, []*models.User{&user}); err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameTaken compares case-insensitively, matching FindByUsernameFold and
// the lowered unique index.
func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.taken(ctx, "LOWER(username) = LOWER(?)", username, excludeID)
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.taken(ctx, "email = ?", email, excludeID)
}

func (r *userRepository) taken(ctx context.Context, cond, value string, excludeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where(cond, value).
		Where("id <> ?", excludeID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return duplicateUserError(err)
		}
		return models.NewInternalError(err)
	}
	user.EnsureSets()
	return nil
}

// UpdateFields writes only the named columns so the credential hash is never
// overwritten by a projection that lacks it.
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{ID: id}).Updates(fields)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return duplicateUserError(res.Error)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("User not found")
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// Suggested returns every user with no follow edge to or from actorID,
// newest accounts first.
func (r *userRepository) Suggested(ctx context.Context, actorID uint) ([]models.User, error) {
	users := []models.User{}
	followings := r.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", actorID)
	followers := r.db.Model(&models.Follow{}).Select("follower_id").Where("following_id = ?", actorID)

	if err := r.db.WithContext(ctx).
		Where("id <> ?", actorID).
		Where("id NOT IN (?)", followings).
		Where("id NOT IN (?)", followers).
		Order("created_at DESC, id DESC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	ptrs := make([]*models.User, len(users))
	for i := range users {
		ptrs[i] = &users[i]
	}
	if err := hydrateUsers(ctx, r.db, ptrs); err != nil {
		return nil, err
	}
	return users, nil
}

func duplicateUserError(err error) error {
	switch uniqueConstraintColumn(err, "username", "email") {
	case "username":
		return models.NewConflictError("Username already exists")
	case "email":
		return models.NewConflictError("Email already exists")
	default:
		return models.NewConflictError("User already exists")
	}
}

// hydrateUsers fills the followers, followings and savedPosts projections of
// users with three bulk queries.
func hydrateUsers(ctx context.Context, db *gorm.DB, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]uint, len(users))
	byID := make(map[uint]*models.User, len(users))
	for i, u := range users {
		ids[i] = u.ID
		u.Followers, u.Followings, u.SavedPosts = []uint{}, []uint{}, []uint{}
		byID[u.ID] = u
	}

	var inbound []models.Follow
	if err := db.WithContext(ctx).Where("following_id IN ?", ids).Order("id").Find(&inbound).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, f := range inbound {
		byID[f.FollowingID].Followers = append(byID[f.FollowingID].Followers, f.FollowerID)
	}

	var outbound []models.Follow
	if err := db.WithContext(ctx).Where("follower_id IN ?", ids).Order("id").Find(&outbound).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, f := range outbound {
		byID[f.FollowerID].Followings = append(byID[f.FollowerID].Followings, f.FollowingID)
	}

	var saved []models.SavedPost
	if err := db.WithContext(ctx).Where("user_id IN ?", ids).Order("id").Find(&saved).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, s := range saved {
		byID[s.UserID].SavedPosts = append(byID[s.UserID].SavedPosts, s.PostID)
	}
	return nil
}
