package repository

import (
	"context"
	"errors"

	"chirpnet/internal/cache"
	"chirpnet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Post, error)
	ListSaved(ctx context.Context, userID uint) ([]models.Post, error)
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, userID, postID uint) (bool, error)
	ToggleSave(ctx context.Context, userID, postID uint) (bool, error)
	AddComment(ctx context.Context, comment *models.Comment) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Post not found")
		}
		return nil, models.NewInternalError(err)
	}
	posts := []models.Post{post}
	if err := r.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (r *postRepository) List(ctx context.Context) ([]models.Post, error) {
	return r.find(ctx, r.withDetails(ctx).Order("posts.created_at DESC, posts.id DESC"))
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint) ([]models.Post, error) {
	return r.find(ctx, r.withDetails(ctx).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC, posts.id DESC"))
}

// ListSaved returns the posts userID saved, most recently created post first.
func (r *postRepository) ListSaved(ctx context.Context, userID uint) ([]models.Post, error) {
	return r.find(ctx, r.withDetails(ctx).
		Select("posts.*").
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", userID).
		Order("posts.created_at DESC, posts.id DESC"))
}

// withDetails preloads the author and the comments, oldest first, with their authors.
func (r *postRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC, comments.id ASC")
		}).
		Preload("Comments.User")
}

func (r *postRepository) find(ctx context.Context, q *gorm.DB) ([]models.Post, error) {
	posts := []models.Post{}
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachLikes projects like rows onto posts in insertion order and fills the
// author projections.
func (r *postRepository) attachLikes(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	index := make(map[uint]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Likes = []uint{}
	}

	var likes []models.Like
	if err := r.db.WithContext(ctx).Where("post_id IN ?", ids).Order("id").Find(&likes).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, l := range likes {
		p := &posts[index[l.PostID]]
		p.Likes = append(p.Likes, l.UserID)
	}
	for i := range posts {
		posts[i].Project()
	}
	return nil
}

// Delete removes a post together with its likes, comments and saved references.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	var savers []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SavedPost{}).Where("post_id = ?", id).Pluck("user_id", &savers).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.SavedPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundMessage("Post not found")
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, savers...)
	return nil
}

func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	return r.toggle(ctx, postID, &models.Like{}, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ? AND post_id = ?", userID, postID)
	}, func(tx *gorm.DB) error {
		// ON CONFLICT keeps a racing duplicate like from failing the request.
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{UserID: userID, PostID: postID}).Error
	})
}

func (r *postRepository) ToggleSave(ctx context.Context, userID, postID uint) (bool, error) {
	var users int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&users).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	if users == 0 {
		return false, models.NewNotFoundMessage("User not found")
	}

	saved, err := r.toggle(ctx, postID, &models.SavedPost{}, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ? AND post_id = ?", userID, postID)
	}, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.SavedPost{UserID: userID, PostID: postID}).Error
	})
	if err != nil {
		return false, err
	}
	cache.InvalidateUser(ctx, userID)
	return saved, nil
}

// toggle deletes the rows matched by scope when present and runs create
// otherwise, inside one transaction that first checks the post exists.
func (r *postRepository) toggle(ctx context.Context, postID uint, model any, scope func(*gorm.DB) *gorm.DB, create func(*gorm.DB) error) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&posts).Error; err != nil {
			return err
		}
		if posts == 0 {
			return models.NewNotFoundMessage("Post not found")
		}

		var count int64
		if err := scope(tx.Model(model)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return scope(tx).Delete(model).Error
		}
		added = true
		return create(tx)
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return false, appErr
		}
		return false, models.NewInternalError(err)
	}
	return added, nil
}

// AddComment stores comment and loads its author.
func (r *postRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts int64
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).Count(&posts).Error; err != nil {
			return err
		}
		if posts == 0 {
			return models.NewNotFoundMessage("Post not found")
		}
		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}
		return tx.First(&comment.User, comment.UserID).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	comment.Author = models.AuthorOf(comment.User)
	return nil
}
