package service

import (
	"context"
	"strings"

	"chirpnet/internal/cache"
	"chirpnet/internal/models"
	"chirpnet/internal/observability"
	"chirpnet/internal/repository"
	"chirpnet/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo repository.PostRepository
	images   *ImageService
}

type CreatePostInput struct {
	UserID      uint
	Image       string
	Description string
}

func NewPostService(postRepo repository.PostRepository, images *ImageService) *PostService {
	return &PostService{postRepo: postRepo, images: images}
}

// CreatePost uploads the image, when one is given, before the post row is
// written so a failed upload leaves nothing behind.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "CreatePost",
		attribute.Int("user.id", int(in.UserID)),
		attribute.Bool("post.has_image", in.Image != ""),
	)
	defer func() { observability.EndSpan(span, err) }()

	description := strings.TrimSpace(in.Description)
	image := strings.TrimSpace(in.Image)
	if description == "" && image == "" {
		return nil, models.NewValidationError("Post must have an image or a description")
	}
	if err := validation.ValidateDescription(description); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post = &models.Post{
		UserID:      in.UserID,
		Description: description,
	}
	if image != "" {
		uploaded, err := s.images.Upload(ctx, in.UserID, image, PostImageMaxSize)
		if err != nil {
			return nil, err
		}
		post.Image = uploaded.URL
		post.ImageWebP = uploaded.WebPURL
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// LikeUnlike toggles the actor's like and reports whether the post is liked afterwards.
func (s *PostService) LikeUnlike(ctx context.Context, actorID, postID uint) (liked bool, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "LikeUnlike",
		attribute.Int("actor.id", int(actorID)),
		attribute.Int("post.id", int(postID)),
	)
	defer func() {
		observability.EndSpan(span, err)
		recordToggle("like", liked, err)
	}()

	err = runToggle(ctx, cache.PairLockKey("like", actorID, postID), func() error {
		var toggleErr error
		liked, toggleErr = s.postRepo.ToggleLike(ctx, actorID, postID)
		return toggleErr
	})
	return liked, err
}

// SaveUnsave toggles the post in the actor's saved posts.
func (s *PostService) SaveUnsave(ctx context.Context, actorID, postID uint) (saved bool, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "SaveUnsave",
		attribute.Int("actor.id", int(actorID)),
		attribute.Int("post.id", int(postID)),
	)
	defer func() {
		observability.EndSpan(span, err)
		recordToggle("save", saved, err)
	}()

	err = runToggle(ctx, cache.PairLockKey("save", actorID, postID), func() error {
		var toggleErr error
		saved, toggleErr = s.postRepo.ToggleSave(ctx, actorID, postID)
		return toggleErr
	})
	return saved, err
}

func (s *PostService) Comment(ctx context.Context, actorID, postID uint, text string) (*models.Comment, error) {
	text, err := validation.ValidateComment(text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	comment := &models.Comment{
		PostID:      postID,
		UserID:      actorID,
		Description: text,
	}
	if err := s.postRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeletePost removes a post written by the actor.
func (s *PostService) DeletePost(ctx context.Context, actorID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}

func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.postRepo.List(ctx)
}

func (s *PostService) ListPostsByUser(ctx context.Context, userID uint) ([]models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID)
}

func (s *PostService) ListSavedPosts(ctx context.Context, userID uint) ([]models.Post, error) {
	return s.postRepo.ListSaved(ctx, userID)
}
