package service

import (
	"context"
	"strings"

	"chirpnet/internal/models"
	"chirpnet/internal/repository"
	"chirpnet/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	images   *ImageService
}

type UpdateProfileInput struct {
	UserID   uint
	Username string
	FullName string
	Email    string
	Bio      string
}

// ProfileWithPosts is a user together with the posts they wrote.
type ProfileWithPosts struct {
	User  *models.User
	Posts []models.Post
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository, images *ImageService) *UserService {
	return &UserService{userRepo: userRepo, postRepo: postRepo, images: images}
}

func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetProfileWithPosts(ctx context.Context, id uint) (*ProfileWithPosts, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProfileWithPosts{User: user, Posts: posts}, nil
}

// UpdateProfile applies the non-empty fields of in. Empty fields keep their
// current value.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if username := strings.TrimSpace(in.Username); username != "" && username != user.Username {
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		taken, err := s.userRepo.UsernameTaken(ctx, username, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.NewConflictError("Username already exists")
		}
		fields["username"] = username
	}

	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" && email != user.Email {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		taken, err := s.userRepo.EmailTaken(ctx, email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.NewConflictError("Email already exists")
		}
		fields["email"] = email
	}

	if fullName := strings.TrimSpace(in.FullName); fullName != "" && fullName != user.FullName {
		if err := validation.ValidateFullName(fullName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["full_name"] = fullName
	}

	if in.Bio != "" && in.Bio != user.Bio {
		if err := validation.ValidateBio(in.Bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["bio"] = in.Bio
	}

	if len(fields) == 0 {
		return user, nil
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, user.ID)
}

// UpdateProfileImage uploads payload as the user's avatar. The user is left
// unchanged when the upload fails.
func (s *UserService) UpdateProfileImage(ctx context.Context, userID uint, payload string) (*models.User, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, models.NewValidationError("Profile image is required")
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	uploaded, err := s.images.Upload(ctx, userID, payload, ProfileImageMaxSize)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateFields(ctx, userID, map[string]any{
		"profile_img":      uploaded.URL,
		"profile_img_webp": uploaded.WebPURL,
	}); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}
