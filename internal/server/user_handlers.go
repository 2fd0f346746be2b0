package server

import (
	"chirpnet/internal/models"
	"chirpnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LoggedInUserDetail handles GET /api/user/LoggedInUserDetail
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string,user=models.User}
// @Security BearerAuth
// @Router /user/LoggedInUserDetail [get]
func (s *Server) LoggedInUserDetail(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Logged-in user details fetched successfully",
		"user":    user,
	})
}

// GetOtherUserProfile handles GET /api/user/getOtherUserProfile/:id
// @Summary User profile with posts
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string,user=models.User,posts=[]models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/getOtherUserProfile/{id} [get]
func (s *Server) GetOtherUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetProfileWithPosts(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "User details fetched successfully",
		"user":    profile.User,
		"posts":   profile.Posts,
	})
}

// UpdateProfile handles PUT /api/user/updateProfile
// @Summary Update profile
// @Description Empty fields keep their current value
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string,fullName=string,email=string,bio=string} true "Profile fields"
// @Success 200 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/updateProfile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Bio      string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   currentUserID(c),
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Bio:      req.Bio,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    user,
	})
}

// UpdateProfilePic handles PUT /api/user/updateProfilePic
// @Summary Update profile image
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{profileImg=string} true "Base64 image"
// @Success 200 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/updateProfilePic [put]
func (s *Server) UpdateProfilePic(c *fiber.Ctx) error {
	var req struct {
		ProfileImg string `json:"profileImg"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfileImage(c.UserContext(), currentUserID(c), req.ProfileImg)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile image updated successfully",
		"user":    user,
	})
}

// GetPostsOfUser handles GET /api/user/getPostOfUser
// @Summary Current user's posts
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string,posts=[]models.Post}
// @Security BearerAuth
// @Router /user/getPostOfUser [get]
func (s *Server) GetPostsOfUser(c *fiber.Ctx) error {
	posts, err := s.postService.ListPostsByUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Posts of user fetched successfully",
		"posts":   posts,
	})
}

// DeletePost handles DELETE /api/user/deletePost/:id
// @Summary Delete own post
// @Tags users
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/deletePost/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// FollowUnfollow handles PUT /api/user/followUnfollow/:id
// @Summary Follow or unfollow a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string,following=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/followUnfollow/{id} [put]
func (s *Server) FollowUnfollow(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	following, err := s.graphService.FollowUnfollow(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	message := "User unfollowed successfully"
	if following {
		message = "User followed successfully"
	}
	return c.JSON(fiber.Map{"message": message, "following": following})
}

// GetSavedPosts handles GET /api/user/getAllSavedPostsOfUser
// @Summary Saved posts
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string,savedPosts=[]models.Post}
// @Security BearerAuth
// @Router /user/getAllSavedPostsOfUser [get]
func (s *Server) GetSavedPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListSavedPosts(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":    "Saved posts fetched successfully",
		"savedPosts": posts,
	})
}

// SuggestedUsers handles GET /api/user/suggestedUsers
// @Summary Suggested users
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string,suggestedUsers=[]models.User}
// @Security BearerAuth
// @Router /user/suggestedUsers [get]
func (s *Server) SuggestedUsers(c *fiber.Ctx) error {
	users, err := s.graphService.SuggestedUsers(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Suggested users fetched successfully",
		"suggestedUsers": users,
	})
}

// SearchUser handles GET /api/user/searchUser/:username
// @Summary Find a user by username
// @Tags users
// @Produce json
// @Param username path string true "Username, case-insensitive"
// @Success 200 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/searchUser/{username} [get]
func (s *Server) SearchUser(c *fiber.Ctx) error {
	user, err := s.graphService.SearchByUsername(c.UserContext(), c.Params("username"), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "User found successfully",
		"user":    user,
	})
}
