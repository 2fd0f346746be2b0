package server

import (
	"chirpnet/internal/models"
	"chirpnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/post/createPost
// @Summary Create a post
// @Description Create a post with an optional base64 image and description
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{image=string,description=string} true "Post content"
// @Success 201 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/createPost [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Image       string `json:"image"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:      currentUserID(c),
		Image:       req.Image,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully",
		"post":    post,
	})
}

// GetAllPosts handles GET /api/post/getAllPosts
// @Summary List posts
// @Tags posts
// @Produce json
// @Success 200 {object} object{message=string,posts=[]models.Post}
// @Security BearerAuth
// @Router /post/getAllPosts [get]
func (s *Server) GetAllPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "All posts fetched successfully",
		"posts":   posts,
	})
}

// LikeUnlike handles PUT /api/post/likeUnlike/:postId
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string,liked=bool}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/likeUnlike/{postId} [put]
func (s *Server) LikeUnlike(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	liked, err := s.postService.LikeUnlike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	message := "Post unliked successfully"
	if liked {
		message = "Post liked successfully"
	}
	return c.JSON(fiber.Map{"message": message, "liked": liked})
}

// CommentPost handles PUT /api/post/commentPost/:postId
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Param postId path int true "Post ID"
// @Param request body object{description=string} true "Comment text"
// @Success 200 {object} object{message=string,comment=models.Comment}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/commentPost/{postId} [put]
func (s *Server) CommentPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.postService.Comment(c.UserContext(), currentUserID(c), postID, req.Description)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Comment added",
		"comment": comment,
	})
}

// SavePost handles POST /api/post/savePosts/:postId
// @Summary Save or unsave a post
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string,saved=bool}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/savePosts/{postId} [post]
func (s *Server) SavePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	saved, err := s.postService.SaveUnsave(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	message := "Post unsaved successfully"
	if saved {
		message = "Post saved successfully"
	}
	return c.JSON(fiber.Map{"message": message, "saved": saved})
}
