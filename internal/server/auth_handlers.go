package server

import (
	"chirpnet/internal/models"
	"chirpnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,fullName=string,email=string,password=string} true "Signup request"
// @Success 201 {object} object{message=string,token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.setSessionCookie(c, res.Token)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    res.User,
		"token":   res.Token,
	})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{message=string,token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.setSessionCookie(c, res.Token)
	return c.JSON(fiber.Map{
		"message": "User logged in successfully",
		"user":    res.User,
		"token":   res.Token,
	})
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current session and clear the cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.authService.EndSession(c.UserContext(), s.sessionToken(c))
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "User logged out successfully"})
}

// CheckAuth handles GET /api/auth/checkAuth
// @Summary Check session
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/checkAuth [get]
func (s *Server) CheckAuth(c *fiber.Ctx) error {
	user, _ := c.Locals("user").(*models.User)
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Unauthorized, user not found"))
	}
	return c.JSON(fiber.Map{
		"message": "User authenticated successfully",
		"user":    user,
	})
}
