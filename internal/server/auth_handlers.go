package server

import (
	"time"

	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

type sessionResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func newSessionResponse(message string, session *service.Session) sessionResponse {
	return sessionResponse{
		Message:   message,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      session.User,
	}
}


// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account and receive a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,password=string,location=string} true "Signup request"
// @Success 201 {object} sessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Location string `json:"location"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Location: req.Location,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newSessionResponse("User registered successfully", session))
}

// Login handles POST /api/auth/login
// @Summary User login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login request"
// @Success 200 {object} sessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(newSessionResponse("Login successful", session))
}

// Logout handles POST /api/auth/logout
// @Summary Revoke the current token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims := currentClaims(c)
	if claims == nil {
		return models.NewUnauthorizedError("Access denied. No token provided.")
	}
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Verify handles GET /api/auth/verify
// @Summary Return the account behind the token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/verify [get]
func (s *Server) Verify(c *fiber.Ctx) error {
	user, err := s.authService.Verify(c.UserContext(), viewerID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}
