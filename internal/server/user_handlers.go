package server

import (
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SearchUsers handles GET /api/users/search
// @Summary Search the public directory
// @Description Case-insensitive substring search on offered skills and location. The caller is excluded.
// @Tags users
// @Produce json
// @Param skill query string false "Offered skill substring"
// @Param location query string false "Location substring"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} object{users=[]models.User,pagination=models.Pagination}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return err
	}

	users, pagination, err := s.userService.Search(c.UserContext(), service.SearchInput{
		ViewerID: viewerID(c),
		Skill:    c.Query("skill"),
		Location: c.Query("location"),
		Page:     page.Page,
		Limit:    page.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users, "pagination": pagination})
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, err := s.userService.GetProfile(c.UserContext(), id, viewerID(c))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// GetUserSkills handles GET /api/users/:id/skills
// @Summary List a user's offered and wanted skills
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.UserSkills
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/skills [get]
func (s *Server) GetUserSkills(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	skills, err := s.userService.GetSkills(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(skills)
}

// GetUserStats handles GET /api/users/:id/stats
// @Summary Swap counts and rating of a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.UserStats
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/stats [get]
func (s *Server) GetUserStats(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	stats, err := s.userService.GetStats(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// UpdateProfile handles PUT /api/users/profile
// @Summary Update the caller's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Name         *string              `json:"name"`
		Location     *string              `json:"location"`
		ProfilePhoto *string              `json:"profilePhoto"`
		Availability *models.Availability `json:"availability"`
		IsPublic     *bool                `json:"isPublic"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:       viewerID(c),
		Name:         req.Name,
		Location:     req.Location,
		ProfilePhoto: req.ProfilePhoto,
		Availability: req.Availability,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully", "user": user})
}

// AddSkill handles POST /api/users/skills/:kind
// @Summary Add an offered or wanted skill
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "offered or wanted"
// @Success 201 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/skills/{kind} [post]
func (s *Server) AddSkill(c *fiber.Ctx) error {
	var req struct {
		Skill       string `json:"skill"`
		Proficiency string `json:"proficiency"`
		Priority    string `json:"priority"`
		Description string `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	kind := models.SkillKind(strings.ToLower(c.Params("kind")))
	user, err := s.userService.AddSkill(c.UserContext(), service.AddSkillInput{
		UserID:      viewerID(c),
		Kind:        kind,
		Skill:       req.Skill,
		Proficiency: req.Proficiency,
		Priority:    req.Priority,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Skill added successfully", "user": user})
}

// RemoveSkill handles DELETE /api/users/skills/:kind/:skillId
// @Summary Remove one of the caller's skills
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param kind path string true "offered or wanted"
// @Param skillId path int true "Skill ID"
// @Success 200 {object} object{message=string,user=models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/skills/{kind}/{skillId} [delete]
func (s *Server) RemoveSkill(c *fiber.Ctx) error {
	skillID, err := parseID(c, "skillId")
	if err != nil {
		return err
	}
	kind := models.SkillKind(strings.ToLower(c.Params("kind")))
	user, err := s.userService.RemoveSkill(c.UserContext(), viewerID(c), kind, skillID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Skill removed successfully", "user": user})
}
