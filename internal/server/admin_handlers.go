package server

import (
	"encoding/json"

	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"
)

// AdminListUsers handles GET /api/admin/users
// @Summary List all users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Substring of name, email or location"
// @Param status query string false "active or inactive"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} object{users=[]models.User,pagination=models.Pagination}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return err
	}
	users, pagination, err := s.adminService.ListUsers(c.UserContext(), service.AdminUserQuery{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Page:   page.Page,
		Limit:  page.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users, "pagination": pagination})
}

// AdminSetUserStatus handles PATCH /api/admin/users/:id/status
// @Summary Ban or reinstate a user
// @Description Deactivating a user cancels their pending swaps in the same transaction.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{isActive=bool,reason=string} true "New status"
// @Success 200 {object} object{message=string,user=models.User,cancelledSwaps=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/status [patch]
func (s *Server) AdminSetUserStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		IsActive *bool  `json:"isActive"`
		Reason   string `json:"reason"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.IsActive == nil {
		return models.NewValidationError("isActive is required")
	}

	result, err := s.adminService.SetUserStatus(c.UserContext(), service.SetUserStatusInput{
		AdminID:  viewerID(c),
		UserID:   id,
		IsActive: *req.IsActive,
		Reason:   req.Reason,
	})
	if err != nil {
		return err
	}

	verb := "deactivated"
	if *req.IsActive {
		verb = "activated"
	}
	return c.JSON(fiber.Map{
		"message":        "User " + verb + " successfully",
		"user":           result.User,
		"cancelledSwaps": len(result.CancelledSwaps),
	})
}

// AdminListSwaps handles GET /api/admin/swaps
// @Summary List all swaps
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Swap status"
// @Param startDate query string false "RFC3339 or YYYY-MM-DD"
// @Param endDate query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Success 200 {object} object{swaps=[]models.Swap,pagination=models.Pagination}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/swaps [get]
func (s *Server) AdminListSwaps(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return err
	}
	swaps, pagination, err := s.adminService.ListSwaps(c.UserContext(), service.AdminSwapQuery{
		Status:    c.Query("status"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Page:      page.Page,
		Limit:     page.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"swaps": swaps, "pagination": pagination})
}

// AdminStats handles GET /api/admin/stats
// @Summary Platform statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.PlatformStats
// @Router /admin/stats [get]
func (s *Server) AdminStats(c *fiber.Ctx) error {
	stats, err := s.adminService.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// AdminModerateSkill handles POST /api/admin/moderate/skill
// @Summary Remove an inappropriate skill entry
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{userId=int,skillId=int,skillType=string,action=string,reason=string} true "Moderation"
// @Success 200 {object} object{message=string,log=models.SkillModerationLog}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/moderate/skill [post]
func (s *Server) AdminModerateSkill(c *fiber.Ctx) error {
	var req struct {
		UserID    uint   `json:"userId"`
		SkillID   uint   `json:"skillId"`
		SkillType string `json:"skillType"`
		Action    string `json:"action"`
		Reason    string `json:"reason"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	entry, err := s.adminService.ModerateSkill(c.UserContext(), service.ModerateSkillInput{
		AdminID:   viewerID(c),
		UserID:    req.UserID,
		SkillID:   req.SkillID,
		SkillType: models.SkillKind(req.SkillType),
		Action:    req.Action,
		Reason:    req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Skill removed successfully", "log": entry})
}

// AdminModerationLog handles GET /api/admin/moderation-log
// @Summary Skill moderation history, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{logs=[]models.SkillModerationLog,pagination=models.Pagination}
// @Router /admin/moderation-log [get]
func (s *Server) AdminModerationLog(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return err
	}
	logs, pagination, err := s.adminService.ModerationLog(c.UserContext(), page.Page, page.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"logs": logs, "pagination": pagination})
}

// AdminSendMessage handles POST /api/admin/message
// @Summary Broadcast a platform announcement
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,message=string,type=string,visibleUntil=string} true "Announcement"
// @Success 201 {object} object{message=string,sentAt=string,recipients=int,platformMessage=models.AdminMessage}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/message [post]
func (s *Server) AdminSendMessage(c *fiber.Ctx) error {
	var req struct {
		Title        string `json:"title"`
		Message      string `json:"message"`
		Type         string `json:"type"`
		VisibleUntil string `json:"visibleUntil"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var input service.PlatformMessageInput
	if req.VisibleUntil != "" {
		until, _, err := service.ParseDateRange(req.VisibleUntil, "")
		if err != nil {
			return models.NewValidationError("Invalid visibleUntil")
		}
		input.VisibleUntil = until
	}
	input.AdminID = viewerID(c)
	input.Title = req.Title
	input.Message = req.Message
	input.Type = models.MessageType(req.Type)

	result, err := s.adminService.SendPlatformMessage(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":         "Platform message sent successfully",
		"sentAt":          result.SentAt,
		"recipients":      result.Recipients,
		"platformMessage": result.Message,
	})
}

// AdminReport handles GET /api/admin/reports
// @Summary Export a users, swaps or feedback report
// @Tags admin
// @Produce json
// @Produce application/yaml
// @Security BearerAuth
// @Param type query string true "users, swaps or feedback"
// @Param format query string false "json (default) or yaml"
// @Success 200 {object} service.Report
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/reports [get]
func (s *Server) AdminReport(c *fiber.Ctx) error {
	format := c.Query("format", "json")
	if format != "json" && format != "yaml" {
		return models.NewValidationError("Invalid format. Use json or yaml")
	}

	report, err := s.adminService.Report(c.UserContext(), service.ReportQuery{
		Type:      c.Query("type"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	})
	if err != nil {
		return err
	}
	if format == "json" {
		return c.JSON(report)
	}

	body, err := reportYAML(report)
	if err != nil {
		return models.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, "application/yaml")
	return c.Send(body)
}

// reportYAML renders the report with its JSON field names.
func reportYAML(report *service.Report) ([]byte, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// GetPlatformMessages handles GET /api/messages
// @Summary Currently visible platform announcements
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{messages=[]models.AdminMessage}
// @Router /messages [get]
func (s *Server) GetPlatformMessages(c *fiber.Ctx) error {
	messages, err := s.adminService.VisibleMessages(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": messages})
}
