package server

import (
	"math"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createSwapRequest struct {
	ResponderID    uint            `json:"responderId"`
	SkillOffered   models.SkillRef `json:"skillOffered"`
	SkillRequested models.SkillRef `json:"skillRequested"`
	Message        string          `json:"message"`
	ScheduledDate  string          `json:"scheduledDate"`
	Duration       *float64        `json:"duration"`
}

func parseScheduledDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, models.NewValidationError("Invalid scheduledDate")
}

// CreateSwap handles POST /api/swaps
// @Summary Request a swap
// @Tags swaps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createSwapRequest true "Swap request"
// @Success 201 {object} object{message=string,swap=models.Swap}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /swaps [post]
func (s *Server) CreateSwap(c *fiber.Ctx) error {
	var req createSwapRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	scheduled, err := parseScheduledDate(req.ScheduledDate)
	if err != nil {
		return err
	}

	swap, err := s.swapService.Create(c.UserContext(), service.CreateSwapInput{
		RequesterID:    viewerID(c),
		ResponderID:    req.ResponderID,
		SkillOffered:   req.SkillOffered,
		SkillRequested: req.SkillRequested,
		Message:        req.Message,
		ScheduledDate:  scheduled,
		Duration:       req.Duration,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Swap request created successfully", "swap": swap})
}

// ListSwaps handles GET /api/swaps
// @Summary List the caller's swaps
// @Tags swaps
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, accepted, rejected, completed or cancelled"
// @Param type query string false "sent or received"
// @Success 200 {object} object{swaps=[]models.Swap}
// @Failure 400 {object} models.ErrorResponse
// @Router /swaps [get]
func (s *Server) ListSwaps(c *fiber.Ctx) error {
	swaps, err := s.swapService.List(c.UserContext(), service.ListSwapsInput{
		UserID: viewerID(c),
		Status: c.Query("status"),
		Type:   c.Query("type"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"swaps": swaps})
}

// GetSwap handles GET /api/swaps/:id
// @Summary Get one swap
// @Tags swaps
// @Produce json
// @Security BearerAuth
// @Param id path int true "Swap ID"
// @Success 200 {object} models.Swap
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /swaps/{id} [get]
func (s *Server) GetSwap(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	viewer, err := currentUser(c)
	if err != nil {
		return err
	}
	swap, err := s.swapService.Get(c.UserContext(), id, viewer)
	if err != nil {
		return err
	}
	return c.JSON(swap)
}

// UpdateSwapStatus handles PATCH /api/swaps/:id/status
// @Summary Move a swap through its lifecycle
// @Description accepted/rejected are the responder's answer; completed and cancelled may come from either participant.
// @Tags swaps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Swap ID"
// @Param request body object{status=string,rejectionReason=string} true "New status"
// @Success 200 {object} object{message=string,swap=models.Swap}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /swaps/{id}/status [patch]
func (s *Server) UpdateSwapStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Status          string `json:"status"`
		RejectionReason string `json:"rejectionReason"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	status := models.SwapStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	swap, err := s.swapService.UpdateStatus(c.UserContext(), id, viewerID(c), status, req.RejectionReason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Swap " + string(swap.Status) + " successfully", "swap": swap})
}

// DeleteSwap handles DELETE /api/swaps/:id
// @Summary Withdraw a pending request
// @Tags swaps
// @Produce json
// @Security BearerAuth
// @Param id path int true "Swap ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /swaps/{id} [delete]
func (s *Server) DeleteSwap(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.swapService.Delete(c.UserContext(), id, viewerID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Swap request deleted successfully"})
}

// AddFeedback handles POST /api/swaps/:id/feedback
// @Summary Rate the other participant of a completed swap
// @Tags swaps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Swap ID"
// @Param request body object{rating=int,comment=string} true "Feedback"
// @Success 200 {object} object{message=string,swap=models.Swap}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /swaps/{id}/feedback [post]
func (s *Server) AddFeedback(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Rating  float64 `json:"rating"`
		Comment string  `json:"comment"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Rating != math.Trunc(req.Rating) {
		return models.NewValidationError("Rating must be a whole number")
	}

	result, err := s.swapService.AddFeedback(c.UserContext(), service.FeedbackInput{
		SwapID:  id,
		ActorID: viewerID(c),
		Rating:  int(req.Rating),
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Feedback added successfully", "swap": result.Swap})
}
