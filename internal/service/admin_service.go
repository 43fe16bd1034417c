package service

import (
	"context"
	"strings"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultBanReason is written on swaps cancelled by a ban that gave no reason.
const DefaultBanReason = "User account suspended"

// RecentActivityWindow bounds the "recently active" user count.
const RecentActivityWindow = 7 * 24 * time.Hour

const (
	maxMessageTitleLength = 200
	visibleMessagesLimit  = 50
)

// Report types accepted by AdminService.Report.
const (
	ReportUsers    = "users"
	ReportSwaps    = "swaps"
	ReportFeedback = "feedback"
)

// AdminService implements the moderation and reporting surface.
type AdminService struct {
	store  Transactor
	events EventPublisher
	now    clock
}

// NewAdminService returns an AdminService. events may be nil.
func NewAdminService(store Transactor, events EventPublisher) *AdminService {
	if events == nil {
		events = noopPublisher{}
	}
	return &AdminService{store: store, events: events, now: time.Now}
}

// AdminUserQuery filters the admin user listing.
type AdminUserQuery struct {
	Search string
	Status string // active, inactive or empty
	Page   int
	Limit  int
}

// AdminSwapQuery filters the admin swap listing. Dates are RFC3339 or YYYY-MM-DD.
type AdminSwapQuery struct {
	Status    string
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

// SetUserStatusInput bans or reinstates a user.
type SetUserStatusInput struct {
	AdminID  uint
	UserID   uint
	IsActive bool
	Reason   string
}

// UserStatusResult is the outcome of a ban or unban.
type UserStatusResult struct {
	User           *models.User
	CancelledSwaps []models.Swap
}

// ModerateSkillInput names one skill entry and what to do with it.
type ModerateSkillInput struct {
	AdminID   uint
	UserID    uint
	SkillID   uint
	SkillType models.SkillKind
	Action    string
	Reason    string
}

// PlatformMessageInput is an announcement to every user.
type PlatformMessageInput struct {
	AdminID      uint
	Title        string
	Message      string
	Type         models.MessageType
	VisibleUntil *time.Time
}

// PlatformMessageResult reports a sent announcement.
type PlatformMessageResult struct {
	Message    *models.AdminMessage
	SentAt     time.Time
	Recipients int64
}

// UserTotals is the user half of PlatformStats.
type UserTotals struct {
	Total          int64 `json:"total"`
	Active         int64 `json:"active"`
	Inactive       int64 `json:"inactive"`
	RecentlyActive int64 `json:"recentlyActive"`
}

// PlatformStats is the admin dashboard summary.
type PlatformStats struct {
	Users UserTotals `json:"users"`
	Swaps SwapCounts `json:"swaps"`
}

// ReportQuery selects a report and an optional creation window.
type ReportQuery struct {
	Type      string
	StartDate string
	EndDate   string
}

// Report is a generated export document.
type Report struct {
	ReportType  string      `json:"reportType"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Count       int         `json:"count"`
	Data        interface{} `json:"data"`
}

// ParseDateRange parses optional RFC3339 or YYYY-MM-DD bounds. A bare end date covers that
// whole day.
func ParseDateRange(start, end string) (from, to *time.Time, err error) {
	if start = strings.TrimSpace(start); start != "" {
		t, _, err := parseDate(start)
		if err != nil {
			return nil, nil, models.NewValidationError("Invalid startDate")
		}
		from = &t
	}
	if end = strings.TrimSpace(end); end != "" {
		t, dateOnly, err := parseDate(end)
		if err != nil {
			return nil, nil, models.NewValidationError("Invalid endDate")
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, models.NewValidationError("endDate must not be before startDate")
	}
	return from, to, nil
}

func parseDate(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	return t, true, err
}

// ListUsers pages through every account, newest first.
func (s *AdminService) ListUsers(ctx context.Context, q AdminUserQuery) ([]models.User, models.Pagination, error) {
	filter := repository.UserFilter{Search: strings.TrimSpace(q.Search), Sort: repository.UserSortNewest}
	switch q.Status {
	case "":
	case "active", "inactive":
		active := q.Status == "active"
		filter.Active = &active
	default:
		return nil, models.Pagination{}, models.NewValidationError("Invalid status. Use active or inactive")
	}

	page := normalizePage(q.Page, q.Limit)
	users, total, err := s.store.Repositories().Users.FindMany(ctx, filter, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return users, models.NewPagination(page.Number, page.Size, total), nil
}

// SetUserStatus bans or reinstates a user. A ban cancels every pending swap of the user in
// the same transaction.
func (s *AdminService) SetUserStatus(ctx context.Context, in SetUserStatusInput) (result *UserStatusResult, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "AdminService", "SetUserStatus",
		attribute.Int64("user.id", int64(in.UserID)), attribute.Bool("user.active", in.IsActive))
	defer func() { finish(err) }()

	if !in.IsActive && in.UserID == in.AdminID {
		return nil, models.NewValidationError("You cannot deactivate your own account")
	}
	reason := strings.TrimSpace(in.Reason)
	if err := validation.ValidateMaxLength("Reason", reason, validation.MaxReasonLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if reason == "" {
		reason = DefaultBanReason
	}

	result = &UserStatusResult{CancelledSwaps: make([]models.Swap, 0)}
	err = s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Users.GetAccount(ctx, in.UserID); err != nil {
			return err
		}
		if err := tx.Users.Update(ctx, in.UserID, map[string]interface{}{"is_active": in.IsActive}); err != nil {
			return err
		}
		if in.IsActive {
			return nil
		}
		cancelled, err := tx.Swaps.CancelPendingForUser(ctx, in.UserID, reason)
		if err != nil {
			return err
		}
		result.CancelledSwaps = cancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	if n := len(result.CancelledSwaps); n > 0 {
		observability.CascadeCancelledSwaps.Add(float64(n))
		observability.SwapTransitions.WithLabelValues(string(models.SwapStatusCancelled)).Add(float64(n))
	}
	notifyUser(ctx, s.events, in.UserID, notifications.EventAccountStatus, map[string]interface{}{
		"isActive": in.IsActive,
	})
	for _, swap := range result.CancelledSwaps {
		notifyUser(ctx, s.events, swap.Counterpart(in.UserID), notifications.EventSwapCancelled, SwapEventPayload{
			SwapID: swap.ID, Status: swap.Status, ActorID: in.AdminID, Reason: swap.RejectionReason,
		})
	}

	result.User, err = s.store.Repositories().Users.GetAccount(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListSwaps pages through every swap, newest first, with participant names and emails.
func (s *AdminService) ListSwaps(ctx context.Context, q AdminSwapQuery) ([]models.Swap, models.Pagination, error) {
	filter := repository.SwapFilter{WithParticipants: true}
	if q.Status != "" {
		status := models.SwapStatus(q.Status)
		if !status.Valid() {
			return nil, models.Pagination{}, models.NewValidationError("Invalid status")
		}
		filter.Status = status
	}
	from, to, err := ParseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	filter.CreatedFrom, filter.CreatedTo = from, to

	page := normalizePage(q.Page, q.Limit)
	swaps, total, err := s.store.Repositories().Swaps.FindMany(ctx, filter, repository.SwapSortNewest, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return swaps, models.NewPagination(page.Number, page.Size, total), nil
}

// Stats computes the platform summary fresh on every call.
func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	repos := s.store.Repositories()
	users, err := repos.Users.Counts(ctx, s.now().Add(-RecentActivityWindow))
	if err != nil {
		return nil, err
	}
	byStatus, err := repos.Swaps.CountByStatus(ctx, 0)
	if err != nil {
		return nil, err
	}
	return &PlatformStats{
		Users: UserTotals{
			Total:          users.Total,
			Active:         users.Active,
			Inactive:       users.Total - users.Active,
			RecentlyActive: users.RecentlyActive,
		},
		Swaps: newSwapCounts(byStatus),
	}, nil
}

// ModerateSkill removes one skill entry from a user and records the action.
func (s *AdminService) ModerateSkill(ctx context.Context, in ModerateSkillInput) (*models.SkillModerationLog, error) {
	if !in.SkillType.Valid() {
		return nil, models.NewValidationError("Invalid skill type")
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validation.ValidateMaxLength("Reason", in.Reason, validation.MaxReasonLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var entry *models.SkillModerationLog
	err := s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		user, err := tx.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		skill, ok := user.FindSkill(in.SkillType, in.SkillID)
		if !ok {
			return models.NewNotFoundError("Skill", in.SkillID)
		}
		if in.Action != models.ModerationActionRemove {
			return models.NewValidationError("Invalid action")
		}
		if _, err := tx.Users.DeleteSkill(ctx, in.UserID, in.SkillType, in.SkillID); err != nil {
			return err
		}
		entry = &models.SkillModerationLog{
			SkillID:   skill.ID,
			SkillType: in.SkillType,
			SkillName: skill.Skill,
			UserID:    in.UserID,
			AdminID:   in.AdminID,
			Action:    in.Action,
			Reason:    in.Reason,
		}
		return tx.Moderation.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ModerationLog pages through moderation actions, newest first.
func (s *AdminService) ModerationLog(ctx context.Context, pageNumber, limit int) ([]models.SkillModerationLog, models.Pagination, error) {
	page := normalizePage(pageNumber, limit)
	entries, total, err := s.store.Repositories().Moderation.List(ctx, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return entries, models.NewPagination(page.Number, page.Size, total), nil
}

// SendPlatformMessage stores an announcement and broadcasts it to connected clients.
func (s *AdminService) SendPlatformMessage(ctx context.Context, in PlatformMessageInput) (*PlatformMessageResult, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Title == "" || in.Message == "" {
		return nil, models.NewValidationError("Title and message are required")
	}
	if err := validation.ValidateMaxLength("Title", in.Title, maxMessageTitleLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Type == "" {
		in.Type = models.MessageTypeInfo
	}
	if !in.Type.Valid() {
		return nil, models.NewValidationError("Invalid message type")
	}
	now := s.now()
	if in.VisibleUntil != nil && !in.VisibleUntil.After(now) {
		return nil, models.NewValidationError("visibleUntil must be in the future")
	}

	repos := s.store.Repositories()
	msg := &models.AdminMessage{
		Title:        in.Title,
		Body:         in.Message,
		Type:         in.Type,
		CreatedByID:  in.AdminID,
		VisibleUntil: in.VisibleUntil,
	}
	if err := repos.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	counts, err := repos.Users.Counts(ctx, now.Add(-RecentActivityWindow))
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishBroadcast(ctx, notifications.NewEvent(notifications.EventPlatformMessage, msg)); err != nil {
		middleware.Logger.WarnContext(ctx, "platform message broadcast failed",
			"message_id", msg.ID, "error", err.Error())
	}
	return &PlatformMessageResult{Message: msg, SentAt: now, Recipients: counts.Active}, nil
}

// VisibleMessages returns announcements that have not expired, newest first.
func (s *AdminService) VisibleMessages(ctx context.Context) ([]models.AdminMessage, error) {
	return s.store.Repositories().Messages.ListVisible(ctx, s.now(), visibleMessagesLimit)
}

// Report builds an unpaginated export of users, swaps or swaps carrying feedback.
func (s *AdminService) Report(ctx context.Context, q ReportQuery) (*Report, error) {
	from, to, err := ParseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	report := &Report{ReportType: q.Type, GeneratedAt: s.now().UTC()}
	switch q.Type {
	case ReportUsers:
		users, _, err := repos.Users.FindMany(ctx, repository.UserFilter{CreatedFrom: from, CreatedTo: to}, repository.Page{})
		if err != nil {
			return nil, err
		}
		report.Count, report.Data = len(users), users
	case ReportSwaps, ReportFeedback:
		filter := repository.SwapFilter{CreatedFrom: from, CreatedTo: to, WithParticipants: true}
		if q.Type == ReportFeedback {
			filter.Status = models.SwapStatusCompleted
			filter.HasFeedback = true
		}
		swaps, _, err := repos.Swaps.FindMany(ctx, filter, repository.SwapSortNewest, repository.Page{})
		if err != nil {
			return nil, err
		}
		report.Count, report.Data = len(swaps), swaps
	default:
		return nil, models.NewValidationError("Invalid report type")
	}
	return report, nil
}
