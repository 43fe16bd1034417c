package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/featureflags"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// SwapService owns the swap lifecycle: creation, transitions, deletion and feedback.
type SwapService struct {
	store   Transactor
	events  EventPublisher
	flags   FlagChecker
	ratings RatingAggregator
	now     clock
}

// NewSwapService returns a SwapService. events and flags may be nil.
func NewSwapService(store Transactor, events EventPublisher, flags FlagChecker) *SwapService {
	if events == nil {
		events = noopPublisher{}
	}
	return &SwapService{store: store, events: events, flags: flags, now: time.Now}
}

// CreateSwapInput is the body of a swap request.
type CreateSwapInput struct {
	RequesterID    uint
	ResponderID    uint
	SkillOffered   models.SkillRef
	SkillRequested models.SkillRef
	Message        string
	ScheduledDate  *time.Time
	Duration       *float64
}

// ListSwapsInput filters the caller's own swaps.
type ListSwapsInput struct {
	UserID uint
	Status string
	Type   string // sent, received or empty for both
}

// SwapEventPayload is the notification body of swap lifecycle events.
type SwapEventPayload struct {
	SwapID  uint              `json:"swapId"`
	Status  models.SwapStatus `json:"status"`
	ActorID uint              `json:"actorId"`
	Reason  string            `json:"reason,omitempty"`
}

func (in *CreateSwapInput) validate() error {
	in.SkillOffered.Skill = strings.TrimSpace(in.SkillOffered.Skill)
	in.SkillRequested.Skill = strings.TrimSpace(in.SkillRequested.Skill)

	if in.ResponderID == 0 {
		return models.NewValidationError("Responder is required")
	}
	checks := []error{
		validation.ValidateSkillName("Skill offered", in.SkillOffered.Skill),
		validation.ValidateSkillName("Skill requested", in.SkillRequested.Skill),
		validation.ValidateMaxLength("Skill offered description", in.SkillOffered.Description, validation.MaxDescriptionLength),
		validation.ValidateMaxLength("Skill requested description", in.SkillRequested.Description, validation.MaxDescriptionLength),
		validation.ValidateMaxLength("Message", in.Message, validation.MaxMessageLength),
	}
	if in.Duration != nil {
		checks = append(checks, validation.ValidateDuration(*in.Duration))
	}
	for _, err := range checks {
		if err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	return nil
}

// Create opens a pending swap from the requester to the responder.
func (s *SwapService) Create(ctx context.Context, in CreateSwapInput) (swap *models.Swap, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "SwapService", "Create",
		attribute.Int64("requester.id", int64(in.RequesterID)))
	defer func() { finish(err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.RequesterID == in.ResponderID && s.flags != nil && s.flags.Enabled(featureflags.BlockSelfSwaps, in.RequesterID) {
		return nil, models.NewValidationError("You cannot request a swap with yourself")
	}

	repos := s.store.Repositories()
	if _, err := repos.Users.GetAccount(ctx, in.ResponderID); err != nil {
		return nil, err
	}

	created := &models.Swap{
		RequesterID:    in.RequesterID,
		ResponderID:    in.ResponderID,
		SkillOffered:   in.SkillOffered,
		SkillRequested: in.SkillRequested,
		Message:        in.Message,
		ScheduledDate:  in.ScheduledDate,
		Duration:       in.Duration,
		Status:         models.SwapStatusPending,
	}
	if err := repos.Swaps.Put(ctx, created); err != nil {
		return nil, err
	}

	observability.SwapTransitions.WithLabelValues(string(models.SwapStatusPending)).Inc()
	notifyUser(ctx, s.events, in.ResponderID, notifications.EventSwapCreated, SwapEventPayload{
		SwapID: created.ID, Status: created.Status, ActorID: in.RequesterID,
	})
	return repos.Swaps.Get(ctx, created.ID)
}

// List returns the caller's swaps, newest first.
func (s *SwapService) List(ctx context.Context, in ListSwapsInput) ([]models.Swap, error) {
	filter := repository.SwapFilter{WithParticipants: true}
	switch in.Type {
	case "sent":
		filter.RequesterID = in.UserID
	case "received":
		filter.ResponderID = in.UserID
	case "":
		filter.ParticipantID = in.UserID
	default:
		return nil, models.NewValidationError("Invalid type. Use sent or received")
	}
	if in.Status != "" {
		status := models.SwapStatus(in.Status)
		if !status.Valid() {
			return nil, models.NewValidationError("Invalid status")
		}
		filter.Status = status
	}

	swaps, _, err := s.store.Repositories().Swaps.FindMany(ctx, filter, repository.SwapSortNewest, repository.Page{})
	return swaps, err
}

// Get returns one swap to a participant or an admin.
func (s *SwapService) Get(ctx context.Context, swapID uint, viewer *models.User) (*models.Swap, error) {
	swap, err := s.store.Repositories().Swaps.Get(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if viewer == nil || (!swap.IsParticipant(viewer.ID) && !viewer.IsAdmin()) {
		return nil, models.NewForbiddenError("Unauthorized to view this swap request")
	}
	return swap, nil
}

// UpdateStatus routes a PATCH /swaps/:id/status request to the matching transition.
func (s *SwapService) UpdateStatus(ctx context.Context, swapID, actorID uint, status models.SwapStatus, reason string) (*models.Swap, error) {
	switch status {
	case models.SwapStatusAccepted, models.SwapStatusRejected:
		return s.Respond(ctx, swapID, actorID, status, reason)
	case models.SwapStatusCompleted:
		return s.Complete(ctx, swapID, actorID)
	case models.SwapStatusCancelled:
		return s.Cancel(ctx, swapID, actorID, reason)
	default:
		return nil, models.NewValidationError("Invalid status")
	}
}

type transitionGuard func(swap *models.Swap, actorID uint) error

// transition applies one state-machine edge under a row lock, then notifies the counterpart.
func (s *SwapService) transition(ctx context.Context, swapID, actorID uint, to models.SwapStatus, reason string, guard transitionGuard) (swap *models.Swap, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "SwapService", "Transition",
		attribute.Int64("swap.id", int64(swapID)), attribute.String("swap.to", string(to)))
	defer func() { finish(err) }()

	if err := validation.ValidateMaxLength("Reason", reason, validation.MaxReasonLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var counterpart uint
	err = s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		current, err := tx.Swaps.GetForUpdate(ctx, swapID)
		if err != nil {
			return notFoundAs(err, "Swap request", swapID)
		}
		if err := guard(current, actorID); err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(to) {
			return models.NewInvalidStateError(fmt.Sprintf("Cannot change a %s swap request to %s", current.Status, to))
		}

		current.Status = to
		if reason != "" && (to == models.SwapStatusRejected || to == models.SwapStatusCancelled) {
			current.RejectionReason = reason
		}
		counterpart = current.Counterpart(actorID)
		return tx.Swaps.Put(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	observability.SwapTransitions.WithLabelValues(string(to)).Inc()
	notifyUser(ctx, s.events, counterpart, eventForStatus(to), SwapEventPayload{
		SwapID: swapID, Status: to, ActorID: actorID, Reason: reason,
	})
	return s.store.Repositories().Swaps.Get(ctx, swapID)
}

// Respond lets the responder accept or reject a pending swap.
func (s *SwapService) Respond(ctx context.Context, swapID, actorID uint, status models.SwapStatus, reason string) (*models.Swap, error) {
	if status != models.SwapStatusAccepted && status != models.SwapStatusRejected {
		return nil, models.NewValidationError("Status must be accepted or rejected")
	}
	return s.transition(ctx, swapID, actorID, status, reason, func(swap *models.Swap, actorID uint) error {
		if swap.ResponderID != actorID {
			return models.NewForbiddenError("Unauthorized to update this swap request")
		}
		if swap.Status != models.SwapStatusPending {
			return models.NewInvalidStateError(fmt.Sprintf("Swap request has already been %s", swap.Status))
		}
		return nil
	})
}

// Complete marks an accepted swap as done. Either participant may call it.
func (s *SwapService) Complete(ctx context.Context, swapID, actorID uint) (*models.Swap, error) {
	return s.transition(ctx, swapID, actorID, models.SwapStatusCompleted, "", participantGuard)
}

// Cancel calls off a pending or accepted swap. Either participant may call it.
func (s *SwapService) Cancel(ctx context.Context, swapID, actorID uint, reason string) (*models.Swap, error) {
	return s.transition(ctx, swapID, actorID, models.SwapStatusCancelled, strings.TrimSpace(reason), participantGuard)
}

func participantGuard(swap *models.Swap, actorID uint) error {
	if !swap.IsParticipant(actorID) {
		return models.NewForbiddenError("Unauthorized to update this swap request")
	}
	return nil
}

// Delete removes a pending swap. Only its requester may delete it.
func (s *SwapService) Delete(ctx context.Context, swapID, actorID uint) error {
	var responderID uint
	err := s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		swap, err := tx.Swaps.GetForUpdate(ctx, swapID)
		if err != nil {
			return notFoundAs(err, "Swap request", swapID)
		}
		if swap.RequesterID != actorID {
			return models.NewForbiddenError("Unauthorized to delete this swap request")
		}
		if swap.Status != models.SwapStatusPending {
			return models.NewInvalidStateError("Can only delete pending swap requests")
		}
		responderID = swap.ResponderID
		return tx.Swaps.Delete(ctx, swapID)
	})
	if err != nil {
		return err
	}

	notifyUser(ctx, s.events, responderID, notifications.EventSwapDeleted, SwapEventPayload{
		SwapID: swapID, Status: models.SwapStatusPending, ActorID: actorID,
	})
	return nil
}

// FeedbackInput is one participant's rating of the other.
type FeedbackInput struct {
	SwapID  uint
	ActorID uint
	Rating  int
	Comment string
}

// FeedbackResult reports the written slot and the counterpart's new aggregate.
type FeedbackResult struct {
	Swap              *models.Swap
	RatedUserID       uint
	CounterpartRating models.Rating
}

// AddFeedback fills the actor's feedback slot on a completed swap and recomputes the
// counterpart's rating in the same transaction.
func (s *SwapService) AddFeedback(ctx context.Context, in FeedbackInput) (result *FeedbackResult, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "SwapService", "AddFeedback",
		attribute.Int64("swap.id", int64(in.SwapID)))
	defer func() { finish(err) }()

	if err := validation.ValidateRating(in.Rating); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.ValidateMaxLength("Comment", in.Comment, validation.MaxCommentLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	result = &FeedbackResult{}
	err = s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		swap, err := tx.Swaps.GetForUpdate(ctx, in.SwapID)
		if err != nil {
			return notFoundAs(err, "Swap", in.SwapID)
		}
		if swap.Status != models.SwapStatusCompleted {
			return models.NewInvalidStateError("Can only add feedback to completed swaps")
		}
		slot := swap.FeedbackSlot(in.ActorID)
		if slot == nil {
			return models.NewForbiddenError("Unauthorized to add feedback to this swap")
		}
		if slot.Present() {
			return models.NewInvalidStateError("Feedback already provided for this swap")
		}

		now := s.now()
		*slot = models.FeedbackEntry{Rating: in.Rating, Comment: in.Comment, Date: &now}
		if err := tx.Swaps.Put(ctx, swap); err != nil {
			return err
		}

		result.RatedUserID = swap.Counterpart(in.ActorID)
		rating, err := s.ratings.Recompute(ctx, tx, result.RatedUserID)
		if err != nil {
			return err
		}
		result.CounterpartRating = rating
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.FeedbackSubmitted.WithLabelValues(fmt.Sprint(in.Rating)).Inc()
	notifyUser(ctx, s.events, result.RatedUserID, notifications.EventFeedbackReceived, map[string]interface{}{
		"swapId": in.SwapID,
		"rating": in.Rating,
	})

	swap, err := s.store.Repositories().Swaps.Get(ctx, in.SwapID)
	if err != nil {
		return nil, err
	}
	result.Swap = swap
	return result, nil
}

func eventForStatus(status models.SwapStatus) string {
	switch status {
	case models.SwapStatusAccepted:
		return notifications.EventSwapAccepted
	case models.SwapStatusRejected:
		return notifications.EventSwapRejected
	case models.SwapStatusCompleted:
		return notifications.EventSwapCompleted
	default:
		return notifications.EventSwapCancelled
	}
}

// notFoundAs renames a repository NotFound so clients see the resource name they asked for.
func notFoundAs(err error, resource string, id uint) error {
	if models.IsCode(err, models.CodeNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}
