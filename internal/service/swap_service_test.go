package service

import (
	"context"
	"strings"
	"testing"

	"skillswap/internal/featureflags"
	"skillswap/internal/models"
	"skillswap/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSwapInput(requesterID, responderID uint) CreateSwapInput {
	return CreateSwapInput{
		RequesterID:    requesterID,
		ResponderID:    responderID,
		SkillOffered:   models.SkillRef{Skill: "Go"},
		SkillRequested: models.SkillRef{Skill: "Guitar"},
	}
}

func TestSwapService_Create_Validation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	svc := NewSwapService(store, nil, nil)

	long := func(n int) string { return strings.Repeat("x", n) }
	tooShort, tooLong := 0.25, 9.0

	tests := []struct {
		name   string
		mutate func(*CreateSwapInput)
	}{
		{"missing responder", func(in *CreateSwapInput) { in.ResponderID = 0 }},
		{"missing offered skill", func(in *CreateSwapInput) { in.SkillOffered.Skill = "  " }},
		{"missing requested skill", func(in *CreateSwapInput) { in.SkillRequested.Skill = "" }},
		{"message too long", func(in *CreateSwapInput) { in.Message = long(1001) }},
		{"description too long", func(in *CreateSwapInput) { in.SkillOffered.Description = long(501) }},
		{"duration too short", func(in *CreateSwapInput) { in.Duration = &tooShort }},
		{"duration too long", func(in *CreateSwapInput) { in.Duration = &tooLong }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSwapInput(a.ID, b.ID)
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assertValidationError(t, err)
		})
	}
}

func TestSwapService_Create(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	events := &recordingPublisher{}
	svc := NewSwapService(store, events, nil)

	duration := 1.5
	in := validSwapInput(a.ID, b.ID)
	in.Message = "Happy to trade"
	in.Duration = &duration

	swap, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusPending, swap.Status)
	require.NotNil(t, swap.Requester)
	assert.Equal(t, "alice", swap.Requester.Name)
	require.NotNil(t, swap.Duration)
	assert.InDelta(t, 1.5, *swap.Duration, 0.001)

	created := events.ofType(notifications.EventSwapCreated)
	require.Len(t, created, 1)
	assert.Equal(t, b.ID, created[0].UserID)
}

func TestSwapService_Create_UnknownResponder(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")

	_, err := NewSwapService(store, nil, nil).Create(context.Background(), validSwapInput(a.ID, 999))
	assertAppError(t, err, models.CodeNotFound, "User not found")
}

func TestSwapService_Create_SelfSwap(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")

	t.Run("allowed by default", func(t *testing.T) {
		swap, err := NewSwapService(store, nil, flagStub{}).Create(context.Background(), validSwapInput(a.ID, a.ID))
		require.NoError(t, err)
		assert.Equal(t, a.ID, swap.ResponderID)
	})

	t.Run("blocked by flag", func(t *testing.T) {
		flags := flagStub{enabledFn: func(name string, _ uint) bool { return name == featureflags.BlockSelfSwaps }}
		_, err := NewSwapService(store, nil, flags).Create(context.Background(), validSwapInput(a.ID, a.ID))
		assertAppError(t, err, models.CodeValidation, "You cannot request a swap with yourself")
	})
}

func TestSwapService_Respond(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	c := createUser(t, store, "carol")
	events := &recordingPublisher{}
	svc := NewSwapService(store, events, nil)
	ctx := context.Background()

	t.Run("only the responder may respond", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
		for _, actor := range []uint{a.ID, c.ID} {
			_, err := svc.Respond(ctx, swap.ID, actor, models.SwapStatusAccepted, "")
			assertAppError(t, err, models.CodeForbidden, "Unauthorized to update this swap request")
		}
		got, err := store.Repositories().Swaps.Get(ctx, swap.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SwapStatusPending, got.Status)
	})

	t.Run("reject stores the reason", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
		got, err := svc.Respond(ctx, swap.ID, b.ID, models.SwapStatusRejected, "Busy this month")
		require.NoError(t, err)
		assert.Equal(t, models.SwapStatusRejected, got.Status)
		assert.Equal(t, "Busy this month", got.RejectionReason)

		rejected := events.ofType(notifications.EventSwapRejected)
		require.NotEmpty(t, rejected)
		assert.Equal(t, a.ID, rejected[len(rejected)-1].UserID)
	})

	t.Run("only pending swaps", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
		_, err := svc.Respond(ctx, swap.ID, b.ID, models.SwapStatusAccepted, "")
		require.NoError(t, err)

		_, err = svc.Respond(ctx, swap.ID, b.ID, models.SwapStatusRejected, "")
		assertAppError(t, err, models.CodeInvalidState, "")
	})

	t.Run("missing swap", func(t *testing.T) {
		_, err := svc.Respond(ctx, 4242, b.ID, models.SwapStatusAccepted, "")
		assertAppError(t, err, models.CodeNotFound, "Swap request not found")
	})

	t.Run("status must be a response", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
		_, err := svc.Respond(ctx, swap.ID, b.ID, models.SwapStatusCompleted, "")
		assertValidationError(t, err)
	})
}

func TestSwapService_TerminalStatesAreImmutable(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	svc := NewSwapService(store, nil, nil)
	ctx := context.Background()

	for _, terminal := range []models.SwapStatus{models.SwapStatusCompleted, models.SwapStatusRejected, models.SwapStatusCancelled} {
		swap := createSwap(t, store, a.ID, b.ID, terminal)
		for _, next := range models.SwapStatuses {
			for _, actor := range []uint{a.ID, b.ID} {
				_, err := svc.UpdateStatus(ctx, swap.ID, actor, next, "")
				require.Error(t, err, "%s -> %s by %d", terminal, next, actor)
			}
		}
		got, err := store.Repositories().Swaps.Get(ctx, swap.ID)
		require.NoError(t, err)
		assert.Equal(t, terminal, got.Status)
	}
}

func TestSwapService_CompleteAndCancel(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	c := createUser(t, store, "carol")
	svc := NewSwapService(store, nil, nil)
	ctx := context.Background()

	t.Run("complete requires accepted", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
		_, err := svc.Complete(ctx, swap.ID, a.ID)
		assertAppError(t, err, models.CodeInvalidState, "")
	})

	t.Run("either participant completes", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusAccepted)
		got, err := svc.Complete(ctx, swap.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SwapStatusCompleted, got.Status)
	})

	t.Run("outsiders cannot cancel", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusAccepted)
		_, err := svc.Cancel(ctx, swap.ID, c.ID, "")
		assertAppError(t, err, models.CodeForbidden, "")
	})

	t.Run("cancel accepted swap", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusAccepted)
		got, err := svc.UpdateStatus(ctx, swap.ID, b.ID, models.SwapStatusCancelled, "  Moved away ")
		require.NoError(t, err)
		assert.Equal(t, models.SwapStatusCancelled, got.Status)
		assert.Equal(t, "Moved away", got.RejectionReason)
	})

	t.Run("unknown status", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
		_, err := svc.UpdateStatus(ctx, swap.ID, b.ID, models.SwapStatus("archived"), "")
		assertAppError(t, err, models.CodeValidation, "Invalid status")
	})
}

func TestSwapService_Delete(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	events := &recordingPublisher{}
	svc := NewSwapService(store, events, nil)
	ctx := context.Background()

	t.Run("responder cannot delete", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
		err := svc.Delete(ctx, swap.ID, b.ID)
		assertAppError(t, err, models.CodeForbidden, "Unauthorized to delete this swap request")
	})

	t.Run("only pending swaps", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusAccepted)
		err := svc.Delete(ctx, swap.ID, a.ID)
		assertAppError(t, err, models.CodeInvalidState, "Can only delete pending swap requests")
	})

	t.Run("requester deletes pending swap", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
		require.NoError(t, svc.Delete(ctx, swap.ID, a.ID))

		_, err := store.Repositories().Swaps.Get(ctx, swap.ID)
		assertAppError(t, err, models.CodeNotFound, "")
		assert.Len(t, events.ofType(notifications.EventSwapDeleted), 1)
	})

	t.Run("missing swap", func(t *testing.T) {
		err := svc.Delete(ctx, 4242, a.ID)
		assertAppError(t, err, models.CodeNotFound, "Swap request not found")
	})
}

func TestSwapService_ListAndGet(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	c := createUser(t, store, "carol")
	admin := createUser(t, store, "root", func(u *models.User) { u.Role = models.RoleAdmin })
	svc := NewSwapService(store, nil, nil)
	ctx := context.Background()

	sent := createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
	createSwap(t, store, c.ID, a.ID, models.SwapStatusAccepted)
	createSwap(t, store, b.ID, c.ID, models.SwapStatusPending)

	all, err := svc.List(ctx, ListSwapsInput{UserID: a.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlySent, err := svc.List(ctx, ListSwapsInput{UserID: a.ID, Type: "sent"})
	require.NoError(t, err)
	require.Len(t, onlySent, 1)
	assert.Equal(t, sent.ID, onlySent[0].ID)

	accepted, err := svc.List(ctx, ListSwapsInput{UserID: a.ID, Type: "received", Status: "accepted"})
	require.NoError(t, err)
	assert.Len(t, accepted, 1)

	_, err = svc.List(ctx, ListSwapsInput{UserID: a.ID, Type: "both"})
	assertAppError(t, err, models.CodeValidation, "Invalid type. Use sent or received")
	_, err = svc.List(ctx, ListSwapsInput{UserID: a.ID, Status: "done"})
	assertAppError(t, err, models.CodeValidation, "Invalid status")

	_, err = svc.Get(ctx, sent.ID, c)
	assertAppError(t, err, models.CodeForbidden, "")
	got, err := svc.Get(ctx, sent.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, sent.ID, got.ID)
}

func TestSwapService_FeedbackScenario(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	events := &recordingPublisher{}
	svc := NewSwapService(store, events, nil)
	ctx := context.Background()
	users := store.Repositories().Users

	swap, err := svc.Create(ctx, validSwapInput(a.ID, b.ID))
	require.NoError(t, err)

	accepted, err := svc.Respond(ctx, swap.ID, b.ID, models.SwapStatusAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusAccepted, accepted.Status)

	_, err = svc.Complete(ctx, swap.ID, b.ID)
	require.NoError(t, err)

	res, err := svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: a.ID, Rating: 5, Comment: "Great teacher"})
	require.NoError(t, err)
	assert.Equal(t, b.ID, res.RatedUserID)
	assert.Equal(t, models.Rating{Average: 5, Count: 1}, res.CounterpartRating)

	bob, err := users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Average: 5, Count: 1}, bob.Rating)
	alice, err := users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{}, alice.Rating)

	_, err = svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: b.ID, Rating: 3})
	require.NoError(t, err)

	alice, err = users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Average: 3, Count: 1}, alice.Rating)

	received := events.ofType(notifications.EventFeedbackReceived)
	require.Len(t, received, 2)
	assert.Equal(t, b.ID, received[0].UserID)
	assert.Equal(t, a.ID, received[1].UserID)
}

func TestSwapService_AddFeedback_RatingFailureRollsBack(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	events := &recordingPublisher{}
	svc := NewSwapService(store, events, nil)
	ctx := context.Background()
	swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusCompleted)

	restore := failUpdates(t, store, "users", "rating_count", "")
	_, err := svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: a.ID, Rating: 4, Comment: "solid"})
	assertAppError(t, err, models.CodeInternal, "")

	got, err := store.Repositories().Swaps.Get(ctx, swap.ID)
	require.NoError(t, err)
	assert.False(t, got.Feedback.RequesterFeedback.Present(), "feedback must not outlive a failed recompute")
	bob, err := store.Repositories().Users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{}, bob.Rating)
	assert.Empty(t, events.ofType(notifications.EventFeedbackReceived))

	restore()
	res, err := svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: a.ID, Rating: 4, Comment: "solid"})
	require.NoError(t, err, "the slot is still open after the rollback")
	assert.Equal(t, models.Rating{Average: 4, Count: 1}, res.CounterpartRating)
	assert.Equal(t, 4, res.Swap.Feedback.RequesterFeedback.Rating)
}

func TestSwapService_AddFeedback_Guards(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	c := createUser(t, store, "carol")
	svc := NewSwapService(store, nil, nil)
	ctx := context.Background()

	t.Run("rating range", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusCompleted)
		for _, rating := range []int{0, 6, -1} {
			_, err := svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: a.ID, Rating: rating})
			assertValidationError(t, err)
		}
	})

	t.Run("completed swaps only", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusAccepted)
		_, err := svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: a.ID, Rating: 4})
		assertAppError(t, err, models.CodeInvalidState, "Can only add feedback to completed swaps")
	})

	t.Run("participants only", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusCompleted)
		_, err := svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: c.ID, Rating: 4})
		assertAppError(t, err, models.CodeForbidden, "Unauthorized to add feedback to this swap")
	})

	t.Run("once per role", func(t *testing.T) {
		swap := createSwap(t, store, a.ID, b.ID, models.SwapStatusCompleted)
		_, err := svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: a.ID, Rating: 4, Comment: "first"})
		require.NoError(t, err)

		_, err = svc.AddFeedback(ctx, FeedbackInput{SwapID: swap.ID, ActorID: a.ID, Rating: 1, Comment: "second"})
		assertAppError(t, err, models.CodeInvalidState, "Feedback already provided for this swap")

		got, err := store.Repositories().Swaps.Get(ctx, swap.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Feedback.RequesterFeedback.Rating)
		assert.Equal(t, "first", got.Feedback.RequesterFeedback.Comment)
		assert.NotNil(t, got.Feedback.RequesterFeedback.Date)
	})

	t.Run("missing swap", func(t *testing.T) {
		_, err := svc.AddFeedback(ctx, FeedbackInput{SwapID: 4242, ActorID: a.ID, Rating: 4})
		assertAppError(t, err, models.CodeNotFound, "Swap not found")
	})
}
