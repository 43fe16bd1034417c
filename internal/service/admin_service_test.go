package service

import (
	"context"
	"testing"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_BanCancelsPendingSwaps(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	admin := createUser(t, store, "root", func(u *models.User) { u.Role = models.RoleAdmin })
	target := createUser(t, store, "target")
	other := createUser(t, store, "other")
	bystander := createUser(t, store, "bystander")

	asRequester := createSwap(t, store, target.ID, other.ID, models.SwapStatusPending)
	asResponder := createSwap(t, store, other.ID, target.ID, models.SwapStatusPending)
	accepted := createSwap(t, store, target.ID, other.ID, models.SwapStatusAccepted)
	completed := createSwap(t, store, other.ID, target.ID, models.SwapStatusCompleted)
	unrelated := createSwap(t, store, other.ID, bystander.ID, models.SwapStatusPending)

	events := &recordingPublisher{}
	svc := NewAdminService(store, events)
	ctx := context.Background()

	res, err := svc.SetUserStatus(ctx, SetUserStatusInput{AdminID: admin.ID, UserID: target.ID, IsActive: false})
	require.NoError(t, err)
	assert.False(t, res.User.IsActive)
	require.Len(t, res.CancelledSwaps, 2)

	swaps := store.Repositories().Swaps
	for _, id := range []uint{asRequester.ID, asResponder.ID} {
		got, err := swaps.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.SwapStatusCancelled, got.Status)
		assert.Equal(t, DefaultBanReason, got.RejectionReason)
	}
	for id, want := range map[uint]models.SwapStatus{
		accepted.ID:  models.SwapStatusAccepted,
		completed.ID: models.SwapStatusCompleted,
		unrelated.ID: models.SwapStatusPending,
	} {
		got, err := swaps.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	status := events.ofType(notifications.EventAccountStatus)
	require.Len(t, status, 1)
	assert.Equal(t, target.ID, status[0].UserID)
	cancelled := events.ofType(notifications.EventSwapCancelled)
	require.Len(t, cancelled, 2)
	for _, e := range cancelled {
		assert.Equal(t, other.ID, e.UserID)
	}
}

func TestAdminService_BanRollsBackWhenCascadeFails(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	admin := createUser(t, store, "root", func(u *models.User) { u.Role = models.RoleAdmin })
	target := createUser(t, store, "target")
	other := createUser(t, store, "other")
	pending := createSwap(t, store, target.ID, other.ID, models.SwapStatusPending)
	events := &recordingPublisher{}
	svc := NewAdminService(store, events)
	ctx := context.Background()

	restore := failUpdates(t, store, "swaps", "status", "NEW.status = 'cancelled'")
	_, err := svc.SetUserStatus(ctx, SetUserStatusInput{AdminID: admin.ID, UserID: target.ID, IsActive: false})
	assertAppError(t, err, models.CodeInternal, "")

	account, err := store.Repositories().Users.GetAccount(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, account.IsActive, "ban must not commit without its cascade")
	got, err := store.Repositories().Swaps.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusPending, got.Status)
	assert.Empty(t, events.ofType(notifications.EventAccountStatus))

	restore()
	res, err := svc.SetUserStatus(ctx, SetUserStatusInput{AdminID: admin.ID, UserID: target.ID, IsActive: false})
	require.NoError(t, err)
	assert.False(t, res.User.IsActive)
	require.Len(t, res.CancelledSwaps, 1)
	assert.Equal(t, pending.ID, res.CancelledSwaps[0].ID)
}

func TestAdminService_SetUserStatus(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	admin := createUser(t, store, "root", func(u *models.User) { u.Role = models.RoleAdmin })
	target := createUser(t, store, "target", func(u *models.User) { u.IsActive = false })
	other := createUser(t, store, "other")
	svc := NewAdminService(store, nil)
	ctx := context.Background()

	_, err := svc.SetUserStatus(ctx, SetUserStatusInput{AdminID: admin.ID, UserID: admin.ID, IsActive: false})
	assertAppError(t, err, models.CodeValidation, "You cannot deactivate your own account")

	_, err = svc.SetUserStatus(ctx, SetUserStatusInput{AdminID: admin.ID, UserID: 999, IsActive: false})
	assertAppError(t, err, models.CodeNotFound, "User not found")

	pending := createSwap(t, store, target.ID, other.ID, models.SwapStatusPending)
	res, err := svc.SetUserStatus(ctx, SetUserStatusInput{AdminID: admin.ID, UserID: target.ID, IsActive: true})
	require.NoError(t, err)
	assert.True(t, res.User.IsActive)
	assert.Empty(t, res.CancelledSwaps)

	got, err := store.Repositories().Swaps.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusPending, got.Status, "unban leaves swaps alone")

	res, err = svc.SetUserStatus(ctx, SetUserStatusInput{AdminID: admin.ID, UserID: target.ID, Reason: "Spam"})
	require.NoError(t, err)
	require.Len(t, res.CancelledSwaps, 1)
	assert.Equal(t, "Spam", res.CancelledSwaps[0].RejectionReason)
}

func TestParseDateRange(t *testing.T) {
	t.Parallel()

	from, to, err := ParseDateRange("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC), *to)

	from, to, err = ParseDateRange("2024-03-01T10:00:00Z", "2024-03-02T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, from.Hour())
	assert.Equal(t, 10, to.Hour())

	from, to, err = ParseDateRange("", "")
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)

	_, _, err = ParseDateRange("yesterday", "")
	assertAppError(t, err, models.CodeValidation, "Invalid startDate")
	_, _, err = ParseDateRange("", "03/01/2024")
	assertAppError(t, err, models.CodeValidation, "Invalid endDate")
	_, _, err = ParseDateRange("2024-03-02", "2024-03-01T00:00:00Z")
	assertValidationError(t, err)
}

func TestAdminService_Listings(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice", func(u *models.User) { u.Location = "Lisbon" })
	b := createUser(t, store, "bob", func(u *models.User) { u.IsActive = false; u.IsPublic = false })
	createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
	createSwap(t, store, b.ID, a.ID, models.SwapStatusCompleted)
	svc := NewAdminService(store, nil)
	ctx := context.Background()

	users, page, err := svc.ListUsers(ctx, AdminUserQuery{})
	require.NoError(t, err)
	assert.Len(t, users, 2, "private and inactive users are listed")
	assert.Equal(t, int64(2), page.Total)

	inactive, _, err := svc.ListUsers(ctx, AdminUserQuery{Status: "inactive"})
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, b.ID, inactive[0].ID)

	bySearch, _, err := svc.ListUsers(ctx, AdminUserQuery{Search: "LISB"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, a.ID, bySearch[0].ID)

	_, _, err = svc.ListUsers(ctx, AdminUserQuery{Status: "banned"})
	assertValidationError(t, err)

	swaps, swapPage, err := svc.ListSwaps(ctx, AdminSwapQuery{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	require.NotNil(t, swaps[0].Requester)
	assert.Equal(t, "bob", swaps[0].Requester.Name)
	assert.Equal(t, 1, swapPage.Pages)

	old, _, err := svc.ListSwaps(ctx, AdminSwapQuery{EndDate: "2000-01-01"})
	require.NoError(t, err)
	assert.Empty(t, old)

	recent, _, err := svc.ListSwaps(ctx, AdminSwapQuery{StartDate: "2000-01-01"})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	_, _, err = svc.ListSwaps(ctx, AdminSwapQuery{Status: "archived"})
	assertAppError(t, err, models.CodeValidation, "Invalid status")
}

func TestAdminService_Stats(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice", func(u *models.User) { u.LastActive = time.Now() })
	b := createUser(t, store, "bob", func(u *models.User) { u.IsActive = false })
	createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
	createSwap(t, store, a.ID, b.ID, models.SwapStatusCancelled)

	stats, err := NewAdminService(store, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, UserTotals{Total: 2, Active: 1, Inactive: 1, RecentlyActive: 1}, stats.Users)
	assert.Equal(t, SwapCounts{Total: 2, Pending: 1, Cancelled: 1}, stats.Swaps)
}

func TestAdminService_ModerateSkill(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	admin := createUser(t, store, "root", func(u *models.User) { u.Role = models.RoleAdmin })
	user := createUser(t, store, "user")
	ctx := context.Background()
	skill := &models.UserSkill{UserID: user.ID, Kind: models.SkillKindOffered, Skill: "Spam"}
	require.NoError(t, store.Repositories().Users.AddSkill(ctx, skill))
	svc := NewAdminService(store, nil)

	base := ModerateSkillInput{AdminID: admin.ID, UserID: user.ID, SkillID: skill.ID, SkillType: models.SkillKindOffered, Action: "remove", Reason: "Off-topic"}

	invalidType := base
	invalidType.SkillType = "hobby"
	_, err := svc.ModerateSkill(ctx, invalidType)
	assertAppError(t, err, models.CodeValidation, "Invalid skill type")

	missingUser := base
	missingUser.UserID = 999
	_, err = svc.ModerateSkill(ctx, missingUser)
	assertAppError(t, err, models.CodeNotFound, "User not found")

	wrongList := base
	wrongList.SkillType = models.SkillKindWanted
	_, err = svc.ModerateSkill(ctx, wrongList)
	assertAppError(t, err, models.CodeNotFound, "Skill not found")

	invalidAction := base
	invalidAction.Action = "hide"
	_, err = svc.ModerateSkill(ctx, invalidAction)
	assertAppError(t, err, models.CodeValidation, "Invalid action")

	entry, err := svc.ModerateSkill(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, "Spam", entry.SkillName)
	assert.Equal(t, admin.ID, entry.AdminID)

	reloaded, err := store.Repositories().Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.SkillsOffered)

	log, page, err := svc.ModerationLog(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "Off-topic", log[0].Reason)
	assert.Equal(t, int64(1), page.Total)
}

func TestAdminService_PlatformMessages(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	admin := createUser(t, store, "root", func(u *models.User) { u.Role = models.RoleAdmin })
	createUser(t, store, "alice")
	createUser(t, store, "bob", func(u *models.User) { u.IsActive = false })
	events := &recordingPublisher{}
	svc := NewAdminService(store, events)
	ctx := context.Background()

	_, err := svc.SendPlatformMessage(ctx, PlatformMessageInput{AdminID: admin.ID, Title: "  ", Message: "body"})
	assertAppError(t, err, models.CodeValidation, "Title and message are required")
	_, err = svc.SendPlatformMessage(ctx, PlatformMessageInput{AdminID: admin.ID, Title: "t", Message: "m", Type: "alert"})
	assertAppError(t, err, models.CodeValidation, "Invalid message type")

	res, err := svc.SendPlatformMessage(ctx, PlatformMessageInput{AdminID: admin.ID, Title: "Maintenance", Message: "Tonight at 22:00"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Recipients)
	assert.Equal(t, models.MessageTypeInfo, res.Message.Type)
	assert.NotZero(t, res.Message.ID)

	broadcasts := events.ofType(notifications.EventPlatformMessage)
	require.Len(t, broadcasts, 1)
	assert.Zero(t, broadcasts[0].UserID)

	visible, err := svc.VisibleMessages(ctx)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Maintenance", visible[0].Title)
}

func TestAdminService_Report(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	a := createUser(t, store, "alice")
	b := createUser(t, store, "bob")
	createSwap(t, store, a.ID, b.ID, models.SwapStatusCompleted)
	createSwap(t, store, a.ID, b.ID, models.SwapStatusPending)
	rated := createSwap(t, store, b.ID, a.ID, models.SwapStatusCompleted)
	_, err := NewSwapService(store, nil, nil).AddFeedback(context.Background(), FeedbackInput{SwapID: rated.ID, ActorID: a.ID, Rating: 4})
	require.NoError(t, err)

	svc := NewAdminService(store, nil)
	ctx := context.Background()

	tests := []struct {
		reportType string
		count      int
	}{
		{ReportUsers, 2},
		{ReportSwaps, 3},
		{ReportFeedback, 1},
	}
	for _, tt := range tests {
		report, err := svc.Report(ctx, ReportQuery{Type: tt.reportType})
		require.NoError(t, err, tt.reportType)
		assert.Equal(t, tt.reportType, report.ReportType)
		assert.Equal(t, tt.count, report.Count, tt.reportType)
	}

	empty, err := svc.Report(ctx, ReportQuery{Type: ReportSwaps, EndDate: "2000-01-01"})
	require.NoError(t, err)
	assert.Zero(t, empty.Count)

	_, err = svc.Report(ctx, ReportQuery{Type: "revenue"})
	assertAppError(t, err, models.CodeValidation, "Invalid report type")
}
