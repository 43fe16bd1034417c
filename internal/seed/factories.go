package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/auth"
	"skillswap/internal/models"
	"skillswap/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	repos   repository.Repositories
	faker   *gofakeit.Faker
	catalog *Catalog
	opts    Options

	passwordHash string
	seq          int
}

// NewFactory creates a Factory. A zero opts.RandSeed picks a random seed.
func NewFactory(repos repository.Repositories, catalog *Catalog, opts Options) *Factory {
	return &Factory{
		repos:   repos,
		faker:   gofakeit.New(opts.RandSeed),
		catalog: catalog,
		opts:    opts,
	}
}

func (f *Factory) hash() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	if f.opts.SkipBcrypt {
		// Login will not work for these accounts.
		f.passwordHash = "seed-no-bcrypt"
		return f.passwordHash, nil
	}
	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return "", err
	}
	f.passwordHash = hash
	return hash, nil
}

// BuildUser returns an unsaved user with a fake profile.
func (f *Factory) BuildUser() *models.User {
	f.seq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	name := first + " " + last
	if len(name) > 50 {
		name = name[:50]
	}
	daysBack := f.faker.Number(0, maxDays(f.opts))

	return &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), f.seq),
		Location:     f.faker.RandomString(f.catalog.Locations),
		ProfilePhoto: fmt.Sprintf("https://picsum.photos/seed/%s/256/256", f.faker.UUID()),
		Availability: models.Availability{
			Weekdays: f.faker.Bool(),
			Weekends: f.faker.Bool(),
			Evenings: f.faker.Bool(),
			Mornings: f.faker.Bool(),
		},
		IsPublic:   f.faker.Number(1, 10) > 1,
		IsActive:   true,
		Role:       models.RoleUser,
		LastActive: time.Now().Add(-time.Duration(daysBack) * 24 * time.Hour),
	}
}

// CreateUser persists a fake user with a few offered and wanted skills.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.hash()
	if err != nil {
		return nil, err
	}
	user := f.BuildUser()
	user.Password = hash
	for _, fn := range overrides {
		fn(user)
	}
	if err := f.repos.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	offered := f.pickSkills(f.faker.Number(1, 4), nil)
	wanted := f.pickSkills(f.faker.Number(1, 3), offered)
	for _, name := range offered {
		skill := &models.UserSkill{
			UserID:      user.ID,
			Kind:        models.SkillKindOffered,
			Skill:       name,
			Proficiency: f.faker.RandomString(models.Proficiencies),
			Description: f.faker.Sentence(8),
		}
		if err := f.repos.Users.AddSkill(ctx, skill); err != nil {
			return nil, err
		}
		user.Skills = append(user.Skills, *skill)
	}
	for _, name := range wanted {
		skill := &models.UserSkill{
			UserID:   user.ID,
			Kind:     models.SkillKindWanted,
			Skill:    name,
			Priority: f.faker.RandomString(models.Priorities),
		}
		if err := f.repos.Users.AddSkill(ctx, skill); err != nil {
			return nil, err
		}
		user.Skills = append(user.Skills, *skill)
	}
	user.SplitSkills()
	return user, nil
}

// pickSkills draws n distinct catalog skills not present in exclude.
func (f *Factory) pickSkills(n int, exclude []string) []string {
	taken := make(map[string]bool, len(exclude)+n)
	for _, s := range exclude {
		taken[s] = true
	}
	pool := f.catalog.Skills()
	out := make([]string, 0, n)
	for attempts := 0; len(out) < n && attempts < n*10; attempts++ {
		s := f.faker.RandomString(pool)
		if taken[s] {
			continue
		}
		taken[s] = true
		out = append(out, s)
	}
	return out
}

func firstSkill(skills []models.UserSkill, fallback string) string {
	if len(skills) > 0 {
		return skills[0].Skill
	}
	return fallback
}

// CreateSwap persists a swap between two seeded users in the given state. Completed swaps
// usually carry feedback from one or both sides.
func (f *Factory) CreateSwap(ctx context.Context, requester, responder *models.User, status models.SwapStatus) (*models.Swap, error) {
	pool := f.catalog.Skills()
	duration := float64(f.faker.Number(1, 16)) / 2
	created := time.Now().Add(-time.Duration(f.faker.Number(1, maxDays(f.opts)*24)) * time.Hour)
	scheduled := created.Add(time.Duration(f.faker.Number(24, 24*14)) * time.Hour)

	swap := &models.Swap{
		RequesterID:    requester.ID,
		ResponderID:    responder.ID,
		SkillOffered:   models.SkillRef{Skill: firstSkill(requester.SkillsOffered, f.faker.RandomString(pool))},
		SkillRequested: models.SkillRef{Skill: firstSkill(responder.SkillsOffered, f.faker.RandomString(pool))},
		Message:        f.faker.Sentence(12),
		ScheduledDate:  &scheduled,
		Duration:       &duration,
		Status:         status,
		CreatedAt:      created,
	}

	switch status {
	case models.SwapStatusRejected:
		swap.RejectionReason = "Not available right now"
	case models.SwapStatusCancelled:
		swap.RejectionReason = "Plans changed"
	case models.SwapStatusCompleted:
		at := scheduled.Add(time.Duration(duration * float64(time.Hour)))
		if f.faker.Number(1, 10) <= 8 {
			swap.Feedback.RequesterFeedback = f.feedback(at)
		}
		if f.faker.Number(1, 10) <= 7 {
			swap.Feedback.ResponderFeedback = f.feedback(at)
		}
	}

	if err := f.repos.Swaps.Put(ctx, swap); err != nil {
		return nil, err
	}
	return swap, nil
}

func (f *Factory) feedback(at time.Time) models.FeedbackEntry {
	// Skewed towards good ratings.
	rating := f.faker.RandomInt([]int{3, 4, 4, 5, 5, 5, 2, 1})
	entry := models.FeedbackEntry{Rating: rating, Date: &at}
	if len(f.catalog.Feedback) > 0 {
		entry.Comment = f.faker.RandomString(f.catalog.Feedback)
	}
	return entry
}

func maxDays(opts Options) int {
	if opts.MaxDays <= 0 {
		return 90
	}
	return opts.MaxDays
}
