package service

import (
	"context"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"
)

// UserService serves the directory: profiles, skills, stats and search.
type UserService struct {
	store Transactor
	now   clock
}

// NewUserService returns a UserService.
func NewUserService(store Transactor) *UserService {
	return &UserService{store: store, now: time.Now}
}

// SearchInput is the directory query. Page and Limit are already validated as positive.
type SearchInput struct {
	ViewerID uint
	Skill    string
	Location string
	Page     int
	Limit    int
}

// UpdateProfileInput carries optional profile edits; nil fields are left unchanged.
type UpdateProfileInput struct {
	UserID       uint
	Name         *string
	Location     *string
	ProfilePhoto *string
	Availability *models.Availability
	IsPublic     *bool
}

// AddSkillInput adds one entry to the caller's offered or wanted list.
type AddSkillInput struct {
	UserID      uint
	Kind        models.SkillKind
	Skill       string
	Proficiency string
	Priority    string
	Description string
}

// UserSkills is the public skill listing of a user.
type UserSkills struct {
	Name          string             `json:"name"`
	SkillsOffered []models.UserSkill `json:"skillsOffered"`
	SkillsWanted  []models.UserSkill `json:"skillsWanted"`
}

// SwapCounts breaks a user's swaps down by status.
type SwapCounts struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Accepted  int64 `json:"accepted"`
	Completed int64 `json:"completed"`
	Rejected  int64 `json:"rejected"`
	Cancelled int64 `json:"cancelled"`
}

// UserStats is the public activity summary of a user.
type UserStats struct {
	Name   string        `json:"name"`
	Rating models.Rating `json:"rating"`
	Swaps  SwapCounts    `json:"swaps"`
}

func newSwapCounts(byStatus map[models.SwapStatus]int64) SwapCounts {
	counts := SwapCounts{
		Pending:   byStatus[models.SwapStatusPending],
		Accepted:  byStatus[models.SwapStatusAccepted],
		Completed: byStatus[models.SwapStatusCompleted],
		Rejected:  byStatus[models.SwapStatusRejected],
		Cancelled: byStatus[models.SwapStatusCancelled],
	}
	counts.Total = counts.Pending + counts.Accepted + counts.Completed + counts.Rejected + counts.Cancelled
	return counts
}

// GetProfile returns a profile. Private profiles are only visible to their owner.
func (s *UserService) GetProfile(ctx context.Context, userID, viewerID uint) (*models.User, error) {
	user, err := s.store.Repositories().Users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsPublic && user.ID != viewerID {
		return nil, models.NewForbiddenError("Profile is private")
	}
	return user, nil
}

// GetSkills returns a user's offered and wanted skills.
func (s *UserService) GetSkills(ctx context.Context, userID uint) (*UserSkills, error) {
	user, err := s.store.Repositories().Users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserSkills{Name: user.Name, SkillsOffered: user.SkillsOffered, SkillsWanted: user.SkillsWanted}, nil
}

// GetStats returns a user's rating and swap counts.
func (s *UserService) GetStats(ctx context.Context, userID uint) (*UserStats, error) {
	repos := s.store.Repositories()
	user, err := repos.Users.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	byStatus, err := repos.Swaps.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserStats{Name: user.Name, Rating: user.Rating, Swaps: newSwapCounts(byStatus)}, nil
}

// Search lists public, active users other than the viewer, best rated first.
func (s *UserService) Search(ctx context.Context, in SearchInput) ([]models.User, models.Pagination, error) {
	page := normalizePage(in.Page, in.Limit)
	active := true
	users, total, err := s.store.Repositories().Users.FindMany(ctx, repository.UserFilter{
		PublicOnly:    true,
		Active:        &active,
		ExcludeID:     in.ViewerID,
		SkillOffered:  strings.TrimSpace(in.Skill),
		Location:      strings.TrimSpace(in.Location),
		Sort:          repository.UserSortDirectory,
		PreloadSkills: true,
	}, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return users, models.NewPagination(page.Number, page.Size, total), nil
}

// UpdateProfile applies the editable profile fields and touches lastActive.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	fields := map[string]interface{}{"last_active": s.now()}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["name"] = name
	}
	if in.Location != nil {
		location := strings.TrimSpace(*in.Location)
		if err := validation.ValidateLocation(location); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["location"] = location
	}
	if in.ProfilePhoto != nil {
		photo := strings.TrimSpace(*in.ProfilePhoto)
		if err := validation.ValidateProfilePhoto(photo); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["profile_photo"] = photo
	}
	if in.Availability != nil {
		fields["available_weekdays"] = in.Availability.Weekdays
		fields["available_weekends"] = in.Availability.Weekends
		fields["available_evenings"] = in.Availability.Evenings
		fields["available_mornings"] = in.Availability.Mornings
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}

	users := s.store.Repositories().Users
	if err := users.Update(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	return users.GetByID(ctx, in.UserID)
}

// AddSkill appends a skill to the caller's offered or wanted list.
func (s *UserService) AddSkill(ctx context.Context, in AddSkillInput) (*models.User, error) {
	if !in.Kind.Valid() {
		return nil, models.NewValidationError("Invalid skill type")
	}
	in.Skill = strings.TrimSpace(in.Skill)
	if err := validation.ValidateSkillName("Skill name", in.Skill); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateMaxLength("Description", in.Description, validation.MaxDescriptionLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	skill := &models.UserSkill{UserID: in.UserID, Kind: in.Kind, Skill: in.Skill, Description: in.Description}
	switch in.Kind {
	case models.SkillKindOffered:
		skill.Proficiency = models.ProficiencyIntermediate
		if in.Proficiency != "" {
			if err := validation.ValidateProficiency(in.Proficiency); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
			skill.Proficiency = in.Proficiency
		}
	case models.SkillKindWanted:
		skill.Priority = models.PriorityMedium
		if in.Priority != "" {
			if err := validation.ValidatePriority(in.Priority); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
			skill.Priority = in.Priority
		}
	}

	var updated *models.User
	err := s.store.WithinTransaction(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Users.GetAccountForUpdate(ctx, in.UserID); err != nil {
			return err
		}
		user, err := tx.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if user.HasSkill(in.Kind, in.Skill) {
			return models.NewValidationError("Skill already exists in your " + string(in.Kind) + " list")
		}
		if err := tx.Users.AddSkill(ctx, skill); err != nil {
			return err
		}
		updated, err = tx.Users.GetByID(ctx, in.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveSkill deletes one of the caller's skills.
func (s *UserService) RemoveSkill(ctx context.Context, userID uint, kind models.SkillKind, skillID uint) (*models.User, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError("Invalid skill type")
	}
	users := s.store.Repositories().Users
	if _, err := users.DeleteSkill(ctx, userID, kind, skillID); err != nil {
		return nil, err
	}
	return users.GetByID(ctx, userID)
}
