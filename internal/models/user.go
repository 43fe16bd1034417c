// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role is the authorization role of an account.
type Role string

const (
	// RoleUser is the default role for every signup.
	RoleUser Role = "user"
	// RoleAdmin unlocks the /admin namespace.
	RoleAdmin Role = "admin"
)

// Availability describes when a user is generally free for swaps.
type Availability struct {
	Weekdays bool `json:"weekdays"`
	Weekends bool `json:"weekends"`
	Evenings bool `json:"evenings"`
	Mornings bool `json:"mornings"`
}

// Rating is the denormalized aggregate of counterpart feedback over completed swaps.
type Rating struct {
	Average float64 `gorm:"not null;default:0" json:"average"`
	Count   int     `gorm:"not null;default:0" json:"count"`
}

// User represents a member of the skill swap marketplace.
type User struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"size:50;not null" json:"name"`
	NameSearch     string       `gorm:"not null;default:''" json:"-"`
	Email          string       `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password       string       `gorm:"not null" json:"-"`
	Location       string       `gorm:"size:100" json:"location"`
	LocationSearch string       `gorm:"not null;default:''" json:"-"`
	ProfilePhoto   string       `gorm:"size:500" json:"profilePhoto"`
	Availability   Availability `gorm:"embedded;embeddedPrefix:available_" json:"availability"`
	IsPublic       bool         `gorm:"not null;index:idx_users_directory" json:"isPublic"`
	IsActive       bool         `gorm:"not null;index:idx_users_directory" json:"isActive"`
	Role           Role         `gorm:"type:varchar(10);not null;default:'user'" json:"role"`
	Rating         Rating       `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`
	LastActive     time.Time    `json:"lastActive"`
	CreatedAt      time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`

	// Skills is the storage-side list; SkillsOffered and SkillsWanted are the API view of it.
	Skills        []UserSkill `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	SkillsOffered []UserSkill `gorm:"-" json:"skillsOffered"`
	SkillsWanted  []UserSkill `gorm:"-" json:"skillsWanted"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeSave refreshes the folded search columns. Map updates bypass it; see SearchColumns.
func (u *User) BeforeSave(_ *gorm.DB) error {
	u.NameSearch = SearchKey(u.Name)
	u.LocationSearch = SearchKey(u.Location)
	return nil
}

// AfterFind splits preloaded skills into the offered and wanted views.
func (u *User) AfterFind(_ *gorm.DB) error {
	u.SplitSkills()
	return nil
}

// SplitSkills rebuilds SkillsOffered and SkillsWanted from Skills, keeping stored order.
func (u *User) SplitSkills() {
	u.SkillsOffered = make([]UserSkill, 0)
	u.SkillsWanted = make([]UserSkill, 0)
	for _, s := range u.Skills {
		switch s.Kind {
		case SkillKindOffered:
			u.SkillsOffered = append(u.SkillsOffered, s)
		case SkillKindWanted:
			u.SkillsWanted = append(u.SkillsWanted, s)
		}
	}
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasSkill reports whether the user already lists a skill of the given kind, ignoring case.
func (u *User) HasSkill(kind SkillKind, name string) bool {
	for _, s := range u.Skills {
		if s.Kind == kind && strings.EqualFold(strings.TrimSpace(s.Skill), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// FindSkill returns the user's skill with the given id and kind.
func (u *User) FindSkill(kind SkillKind, skillID uint) (*UserSkill, bool) {
	for i := range u.Skills {
		if u.Skills[i].ID == skillID && u.Skills[i].Kind == kind {
			return &u.Skills[i], true
		}
	}
	return nil, false
}

// PublicUser is the compact projection embedded in swap payloads and reports.
type PublicUser struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	ProfilePhoto string  `json:"profilePhoto,omitempty"`
	Location     string  `json:"location,omitempty"`
	Rating       *Rating `json:"rating,omitempty"`
}

// SearchKey folds text for case-insensitive substring search. Queries compare folded
// columns directly; SQLite's LOWER folds ASCII only.
func SearchKey(text string) string {
	return strings.ToLower(text)
}

// SearchColumns adds the folded copies of any searchable user columns present in an update map.
func SearchColumns(fields map[string]interface{}) {
	if name, ok := fields["name"].(string); ok {
		fields["name_search"] = SearchKey(name)
	}
	if location, ok := fields["location"].(string); ok {
		fields["location_search"] = SearchKey(location)
	}
}
