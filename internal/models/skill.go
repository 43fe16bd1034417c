package models

import (
	"time"

	"gorm.io/gorm"
)

// SkillKind distinguishes offered skills from wanted skills.
type SkillKind string

const (
	// SkillKindOffered is a skill the user can teach.
	SkillKindOffered SkillKind = "offered"
	// SkillKindWanted is a skill the user wants to learn.
	SkillKindWanted SkillKind = "wanted"
)

// Valid reports whether k is a known skill kind.
func (k SkillKind) Valid() bool {
	return k == SkillKindOffered || k == SkillKindWanted
}

// Proficiency levels for offered skills.
const (
	ProficiencyBeginner     = "Beginner"
	ProficiencyIntermediate = "Intermediate"
	ProficiencyAdvanced     = "Advanced"
	ProficiencyExpert       = "Expert"
)

// Priority levels for wanted skills.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Proficiencies lists accepted proficiency values in ascending order.
var Proficiencies = []string{ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced, ProficiencyExpert}

// Priorities lists accepted priority values in ascending order.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// UserSkill is one entry of a user's offered or wanted list.
type UserSkill struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:idx_user_skills_owner" json:"-"`
	Kind        SkillKind `gorm:"type:varchar(10);not null;index:idx_user_skills_owner" json:"-"`
	Skill       string    `gorm:"size:100;not null" json:"skill"`
	SkillSearch string    `gorm:"not null;default:'';index" json:"-"`
	Proficiency string    `gorm:"type:varchar(20)" json:"proficiency,omitempty"`
	Priority    string    `gorm:"type:varchar(10)" json:"priority,omitempty"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	Position    int       `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name for GORM
func (UserSkill) TableName() string {
	return "user_skills"
}

// BeforeSave refreshes the folded search column.
func (s *UserSkill) BeforeSave(_ *gorm.DB) error {
	s.SkillSearch = SearchKey(s.Skill)
	return nil
}
