package models

import "time"

// MessageType classifies platform announcements.
type MessageType string

const (
	MessageTypeInfo    MessageType = "info"
	MessageTypeWarning MessageType = "warning"
	MessageTypeUpdate  MessageType = "update"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeInfo, MessageTypeWarning, MessageTypeUpdate:
		return true
	}
	return false
}

// AdminMessage is a platform-wide announcement sent by an admin.
type AdminMessage struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Title        string      `gorm:"size:200;not null" json:"title"`
	Body         string      `gorm:"type:text;not null" json:"message"`
	Type         MessageType `gorm:"type:varchar(20);not null;default:'info'" json:"type"`
	CreatedByID  uint        `gorm:"not null;index" json:"createdById"`
	VisibleUntil *time.Time  `gorm:"index" json:"visibleUntil,omitempty"`
	CreatedAt    time.Time   `gorm:"index" json:"createdAt"`
}

// TableName specifies the table name for GORM
func (AdminMessage) TableName() string {
	return "admin_messages"
}

// VisibleAt reports whether the message should still be shown at t.
func (m *AdminMessage) VisibleAt(t time.Time) bool {
	return m.VisibleUntil == nil || m.VisibleUntil.After(t)
}

// ModerationActionRemove is the only supported skill moderation action.
const ModerationActionRemove = "remove"

// SkillModerationLog records an admin moderation action on a user's skill entry.
type SkillModerationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SkillID   uint      `gorm:"not null;index" json:"skillId"`
	SkillType SkillKind `gorm:"type:varchar(10);not null" json:"skillType"`
	SkillName string    `gorm:"size:100" json:"skillName"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	AdminID   uint      `gorm:"not null;index" json:"adminId"`
	Action    string    `gorm:"type:varchar(20);not null" json:"action"`
	Reason    string    `gorm:"size:500" json:"reason,omitempty"`
	ActionAt  time.Time `gorm:"autoCreateTime;index" json:"actionAt"`
}

// TableName specifies the table name for GORM
func (SkillModerationLog) TableName() string {
	return "skill_moderation_logs"
}
