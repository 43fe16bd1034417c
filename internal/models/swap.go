package models

import (
	"encoding/json"
	"time"
)

// SwapStatus represents the lifecycle state of a swap.
type SwapStatus string

const (
	// SwapStatusPending is the initial state after the requester creates the swap.
	SwapStatusPending SwapStatus = "pending"
	// SwapStatusAccepted means the responder agreed to the exchange.
	SwapStatusAccepted SwapStatus = "accepted"
	// SwapStatusRejected means the responder declined. Terminal.
	SwapStatusRejected SwapStatus = "rejected"
	// SwapStatusCompleted means the exchange took place. Terminal.
	SwapStatusCompleted SwapStatus = "completed"
	// SwapStatusCancelled means a participant or an admin ban called it off. Terminal.
	SwapStatusCancelled SwapStatus = "cancelled"
)

// SwapStatuses lists every status in lifecycle order.
var SwapStatuses = []SwapStatus{
	SwapStatusPending,
	SwapStatusAccepted,
	SwapStatusRejected,
	SwapStatusCompleted,
	SwapStatusCancelled,
}

var swapTransitions = map[SwapStatus][]SwapStatus{
	SwapStatusPending:  {SwapStatusAccepted, SwapStatusRejected, SwapStatusCancelled},
	SwapStatusAccepted: {SwapStatusCompleted, SwapStatusCancelled},
}

// Valid reports whether s is a known status.
func (s SwapStatus) Valid() bool {
	for _, known := range SwapStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s SwapStatus) Terminal() bool {
	return len(swapTransitions[s]) == 0
}

// CanTransitionTo reports whether the state machine has an edge from s to next.
func (s SwapStatus) CanTransitionTo(next SwapStatus) bool {
	for _, allowed := range swapTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SkillRef names a skill on one side of a swap.
type SkillRef struct {
	Skill       string `gorm:"size:100;not null" json:"skill"`
	Description string `gorm:"size:500" json:"description,omitempty"`
}

// FeedbackEntry is one party's rating of the other. A zero Rating means the slot is empty.
type FeedbackEntry struct {
	Rating  int        `gorm:"not null;default:0" json:"rating"`
	Comment string     `gorm:"size:500" json:"comment,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
}

// Present reports whether the slot holds a rating.
func (f FeedbackEntry) Present() bool {
	return f.Rating > 0
}

// SwapFeedback holds the two feedback slots of a swap.
type SwapFeedback struct {
	RequesterFeedback FeedbackEntry `gorm:"embedded;embeddedPrefix:requester_feedback_"`
	ResponderFeedback FeedbackEntry `gorm:"embedded;embeddedPrefix:responder_feedback_"`
}

// MarshalJSON omits empty slots.
func (f SwapFeedback) MarshalJSON() ([]byte, error) {
	out := make(map[string]FeedbackEntry, 2)
	if f.RequesterFeedback.Present() {
		out["requesterFeedback"] = f.RequesterFeedback
	}
	if f.ResponderFeedback.Present() {
		out["responderFeedback"] = f.ResponderFeedback
	}
	return json.Marshal(out)
}

// Swap is one negotiated exchange between a requester and a responder.
type Swap struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	RequesterID     uint         `gorm:"not null;index" json:"requesterId"`
	ResponderID     uint         `gorm:"not null;index" json:"responderId"`
	SkillOffered    SkillRef     `gorm:"embedded;embeddedPrefix:skill_offered_" json:"skillOffered"`
	SkillRequested  SkillRef     `gorm:"embedded;embeddedPrefix:skill_requested_" json:"skillRequested"`
	Message         string       `gorm:"size:1000" json:"message,omitempty"`
	ScheduledDate   *time.Time   `json:"scheduledDate,omitempty"`
	Duration        *float64     `json:"duration,omitempty"`
	Status          SwapStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RejectionReason string       `gorm:"size:500" json:"rejectionReason,omitempty"`
	Feedback        SwapFeedback `gorm:"embedded" json:"feedback"`
	CreatedAt       time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`

	// Relationships
	Requester *User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Responder *User `gorm:"foreignKey:ResponderID" json:"responder,omitempty"`
}

// TableName specifies the table name for GORM
func (Swap) TableName() string {
	return "swaps"
}

// IsParticipant reports whether userID is the requester or the responder.
func (s *Swap) IsParticipant(userID uint) bool {
	return s.RequesterID == userID || s.ResponderID == userID
}

// Counterpart returns the other participant's id.
func (s *Swap) Counterpart(userID uint) uint {
	if s.RequesterID == userID {
		return s.ResponderID
	}
	return s.RequesterID
}

// FeedbackSlot returns the slot the given participant writes into.
func (s *Swap) FeedbackSlot(userID uint) *FeedbackEntry {
	switch userID {
	case s.RequesterID:
		return &s.Feedback.RequesterFeedback
	case s.ResponderID:
		return &s.Feedback.ResponderFeedback
	default:
		return nil
	}
}

// ReceivedFeedback returns the feedback the counterpart left about userID.
func (s *Swap) ReceivedFeedback(userID uint) FeedbackEntry {
	if s.RequesterID == userID {
		return s.Feedback.ResponderFeedback
	}
	return s.Feedback.RequesterFeedback
}
