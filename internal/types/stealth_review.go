package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Stealth review ticket lifecycle.
const (
	StealthStatusQueued     = "queued"
	StealthStatusScheduled  = "scheduled"
	StealthStatusInProgress = "in_progress"
	StealthStatusCompleted  = "completed"
)

// StealthReview is a hidden review woven into unrelated lesson content.
// At most one ticket per (user, command) may be in a non-completed status;
// the store enforces this with a partial unique index on postgres.
type StealthReview struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CanonicalCommand string    `gorm:"column:canonical_command;not null;index" json:"canonical_command"`

	Status   string `gorm:"column:status;not null;index" json:"status"`
	Priority int    `gorm:"column:priority;not null" json:"priority"`
	// Insertion strategy: lesson_opener, mid_lesson_break, concept_transition.
	Strategy     string `gorm:"column:strategy" json:"strategy"`
	StealthLevel int    `gorm:"column:stealth_level;not null" json:"stealth_level"`

	RequestedAt  time.Time  `gorm:"column:requested_at;not null;index" json:"requested_at"`
	ScheduledFor *time.Time `gorm:"column:scheduled_for" json:"scheduled_for,omitempty"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	Success        *bool    `gorm:"column:success" json:"success,omitempty"`
	ResponseTimeMS *int     `gorm:"column:response_time_ms" json:"response_time_ms,omitempty"`

	// Lesson the ticket was ultimately shown in, plus free-form context.
	ShownInLessonID *uuid.UUID     `gorm:"type:uuid;column:shown_in_lesson_id" json:"shown_in_lesson_id,omitempty"`
	ContextData     datatypes.JSON `gorm:"column:context_data" json:"context_data,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StealthReview) TableName() string { return "stealth_review" }

// Active reports whether the ticket still occupies the per-(user, command)
// active slot.
func (s *StealthReview) Active() bool {
	switch s.Status {
	case StealthStatusQueued, StealthStatusScheduled, StealthStatusInProgress:
		return true
	}
	return false
}
