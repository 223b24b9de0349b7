package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GatePassage records that a learner cleared a lesson's remediation gate.
// One row per (user, lesson); re-marking an already-passed gate is a no-op.
type GatePassage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_user_lesson_gate,unique,priority:1" json:"user_id"`
	User     *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	LessonID uuid.UUID `gorm:"type:uuid;not null;index:idx_user_lesson_gate,unique,priority:2" json:"lesson_id"`
	Lesson   *Lesson   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`

	PassedAt            time.Time `gorm:"column:passed_at;not null" json:"passed_at"`
	WeakCommandsAtStart int       `gorm:"column:weak_commands_at_start;not null" json:"weak_commands_at_start"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GatePassage) TableName() string { return "gate_passage" }
