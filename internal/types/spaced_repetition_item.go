package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SpacedRepetitionItem holds FSRS scheduling state for one mastery record.
// Created on the first completed review; updated on every graded review
// after that. History is never deleted.
type SpacedRepetitionItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_user_sr_command,unique,priority:1" json:"user_id"`
	CanonicalCommand string          `gorm:"column:canonical_command;not null;index:idx_user_sr_command,unique,priority:2" json:"canonical_command"`
	MasteryID        uuid.UUID       `gorm:"type:uuid;not null" json:"mastery_id"`
	Mastery          *CommandMastery `gorm:"constraint:OnDelete:CASCADE;foreignKey:MasteryID;references:ID" json:"mastery,omitempty"`

	Difficulty   float64 `gorm:"column:difficulty;not null" json:"difficulty"`
	Stability    float64 `gorm:"column:stability;not null" json:"stability"`
	IntervalDays float64 `gorm:"column:interval_days;not null" json:"interval_days"`

	ReviewCount int    `gorm:"column:review_count;not null" json:"review_count"`
	LapseCount  int    `gorm:"column:lapse_count;not null" json:"lapse_count"`
	LastGrade   string `gorm:"column:last_grade" json:"last_grade"`

	DueAt        *time.Time `gorm:"column:due_at;index" json:"due_at,omitempty"`
	LastReviewAt *time.Time `gorm:"column:last_review_at" json:"last_review_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SpacedRepetitionItem) TableName() string { return "spaced_repetition_item" }
