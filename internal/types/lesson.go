package types

import (
	"encoding/json"
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lesson is a read-only projection of the course content system: the engine
// consumes the prerequisite command set and never writes lesson rows.
type Lesson struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug  string    `gorm:"column:slug;uniqueIndex" json:"slug"`
	Title string    `gorm:"column:title;not null" json:"title"`

	// Canonical commands the learner must retain before progressing past
	// this lesson (JSON string array).
	RequiredCommands datatypes.JSON `gorm:"column:required_commands" json:"required_commands,omitempty"`

	SequenceOrder int `gorm:"column:sequence_order;not null" json:"sequence_order"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }

// RequiredCommandList decodes RequiredCommands into a string slice.
func (l *Lesson) RequiredCommandList() []string {
	if len(l.RequiredCommands) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(l.RequiredCommands, &out); err != nil {
		return nil
	}
	return out
}
