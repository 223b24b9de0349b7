package types

import (
	"encoding/json"
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CommandMastery is the per (user, canonical command) mastery record.
// ProficiencyScore is the undecayed, attempt-driven strength: 100 marks the
// mastery line, values above it (up to the configured ceiling) are
// over-learning headroom. The score is only ever recomputed by the mastery
// calculator; the decay engine derives the currently effective score from it
// without owning the column.
type CommandMastery struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_command,unique,priority:1" json:"user_id"`
	User             *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CanonicalCommand string     `gorm:"column:canonical_command;not null;index:idx_user_command,unique,priority:2" json:"canonical_command"`
	CommandCategory  string     `gorm:"column:command_category;index" json:"command_category"`

	ProficiencyScore float64 `gorm:"column:proficiency_score;not null" json:"proficiency_score"`

	TotalAttempts        int `gorm:"column:total_attempts;not null" json:"total_attempts"`
	SuccessfulAttempts   int `gorm:"column:successful_attempts;not null" json:"successful_attempts"`
	ConsecutiveSuccesses int `gorm:"column:consecutive_successes;not null" json:"consecutive_successes"`
	ConsecutiveFailures  int `gorm:"column:consecutive_failures;not null" json:"consecutive_failures"`

	// Distinct practice-context labels seen so far (JSON string array).
	ContextsSeen datatypes.JSON `gorm:"column:contexts_seen" json:"contexts_seen,omitempty"`

	HintsUsedLast int  `gorm:"column:hints_used_last;not null" json:"hints_used_last"`
	SawAnswerLast bool `gorm:"column:saw_answer_last;not null" json:"saw_answer_last"`

	LastPracticedAt *time.Time `gorm:"column:last_practiced_at;index" json:"last_practiced_at,omitempty"`
	LastCorrectAt   *time.Time `gorm:"column:last_correct_at" json:"last_correct_at,omitempty"`
	FirstMasteredAt *time.Time `gorm:"column:first_mastered_at" json:"first_mastered_at,omitempty"`
	DecayAppliedAt  *time.Time `gorm:"column:decay_applied_at" json:"decay_applied_at,omitempty"`

	// Optimistic concurrency token: attempt recording is read-modify-write
	// over counters and streaks, so concurrent updates must not interleave.
	Version int `gorm:"column:version;not null" json:"version"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CommandMastery) TableName() string { return "command_mastery" }

// ContextList decodes ContextsSeen into a string slice. Malformed or empty
// JSON yields an empty list.
func (m *CommandMastery) ContextList() []string {
	if len(m.ContextsSeen) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(m.ContextsSeen, &out); err != nil {
		return nil
	}
	return out
}

// AddContext appends a context label to ContextsSeen if not already present.
func (m *CommandMastery) AddContext(label string) {
	if label == "" {
		return
	}
	list := m.ContextList()
	for _, c := range list {
		if c == label {
			return
		}
	}
	raw, err := json.Marshal(append(list, label))
	if err != nil {
		return
	}
	m.ContextsSeen = datatypes.JSON(raw)
}

// SuccessRate is successful over total attempts, 0 when unattempted.
func (m *CommandMastery) SuccessRate() float64 {
	if m.TotalAttempts == 0 {
		return 0
	}
	return float64(m.SuccessfulAttempts) / float64(m.TotalAttempts)
}
