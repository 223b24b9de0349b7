package mastery

import (
	"time"

	"github.com/yungbote/shellmastery-backend/internal/types"
)

// Attempt describes a single practice attempt the way it arrived from the
// caller: which try it was within the exercise, how the learner got there.
type Attempt struct {
	AttemptNumber int
	TimeTakenMS   int
	HintsUsed     int
	SawAnswer     bool
	Context       string
}

// Calculator is the only writer of ProficiencyScore and the attempt counters.
// It performs no I/O; callers persist the mutated record.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// UpdateOnSuccess applies a successful attempt to the record.
//
// The boost is capped by how the success was earned: a first-try success can
// reach the mastery line outright, a second try caps at 75, a third at 65,
// and a success after revealing the answer is worth at most 15 points and
// cannot lift the score past the muscle-memory floor. A clean first-try
// success at or above the mastery line banks over-learning headroom instead.
func (c *Calculator) UpdateOnSuccess(rec *types.CommandMastery, att Attempt, now time.Time) {
	rec.TotalAttempts++
	rec.SuccessfulAttempts++
	rec.ConsecutiveSuccesses++
	rec.ConsecutiveFailures = 0
	rec.HintsUsedLast = att.HintsUsed
	rec.SawAnswerLast = att.SawAnswer
	rec.AddContext(att.Context)

	score := rec.ProficiencyScore
	clean := att.AttemptNumber <= 1 && att.HintsUsed == 0 && !att.SawAnswer

	if clean && score >= c.cfg.MasteryLine {
		score += c.cfg.OverlearnIncrement
	} else {
		score += c.boost(score, att)
	}
	rec.ProficiencyScore = clampScore(score, c.cfg.Ceiling)

	rec.LastPracticedAt = timePtr(now)
	rec.LastCorrectAt = timePtr(now)
	if rec.FirstMasteredAt == nil && rec.ProficiencyScore >= c.cfg.MasteryLine {
		rec.FirstMasteredAt = timePtr(now)
	}
}

// UpdateOnFailure applies a failed attempt: the score drops by a fraction
// that compounds with the failure streak, never below zero. LastCorrectAt is
// untouched.
func (c *Calculator) UpdateOnFailure(rec *types.CommandMastery, att Attempt, now time.Time) {
	rec.TotalAttempts++
	rec.ConsecutiveFailures++
	rec.ConsecutiveSuccesses = 0
	rec.HintsUsedLast = att.HintsUsed
	rec.SawAnswerLast = att.SawAnswer
	rec.AddContext(att.Context)

	penalty := c.PenaltyFraction(rec.ConsecutiveFailures)
	rec.ProficiencyScore = clampScore(rec.ProficiencyScore*(1-penalty), c.cfg.Ceiling)

	rec.LastPracticedAt = timePtr(now)
}

// PenaltyFraction maps a failure streak to the fraction of score lost:
// 10%, 20%, 35%, 50%, then 15 percentage points more per further failure,
// capped at 100%.
func (c *Calculator) PenaltyFraction(consecutiveFailures int) float64 {
	var p float64
	switch {
	case consecutiveFailures <= 1:
		p = 0.10
	case consecutiveFailures == 2:
		p = 0.20
	case consecutiveFailures == 3:
		p = 0.35
	default:
		p = 0.50 + 0.15*float64(consecutiveFailures-4)
	}
	if p > 1 {
		p = 1
	}
	return p
}

func (c *Calculator) boost(score float64, att Attempt) float64 {
	var limit float64
	base := -1.0 // negative means "up to the limit"
	switch {
	case att.SawAnswer:
		limit = c.cfg.MuscleMemoryFloor
		base = 15
	case att.AttemptNumber <= 1:
		limit = c.cfg.MasteryLine
	case att.AttemptNumber == 2:
		limit = 75
	default:
		limit = 65
	}

	room := limit - score
	if room <= 0 {
		return 0
	}
	if base >= 0 && base < room {
		return base
	}
	return room
}

func clampScore(score, ceiling float64) float64 {
	if score < 0 {
		return 0
	}
	if score > ceiling {
		return ceiling
	}
	return score
}

func timePtr(t time.Time) *time.Time { return &t }
