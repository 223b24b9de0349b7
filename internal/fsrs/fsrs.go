// Package fsrs implements an FSRS-4.5-family spaced repetition scheduler:
// per-item difficulty and stability evolve on every graded review, and the
// next interval targets a fixed retention probability.
package fsrs

import (
	"fmt"
	"math"
	"time"
)

// Grade is the review outcome, 1-4 as in FSRS.
type Grade int

const (
	GradeAgain Grade = iota + 1 // complete failure to recall
	GradeHard                   // recalled with significant difficulty
	GradeGood                   // recalled with moderate effort
	GradeEasy                   // recalled instantly
)

func (g Grade) String() string {
	switch g {
	case GradeAgain:
		return "again"
	case GradeHard:
		return "hard"
	case GradeGood:
		return "good"
	case GradeEasy:
		return "easy"
	default:
		return fmt.Sprintf("grade(%d)", int(g))
	}
}

// ParseGrade maps the wire names back to grades.
func ParseGrade(s string) (Grade, error) {
	switch s {
	case "again":
		return GradeAgain, nil
	case "hard":
		return GradeHard, nil
	case "good":
		return GradeGood, nil
	case "easy":
		return GradeEasy, nil
	default:
		return 0, fmt.Errorf("invalid grade %q", s)
	}
}

// Params are the scheduler constants. DefaultParams carries the FSRS-4.5
// community-optimized values, with one deviation: the easy stability factor
// is raised above the good factor so that stability strictly grows on easy
// reviews (the published 0.94 would shrink it, which breaks interval growth).
type Params struct {
	InitialStability  [4]float64 // per grade, Again..Easy
	InitialDifficulty float64

	DifficultyStep float64 // per-review difficulty drift scale

	StabilityFactorFailure float64
	StabilityScaling       [4]float64 // success growth factor per grade

	TargetRetention float64
	MaximumInterval float64 // days
	EasyBonus       float64
	HardPenalty     float64
}

func DefaultParams() Params {
	return Params{
		InitialStability:       [4]float64{0.4, 0.6, 2.4, 5.8},
		InitialDifficulty:      4.93,
		DifficultyStep:         0.1,
		StabilityFactorFailure: 0.27,
		StabilityScaling:       [4]float64{0.35, 1.02, 1.70, 2.30},
		TargetRetention:        0.90,
		MaximumInterval:        365,
		EasyBonus:              1.3,
		HardPenalty:            0.8,
	}
}

// Card is the scheduling state of one reviewable item. A zero Card (Reps 0)
// is a new item and is seeded from the params on first review.
type Card struct {
	Difficulty   float64
	Stability    float64
	ElapsedDays  float64
	Reps         int
	Lapses       int
	LastReviewAt time.Time
}

// Result is the updated state after a graded review.
type Result struct {
	Difficulty   float64
	Stability    float64
	IntervalDays float64
	DueAt        time.Time
	Reps         int
	Lapses       int
	LastGrade    Grade
	LastReviewAt time.Time
}

type Scheduler struct {
	params Params
}

func NewScheduler(params Params) *Scheduler {
	return &Scheduler{params: params}
}

// Schedule applies one graded review and returns the next state. DueAt is
// always strictly after now: a failed recall comes back in minutes, a
// successful one in days bounded by the per-grade minimums and the maximum
// interval.
func (s *Scheduler) Schedule(card Card, grade Grade, now time.Time) (Result, error) {
	if grade < GradeAgain || grade > GradeEasy {
		return Result{}, fmt.Errorf("invalid grade %d", int(grade))
	}

	if card.Reps == 0 {
		card.Difficulty = s.params.InitialDifficulty
		card.Stability = s.params.InitialStability[grade-1]
		card.ElapsedDays = 0
	}

	retention := s.PredictRecall(card.Stability, card.ElapsedDays)
	difficulty := s.nextDifficulty(card.Difficulty, grade)
	stability := s.nextStability(card.Stability, difficulty, grade, retention)
	interval := s.nextInterval(stability, grade)

	lapses := card.Lapses
	if grade == GradeAgain {
		lapses++
	}

	return Result{
		Difficulty:   round2(difficulty),
		Stability:    round2(stability),
		IntervalDays: interval,
		DueAt:        now.Add(days(interval)),
		Reps:         card.Reps + 1,
		Lapses:       lapses,
		LastGrade:    grade,
		LastReviewAt: now,
	}, nil
}

// PredictRecall is the forgetting curve: probability of successful recall
// after elapsedDays without review.
func (s *Scheduler) PredictRecall(stability, elapsedDays float64) float64 {
	if elapsedDays <= 0 || stability <= 0 {
		return 1.0
	}
	return math.Exp(-elapsedDays / stability)
}

// OptimalInterval is the delay at which recall probability equals the target
// retention.
func (s *Scheduler) OptimalInterval(stability float64) float64 {
	return stability * 9 * (1/s.params.TargetRetention - 1)
}

// RelearnStability is the stability assigned to an item whose schedule has
// lapsed for so long that the accumulated stability can no longer be trusted.
func (s *Scheduler) RelearnStability() float64 {
	return s.params.InitialStability[GradeGood-1]
}

// GradeFromOutcome derives a grade from a review outcome: incorrect is
// always again; a correct answer grades by response latency.
func GradeFromOutcome(success bool, responseTime time.Duration) Grade {
	if !success {
		return GradeAgain
	}
	switch {
	case responseTime > 0 && responseTime <= 5*time.Second:
		return GradeEasy
	case responseTime > 15*time.Second:
		return GradeHard
	default:
		return GradeGood
	}
}

// nextDifficulty drifts difficulty toward the grade: failures push it up,
// easy reviews ease it down. Clamped to [1, 10].
func (s *Scheduler) nextDifficulty(difficulty float64, grade Grade) float64 {
	mult := [4]float64{5.0, 1.2, 0.8, 0.5}[grade-1]
	d := difficulty + float64(GradeGood-grade)*mult*s.params.DifficultyStep
	return clamp(d, 1, 10)
}

func (s *Scheduler) nextStability(stability, difficulty float64, grade Grade, retention float64) float64 {
	if grade == GradeAgain {
		// Lapse: stability collapses, harder items collapse further.
		return stability * s.params.StabilityFactorFailure * (11 - difficulty) / 10
	}
	// Success: growth scales with item ease, diminishes with accumulated
	// stability, and is amplified when the item was closer to forgotten.
	factor := s.params.StabilityScaling[grade-1]
	growth := math.Exp(0.1*(11-difficulty)) * math.Pow(stability, -0.3) * (factor - 1) * (2 - retention)
	return stability * (1 + growth)
}

func (s *Scheduler) nextInterval(stability float64, grade Grade) float64 {
	if grade == GradeAgain {
		return 0.01 // relearning step, about 15 minutes
	}

	interval := stability * 9 * (1/s.params.TargetRetention - 1)
	switch grade {
	case GradeHard:
		interval = math.Max(interval, 1) * s.params.HardPenalty
	case GradeGood:
		interval = math.Max(interval, 2)
	case GradeEasy:
		interval = math.Max(interval, 4) * s.params.EasyBonus
	}
	return clamp(interval, 0.01, s.params.MaximumInterval)
}

func days(d float64) time.Duration {
	return time.Duration(d * 24 * float64(time.Hour))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
