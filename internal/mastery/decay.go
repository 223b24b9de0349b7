package mastery

import (
	"math"
	"time"

	"github.com/yungbote/shellmastery-backend/internal/types"
)

// Risk levels for a decayed score.
const (
	RiskSafe     = "safe"
	RiskWatch    = "watch"
	RiskAtRisk   = "risk"
	RiskCritical = "critical"
)

// CurvePoint is one day of a projected decay curve.
type CurvePoint struct {
	Day        int     `json:"day"`
	Score      float64 `json:"score"`
	Projection bool    `json:"is_projection"`
	RiskLevel  string  `json:"risk_level"`
}

// ReviewTiming is the engine's recommendation for when to review next.
type ReviewTiming struct {
	Urgency string `json:"urgency"`
	Days    int    `json:"days"`
	Reason  string `json:"reason"`
}

// Engine derives the currently effective score of a record from its stored
// proficiency and the time elapsed since it was last reinforced. It is pure:
// all methods are read-only over the record.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config { return e.cfg }

// StrengthFactor is the memory stability used in the forgetting curve:
// a base constant plus bonuses for context variety, historical success rate,
// and an active shield.
func (e *Engine) StrengthFactor(rec *types.CommandMastery, shielded bool) float64 {
	s := e.cfg.BaseStrengthFactor
	s += float64(len(rec.ContextList())) * e.cfg.ContextBonus
	s += rec.SuccessRate() * e.cfg.SuccessBonus
	if shielded {
		s += e.cfg.ShieldBonus
	}
	return s
}

// CurrentScore returns the decayed score as of now. A record that was never
// practiced is returned as stored (zero for a fresh record). Shield
// eligibility is judged on the unshielded decay, then the shield bonus slows
// the final computation for protected records.
func (e *Engine) CurrentScore(rec *types.CommandMastery, now time.Time) float64 {
	return e.scoreAt(rec, now, 0)
}

// Curve projects the decayed score for each day in [0, days]. Day 0 extends
// the elapsed time by nothing and therefore always equals CurrentScore; day d
// adds d days on top of the time already elapsed.
func (e *Engine) Curve(rec *types.CommandMastery, now time.Time, days int) []CurvePoint {
	curve := make([]CurvePoint, 0, days+1)
	for d := 0; d <= days; d++ {
		score := e.scoreAt(rec, now, float64(d))
		curve = append(curve, CurvePoint{
			Day:        d,
			Score:      score,
			Projection: d > 0,
			RiskLevel:  e.RiskLevel(score),
		})
	}
	return curve
}

// PredictBreach returns the smallest day offset within the horizon at which
// the projected score falls below threshold. ok is false when the score stays
// at or above threshold for the whole horizon.
func (e *Engine) PredictBreach(rec *types.CommandMastery, now time.Time, threshold float64, horizonDays int) (day int, ok bool) {
	for d := 0; d <= horizonDays; d++ {
		if e.scoreAt(rec, now, float64(d)) < threshold {
			return d, true
		}
	}
	return 0, false
}

// SuggestReviewTiming recommends when to schedule the next review from the
// current risk level and the projected threshold breaches.
func (e *Engine) SuggestReviewTiming(rec *types.CommandMastery, now time.Time) ReviewTiming {
	score := e.CurrentScore(rec, now)
	switch e.RiskLevel(score) {
	case RiskCritical:
		return ReviewTiming{Urgency: "immediate", Days: 0, Reason: "score below 50, immediate review required"}
	case RiskAtRisk:
		return ReviewTiming{Urgency: "high", Days: 1, Reason: "score below 70, review within 24 hours"}
	case RiskWatch:
		days := 3
		if d, ok := e.PredictBreach(rec, now, e.cfg.WatchThreshold, 30); ok && d/2 < days {
			days = d / 2
		}
		return ReviewTiming{Urgency: "medium", Days: days, Reason: "preventive review recommended"}
	default:
		days := 7
		if d, ok := e.PredictBreach(rec, now, 80, 30); ok {
			if scaled := int(math.Round(float64(d) * 0.7)); scaled < days {
				days = scaled
			}
		}
		return ReviewTiming{Urgency: "low", Days: days, Reason: "maintenance review"}
	}
}

// RiskLevel classifies a decayed score.
func (e *Engine) RiskLevel(score float64) string {
	switch {
	case score >= e.cfg.SafeThreshold:
		return RiskSafe
	case score >= e.cfg.WatchThreshold:
		return RiskWatch
	case score >= e.cfg.RiskThreshold:
		return RiskAtRisk
	default:
		return RiskCritical
	}
}

// scoreAt computes the decayed score extraDays beyond now.
func (e *Engine) scoreAt(rec *types.CommandMastery, now time.Time, extraDays float64) float64 {
	elapsed := e.elapsedDays(rec, now) + extraDays
	if elapsed <= 0 {
		return rec.ProficiencyScore
	}
	shielded := e.Tier(rec, now) != TierNone
	return e.decayed(rec.ProficiencyScore, elapsed, e.StrengthFactor(rec, shielded))
}

// decayed applies the forgetting curve to a stored score after elapsed days.
// Only the portion above the muscle-memory floor erodes, and the erosion is
// damped, so the score asymptotically settles just above the floor instead of
// crashing onto it.
func (e *Engine) decayed(score, elapsedDays, strength float64) float64 {
	if elapsedDays <= 0 {
		return score
	}
	above := score - e.cfg.MuscleMemoryFloor
	if above <= 0 {
		return score
	}
	retention := math.Exp(-elapsedDays / strength)
	return e.cfg.MuscleMemoryFloor + above*(1-e.cfg.FloorDamping*(1-retention))
}

// elapsedDays measures time since the record last had its effective score
// anchored: the most recent of last practice and last applied decay. Anchoring
// at applied decay keeps the periodic decay job idempotent, a second run in
// the same window sees no new elapsed time.
func (e *Engine) elapsedDays(rec *types.CommandMastery, now time.Time) float64 {
	anchor := rec.LastPracticedAt
	if rec.DecayAppliedAt != nil && (anchor == nil || rec.DecayAppliedAt.After(*anchor)) {
		anchor = rec.DecayAppliedAt
	}
	if anchor == nil {
		return 0
	}
	return now.Sub(*anchor).Hours() / 24
}
