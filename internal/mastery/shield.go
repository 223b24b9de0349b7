package mastery

import (
	"time"

	"github.com/yungbote/shellmastery-backend/internal/types"
)

// Shield tiers, in ascending order of retention earned.
const (
	TierNone     = "none"
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// Tier evaluates the retention shield for a record: the base tier comes from
// how long ago the skill was last answered correctly, then the tier is
// downgraded one step at a time while the current decayed quality does not
// back it up. Quality is judged on the unshielded decay so the shield cannot
// justify itself.
//
// Shields never change the decay formula. Policy layers (gate blocking,
// stealth insertion) consult Protected to decide whether to spare a decaying
// skill; the only numeric effect is the strength-factor bonus.
func (e *Engine) Tier(rec *types.CommandMastery, now time.Time) string {
	if rec.LastCorrectAt == nil {
		return TierNone
	}

	elapsed := e.elapsedDays(rec, now)
	score := e.decayed(rec.ProficiencyScore, elapsed, e.StrengthFactor(rec, false))
	if score < e.cfg.RiskThreshold {
		return TierNone
	}

	ageDays := now.Sub(*rec.LastCorrectAt).Hours() / 24
	tier := TierBronze
	switch {
	case ageDays >= 90:
		tier = TierPlatinum
	case ageDays >= 30:
		tier = TierGold
	case ageDays >= 7:
		tier = TierSilver
	}

	for tier != TierBronze && score < e.qualityFor(tier) {
		tier = downgrade(tier)
	}
	return tier
}

// Protected reports whether any shield tier is active.
func (e *Engine) Protected(rec *types.CommandMastery, now time.Time) bool {
	return e.Tier(rec, now) != TierNone
}

func (e *Engine) qualityFor(tier string) float64 {
	switch tier {
	case TierPlatinum:
		return e.cfg.PlatinumQuality
	case TierGold:
		return e.cfg.GoldQuality
	case TierSilver:
		return e.cfg.SilverQuality
	default:
		return 0
	}
}

func downgrade(tier string) string {
	switch tier {
	case TierPlatinum:
		return TierGold
	case TierGold:
		return TierSilver
	default:
		return TierBronze
	}
}
