package mastery

import (
	"testing"
	"time"

	"github.com/yungbote/shellmastery-backend/internal/types"
)

func shieldRecord(score float64, correctDaysAgo float64, now time.Time) *types.CommandMastery {
	rec := practicedRecord(score, 0, now)
	correct := now.Add(-time.Duration(correctDaysAgo * 24 * float64(time.Hour)))
	rec.LastCorrectAt = &correct
	return rec
}

func TestShieldTiers(t *testing.T) {
	e := NewEngine(DefaultConfig())
	now := time.Now()

	cases := []struct {
		name string
		rec  *types.CommandMastery
		want string
	}{
		{"no correct history", practicedRecord(90, 0, now), TierNone},
		{"recent correct earns bronze", shieldRecord(85, 3, now), TierBronze},
		{"two weeks retention earns silver", shieldRecord(95, 15, now), TierSilver},
		{"six weeks retention earns gold", shieldRecord(110, 45, now), TierGold},
		{"hundred days retention earns platinum", shieldRecord(120, 100, now), TierPlatinum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Tier(tc.rec, now); got != tc.want {
				t.Fatalf("tier = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestShieldQualityDowngrades(t *testing.T) {
	e := NewEngine(DefaultConfig())
	now := time.Now()

	// Retention age says gold, but the current score only supports silver.
	rec := shieldRecord(85, 45, now)
	if got := e.Tier(rec, now); got != TierSilver {
		t.Fatalf("tier = %q, want %q", got, TierSilver)
	}

	// Age says platinum, score supports only bronze.
	rec = shieldRecord(65, 100, now)
	if got := e.Tier(rec, now); got != TierBronze {
		t.Fatalf("tier = %q, want %q", got, TierBronze)
	}

	// Decayed below the risk threshold: no shield at all.
	rec = shieldRecord(45, 45, now)
	if got := e.Tier(rec, now); got != TierNone {
		t.Fatalf("tier = %q, want %q", got, TierNone)
	}
	if e.Protected(rec, now) {
		t.Fatal("sub-risk record must not be protected")
	}
}

func TestShieldCannotJustifyItself(t *testing.T) {
	e := NewEngine(DefaultConfig())
	now := time.Now()

	// A record whose shielded score would clear the silver bar but whose
	// unshielded score would not must be judged on the unshielded value.
	last := now.Add(-15 * 24 * time.Hour)
	rec := &types.CommandMastery{
		CanonicalCommand: "docker_run",
		ProficiencyScore: 100,
		LastPracticedAt:  &last,
		LastCorrectAt:    &last,
	}
	unshielded := e.decayed(rec.ProficiencyScore, 15, e.StrengthFactor(rec, false))
	if unshielded >= e.Config().SilverQuality {
		t.Skip("fixture no longer below silver quality")
	}
	if got := e.Tier(rec, now); got != TierBronze {
		t.Fatalf("tier = %q, want bronze via downgrade", got)
	}
}
