package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/apierr"
	"github.com/yungbote/shellmastery-backend/internal/cache"
	"github.com/yungbote/shellmastery-backend/internal/command"
	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/mastery"
	"github.com/yungbote/shellmastery-backend/internal/repos"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

const (
	decayBatchSize   = 500
	decayConcurrency = 8

	// A drop below this is float noise from the batch's wall-clock instant,
	// not elapsed decay, and is never written.
	decayWriteTolerance = 0.01
)

// DecayProjection is the full decay picture for one command: current state,
// the projected curve, and the recommended review timing.
type DecayProjection struct {
	CanonicalCommand string               `json:"canonical_command"`
	StoredScore      float64              `json:"stored_score"`
	CurrentScore     float64              `json:"current_score"`
	RiskLevel        string               `json:"risk_level"`
	ShieldTier       string               `json:"shield_tier"`
	Curve            []mastery.CurvePoint `json:"curve"`
	BreachDay        *int                 `json:"breach_day,omitempty"`
	ReviewTiming     mastery.ReviewTiming `json:"review_timing"`
}

// DecayBatchReport summarizes one run of the periodic decay job.
type DecayBatchReport struct {
	Scanned int `json:"scanned"`
	Decayed int `json:"decayed"`
}

type DecayService interface {
	CurrentScore(ctx context.Context, userID uuid.UUID, rawCommand string) (float64, string, error)
	DecayCurve(ctx context.Context, userID uuid.UUID, rawCommand string, horizonDays int) (*DecayProjection, error)
	CommandsAtRisk(ctx context.Context, userID uuid.UUID) ([]cache.AtRiskEntry, error)
	ApplyDecayBatch(ctx context.Context) (*DecayBatchReport, error)
}

type decayService struct {
	db          *gorm.DB
	log         *logger.Logger
	canon       *command.Canonicalizer
	engine      *mastery.Engine
	masteryRepo repos.CommandMasteryRepo
	eventRepo   repos.UserEventRepo
	atRisk      *cache.AtRiskCache
}

func NewDecayService(
	db *gorm.DB,
	log *logger.Logger,
	canon *command.Canonicalizer,
	engine *mastery.Engine,
	masteryRepo repos.CommandMasteryRepo,
	eventRepo repos.UserEventRepo,
	atRisk *cache.AtRiskCache,
) DecayService {
	return &decayService{
		db:          db,
		log:         log.With("service", "DecayService"),
		canon:       canon,
		engine:      engine,
		masteryRepo: masteryRepo,
		eventRepo:   eventRepo,
		atRisk:      atRisk,
	}
}

func (s *decayService) CurrentScore(ctx context.Context, userID uuid.UUID, rawCommand string) (float64, string, error) {
	rec, err := s.load(ctx, userID, rawCommand)
	if err != nil {
		return 0, "", err
	}
	score := s.engine.CurrentScore(rec, time.Now().UTC())
	return score, s.engine.RiskLevel(score), nil
}

// DecayCurve projects the forgetting curve over the horizon. Day 0 of the
// curve is the current effective score.
func (s *decayService) DecayCurve(ctx context.Context, userID uuid.UUID, rawCommand string, horizonDays int) (*DecayProjection, error) {
	rec, err := s.load(ctx, userID, rawCommand)
	if err != nil {
		return nil, err
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}

	now := time.Now().UTC()
	current := s.engine.CurrentScore(rec, now)
	proj := &DecayProjection{
		CanonicalCommand: rec.CanonicalCommand,
		StoredScore:      rec.ProficiencyScore,
		CurrentScore:     current,
		RiskLevel:        s.engine.RiskLevel(current),
		ShieldTier:       s.engine.Tier(rec, now),
		Curve:            s.engine.Curve(rec, now, horizonDays),
		ReviewTiming:     s.engine.SuggestReviewTiming(rec, now),
	}
	if day, ok := s.engine.PredictBreach(rec, now, s.engine.Config().WatchThreshold, horizonDays); ok {
		proj.BreachDay = &day
	}
	return proj, nil
}

// CommandsAtRisk lists the user's commands whose effective score has fallen
// below the watch threshold, most decayed first. Results are served from
// redis when the cache holds a fresh copy.
func (s *decayService) CommandsAtRisk(ctx context.Context, userID uuid.UUID) ([]cache.AtRiskEntry, error) {
	if entries, ok := s.atRisk.Get(ctx, userID); ok {
		return entries, nil
	}

	recs, err := s.masteryRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("Failed to list mastery records: %w", err)
	}

	now := time.Now().UTC()
	entries := make([]cache.AtRiskEntry, 0)
	for _, rec := range recs {
		if rec.LastPracticedAt == nil {
			continue
		}
		score := s.engine.CurrentScore(rec, now)
		if score >= s.engine.Config().WatchThreshold {
			continue
		}
		entries = append(entries, cache.AtRiskEntry{
			CanonicalCommand: rec.CanonicalCommand,
			CurrentScore:     score,
			RiskLevel:        s.engine.RiskLevel(score),
			DaysSinceUse:     math.Floor(now.Sub(*rec.LastPracticedAt).Hours() / 24),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CurrentScore < entries[j].CurrentScore
	})

	s.atRisk.Set(ctx, userID, entries)
	return entries, nil
}

// ApplyDecayBatch walks all practiced records and persists the decayed score
// for any record whose effective score dropped since the last anchor. Stamping
// decay_applied_at moves the decay anchor forward, so an immediate re-run
// observes no new elapsed time and writes nothing. Each page fans out over a
// bounded worker group; records are independent rows, so the writes do not
// contend.
func (s *decayService) ApplyDecayBatch(ctx context.Context) (*DecayBatchReport, error) {
	report := &DecayBatchReport{}
	now := time.Now().UTC()

	var mu sync.Mutex
	for offset := 0; ; offset += decayBatchSize {
		recs, err := s.masteryRepo.ListPracticed(ctx, nil, decayBatchSize, offset)
		if err != nil {
			return report, fmt.Errorf("Failed to list practiced records: %w", err)
		}
		if len(recs) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(decayConcurrency)
		for _, rec := range recs {
			rec := rec
			g.Go(func() error {
				decayed := s.engine.CurrentScore(rec, now)
				mu.Lock()
				report.Scanned++
				mu.Unlock()
				if rec.ProficiencyScore-decayed < decayWriteTolerance {
					return nil
				}
				ok, err := s.masteryRepo.ApplyDecay(gctx, nil, rec.ID, rec.Version, decayed, now)
				if err != nil {
					return fmt.Errorf("Failed to apply decay to %s: %w", rec.ID, err)
				}
				if !ok {
					// An attempt landed after the read; its fresher score wins.
					return nil
				}
				mu.Lock()
				report.Decayed++
				mu.Unlock()
				_ = s.eventRepo.Append(gctx, nil, rec.UserID, nil, repos.EventDecayApplied, map[string]interface{}{
					"canonical_command": rec.CanonicalCommand,
					"previous_score":    rec.ProficiencyScore,
					"decayed_score":     decayed,
				})
				s.atRisk.Invalidate(gctx, rec.UserID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}

		if len(recs) < decayBatchSize {
			break
		}
	}

	s.log.Info("Applied decay batch", "scanned", report.Scanned, "decayed", report.Decayed)
	return report, nil
}

func (s *decayService) load(ctx context.Context, userID uuid.UUID, rawCommand string) (*types.CommandMastery, error) {
	canonical := s.canon.Canonicalize(rawCommand)
	if canonical == "" {
		return nil, apierr.Invalid("invalid_command", "command %q is not recognized", rawCommand)
	}
	rec, err := s.masteryRepo.Get(ctx, nil, userID, canonical)
	if err != nil {
		return nil, fmt.Errorf("Failed to load mastery record: %w", err)
	}
	if rec == nil {
		return nil, apierr.NotFound("mastery_not_found", "no mastery record for command %q", canonical)
	}
	return rec, nil
}
