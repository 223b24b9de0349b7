package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/apierr"
	"github.com/yungbote/shellmastery-backend/internal/cache"
	"github.com/yungbote/shellmastery-backend/internal/command"
	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/mastery"
	"github.com/yungbote/shellmastery-backend/internal/repos"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

const autoQueueFailureThreshold = 3

// AttemptInput is one practice attempt against a command as reported by the
// client.
type AttemptInput struct {
	Command       string     `json:"command"`
	Success       bool       `json:"success"`
	AttemptNumber int        `json:"attempt_number"`
	TimeTakenMS   int        `json:"time_taken_ms"`
	HintsUsed     int        `json:"hints_used"`
	SawAnswer     bool       `json:"saw_answer"`
	Context       string     `json:"context"`
	LessonID      *uuid.UUID `json:"lesson_id,omitempty"`
}

// AttemptResult reports the record state after an attempt was applied.
type AttemptResult struct {
	CanonicalCommand string  `json:"canonical_command"`
	ProficiencyScore float64 `json:"proficiency_score"`
	CurrentScore     float64 `json:"current_score"`
	RiskLevel        string  `json:"risk_level"`
	ShieldTier       string  `json:"shield_tier"`
	NewlyMastered    bool    `json:"newly_mastered"`
	StealthQueued    bool    `json:"stealth_queued"`
}

// CommandStatus is the read-side view of one mastery record.
type CommandStatus struct {
	CanonicalCommand string     `json:"canonical_command"`
	Category         string     `json:"category"`
	Label            string     `json:"label"`
	ProficiencyScore float64    `json:"proficiency_score"`
	CurrentScore     float64    `json:"current_score"`
	RiskLevel        string     `json:"risk_level"`
	ShieldTier       string     `json:"shield_tier"`
	TotalAttempts    int        `json:"total_attempts"`
	SuccessRate      float64    `json:"success_rate"`
	ContextsSeen     []string   `json:"contexts_seen"`
	LastPracticedAt  *time.Time `json:"last_practiced_at,omitempty"`
	FirstMasteredAt  *time.Time `json:"first_mastered_at,omitempty"`
}

// MasteryStats aggregates a user's mastery records.
type MasteryStats struct {
	TotalCommands    int            `json:"total_commands"`
	MasteredCommands int            `json:"mastered_commands"`
	AverageScore     float64        `json:"average_score"`
	ByRiskLevel      map[string]int `json:"by_risk_level"`
	ByCategory       map[string]int `json:"by_category"`
}

type MasteryTrackingService interface {
	RecordAttempt(ctx context.Context, userID uuid.UUID, in AttemptInput) (*AttemptResult, error)
	CommandStatus(ctx context.Context, userID uuid.UUID, rawCommand string) (*CommandStatus, error)
	ListStatuses(ctx context.Context, userID uuid.UUID) ([]*CommandStatus, error)
	Stats(ctx context.Context, userID uuid.UUID) (*MasteryStats, error)
}

type masteryTrackingService struct {
	db          *gorm.DB
	log         *logger.Logger
	canon       *command.Canonicalizer
	calculator  *mastery.Calculator
	engine      *mastery.Engine
	masteryRepo repos.CommandMasteryRepo
	eventRepo   repos.UserEventRepo
	stealth     StealthReviewService
	atRisk      *cache.AtRiskCache
}

func NewMasteryTrackingService(
	db *gorm.DB,
	log *logger.Logger,
	canon *command.Canonicalizer,
	calculator *mastery.Calculator,
	engine *mastery.Engine,
	masteryRepo repos.CommandMasteryRepo,
	eventRepo repos.UserEventRepo,
	stealth StealthReviewService,
	atRisk *cache.AtRiskCache,
) MasteryTrackingService {
	return &masteryTrackingService{
		db:          db,
		log:         log.With("service", "MasteryTrackingService"),
		canon:       canon,
		calculator:  calculator,
		engine:      engine,
		masteryRepo: masteryRepo,
		eventRepo:   eventRepo,
		stealth:     stealth,
		atRisk:      atRisk,
	}
}

// RecordAttempt canonicalizes the command, applies the attempt to the mastery
// record under optimistic concurrency, and fires the side effects: events,
// shield award, auto stealth enqueue after repeated failures, cache
// invalidation.
func (s *masteryTrackingService) RecordAttempt(ctx context.Context, userID uuid.UUID, in AttemptInput) (*AttemptResult, error) {
	canonical := s.canon.Canonicalize(in.Command)
	if canonical == "" {
		return nil, apierr.Invalid("invalid_command", "command %q is not recognized", in.Command)
	}
	if in.AttemptNumber < 1 {
		in.AttemptNumber = 1
	}

	now := time.Now().UTC()
	att := mastery.Attempt{
		AttemptNumber: in.AttemptNumber,
		TimeTakenMS:   in.TimeTakenMS,
		HintsUsed:     in.HintsUsed,
		SawAnswer:     in.SawAnswer,
		Context:       in.Context,
	}

	var (
		rec           *types.CommandMastery
		newlyMastered bool
	)
	// Read-modify-write under a version check; one reread on a stale token
	// before giving up.
	for attempt := 0; ; attempt++ {
		var err error
		rec, err = s.masteryRepo.GetOrCreate(ctx, nil, userID, canonical, s.canon.Category(canonical))
		if err != nil {
			return nil, fmt.Errorf("Failed to load mastery record: %w", err)
		}

		hadMastered := rec.FirstMasteredAt != nil
		if in.Success {
			s.calculator.UpdateOnSuccess(rec, att, now)
		} else {
			s.calculator.UpdateOnFailure(rec, att, now)
		}
		newlyMastered = !hadMastered && rec.FirstMasteredAt != nil

		ok, err := s.masteryRepo.UpdateWithVersion(ctx, nil, rec)
		if err != nil {
			return nil, fmt.Errorf("Failed to persist mastery record: %w", err)
		}
		if ok {
			break
		}
		if attempt >= 1 {
			return nil, apierr.Conflict("mastery_conflict", "concurrent update on %q", canonical)
		}
	}

	_ = s.eventRepo.Append(ctx, nil, userID, in.LessonID, repos.EventAttemptRecorded, map[string]interface{}{
		"canonical_command": canonical,
		"success":           in.Success,
		"attempt_number":    in.AttemptNumber,
		"proficiency_score": rec.ProficiencyScore,
	})
	if newlyMastered {
		_ = s.eventRepo.Append(ctx, nil, userID, in.LessonID, repos.EventShieldAwarded, map[string]interface{}{
			"canonical_command": canonical,
			"shield_tier":       s.engine.Tier(rec, now),
		})
	}

	stealthQueued := false
	if !in.Success && rec.ConsecutiveFailures >= autoQueueFailureThreshold {
		queued, err := s.stealth.Queue(ctx, userID, canonical, 8, StrategyMidLessonBreak)
		if err != nil {
			s.log.Warn("Failed to auto-queue stealth review", "command", canonical, "error", err)
		} else {
			stealthQueued = queued
		}
	}

	s.atRisk.Invalidate(ctx, userID)

	current := s.engine.CurrentScore(rec, now)
	return &AttemptResult{
		CanonicalCommand: canonical,
		ProficiencyScore: rec.ProficiencyScore,
		CurrentScore:     current,
		RiskLevel:        s.engine.RiskLevel(current),
		ShieldTier:       s.engine.Tier(rec, now),
		NewlyMastered:    newlyMastered,
		StealthQueued:    stealthQueued,
	}, nil
}

func (s *masteryTrackingService) CommandStatus(ctx context.Context, userID uuid.UUID, rawCommand string) (*CommandStatus, error) {
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
	return s.statusOf(rec, time.Now().UTC()), nil
}

func (s *masteryTrackingService) ListStatuses(ctx context.Context, userID uuid.UUID) ([]*CommandStatus, error) {
	recs, err := s.masteryRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("Failed to list mastery records: %w", err)
	}
	now := time.Now().UTC()
	out := make([]*CommandStatus, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.statusOf(rec, now))
	}
	return out, nil
}

func (s *masteryTrackingService) Stats(ctx context.Context, userID uuid.UUID) (*MasteryStats, error) {
	recs, err := s.masteryRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("Failed to list mastery records: %w", err)
	}

	now := time.Now().UTC()
	stats := &MasteryStats{
		ByRiskLevel: map[string]int{},
		ByCategory:  map[string]int{},
	}
	var sum float64
	for _, rec := range recs {
		stats.TotalCommands++
		if rec.FirstMasteredAt != nil {
			stats.MasteredCommands++
		}
		current := s.engine.CurrentScore(rec, now)
		sum += current
		stats.ByRiskLevel[s.engine.RiskLevel(current)]++
		if rec.CommandCategory != "" {
			stats.ByCategory[rec.CommandCategory]++
		}
	}
	if stats.TotalCommands > 0 {
		stats.AverageScore = round1(sum / float64(stats.TotalCommands))
	}
	return stats, nil
}

func (s *masteryTrackingService) statusOf(rec *types.CommandMastery, now time.Time) *CommandStatus {
	current := s.engine.CurrentScore(rec, now)
	return &CommandStatus{
		CanonicalCommand: rec.CanonicalCommand,
		Category:         rec.CommandCategory,
		Label:            s.canon.Label(rec.CanonicalCommand),
		ProficiencyScore: rec.ProficiencyScore,
		CurrentScore:     current,
		RiskLevel:        s.engine.RiskLevel(current),
		ShieldTier:       s.engine.Tier(rec, now),
		TotalAttempts:    rec.TotalAttempts,
		SuccessRate:      rec.SuccessRate(),
		ContextsSeen:     rec.ContextList(),
		LastPracticedAt:  rec.LastPracticedAt,
		FirstMasteredAt:  rec.FirstMasteredAt,
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
