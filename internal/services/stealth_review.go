package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/apierr"
	"github.com/yungbote/shellmastery-backend/internal/fsrs"
	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/mastery"
	"github.com/yungbote/shellmastery-backend/internal/repos"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

// Insertion strategies for weaving a review into lesson flow.
const (
	StrategyLessonOpener      = "lesson_opener"
	StrategyMidLessonBreak    = "mid_lesson_break"
	StrategyConceptTransition = "concept_transition"
)

const pendingReviewsPerLesson = 2

// CompletedReview is the outcome of a finished stealth review.
type CompletedReview struct {
	Ticket       *types.StealthReview
	NextReviewAt time.Time
	IntervalDays float64
}

type StealthReviewService interface {
	Queue(ctx context.Context, userID uuid.UUID, canonical string, priority int, strategy string) (bool, error)
	ListQueued(ctx context.Context, userID uuid.UUID, limit int) ([]*types.StealthReview, error)
	PendingForLesson(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) ([]*types.StealthReview, error)
	MarkShown(ctx context.Context, userID uuid.UUID, ticketID uuid.UUID, lessonID *uuid.UUID) (*types.StealthReview, error)
	Complete(ctx context.Context, userID uuid.UUID, canonical string, success bool, responseTimeMS int) (*CompletedReview, error)
}

type stealthReviewService struct {
	db          *gorm.DB
	log         *logger.Logger
	engine      *mastery.Engine
	calculator  *mastery.Calculator
	scheduler   *fsrs.Scheduler
	masteryRepo repos.CommandMasteryRepo
	stealthRepo repos.StealthReviewRepo
	srItemRepo  repos.SpacedRepetitionItemRepo
	eventRepo   repos.UserEventRepo
}

func NewStealthReviewService(
	db *gorm.DB,
	log *logger.Logger,
	engine *mastery.Engine,
	calculator *mastery.Calculator,
	scheduler *fsrs.Scheduler,
	masteryRepo repos.CommandMasteryRepo,
	stealthRepo repos.StealthReviewRepo,
	srItemRepo repos.SpacedRepetitionItemRepo,
	eventRepo repos.UserEventRepo,
) StealthReviewService {
	return &stealthReviewService{
		db:          db,
		log:         log.With("service", "StealthReviewService"),
		engine:      engine,
		calculator:  calculator,
		scheduler:   scheduler,
		masteryRepo: masteryRepo,
		stealthRepo: stealthRepo,
		srItemRepo:  srItemRepo,
		eventRepo:   eventRepo,
	}
}

// Queue enqueues a stealth review ticket. Returns false without mutation when
// an active ticket already holds the (user, command) slot. Priority <= 0
// derives the priority from how far the skill has decayed.
func (s *stealthReviewService) Queue(ctx context.Context, userID uuid.UUID, canonical string, priority int, strategy string) (bool, error) {
	if canonical == "" {
		return false, apierr.Invalid("invalid_command", "canonical command is required")
	}

	rec, err := s.masteryRepo.Get(ctx, nil, userID, canonical)
	if err != nil {
		return false, fmt.Errorf("Failed to load mastery record: %w", err)
	}
	if rec == nil {
		return false, apierr.NotFound("mastery_not_found", "no mastery record for command %q", canonical)
	}

	now := time.Now().UTC()
	if priority <= 0 {
		priority = s.derivePriority(rec, now)
	}
	if strategy == "" {
		strategy = StrategyMidLessonBreak
	}

	ticket := &types.StealthReview{
		UserID:           userID,
		CanonicalCommand: canonical,
		Status:           types.StealthStatusQueued,
		Priority:         priority,
		Strategy:         strategy,
		StealthLevel:     s.deriveStealthLevel(rec, now),
		RequestedAt:      now,
	}

	created, err := s.stealthRepo.CreateIfAbsent(ctx, nil, ticket)
	if err != nil {
		return false, fmt.Errorf("Failed to enqueue stealth review: %w", err)
	}
	if !created {
		return false, nil
	}

	_ = s.eventRepo.Append(ctx, nil, userID, nil, repos.EventStealthQueued, map[string]interface{}{
		"canonical_command": canonical,
		"priority":          priority,
		"strategy":          strategy,
	})
	return true, nil
}

// ListQueued returns the user's active tickets, priority descending then
// oldest first.
func (s *stealthReviewService) ListQueued(ctx context.Context, userID uuid.UUID, limit int) ([]*types.StealthReview, error) {
	tickets, err := s.stealthRepo.ListPending(ctx, nil, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("Failed to list queued reviews: %w", err)
	}
	return tickets, nil
}

// PendingForLesson picks the tickets to weave into a lesson render: active
// tickets by priority descending then oldest first, capped at two per lesson,
// skipping skills currently protected by a shield.
func (s *stealthReviewService) PendingForLesson(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) ([]*types.StealthReview, error) {
	tickets, err := s.stealthRepo.ListPending(ctx, nil, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to list pending reviews: %w", err)
	}

	now := time.Now().UTC()
	selected := make([]*types.StealthReview, 0, pendingReviewsPerLesson)
	for _, t := range tickets {
		if len(selected) == pendingReviewsPerLesson {
			break
		}
		rec, err := s.masteryRepo.Get(ctx, nil, userID, t.CanonicalCommand)
		if err != nil {
			return nil, fmt.Errorf("Failed to load mastery record: %w", err)
		}
		if rec != nil && s.engine.Protected(rec, now) {
			continue
		}
		selected = append(selected, t)
	}
	return selected, nil
}

// MarkShown advances a ticket one lifecycle step, queued to scheduled to
// in_progress. Re-marking a ticket that already advanced past scheduled is a
// no-op, not an error.
func (s *stealthReviewService) MarkShown(ctx context.Context, userID uuid.UUID, ticketID uuid.UUID, lessonID *uuid.UUID) (*types.StealthReview, error) {
	ticket, err := s.stealthRepo.GetByID(ctx, nil, ticketID)
	if err != nil {
		return nil, fmt.Errorf("Failed to load ticket: %w", err)
	}
	if ticket == nil || ticket.UserID != userID {
		return nil, apierr.NotFound("ticket_not_found", "no stealth review %s", ticketID)
	}

	now := time.Now().UTC()
	switch ticket.Status {
	case types.StealthStatusQueued:
		ticket.Status = types.StealthStatusScheduled
		ticket.ScheduledFor = &now
	case types.StealthStatusScheduled:
		ticket.Status = types.StealthStatusInProgress
	default:
		return ticket, nil
	}

	if lessonID != nil {
		ticket.ShownInLessonID = lessonID
		if raw, err := json.Marshal(map[string]interface{}{
			"lesson_id": lessonID,
			"shown_at":  now,
		}); err == nil {
			ticket.ContextData = datatypes.JSON(raw)
		}
	}

	if err := s.stealthRepo.Update(ctx, nil, ticket); err != nil {
		return nil, fmt.Errorf("Failed to advance ticket: %w", err)
	}
	return ticket, nil
}

// Complete finishes the active ticket for a command: stamps the outcome,
// feeds the attempt into the mastery calculator under the stealth_review
// context, and reschedules the skill through the spaced repetition scheduler.
func (s *stealthReviewService) Complete(ctx context.Context, userID uuid.UUID, canonical string, success bool, responseTimeMS int) (*CompletedReview, error) {
	ticket, err := s.stealthRepo.GetActive(ctx, nil, userID, canonical)
	if err != nil {
		return nil, fmt.Errorf("Failed to load active ticket: %w", err)
	}
	if ticket == nil {
		return nil, apierr.NotFound("ticket_not_found", "no active stealth review for %q", canonical)
	}

	rec, err := s.masteryRepo.Get(ctx, nil, userID, canonical)
	if err != nil {
		return nil, fmt.Errorf("Failed to load mastery record: %w", err)
	}
	if rec == nil {
		return nil, apierr.NotFound("mastery_not_found", "no mastery record for command %q", canonical)
	}

	now := time.Now().UTC()
	var out *CompletedReview
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket.Status = types.StealthStatusCompleted
		ticket.CompletedAt = &now
		ticket.Success = &success
		ticket.ResponseTimeMS = &responseTimeMS
		if err := s.stealthRepo.Update(ctx, tx, ticket); err != nil {
			return fmt.Errorf("Failed to complete ticket: %w", err)
		}

		att := mastery.Attempt{AttemptNumber: 1, TimeTakenMS: responseTimeMS, Context: "stealth_review"}
		if success {
			s.calculator.UpdateOnSuccess(rec, att, now)
		} else {
			s.calculator.UpdateOnFailure(rec, att, now)
		}
		ok, err := s.masteryRepo.UpdateWithVersion(ctx, tx, rec)
		if err != nil {
			return fmt.Errorf("Failed to persist mastery record: %w", err)
		}
		if !ok {
			return apierr.Conflict("mastery_conflict", "concurrent update on %q", canonical)
		}

		next, err := s.reschedule(ctx, tx, rec, success, responseTimeMS, now)
		if err != nil {
			return err
		}
		out = &CompletedReview{Ticket: ticket, NextReviewAt: next.DueAt, IntervalDays: next.IntervalDays}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *stealthReviewService) reschedule(ctx context.Context, tx *gorm.DB, rec *types.CommandMastery, success bool, responseTimeMS int, now time.Time) (fsrs.Result, error) {
	item, err := s.srItemRepo.Get(ctx, tx, rec.UserID, rec.CanonicalCommand)
	if err != nil {
		return fsrs.Result{}, fmt.Errorf("Failed to load scheduling state: %w", err)
	}

	card := fsrs.Card{}
	if item != nil {
		card = fsrs.Card{
			Difficulty: item.Difficulty,
			Stability:  item.Stability,
			Reps:       item.ReviewCount,
			Lapses:     item.LapseCount,
		}
		if item.LastReviewAt != nil {
			card.ElapsedDays = now.Sub(*item.LastReviewAt).Hours() / 24
			card.LastReviewAt = *item.LastReviewAt
		}
	}

	grade := fsrs.GradeFromOutcome(success, time.Duration(responseTimeMS)*time.Millisecond)
	res, err := s.scheduler.Schedule(card, grade, now)
	if err != nil {
		return fsrs.Result{}, fmt.Errorf("Failed to schedule review: %w", err)
	}

	next := &types.SpacedRepetitionItem{
		UserID:           rec.UserID,
		CanonicalCommand: rec.CanonicalCommand,
		MasteryID:        rec.ID,
		Difficulty:       res.Difficulty,
		Stability:        res.Stability,
		IntervalDays:     res.IntervalDays,
		ReviewCount:      res.Reps,
		LapseCount:       res.Lapses,
		LastGrade:        res.LastGrade.String(),
		DueAt:            &res.DueAt,
		LastReviewAt:     &res.LastReviewAt,
	}
	if item != nil {
		next.ID = item.ID
	}
	if err := s.srItemRepo.Upsert(ctx, tx, next); err != nil {
		return fsrs.Result{}, fmt.Errorf("Failed to persist scheduling state: %w", err)
	}
	return res, nil
}

// derivePriority maps decay severity onto the 3/5/7/9 priority ladder.
func (s *stealthReviewService) derivePriority(rec *types.CommandMastery, now time.Time) int {
	lost := 100 - s.engine.CurrentScore(rec, now)
	switch {
	case lost < 20:
		return 3
	case lost < 40:
		return 5
	case lost < 60:
		return 7
	default:
		return 9
	}
}

// deriveStealthLevel: the weaker the skill, the less disguised the review.
func (s *stealthReviewService) deriveStealthLevel(rec *types.CommandMastery, now time.Time) int {
	switch s.engine.RiskLevel(s.engine.CurrentScore(rec, now)) {
	case mastery.RiskCritical:
		return 1
	case mastery.RiskAtRisk:
		return 2
	default:
		return 3
	}
}
