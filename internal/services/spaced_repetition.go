package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/apierr"
	"github.com/yungbote/shellmastery-backend/internal/command"
	"github.com/yungbote/shellmastery-backend/internal/fsrs"
	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/mastery"
	"github.com/yungbote/shellmastery-backend/internal/repos"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

// ScheduledReview is the scheduling state of one command after a graded
// review.
type ScheduledReview struct {
	CanonicalCommand string    `json:"canonical_command"`
	Grade            string    `json:"grade"`
	Difficulty       float64   `json:"difficulty"`
	Stability        float64   `json:"stability"`
	IntervalDays     float64   `json:"interval_days"`
	DueAt            time.Time `json:"due_at"`
	ReviewCount      int       `json:"review_count"`
	LapseCount       int       `json:"lapse_count"`
}

// QueuedReview is one due item in the review queue.
type QueuedReview struct {
	CanonicalCommand string     `json:"canonical_command"`
	Label            string     `json:"label"`
	DueAt            *time.Time `json:"due_at,omitempty"`
	OverdueDays      float64    `json:"overdue_days"`
	PredictedRecall  float64    `json:"predicted_recall"`
	CurrentScore     float64    `json:"current_score"`
	RiskLevel        string     `json:"risk_level"`
}

type SpacedRepetitionService interface {
	ScheduleReview(ctx context.Context, userID uuid.UUID, rawCommand string, grade fsrs.Grade) (*ScheduledReview, error)
	ReviewQueue(ctx context.Context, userID uuid.UUID, limit int) ([]QueuedReview, error)
	ResetStale(ctx context.Context, userID uuid.UUID) (int, error)
}

// An item overdue by twice its interval has gone three intervals since its
// last review and is treated as stale.
const staleOverdueFactor = 2.0

type spacedRepetitionService struct {
	db          *gorm.DB
	log         *logger.Logger
	canon       *command.Canonicalizer
	engine      *mastery.Engine
	scheduler   *fsrs.Scheduler
	masteryRepo repos.CommandMasteryRepo
	srItemRepo  repos.SpacedRepetitionItemRepo
}

func NewSpacedRepetitionService(
	db *gorm.DB,
	log *logger.Logger,
	canon *command.Canonicalizer,
	engine *mastery.Engine,
	scheduler *fsrs.Scheduler,
	masteryRepo repos.CommandMasteryRepo,
	srItemRepo repos.SpacedRepetitionItemRepo,
) SpacedRepetitionService {
	return &spacedRepetitionService{
		db:          db,
		log:         log.With("service", "SpacedRepetitionService"),
		canon:       canon,
		engine:      engine,
		scheduler:   scheduler,
		masteryRepo: masteryRepo,
		srItemRepo:  srItemRepo,
	}
}

// ScheduleReview grades a review of a command and persists the next
// scheduling state. The command must already have a mastery record.
func (s *spacedRepetitionService) ScheduleReview(ctx context.Context, userID uuid.UUID, rawCommand string, grade fsrs.Grade) (*ScheduledReview, error) {
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

	item, err := s.srItemRepo.Get(ctx, nil, userID, canonical)
	if err != nil {
		return nil, fmt.Errorf("Failed to load scheduling state: %w", err)
	}

	now := time.Now().UTC()
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

	res, err := s.scheduler.Schedule(card, grade, now)
	if err != nil {
		return nil, apierr.Invalid("invalid_grade", "%s", err.Error())
	}

	next := &types.SpacedRepetitionItem{
		UserID:           userID,
		CanonicalCommand: canonical,
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
	if err := s.srItemRepo.Upsert(ctx, nil, next); err != nil {
		return nil, fmt.Errorf("Failed to persist scheduling state: %w", err)
	}

	return &ScheduledReview{
		CanonicalCommand: canonical,
		Grade:            res.LastGrade.String(),
		Difficulty:       res.Difficulty,
		Stability:        res.Stability,
		IntervalDays:     res.IntervalDays,
		DueAt:            res.DueAt,
		ReviewCount:      res.Reps,
		LapseCount:       res.Lapses,
	}, nil
}

// ReviewQueue lists commands due for review, most overdue first, annotated
// with the predicted recall probability and the current decayed score.
func (s *spacedRepetitionService) ReviewQueue(ctx context.Context, userID uuid.UUID, limit int) ([]QueuedReview, error) {
	if limit <= 0 {
		limit = 20
	}
	now := time.Now().UTC()
	items, err := s.srItemRepo.ListDue(ctx, nil, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("Failed to list due items: %w", err)
	}

	queue := make([]QueuedReview, 0, len(items))
	for _, item := range items {
		q := QueuedReview{
			CanonicalCommand: item.CanonicalCommand,
			Label:            s.canon.Label(item.CanonicalCommand),
			DueAt:            item.DueAt,
		}
		if item.DueAt != nil {
			q.OverdueDays = now.Sub(*item.DueAt).Hours() / 24
		}
		if item.LastReviewAt != nil {
			elapsed := now.Sub(*item.LastReviewAt).Hours() / 24
			q.PredictedRecall = s.scheduler.PredictRecall(item.Stability, elapsed)
		}
		if rec, err := s.masteryRepo.Get(ctx, nil, userID, item.CanonicalCommand); err == nil && rec != nil {
			q.CurrentScore = s.engine.CurrentScore(rec, now)
			q.RiskLevel = s.engine.RiskLevel(q.CurrentScore)
		}
		queue = append(queue, q)
	}

	sort.Slice(queue, func(i, j int) bool {
		return queue[i].OverdueDays > queue[j].OverdueDays
	})
	return queue, nil
}

// ResetStale finds items so far past due that their scheduled stability no
// longer reflects the learner's memory and resets them to the initial
// stability, due immediately. Returns the number of items reset.
func (s *spacedRepetitionService) ResetStale(ctx context.Context, userID uuid.UUID) (int, error) {
	now := time.Now().UTC()
	items, err := s.srItemRepo.ListDue(ctx, nil, userID, now, 0)
	if err != nil {
		return 0, fmt.Errorf("Failed to list overdue items: %w", err)
	}

	reset := 0
	for _, item := range items {
		if item.DueAt == nil || item.IntervalDays <= 0 {
			continue
		}
		overdue := now.Sub(*item.DueAt).Hours() / 24
		if overdue < item.IntervalDays*staleOverdueFactor {
			continue
		}
		due := now
		item.Stability = s.scheduler.RelearnStability()
		item.IntervalDays = 0
		item.DueAt = &due
		item.LastGrade = fsrs.GradeAgain.String()
		if err := s.srItemRepo.Upsert(ctx, nil, item); err != nil {
			return reset, fmt.Errorf("Failed to reset item %q: %w", item.CanonicalCommand, err)
		}
		reset++
	}
	if reset > 0 {
		s.log.Info("Reset stale review items", "count", reset, "user_id", userID)
	}
	return reset, nil
}
