package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/apierr"
	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/mastery"
	"github.com/yungbote/shellmastery-backend/internal/repos"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

// Reasons a prerequisite is considered weak.
const (
	ReasonNotAttempted         = "not_attempted"
	ReasonLowProficiency       = "low_proficiency"
	ReasonInsufficientAttempts = "insufficient_attempts"
)

// WeakCommand describes one prerequisite failing the gate.
type WeakCommand struct {
	CanonicalCommand string  `json:"canonical_command"`
	CurrentScore     float64 `json:"current_score"`
	TotalAttempts    int     `json:"total_attempts"`
	Reason           string  `json:"reason"`
}

// ProgressionStatus is the gate verdict for one lesson.
type ProgressionStatus struct {
	LessonID          uuid.UUID     `json:"lesson_id"`
	CanProgress       bool          `json:"can_progress"`
	AlreadyPassed     bool          `json:"already_passed"`
	RequiredCommands  []string      `json:"required_commands"`
	WeakCommands      []WeakCommand `json:"weak_commands"`
	CompletionPercent float64       `json:"completion_percent"`
	Message           string        `json:"message"`
	Remediation       *DrillSession `json:"remediation,omitempty"`
}

type GateService interface {
	ProgressionStatus(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (*ProgressionStatus, error)
	MarkGatePassed(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (*ProgressionStatus, error)
}

type gateService struct {
	db          *gorm.DB
	log         *logger.Logger
	engine      *mastery.Engine
	masteryRepo repos.CommandMasteryRepo
	lessonRepo  repos.LessonRepo
	passageRepo repos.GatePassageRepo
	eventRepo   repos.UserEventRepo
	drills      DrillService
}

func NewGateService(
	db *gorm.DB,
	log *logger.Logger,
	engine *mastery.Engine,
	masteryRepo repos.CommandMasteryRepo,
	lessonRepo repos.LessonRepo,
	passageRepo repos.GatePassageRepo,
	eventRepo repos.UserEventRepo,
	drills DrillService,
) GateService {
	return &gateService{
		db:          db,
		log:         log.With("service", "GateService"),
		engine:      engine,
		masteryRepo: masteryRepo,
		lessonRepo:  lessonRepo,
		passageRepo: passageRepo,
		eventRepo:   eventRepo,
		drills:      drills,
	}
}

// ProgressionStatus evaluates the gate for a lesson. A blocked verdict
// carries the weak commands and a generated remediation session.
func (s *gateService) ProgressionStatus(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (*ProgressionStatus, error) {
	status, err := s.evaluate(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	if !status.CanProgress {
		weak := make([]string, 0, len(status.WeakCommands))
		for _, w := range status.WeakCommands {
			weak = append(weak, w.CanonicalCommand)
		}
		session, err := s.drills.RemediationSession(ctx, userID, weak)
		if err != nil {
			// The verdict stands on its own; a failed drill build should
			// not block the gate response.
			s.log.Warn("Failed to build remediation session", "lesson_id", lessonID, "error", err)
		} else {
			status.Remediation = session
		}
	}
	return status, nil
}

// MarkGatePassed re-verifies the gate server-side and records the passage.
// Recording is idempotent: the first passage wins and re-marking changes
// nothing.
func (s *gateService) MarkGatePassed(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (*ProgressionStatus, error) {
	status, err := s.evaluate(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if !status.CanProgress {
		return nil, apierr.Conflict("gate_blocked", "gate for lesson %s is not cleared", lessonID)
	}
	if status.AlreadyPassed {
		return status, nil
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.passageRepo.Record(ctx, tx, userID, lessonID, len(status.WeakCommands), now); err != nil {
			return fmt.Errorf("Failed to record gate passage: %w", err)
		}
		return s.eventRepo.Append(ctx, tx, userID, &lessonID, repos.EventGatePassed, map[string]interface{}{
			"lesson_id": lessonID,
		})
	})
	if err != nil {
		return nil, err
	}

	status.AlreadyPassed = true
	return status, nil
}

func (s *gateService) evaluate(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (*ProgressionStatus, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, fmt.Errorf("Failed to load lesson: %w", err)
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson_not_found", "no lesson %s", lessonID)
	}

	passage, err := s.passageRepo.Get(ctx, nil, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("Failed to load gate passage: %w", err)
	}

	required := lesson.RequiredCommandList()
	status := &ProgressionStatus{
		LessonID:         lessonID,
		AlreadyPassed:    passage != nil,
		RequiredCommands: required,
		WeakCommands:     []WeakCommand{},
	}
	if len(required) == 0 {
		status.CanProgress = true
		status.CompletionPercent = 100
		status.Message = "No prerequisites for this lesson."
		return status, nil
	}

	recs, err := s.masteryRepo.GetByCommands(ctx, nil, userID, required)
	if err != nil {
		return nil, fmt.Errorf("Failed to load mastery records: %w", err)
	}
	byCommand := make(map[string]*types.CommandMastery, len(recs))
	for _, rec := range recs {
		byCommand[rec.CanonicalCommand] = rec
	}

	// A prerequisite clears the gate when its effective score holds the
	// configured threshold with enough attempts behind it, or an active
	// shield vouches for it.
	cfg := s.engine.Config()
	now := time.Now().UTC()
	passing := 0
	for _, canonical := range required {
		rec := byCommand[canonical]
		if rec == nil || rec.TotalAttempts == 0 {
			attempts := 0
			if rec != nil {
				attempts = rec.TotalAttempts
			}
			status.WeakCommands = append(status.WeakCommands, WeakCommand{
				CanonicalCommand: canonical,
				TotalAttempts:    attempts,
				Reason:           ReasonNotAttempted,
			})
			continue
		}

		score := s.engine.CurrentScore(rec, now)
		// A shield vouches for retention even when decay dipped the score.
		if s.engine.Protected(rec, now) {
			passing++
			continue
		}
		switch {
		case score < cfg.GateThreshold:
			status.WeakCommands = append(status.WeakCommands, WeakCommand{
				CanonicalCommand: canonical,
				CurrentScore:     score,
				TotalAttempts:    rec.TotalAttempts,
				Reason:           ReasonLowProficiency,
			})
		case rec.TotalAttempts < cfg.GateMinAttempts:
			status.WeakCommands = append(status.WeakCommands, WeakCommand{
				CanonicalCommand: canonical,
				CurrentScore:     score,
				TotalAttempts:    rec.TotalAttempts,
				Reason:           ReasonInsufficientAttempts,
			})
		default:
			passing++
		}
	}

	status.CanProgress = len(status.WeakCommands) == 0
	status.CompletionPercent = float64(passing) / float64(len(required)) * 100
	status.Message = gateMessage(status)
	return status, nil
}

func gateMessage(status *ProgressionStatus) string {
	if status.CanProgress {
		return "All prerequisite commands are retained. You can progress."
	}
	n := len(status.WeakCommands)
	if n == 1 {
		return fmt.Sprintf("1 prerequisite command needs review before you progress: %s",
			status.WeakCommands[0].CanonicalCommand)
	}
	return fmt.Sprintf("%d prerequisite commands need review before you progress.", n)
}
