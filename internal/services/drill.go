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
	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/mastery"
	"github.com/yungbote/shellmastery-backend/internal/repos"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

// Drill difficulty ladder.
const (
	DrillEasy   = "easy"
	DrillMedium = "medium"
	DrillHard   = "hard"
)

// Targeted practice levels and their score thresholds.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"

	beginnerThreshold     = 30.0
	intermediateThreshold = 60.0
	advancedThreshold     = 80.0
)

const quickSessionSize = 5

// Drill is one generated practice exercise. Sessions are ephemeral: they are
// generated from mastery state on demand and never persisted.
type Drill struct {
	CanonicalCommand string   `json:"canonical_command"`
	Label            string   `json:"label"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Prompt           string   `json:"prompt"`
	Scenario         string   `json:"scenario"`
	Hints            []string `json:"hints"`
	SuccessCriteria  string   `json:"success_criteria"`
	AnswerPatterns   []string `json:"expected_answer_patterns"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
	Points           int      `json:"points"`
	MaxAttempts      int      `json:"max_attempts"`
	CurrentScore     float64  `json:"current_score"`
}

// DrillSession bundles generated drills with session metadata.
type DrillSession struct {
	SessionID        uuid.UUID `json:"session_id"`
	Kind             string    `json:"kind"`
	Drills           []Drill   `json:"drills"`
	TotalPoints      int       `json:"total_points"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type DrillService interface {
	RemediationSession(ctx context.Context, userID uuid.UUID, canonicals []string) (*DrillSession, error)
	QuickSession(ctx context.Context, userID uuid.UUID) (*DrillSession, error)
	TargetedSession(ctx context.Context, userID uuid.UUID, level string) (*DrillSession, error)
	FocusedSession(ctx context.Context, userID uuid.UUID, rawCommand string) (*DrillSession, error)
}

type drillService struct {
	db          *gorm.DB
	log         *logger.Logger
	canon       *command.Canonicalizer
	engine      *mastery.Engine
	masteryRepo repos.CommandMasteryRepo
}

func NewDrillService(
	db *gorm.DB,
	log *logger.Logger,
	canon *command.Canonicalizer,
	engine *mastery.Engine,
	masteryRepo repos.CommandMasteryRepo,
) DrillService {
	return &drillService{
		db:          db,
		log:         log.With("service", "DrillService"),
		canon:       canon,
		engine:      engine,
		masteryRepo: masteryRepo,
	}
}

// RemediationSession builds drills for the specific weak commands blocking a
// gate.
func (s *drillService) RemediationSession(ctx context.Context, userID uuid.UUID, canonicals []string) (*DrillSession, error) {
	if len(canonicals) == 0 {
		return s.session("remediation", nil), nil
	}
	recs, err := s.masteryRepo.GetByCommands(ctx, nil, userID, canonicals)
	if err != nil {
		return nil, fmt.Errorf("Failed to load mastery records: %w", err)
	}

	byCommand := make(map[string]*types.CommandMastery, len(recs))
	for _, rec := range recs {
		byCommand[rec.CanonicalCommand] = rec
	}

	now := time.Now().UTC()
	drills := make([]Drill, 0, len(canonicals))
	for _, canonical := range canonicals {
		drills = append(drills, s.buildDrill(canonical, byCommand[canonical], now))
	}
	return s.session("remediation", drills), nil
}

// QuickSession drills the user's five weakest practiced commands.
func (s *drillService) QuickSession(ctx context.Context, userID uuid.UUID) (*DrillSession, error) {
	recs, err := s.masteryRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("Failed to list mastery records: %w", err)
	}

	now := time.Now().UTC()
	practiced := make([]*types.CommandMastery, 0, len(recs))
	for _, rec := range recs {
		if rec.TotalAttempts > 0 {
			practiced = append(practiced, rec)
		}
	}
	sort.Slice(practiced, func(i, j int) bool {
		return s.engine.CurrentScore(practiced[i], now) < s.engine.CurrentScore(practiced[j], now)
	})
	if len(practiced) > quickSessionSize {
		practiced = practiced[:quickSessionSize]
	}

	drills := make([]Drill, 0, len(practiced))
	for _, rec := range practiced {
		drills = append(drills, s.buildDrill(rec.CanonicalCommand, rec, now))
	}
	return s.session("quick", drills), nil
}

// TargetedSession drills commands below the threshold for the requested
// level: beginner 30, intermediate 60, advanced 80.
func (s *drillService) TargetedSession(ctx context.Context, userID uuid.UUID, level string) (*DrillSession, error) {
	var threshold float64
	switch level {
	case LevelBeginner:
		threshold = beginnerThreshold
	case LevelIntermediate:
		threshold = intermediateThreshold
	case LevelAdvanced:
		threshold = advancedThreshold
	default:
		return nil, apierr.Invalid("invalid_level", "unknown practice level %q", level)
	}

	recs, err := s.masteryRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("Failed to list mastery records: %w", err)
	}

	now := time.Now().UTC()
	drills := make([]Drill, 0)
	for _, rec := range recs {
		if s.engine.CurrentScore(rec, now) < threshold {
			drills = append(drills, s.buildDrill(rec.CanonicalCommand, rec, now))
		}
	}
	return s.session("targeted_"+level, drills), nil
}

// FocusedSession builds a single-command drill.
func (s *drillService) FocusedSession(ctx context.Context, userID uuid.UUID, rawCommand string) (*DrillSession, error) {
	canonical := s.canon.Canonicalize(rawCommand)
	if canonical == "" {
		return nil, apierr.Invalid("invalid_command", "command %q is not recognized", rawCommand)
	}
	rec, err := s.masteryRepo.Get(ctx, nil, userID, canonical)
	if err != nil {
		return nil, fmt.Errorf("Failed to load mastery record: %w", err)
	}
	now := time.Now().UTC()
	return s.session("focused", []Drill{s.buildDrill(canonical, rec, now)}), nil
}

// buildDrill generates one exercise from a command and its mastery state. A
// nil record is treated as never attempted.
func (s *drillService) buildDrill(canonical string, rec *types.CommandMastery, now time.Time) Drill {
	score := 0.0
	attempts := 0
	if rec != nil {
		score = s.engine.CurrentScore(rec, now)
		attempts = rec.TotalAttempts
	}

	difficulty := s.difficultyFor(score, attempts)
	label := s.canon.Label(canonical)

	var timeLimit, points int
	switch difficulty {
	case DrillEasy:
		timeLimit, points = 60, 10
	case DrillMedium:
		timeLimit, points = 120, 25
	default:
		timeLimit, points = 180, 50
	}

	return Drill{
		CanonicalCommand: canonical,
		Label:            label,
		Category:         s.canon.Category(canonical),
		Difficulty:       difficulty,
		Prompt:           s.prompt(canonical, label, difficulty),
		Scenario:         s.scenario(canonical, difficulty),
		Hints:            s.hints(canonical, difficulty),
		SuccessCriteria:  fmt.Sprintf("Run a valid %s invocation without hints", label),
		AnswerPatterns:   s.canon.AnswerPatterns(canonical),
		TimeLimitSeconds: timeLimit,
		Points:           points,
		MaxAttempts:      5,
		CurrentScore:     score,
	}
}

func (s *drillService) difficultyFor(score float64, attempts int) string {
	switch {
	case attempts == 0 || score < 30:
		return DrillEasy
	case score < 60:
		return DrillMedium
	default:
		return DrillHard
	}
}

func (s *drillService) prompt(canonical, label, difficulty string) string {
	switch difficulty {
	case DrillEasy:
		if examples := s.canon.Examples(canonical); len(examples) > 0 {
			return fmt.Sprintf("Practice %s. For example: %s", label, examples[0])
		}
		return fmt.Sprintf("Practice the basic form of %s", label)
	case DrillMedium:
		return fmt.Sprintf("Use %s to solve the scenario below without looking at examples", label)
	default:
		return fmt.Sprintf("Solve the scenario below with %s, combining flags as needed", label)
	}
}

func (s *drillService) scenario(canonical, difficulty string) string {
	category := s.canon.Category(canonical)
	switch category {
	case "kubernetes":
		if difficulty == DrillHard {
			return "A pod in the payments namespace is crash-looping and the team needs a diagnosis before the next deploy."
		}
		return "You are inspecting a cluster you have not worked with before."
	case "docker-compose":
		return "A multi-service development stack needs to be brought up from its compose file."
	default:
		if difficulty == DrillHard {
			return "A container in production is misbehaving and you must investigate it without restarting the host."
		}
		return "You are working with containers on a fresh development machine."
	}
}

// hints get more revealing as the ladder descends; hard drills get only a
// nudge.
func (s *drillService) hints(canonical, difficulty string) []string {
	label := s.canon.Label(canonical)
	base := []string{fmt.Sprintf("Think about what %s operates on", label)}
	if difficulty == DrillHard {
		return base
	}
	examples := s.canon.Examples(canonical)
	if len(examples) > 0 {
		base = append(base, fmt.Sprintf("The command starts like: %s", firstToken(examples[0])))
		if difficulty == DrillEasy {
			base = append(base, fmt.Sprintf("Full example: %s", examples[0]))
		}
	}
	return base
}

func (s *drillService) session(kind string, drills []Drill) *DrillSession {
	totalPoints := 0
	totalSeconds := 0
	for _, d := range drills {
		totalPoints += d.Points
		totalSeconds += d.TimeLimitSeconds
	}
	return &DrillSession{
		SessionID:        uuid.New(),
		Kind:             kind,
		Drills:           drills,
		TotalPoints:      totalPoints,
		EstimatedMinutes: (totalSeconds + 59) / 60,
		GeneratedAt:      time.Now().UTC(),
	}
}

// firstToken keeps the leading two words of an example, enough to orient
// without giving the answer away.
func firstToken(s string) string {
	seen := 0
	for i, r := range s {
		if r == ' ' {
			seen++
			if seen == 2 {
				return s[:i] + " ..."
			}
		}
	}
	return s
}
