package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/apierr"
	"github.com/yungbote/shellmastery-backend/internal/command"
	"github.com/yungbote/shellmastery-backend/internal/fsrs"
	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/mastery"
	"github.com/yungbote/shellmastery-backend/internal/repos"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

type testEnv struct {
	db      *gorm.DB
	userID  uuid.UUID
	canon   *command.Canonicalizer
	engine  *mastery.Engine
	mastery MasteryTrackingService
	stealth StealthReviewService
	decay   DecayService
	gate    GateService
	drills  DrillService
	spaced  SpacedRepetitionService

	masteryRepo repos.CommandMasteryRepo
	stealthRepo repos.StealthReviewRepo
	srItemRepo  repos.SpacedRepetitionItemRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(
		&types.User{},
		&types.CommandMastery{},
		&types.StealthReview{},
		&types.SpacedRepetitionItem{},
		&types.Lesson{},
		&types.GatePassage{},
		&types.UserEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gdb.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_stealth_active
		ON stealth_review (user_id, canonical_command)
		WHERE status IN ('queued', 'scheduled', 'in_progress')
		  AND deleted_at IS NULL
	`).Error; err != nil {
		t.Fatalf("create index: %v", err)
	}

	log, err := logger.New("prod")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	cfg := mastery.DefaultConfig()
	engine := mastery.NewEngine(cfg)
	calc := mastery.NewCalculator(cfg)
	canon := command.NewCanonicalizer()
	scheduler := fsrs.NewScheduler(fsrs.DefaultParams())

	masteryRepo := repos.NewCommandMasteryRepo(gdb, log)
	stealthRepo := repos.NewStealthReviewRepo(gdb, log)
	srItemRepo := repos.NewSpacedRepetitionItemRepo(gdb, log)
	lessonRepo := repos.NewLessonRepo(gdb, log)
	passageRepo := repos.NewGatePassageRepo(gdb, log)
	eventRepo := repos.NewUserEventRepo(gdb, log)
	userRepo := repos.NewUserRepo(gdb, log)

	stealth := NewStealthReviewService(gdb, log, engine, calc, scheduler, masteryRepo, stealthRepo, srItemRepo, eventRepo)
	drills := NewDrillService(gdb, log, canon, engine, masteryRepo)

	env := &testEnv{
		db:          gdb,
		canon:       canon,
		engine:      engine,
		mastery:     NewMasteryTrackingService(gdb, log, canon, calc, engine, masteryRepo, eventRepo, stealth, nil),
		stealth:     stealth,
		decay:       NewDecayService(gdb, log, canon, engine, masteryRepo, eventRepo, nil),
		gate:        NewGateService(gdb, log, engine, masteryRepo, lessonRepo, passageRepo, eventRepo, drills),
		drills:      drills,
		spaced:      NewSpacedRepetitionService(gdb, log, canon, engine, scheduler, masteryRepo, srItemRepo),
		masteryRepo: masteryRepo,
		stealthRepo: stealthRepo,
		srItemRepo:  srItemRepo,
	}

	users, err := userRepo.Create(context.Background(), nil, []*types.User{
		{Email: "learner@example.com", DisplayName: "Learner"},
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	env.userID = users[0].ID
	return env
}

// backdate shifts a record's practice anchor into the past.
func (e *testEnv) backdate(t *testing.T, canonical string, daysAgo int) {
	t.Helper()
	past := time.Now().UTC().AddDate(0, 0, -daysAgo)
	err := e.db.Model(&types.CommandMastery{}).
		Where("user_id = ? AND canonical_command = ?", e.userID, canonical).
		Updates(map[string]interface{}{
			"last_practiced_at": past,
			"last_correct_at":   past,
		}).Error
	if err != nil {
		t.Fatalf("backdate %s: %v", canonical, err)
	}
}

func TestRecordAttemptFirstTrySuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command:       "docker run -d nginx",
		Success:       true,
		AttemptNumber: 1,
		Context:       "lesson_docker_basics",
	})
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if res.CanonicalCommand != "docker_run" {
		t.Fatalf("canonical = %q, want docker_run", res.CanonicalCommand)
	}
	if res.ProficiencyScore != 100 {
		t.Fatalf("proficiency = %v, want 100", res.ProficiencyScore)
	}
	if !res.NewlyMastered {
		t.Fatal("expected first clean success to mark mastery")
	}
	if res.RiskLevel != mastery.RiskSafe {
		t.Fatalf("risk = %q, want safe", res.RiskLevel)
	}
}

func TestRecordAttemptRejectsUnrecognized(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.mastery.RecordAttempt(context.Background(), env.userID, AttemptInput{
		Command: "frobnicate --all",
		Success: true,
	})
	var apiErr *apierr.Error
	if !asAPIError(err, &apiErr) || apiErr.Status != 400 {
		t.Fatalf("want 400 api error, got %v", err)
	}
}

func TestThreeFailuresAutoQueueStealth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var last *AttemptResult
	for i := 0; i < 3; i++ {
		var err error
		last, err = env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
			Command:       "kubectl get pods",
			Success:       false,
			AttemptNumber: 1,
		})
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if !last.StealthQueued {
		t.Fatal("expected third consecutive failure to queue a stealth review")
	}

	ticket, err := env.stealthRepo.GetActive(ctx, nil, env.userID, "kubectl_get_pods")
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if ticket == nil {
		t.Fatal("expected an active ticket")
	}
	if ticket.Priority != 8 {
		t.Fatalf("priority = %d, want 8", ticket.Priority)
	}
}

func TestStealthQueueIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "docker ps", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}

	created, err := env.stealth.Queue(ctx, env.userID, "docker_ps", 5, StrategyLessonOpener)
	if err != nil {
		t.Fatalf("first queue: %v", err)
	}
	if !created {
		t.Fatal("first queue should create a ticket")
	}

	created, err = env.stealth.Queue(ctx, env.userID, "docker_ps", 9, StrategyMidLessonBreak)
	if err != nil {
		t.Fatalf("second queue: %v", err)
	}
	if created {
		t.Fatal("second queue should be a no-op while the ticket is active")
	}

	var count int64
	if err := env.db.Model(&types.StealthReview{}).
		Where("user_id = ? AND canonical_command = ?", env.userID, "docker_ps").
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("ticket count = %d, want 1", count)
	}
}

func TestStealthLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "docker build -t app .", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	if _, err := env.stealth.Queue(ctx, env.userID, "docker_build", 0, ""); err != nil {
		t.Fatalf("queue: %v", err)
	}

	ticket, err := env.stealthRepo.GetActive(ctx, nil, env.userID, "docker_build")
	if err != nil || ticket == nil {
		t.Fatalf("GetActive: %v, ticket=%v", err, ticket)
	}

	shown, err := env.stealth.MarkShown(ctx, env.userID, ticket.ID, nil)
	if err != nil {
		t.Fatalf("MarkShown: %v", err)
	}
	if shown.Status != types.StealthStatusScheduled {
		t.Fatalf("status = %q, want scheduled", shown.Status)
	}
	shown, err = env.stealth.MarkShown(ctx, env.userID, ticket.ID, nil)
	if err != nil {
		t.Fatalf("MarkShown again: %v", err)
	}
	if shown.Status != types.StealthStatusInProgress {
		t.Fatalf("status = %q, want in_progress", shown.Status)
	}

	done, err := env.stealth.Complete(ctx, env.userID, "docker_build", true, 4000)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Ticket.Status != types.StealthStatusCompleted {
		t.Fatalf("status = %q, want completed", done.Ticket.Status)
	}
	if !done.NextReviewAt.After(time.Now()) {
		t.Fatal("next review must be in the future")
	}

	item, err := env.srItemRepo.Get(ctx, nil, env.userID, "docker_build")
	if err != nil {
		t.Fatalf("sr item get: %v", err)
	}
	if item == nil || item.ReviewCount != 1 {
		t.Fatalf("expected one scheduled review, got %+v", item)
	}

	// Completing freed the active slot.
	created, err := env.stealth.Queue(ctx, env.userID, "docker_build", 0, "")
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if !created {
		t.Fatal("requeue after completion should create a fresh ticket")
	}
}

func TestPendingForLessonSkipsShielded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Strong, recently-correct record: shield-protected.
	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "docker run nginx", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Weak record with no correct history: unprotected.
	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "kubectl apply -f deploy.yaml", Success: false, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, cmd := range []string{"docker_run", "kubectl_apply"} {
		if _, err := env.stealth.Queue(ctx, env.userID, cmd, 5, ""); err != nil {
			t.Fatalf("queue %s: %v", cmd, err)
		}
	}

	pending, err := env.stealth.PendingForLesson(ctx, env.userID, uuid.New())
	if err != nil {
		t.Fatalf("PendingForLesson: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d tickets, want 1", len(pending))
	}
	if pending[0].CanonicalCommand != "kubectl_apply" {
		t.Fatalf("pending command = %q, want kubectl_apply", pending[0].CanonicalCommand)
	}
}

func TestGateBlocksThenPasses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lesson := &types.Lesson{
		ID:               uuid.New(),
		Slug:             "docker-networking",
		Title:            "Docker Networking",
		RequiredCommands: datatypes.JSON(`["docker_run","docker_ps"]`),
		SequenceOrder:    3,
	}
	if err := env.db.Create(lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	// docker_run practiced to strength; docker_ps never attempted.
	for i := 0; i < 3; i++ {
		if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
			Command: "docker run nginx", Success: true, AttemptNumber: 1,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	status, err := env.gate.ProgressionStatus(ctx, env.userID, lesson.ID)
	if err != nil {
		t.Fatalf("ProgressionStatus: %v", err)
	}
	if status.CanProgress {
		t.Fatal("gate should block with an unattempted prerequisite")
	}
	if len(status.WeakCommands) != 1 || status.WeakCommands[0].Reason != ReasonNotAttempted {
		t.Fatalf("weak = %+v, want one not_attempted entry", status.WeakCommands)
	}
	if status.Remediation == nil || len(status.Remediation.Drills) != 1 {
		t.Fatalf("expected a one-drill remediation session, got %+v", status.Remediation)
	}
	if status.Remediation.Drills[0].Difficulty != DrillEasy {
		t.Fatalf("unattempted command should drill easy, got %q", status.Remediation.Drills[0].Difficulty)
	}

	if _, err := env.gate.MarkGatePassed(ctx, env.userID, lesson.ID); err == nil {
		t.Fatal("MarkGatePassed must refuse a blocked gate")
	}

	for i := 0; i < 3; i++ {
		if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
			Command: "docker ps -a", Success: true, AttemptNumber: 1,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	status, err = env.gate.MarkGatePassed(ctx, env.userID, lesson.ID)
	if err != nil {
		t.Fatalf("MarkGatePassed: %v", err)
	}
	if !status.CanProgress {
		t.Fatal("gate should clear once every prerequisite holds")
	}

	// Re-marking is a no-op.
	again, err := env.gate.MarkGatePassed(ctx, env.userID, lesson.ID)
	if err != nil {
		t.Fatalf("MarkGatePassed again: %v", err)
	}
	if !again.AlreadyPassed {
		t.Fatal("second mark should report the existing passage")
	}
	var count int64
	if err := env.db.Model(&types.GatePassage{}).
		Where("user_id = ? AND lesson_id = ?", env.userID, lesson.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("passage rows = %d, want 1", count)
	}
}

func TestGateUnknownLesson(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.gate.ProgressionStatus(context.Background(), env.userID, uuid.New())
	var apiErr *apierr.Error
	if !asAPIError(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("want 404 api error, got %v", err)
	}
}

func TestApplyDecayBatchIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "docker run nginx", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	env.backdate(t, "docker_run", 30)

	report, err := env.decay.ApplyDecayBatch(ctx)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if report.Decayed != 1 {
		t.Fatalf("decayed = %d, want 1", report.Decayed)
	}

	rec, err := env.masteryRepo.Get(ctx, nil, env.userID, "docker_run")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ProficiencyScore >= 100 {
		t.Fatalf("score = %v, want decayed below 100", rec.ProficiencyScore)
	}
	if rec.DecayAppliedAt == nil {
		t.Fatal("decay anchor must be stamped")
	}
	firstScore := rec.ProficiencyScore

	report, err = env.decay.ApplyDecayBatch(ctx)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if report.Decayed != 0 {
		t.Fatalf("second run decayed = %d, want 0", report.Decayed)
	}
	rec, err = env.masteryRepo.Get(ctx, nil, env.userID, "docker_run")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ProficiencyScore != firstScore {
		t.Fatalf("score moved from %v to %v on an immediate re-run", firstScore, rec.ProficiencyScore)
	}
}

func TestDecayWriteYieldsToConcurrentAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "docker run nginx", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	env.backdate(t, "docker_run", 30)

	// A batch reads the record, then an attempt commits before its write.
	stale, err := env.masteryRepo.Get(ctx, nil, env.userID, "docker_run")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "docker run nginx", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("interleaved attempt: %v", err)
	}
	fresh, err := env.masteryRepo.Get(ctx, nil, env.userID, "docker_run")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	ok, err := env.masteryRepo.ApplyDecay(ctx, nil, stale.ID, stale.Version, 46.36, time.Now().UTC())
	if err != nil {
		t.Fatalf("ApplyDecay: %v", err)
	}
	if ok {
		t.Fatal("a decay write holding a stale version must be rejected")
	}

	rec, err := env.masteryRepo.Get(ctx, nil, env.userID, "docker_run")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ProficiencyScore != fresh.ProficiencyScore {
		t.Fatalf("score = %v, the attempt's %v must survive", rec.ProficiencyScore, fresh.ProficiencyScore)
	}
}

func TestCommandsAtRiskOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, cmd := range []string{"docker run nginx", "kubectl get pods"} {
		if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
			Command: cmd, Success: true, AttemptNumber: 1,
		}); err != nil {
			t.Fatalf("seed %s: %v", cmd, err)
		}
	}
	env.backdate(t, "docker_run", 60)
	env.backdate(t, "kubectl_get_pods", 200)

	entries, err := env.decay.CommandsAtRisk(ctx, env.userID)
	if err != nil {
		t.Fatalf("CommandsAtRisk: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].CanonicalCommand != "kubectl_get_pods" {
		t.Fatalf("most decayed first, got %q", entries[0].CanonicalCommand)
	}
	if entries[0].CurrentScore > entries[1].CurrentScore {
		t.Fatal("entries must sort ascending by score")
	}
}

func TestResetStaleRelearnsLongOverdueItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "kubectl get pods", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := env.spaced.ScheduleReview(ctx, env.userID, "kubectl get pods", fsrs.GradeGood); err != nil {
		t.Fatalf("ScheduleReview: %v", err)
	}

	// Barely overdue: not stale, nothing reset.
	past := time.Now().UTC().AddDate(0, 0, -1)
	if err := env.db.Model(&types.SpacedRepetitionItem{}).
		Where("user_id = ?", env.userID).
		Updates(map[string]any{"due_at": past, "interval_days": 4.0}).Error; err != nil {
		t.Fatalf("backdate due: %v", err)
	}
	reset, err := env.spaced.ResetStale(ctx, env.userID)
	if err != nil {
		t.Fatalf("ResetStale: %v", err)
	}
	if reset != 0 {
		t.Fatalf("reset = %d, want 0", reset)
	}

	// Overdue past twice the interval: stale, reset to initial stability.
	past = time.Now().UTC().AddDate(0, 0, -10)
	if err := env.db.Model(&types.SpacedRepetitionItem{}).
		Where("user_id = ?", env.userID).
		Update("due_at", past).Error; err != nil {
		t.Fatalf("backdate due: %v", err)
	}
	reset, err = env.spaced.ResetStale(ctx, env.userID)
	if err != nil {
		t.Fatalf("ResetStale: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	item, err := env.srItemRepo.Get(ctx, nil, env.userID, "kubectl_get_pods")
	if err != nil || item == nil {
		t.Fatalf("Get item: %v", err)
	}
	if item.IntervalDays != 0 {
		t.Fatalf("interval = %v, want 0", item.IntervalDays)
	}
	if item.LastGrade != fsrs.GradeAgain.String() {
		t.Fatalf("last grade = %q, want again", item.LastGrade)
	}
	if item.DueAt == nil || item.DueAt.After(time.Now().UTC()) {
		t.Fatal("reset item must be due immediately")
	}
}

func TestScheduleReviewAndQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "kubectl get pods", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sched, err := env.spaced.ScheduleReview(ctx, env.userID, "kubectl get pods", fsrs.GradeGood)
	if err != nil {
		t.Fatalf("ScheduleReview: %v", err)
	}
	if !sched.DueAt.After(time.Now()) {
		t.Fatal("due date must be in the future")
	}
	if sched.ReviewCount != 1 {
		t.Fatalf("review count = %d, want 1", sched.ReviewCount)
	}

	// Not due yet, so the queue is empty.
	queue, err := env.spaced.ReviewQueue(ctx, env.userID, 10)
	if err != nil {
		t.Fatalf("ReviewQueue: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("queue = %d items, want 0", len(queue))
	}

	// Push the due date into the past and the item surfaces.
	past := time.Now().UTC().AddDate(0, 0, -2)
	if err := env.db.Model(&types.SpacedRepetitionItem{}).
		Where("user_id = ?", env.userID).
		Update("due_at", past).Error; err != nil {
		t.Fatalf("backdate due: %v", err)
	}
	queue, err = env.spaced.ReviewQueue(ctx, env.userID, 10)
	if err != nil {
		t.Fatalf("ReviewQueue: %v", err)
	}
	if len(queue) != 1 || queue[0].CanonicalCommand != "kubectl_get_pods" {
		t.Fatalf("queue = %+v, want the overdue item", queue)
	}
	if queue[0].OverdueDays <= 0 {
		t.Fatal("overdue days must be positive")
	}
}

func TestScheduleReviewRequiresMastery(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.spaced.ScheduleReview(context.Background(), env.userID, "docker ps", fsrs.GradeGood)
	var apiErr *apierr.Error
	if !asAPIError(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("want 404 api error, got %v", err)
	}
}

func TestTargetedSessionLevels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Weak: one success then repeated failures.
	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "docker ps", Success: true, AttemptNumber: 3,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Strong.
	if _, err := env.mastery.RecordAttempt(ctx, env.userID, AttemptInput{
		Command: "docker run nginx", Success: true, AttemptNumber: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	session, err := env.drills.TargetedSession(ctx, env.userID, LevelAdvanced)
	if err != nil {
		t.Fatalf("TargetedSession: %v", err)
	}
	if len(session.Drills) != 1 || session.Drills[0].CanonicalCommand != "docker_ps" {
		t.Fatalf("drills = %+v, want only docker_ps below 80", session.Drills)
	}
	if session.EstimatedMinutes < 1 {
		t.Fatal("session must estimate at least a minute")
	}
	patterns := session.Drills[0].AnswerPatterns
	if len(patterns) == 0 {
		t.Fatal("drill must carry answer patterns")
	}
	re := regexp.MustCompile(patterns[0])
	if !re.MatchString("docker ps -a") {
		t.Fatalf("pattern %q should match a docker ps invocation", patterns[0])
	}

	if _, err := env.drills.TargetedSession(ctx, env.userID, "expert"); err == nil {
		t.Fatal("unknown level must be rejected")
	}
}

func asAPIError(err error, target **apierr.Error) bool {
	return errors.As(err, target)
}
