package fsrs

import (
	"testing"
	"time"
)

func TestEasyTwiceGrowsIntervalStrictly(t *testing.T) {
	s := NewScheduler(DefaultParams())
	now := time.Now()

	first, err := s.Schedule(Card{}, GradeEasy, now)
	if err != nil {
		t.Fatalf("first schedule: %v", err)
	}

	second, err := s.Schedule(Card{
		Difficulty:   first.Difficulty,
		Stability:    first.Stability,
		ElapsedDays:  first.IntervalDays,
		Reps:         first.Reps,
		Lapses:       first.Lapses,
		LastReviewAt: first.LastReviewAt,
	}, GradeEasy, first.DueAt)
	if err != nil {
		t.Fatalf("second schedule: %v", err)
	}

	if second.IntervalDays <= first.IntervalDays {
		t.Fatalf("second easy interval %v not strictly greater than first %v",
			second.IntervalDays, first.IntervalDays)
	}
	if second.Stability <= first.Stability {
		t.Fatalf("stability should grow on easy: %v then %v", first.Stability, second.Stability)
	}
}

func TestDueAlwaysStrictlyFuture(t *testing.T) {
	s := NewScheduler(DefaultParams())
	now := time.Now()

	for _, grade := range []Grade{GradeAgain, GradeHard, GradeGood, GradeEasy} {
		t.Run(grade.String(), func(t *testing.T) {
			res, err := s.Schedule(Card{}, grade, now)
			if err != nil {
				t.Fatalf("schedule: %v", err)
			}
			if !res.DueAt.After(now) {
				t.Fatalf("due %v not after %v", res.DueAt, now)
			}
			if !res.LastReviewAt.Equal(now) {
				t.Fatalf("last review = %v, want %v", res.LastReviewAt, now)
			}
		})
	}
}

func TestAgainIsRelearningStep(t *testing.T) {
	s := NewScheduler(DefaultParams())
	now := time.Now()

	seasoned := Card{Difficulty: 5, Stability: 20, ElapsedDays: 10, Reps: 6, Lapses: 1}
	res, err := s.Schedule(seasoned, GradeAgain, now)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if res.Lapses != 2 {
		t.Fatalf("lapses = %d, want 2", res.Lapses)
	}
	if res.Stability >= seasoned.Stability {
		t.Fatalf("stability should collapse on a lapse: %v -> %v", seasoned.Stability, res.Stability)
	}
	if res.IntervalDays != 0.01 {
		t.Fatalf("interval = %v, want the 15-minute relearning step", res.IntervalDays)
	}
	if due := res.DueAt.Sub(now); due < 10*time.Minute || due > 20*time.Minute {
		t.Fatalf("relearning due in %v, want about 15 minutes", due)
	}
	if res.Difficulty <= seasoned.Difficulty {
		t.Fatalf("difficulty should rise on a lapse: %v -> %v", seasoned.Difficulty, res.Difficulty)
	}
}

func TestGradeMinimumIntervals(t *testing.T) {
	s := NewScheduler(DefaultParams())
	now := time.Now()

	// Tiny stability forces every grade onto its minimum interval.
	weak := Card{Difficulty: 9, Stability: 0.1, Reps: 3, Lapses: 2}

	hard, _ := s.Schedule(weak, GradeHard, now)
	if hard.IntervalDays < 0.8 {
		t.Fatalf("hard interval %v below its floor", hard.IntervalDays)
	}
	good, _ := s.Schedule(weak, GradeGood, now)
	if good.IntervalDays < 2 {
		t.Fatalf("good interval %v below 2 days", good.IntervalDays)
	}
	easy, _ := s.Schedule(weak, GradeEasy, now)
	if easy.IntervalDays < 4*1.3 {
		t.Fatalf("easy interval %v below its boosted floor", easy.IntervalDays)
	}
}

func TestIntervalCappedAtMaximum(t *testing.T) {
	params := DefaultParams()
	params.MaximumInterval = 180
	s := NewScheduler(params)

	res, err := s.Schedule(Card{Difficulty: 2, Stability: 500, Reps: 20}, GradeEasy, time.Now())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if res.IntervalDays > 180 {
		t.Fatalf("interval %v exceeds maximum", res.IntervalDays)
	}
}

func TestDifficultyStaysClamped(t *testing.T) {
	s := NewScheduler(DefaultParams())
	now := time.Now()

	card := Card{Difficulty: 9.8, Stability: 1, Reps: 1}
	for i := 0; i < 10; i++ {
		res, err := s.Schedule(card, GradeAgain, now)
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if res.Difficulty > 10 {
			t.Fatalf("difficulty %v exceeded 10", res.Difficulty)
		}
		card.Difficulty = res.Difficulty
		card.Stability = res.Stability
	}

	card = Card{Difficulty: 1.1, Stability: 5, Reps: 1}
	for i := 0; i < 10; i++ {
		res, err := s.Schedule(card, GradeEasy, now)
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if res.Difficulty < 1 {
			t.Fatalf("difficulty %v fell below 1", res.Difficulty)
		}
		card.Difficulty = res.Difficulty
		card.Stability = res.Stability
	}
}

func TestFirstReviewStabilitySeededByGrade(t *testing.T) {
	s := NewScheduler(DefaultParams())
	now := time.Now()

	prev := 0.0
	for _, grade := range []Grade{GradeAgain, GradeHard, GradeGood, GradeEasy} {
		res, err := s.Schedule(Card{}, grade, now)
		if err != nil {
			t.Fatalf("schedule %v: %v", grade, err)
		}
		if res.Stability <= prev {
			t.Fatalf("first-review stability for %v = %v, want above %v", grade, res.Stability, prev)
		}
		prev = res.Stability
	}
}

func TestNewCardSeededFromParams(t *testing.T) {
	s := NewScheduler(DefaultParams())

	res, err := s.Schedule(Card{}, GradeGood, time.Now())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if res.Reps != 1 || res.Lapses != 0 {
		t.Fatalf("reps/lapses = %d/%d, want 1/0", res.Reps, res.Lapses)
	}
	if res.Stability <= 0 {
		t.Fatalf("stability %v not seeded", res.Stability)
	}
}

func TestInvalidGradeRejected(t *testing.T) {
	s := NewScheduler(DefaultParams())
	if _, err := s.Schedule(Card{}, Grade(7), time.Now()); err == nil {
		t.Fatal("expected an error for an out-of-range grade")
	}
	if _, err := ParseGrade("meh"); err == nil {
		t.Fatal("expected an error for an unknown grade name")
	}
	for _, name := range []string{"again", "hard", "good", "easy"} {
		if _, err := ParseGrade(name); err != nil {
			t.Fatalf("ParseGrade(%q): %v", name, err)
		}
	}
}

func TestPredictRecall(t *testing.T) {
	s := NewScheduler(DefaultParams())

	if got := s.PredictRecall(5, 0); got != 1.0 {
		t.Fatalf("recall at day 0 = %v, want 1", got)
	}
	p1 := s.PredictRecall(5, 3)
	p2 := s.PredictRecall(5, 10)
	if p1 <= p2 {
		t.Fatalf("recall should fall over time: %v then %v", p1, p2)
	}
	if p1 <= 0 || p1 >= 1 {
		t.Fatalf("recall %v out of (0,1)", p1)
	}
}

func TestGradeFromOutcome(t *testing.T) {
	cases := []struct {
		success bool
		latency time.Duration
		want    Grade
	}{
		{false, time.Second, GradeAgain},
		{false, 0, GradeAgain},
		{true, 3 * time.Second, GradeEasy},
		{true, 10 * time.Second, GradeGood},
		{true, 30 * time.Second, GradeHard},
		{true, 0, GradeGood},
	}
	for _, tc := range cases {
		if got := GradeFromOutcome(tc.success, tc.latency); got != tc.want {
			t.Fatalf("GradeFromOutcome(%v, %v) = %v, want %v", tc.success, tc.latency, got, tc.want)
		}
	}
}
