package scoring_test

import (
	"math"
	"testing"
	"time"

	"quizbowl-engine/internal/domain"
	"quizbowl-engine/internal/scoring"
)

func TestIncorrectAlwaysScoresZero(t *testing.T) {
	for _, d := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyDifficult} {
		for _, ts := range []float64{-5, 0, 12.3, 99, 300} {
			for streak := 0; streak <= 4; streak++ {
				if got := scoring.Score(d, ts, streak, false); got != 0 {
					t.Fatalf("Score(%s, %v, %d, false) = %d, want 0", d, ts, streak, got)
				}
			}
		}
	}
}

func TestSpeedFactorEndpoints(t *testing.T) {
	if got := scoring.SpeedFactor(0); got != 1.00 {
		t.Fatalf("SpeedFactor(0) = %v, want 1.00", got)
	}
	if got := scoring.SpeedFactor(100); got != 0.62 {
		t.Fatalf("SpeedFactor(100) = %v, want 0.62", got)
	}
	if got := scoring.SpeedFactor(-3); got != 1.00 {
		t.Fatalf("SpeedFactor(-3) = %v, want clamp to 1.00", got)
	}
	if got := scoring.SpeedFactor(4.999); got != 1.00 {
		t.Fatalf("SpeedFactor(4.999) = %v, want 1.00", got)
	}
	if got := scoring.SpeedFactor(5); got != 0.98 {
		t.Fatalf("SpeedFactor(5) = %v, want 0.98", got)
	}
	if got := scoring.SpeedFactor(95); got != 0.62 {
		t.Fatalf("SpeedFactor(95) = %v, want 0.62", got)
	}
}

func TestSpeedFactorExtremeTimesStayFloored(t *testing.T) {
	// int conversion of a huge float is implementation-specific; every time
	// at or past 100s must settle at the floor before that conversion.
	for _, ts := range []float64{100, 1e6, 1e19, 1e30, 1e300, math.MaxFloat64, math.Inf(1), math.NaN()} {
		if got := scoring.SpeedFactor(ts); got != 0.62 {
			t.Fatalf("SpeedFactor(%v) = %v, want 0.62", ts, got)
		}
	}
}

func TestSpeedFactorNonIncreasing(t *testing.T) {
	prev := scoring.SpeedFactor(0)
	for ts := 0.5; ts <= 120; ts += 0.5 {
		cur := scoring.SpeedFactor(ts)
		if cur > prev {
			t.Fatalf("SpeedFactor increased at t=%v: %v > %v", ts, cur, prev)
		}
		prev = cur
	}
}

func TestStreakFactorCap(t *testing.T) {
	if scoring.StreakFactor(4) != 1.3 || scoring.StreakFactor(5) != 1.3 {
		t.Fatalf("streak factor cap broken: f(4)=%v f(5)=%v", scoring.StreakFactor(4), scoring.StreakFactor(5))
	}
	if scoring.StreakFactor(0) != 1.0 || scoring.StreakFactor(1) != 1.0 {
		t.Fatalf("streak factor floor broken: f(0)=%v f(1)=%v", scoring.StreakFactor(0), scoring.StreakFactor(1))
	}
}

func TestScoreKnownValues(t *testing.T) {
	if got := scoring.Score(domain.DifficultyEasy, 0, 0, true); got != 1000 {
		t.Fatalf("easy instant answer = %d, want 1000", got)
	}
	// speedFactor(27)=0.90, streakFactor(3+1)=1.3, 1000 x 3 x 0.90 x 1.3 = 3510
	if got := scoring.Score(domain.DifficultyDifficult, 27, 3, true); got != 3510 {
		t.Fatalf("difficult 27s streak-3 answer = %d, want 3510", got)
	}
}

func TestNextStreak(t *testing.T) {
	yes, no := true, false
	if got := scoring.NextStreak(2, &yes); got != 3 {
		t.Fatalf("correct should advance streak: got %d", got)
	}
	if got := scoring.NextStreak(4, &yes); got != 4 {
		t.Fatalf("streak must cap at 4: got %d", got)
	}
	if got := scoring.NextStreak(3, &no); got != 0 {
		t.Fatalf("incorrect should reset streak: got %d", got)
	}
	if got := scoring.NextStreak(3, nil); got != 3 {
		t.Fatalf("pending should leave streak alone: got %d", got)
	}
}

func TestEvaluateMCQ(t *testing.T) {
	key := domain.AnswerKey{Choice: 2}
	v := scoring.Evaluate(domain.QuestionMCQ, key, domain.AnswerValue{Choice: 2})
	if v.IsCorrect == nil || !*v.IsCorrect {
		t.Fatalf("expected exact index match to be correct")
	}
	v = scoring.Evaluate(domain.QuestionMCQ, key, domain.AnswerValue{Choice: 1})
	if v.IsCorrect == nil || *v.IsCorrect {
		t.Fatalf("expected mismatch to be incorrect")
	}
}

func TestEvaluateMTF(t *testing.T) {
	key := domain.AnswerKey{Statements: []bool{true, false, true}}

	v := scoring.Evaluate(domain.QuestionMTF, key, domain.AnswerValue{Statements: []bool{true, false, true}})
	if v.IsCorrect == nil || !*v.IsCorrect || v.MTFCorrect != 3 || v.MTFTotal != 3 {
		t.Fatalf("all-match should be correct 3/3, got %+v", v)
	}

	v = scoring.Evaluate(domain.QuestionMTF, key, domain.AnswerValue{Statements: []bool{true, true, true}})
	if v.IsCorrect == nil || *v.IsCorrect {
		t.Fatalf("partial match must not score, got %+v", v)
	}
	if v.MTFCorrect != 2 || v.MTFTotal != 3 {
		t.Fatalf("partial count should still report 2/3, got %d/%d", v.MTFCorrect, v.MTFTotal)
	}

	v = scoring.Evaluate(domain.QuestionMTF, key, domain.AnswerValue{Statements: []bool{true, false}})
	if v.IsCorrect == nil || *v.IsCorrect {
		t.Fatalf("length mismatch must be incorrect, got %+v", v)
	}
}

func TestEvaluateSAQIsPending(t *testing.T) {
	v := scoring.Evaluate(domain.QuestionSAQ, domain.AnswerKey{Text: "mitochondria"}, domain.AnswerValue{Text: "mitochondria"})
	if v.IsCorrect != nil {
		t.Fatalf("saq must stay pending until graded, got %v", *v.IsCorrect)
	}
}

func TestMatchText(t *testing.T) {
	key := domain.AnswerKey{Text: "Mitochondria", Alternates: []string{"the mitochondrion"}}
	if !scoring.MatchText(key, "  mitochondria ") {
		t.Fatalf("trimmed case-insensitive match should pass")
	}
	if !scoring.MatchText(key, "THE MITOCHONDRION") {
		t.Fatalf("alternate match should pass")
	}
	if scoring.MatchText(key, "mitochondrial") {
		t.Fatalf("near-miss must not pass")
	}
}

func TestReplayMatchesManualFold(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	yes, no := true, false

	questions := map[string]domain.Question{
		"q1": {ID: "q1", Type: domain.QuestionMCQ, Difficulty: domain.DifficultyEasy, Key: domain.AnswerKey{Choice: 0}},
		"q2": {ID: "q2", Type: domain.QuestionMCQ, Difficulty: domain.DifficultyMedium, Key: domain.AnswerKey{Choice: 1}},
		"q3": {ID: "q3", Type: domain.QuestionMCQ, Difficulty: domain.DifficultyDifficult, Key: domain.AnswerKey{Choice: 2}},
	}
	history := []domain.Answer{
		{ID: "t1:q2", QuestionID: "q2", Type: domain.QuestionMCQ, SubmittedAt: base.Add(time.Minute), TimeSpentSeconds: 10, IsCorrect: &yes},
		{ID: "t1:q1", QuestionID: "q1", Type: domain.QuestionMCQ, SubmittedAt: base, TimeSpentSeconds: 0, IsCorrect: &yes},
		{ID: "t1:q3", QuestionID: "q3", Type: domain.QuestionMCQ, SubmittedAt: base.Add(2 * time.Minute), TimeSpentSeconds: 27, IsCorrect: &no},
	}

	got := scoring.Replay(questions, history, "", domain.AnswerKey{})

	// Manual fold in chronological order: q1 then q2 then q3.
	wantScore := 0
	streak := 0
	wantScore += scoring.Score(domain.DifficultyEasy, 0, streak, true)
	streak = scoring.NextStreak(streak, &yes)
	wantScore += scoring.Score(domain.DifficultyMedium, 10, streak, true)
	streak = scoring.NextStreak(streak, &yes)
	wantScore += scoring.Score(domain.DifficultyDifficult, 27, streak, false)
	streak = scoring.NextStreak(streak, &no)

	if got.Score != wantScore || got.Streak != streak {
		t.Fatalf("replay got score=%d streak=%d, want score=%d streak=%d", got.Score, got.Streak, wantScore, streak)
	}
	if got.Answers[0].QuestionID != "q1" || got.Answers[2].QuestionID != "q3" {
		t.Fatalf("replay must process in SubmittedAt order, got %s..%s", got.Answers[0].QuestionID, got.Answers[2].QuestionID)
	}
}

func TestReplayReevaluatesTargetAndDownstream(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	yes := true

	questions := map[string]domain.Question{
		"q1": {ID: "q1", Type: domain.QuestionMCQ, Difficulty: domain.DifficultyEasy, Key: domain.AnswerKey{Choice: 0}},
		"q2": {ID: "q2", Type: domain.QuestionMCQ, Difficulty: domain.DifficultyEasy, Key: domain.AnswerKey{Choice: 1}},
	}
	wrong := false
	history := []domain.Answer{
		// Stored as incorrect under the old key; the new key credits choice 1.
		{ID: "t1:q1", QuestionID: "q1", Type: domain.QuestionMCQ, Value: domain.AnswerValue{Choice: 1}, SubmittedAt: base, TimeSpentSeconds: 0, IsCorrect: &wrong, Points: 0},
		{ID: "t1:q2", QuestionID: "q2", Type: domain.QuestionMCQ, Value: domain.AnswerValue{Choice: 1}, SubmittedAt: base.Add(time.Minute), TimeSpentSeconds: 0, IsCorrect: &yes, Points: 1000},
	}

	got := scoring.Replay(questions, history, "q1", domain.AnswerKey{Choice: 1})

	if got.Answers[0].IsCorrect == nil || !*got.Answers[0].IsCorrect {
		t.Fatalf("target answer should flip correct under new key")
	}
	if got.Answers[0].Points != 1000 {
		t.Fatalf("target answer points = %d, want 1000", got.Answers[0].Points)
	}
	// Downstream answer now rides a streak of 1, so its credit grows to the
	// streak-2 factor: 1000 x 1.1.
	if got.Answers[1].Points != 1100 {
		t.Fatalf("downstream points = %d, want 1100", got.Answers[1].Points)
	}
	if got.Score != 2100 || got.Streak != 2 {
		t.Fatalf("replay state = (%d, %d), want (2100, 2)", got.Score, got.Streak)
	}
}
