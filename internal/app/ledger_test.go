package app_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"quizbowl-engine/internal/domain"
)

func TestSubmitCorrectAnswerCreditsScoreAndStreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTeam(t, "t1", 1, 0, 0)
	f.seedRound(t, "r1")
	f.seedQuestion(t, mcq("q1", "r1", 1, domain.DifficultyMedium, 2))

	result, err := f.submissions.Submit(ctx, "t1", "q1", "r1", domain.QuestionMCQ, domain.AnswerValue{Choice: 2}, 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.IsCorrect == nil || !*result.IsCorrect {
		t.Fatalf("expected correct verdict, got %+v", result)
	}
	// medium x instant x first-of-streak: 1000 x 2 x 1.00 x 1.0
	if result.Points != 2000 {
		t.Fatalf("points = %d, want 2000", result.Points)
	}
	if result.Streak != 1 {
		t.Fatalf("streak = %d, want 1", result.Streak)
	}

	team := f.team(t, "t1")
	if team.Score != 2000 || team.Streak != 1 {
		t.Fatalf("team state = (%d, %d), want (2000, 1)", team.Score, team.Streak)
	}
}

func TestSubmitIncorrectResetsStreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTeam(t, "t1", 1, 500, 3)
	f.seedRound(t, "r1")
	f.seedQuestion(t, mcq("q1", "r1", 1, domain.DifficultyEasy, 0))

	result, err := f.submissions.Submit(ctx, "t1", "q1", "r1", domain.QuestionMCQ, domain.AnswerValue{Choice: 3}, 10)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Points != 0 || result.Streak != 0 {
		t.Fatalf("wrong answer must zero points and streak, got %+v", result)
	}
	team := f.team(t, "t1")
	if team.Score != 500 || team.Streak != 0 {
		t.Fatalf("team state = (%d, %d), want (500, 0)", team.Score, team.Streak)
	}
}

func TestSubmitSAQStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTeam(t, "t1", 1, 100, 2)
	f.seedRound(t, "r1")
	f.seedQuestion(t, saq("q1", "r1", 1, domain.DifficultyDifficult, "insulin"))

	result, err := f.submissions.Submit(ctx, "t1", "q1", "r1", domain.QuestionSAQ, domain.AnswerValue{Text: "insulin"}, 5)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.IsCorrect != nil {
		t.Fatalf("saq must be pending, got %v", *result.IsCorrect)
	}
	if result.Points != 0 {
		t.Fatalf("pending answer must not score, got %d", result.Points)
	}

	// Pending neither advances nor resets the streak.
	team := f.team(t, "t1")
	if team.Score != 100 || team.Streak != 2 {
		t.Fatalf("team state = (%d, %d), want unchanged (100, 2)", team.Score, team.Streak)
	}
}

func TestResubmissionOverwritesWithoutDoubleCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTeam(t, "t1", 1, 0, 0)
	f.seedRound(t, "r1")
	f.seedQuestion(t, mcq("q1", "r1", 1, domain.DifficultyEasy, 1))

	if _, err := f.submissions.Submit(ctx, "t1", "q1", "r1", domain.QuestionMCQ, domain.AnswerValue{Choice: 1}, 0); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := f.submissions.Submit(ctx, "t1", "q1", "r1", domain.QuestionMCQ, domain.AnswerValue{Choice: 1}, 12)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	team := f.team(t, "t1")
	if team.Score != second.Points {
		t.Fatalf("score = %d, want exactly the overwriting submission's %d", team.Score, second.Points)
	}

	history, err := f.store.Answers().ListByTeam(ctx, "t1")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("composite id must keep one record, got %d", len(history))
	}
}

func TestSubmitValidationAndNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTeam(t, "t1", 1, 0, 0)
	f.seedRound(t, "r1")
	f.seedQuestion(t, mcq("q1", "r1", 1, domain.DifficultyEasy, 0))

	if _, err := f.submissions.Submit(ctx, "", "q1", "r1", domain.QuestionMCQ, domain.AnswerValue{}, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing teamId should be a validation error, got %v", err)
	}
	if _, err := f.submissions.Submit(ctx, "t1", "q-missing", "r1", domain.QuestionMCQ, domain.AnswerValue{}, 0); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("unknown question should be not-found, got %v", err)
	}
	if _, err := f.submissions.Submit(ctx, "t-missing", "q1", "r1", domain.QuestionMCQ, domain.AnswerValue{}, 0); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("unknown team should be not-found, got %v", err)
	}
	if _, err := f.submissions.Submit(ctx, "t1", "q1", "r1", domain.QuestionSAQ, domain.AnswerValue{}, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("type mismatch should be a validation error, got %v", err)
	}
	for _, ts := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := f.submissions.Submit(ctx, "t1", "q1", "r1", domain.QuestionMCQ, domain.AnswerValue{Choice: 0}, ts); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("timeSpent %v should be a validation error, got %v", ts, err)
		}
	}

	// Nothing above may have touched the ledger or the team.
	if _, err := f.store.Answers().Get(ctx, domain.AnswerID("t1", "q1")); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("rejected submissions must not write answers, got %v", err)
	}
	if team := f.team(t, "t1"); team.Score != 0 || team.Streak != 0 {
		t.Fatalf("rejected submissions must not mutate the team, got %+v", team)
	}
}
