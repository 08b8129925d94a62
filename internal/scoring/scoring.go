// Package scoring holds the pure score formula, the per-type correctness
// evaluators, the streak tracker, and the chronological replay fold that the
// regrade coordinator builds on. Nothing here touches storage or clocks.
package scoring

import (
	"math"
	"sort"
	"strings"

	"quizbowl-engine/internal/domain"
)

const basePoints = 1000

// difficultyWeight maps the difficulty tier to its multiplier.
func difficultyWeight(d domain.Difficulty) int {
	switch d {
	case domain.DifficultyMedium:
		return 2
	case domain.DifficultyDifficult:
		return 3
	default:
		return 1
	}
}

// DifficultyFactor returns the 1/2/3 multiplier for a difficulty tier.
func DifficultyFactor(d domain.Difficulty) float64 {
	return float64(difficultyWeight(d))
}

// speedHundredths implements the 5-second step function in integer hundredths
// so the published factors (1.00 down to 0.62 by 0.02) stay exact.
func speedHundredths(timeSpent float64) int {
	if timeSpent < 0 {
		return 100
	}
	// Anything from 100s up is already at the floor; converting enormous or
	// NaN floats to int is implementation-specific, so settle before that.
	if timeSpent >= 100 || math.IsNaN(timeSpent) {
		return 62
	}
	bucket := int(timeSpent / 5)
	h := 100 - 2*bucket
	if h < 62 {
		return 62
	}
	return h
}

// SpeedFactor returns the response-time multiplier in [0.62, 1.00],
// non-increasing in timeSpent.
func SpeedFactor(timeSpent float64) float64 {
	return float64(speedHundredths(timeSpent)) / 100
}

// streakTenths returns the streak multiplier in integer tenths, capped at the
// streak-4 bonus.
func streakTenths(streak int) int {
	switch {
	case streak <= 1:
		return 10
	case streak == 2:
		return 11
	case streak == 3:
		return 12
	default:
		return 13
	}
}

// StreakFactor returns the consecutive-correct multiplier in [1.0, 1.3].
func StreakFactor(streak int) float64 {
	return float64(streakTenths(streak)) / 10
}

// Points computes the credit for a correct answer given the team's streak
// BEFORE this answer. The factors are exact hundredths/tenths, so
// round(1000 x difficulty x speed x streak) reduces to integer arithmetic.
func Points(d domain.Difficulty, timeSpent float64, streakBefore int) int {
	return difficultyWeight(d) * speedHundredths(timeSpent) * streakTenths(streakBefore+1)
}

// Score is the full formula: zero unless correct, otherwise Points.
func Score(d domain.Difficulty, timeSpent float64, streakBefore int, isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	return Points(d, timeSpent, streakBefore)
}

// NextStreak advances the capped consecutive-correct counter. A pending
// verdict (nil) leaves the streak untouched and credits nothing.
func NextStreak(old int, isCorrect *bool) int {
	if isCorrect == nil {
		return old
	}
	if !*isCorrect {
		return 0
	}
	if old+1 > domain.StreakCap {
		return domain.StreakCap
	}
	return old + 1
}

// Verdict is the outcome of evaluating a raw answer against a key.
// IsCorrect nil means the type needs manual grading.
type Verdict struct {
	IsCorrect  *bool
	MTFCorrect int
	MTFTotal   int
}

// Evaluate applies the per-type correctness rule. saq/spot answers come back
// pending; use MatchText for the regrade/auto-check path.
func Evaluate(qt domain.QuestionType, key domain.AnswerKey, v domain.AnswerValue) Verdict {
	switch qt {
	case domain.QuestionMCQ:
		correct := v.Choice == key.Choice
		return Verdict{IsCorrect: &correct}
	case domain.QuestionMTF:
		return evaluateMTF(key.Statements, v.Statements)
	default:
		return Verdict{}
	}
}

// evaluateMTF is all-or-nothing; the partial count is display-only. A length
// mismatch is simply incorrect.
func evaluateMTF(key, got []bool) Verdict {
	verdict := Verdict{MTFTotal: len(key)}
	matched := 0
	for i := range key {
		if i < len(got) && got[i] == key[i] {
			matched++
		}
	}
	verdict.MTFCorrect = matched
	correct := len(got) == len(key) && matched == len(key)
	verdict.IsCorrect = &correct
	return verdict
}

// MatchText is the saq/spot comparison used by regrade and manual auto-check:
// case-insensitive, trimmed, exact against the key or any alternate.
func MatchText(key domain.AnswerKey, text string) bool {
	got := normalizeText(text)
	if got == normalizeText(key.Text) {
		return true
	}
	for _, alt := range key.Alternates {
		if got == normalizeText(alt) {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ReplayOutcome is the fully re-derived state after folding a team's history.
// Answers holds re-derived copies in chronological order; only entries whose
// derived fields differ from the stored ones need writing back.
type ReplayOutcome struct {
	Score   int
	Streak  int
	Answers []domain.Answer
}

// Replay folds a team's complete answer history through the formula and the
// streak tracker from a zero state, in SubmittedAt order (id as tie-break so
// the fold is deterministic).
//
// When targetQuestionID is non-empty, records for that question are
// re-evaluated under newKey; saq/spot targets are auto-checked by text match.
// All other records keep their stored correctness, but their points are still
// re-derived because the streak at their position may have shifted.
func Replay(questions map[string]domain.Question, history []domain.Answer, targetQuestionID string, newKey domain.AnswerKey) ReplayOutcome {
	answers := make([]domain.Answer, len(history))
	copy(answers, history)
	sort.SliceStable(answers, func(i, j int) bool {
		if !answers[i].SubmittedAt.Equal(answers[j].SubmittedAt) {
			return answers[i].SubmittedAt.Before(answers[j].SubmittedAt)
		}
		return answers[i].ID < answers[j].ID
	})

	outcome := ReplayOutcome{Answers: answers}
	for i := range answers {
		a := &answers[i]

		isCorrect := a.IsCorrect
		if a.QuestionID == targetQuestionID {
			switch a.Type {
			case domain.QuestionSAQ, domain.QuestionSpot:
				c := MatchText(newKey, a.Value.Text)
				isCorrect = &c
			default:
				verdict := Evaluate(a.Type, newKey, a.Value)
				isCorrect = verdict.IsCorrect
				a.MTFCorrectCount = verdict.MTFCorrect
				a.MTFTotalCount = verdict.MTFTotal
			}
		}

		points := 0
		if isCorrect != nil && *isCorrect {
			difficulty := domain.DifficultyEasy
			if q, ok := questions[a.QuestionID]; ok {
				difficulty = q.Difficulty
			}
			points = Points(difficulty, a.TimeSpentSeconds, outcome.Streak)
		}

		a.IsCorrect = isCorrect
		a.Points = points
		outcome.Score += points
		outcome.Streak = NextStreak(outcome.Streak, isCorrect)
	}
	return outcome
}
