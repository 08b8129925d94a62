package app

import (
	"context"
	"math"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/domain"
	"quizbowl-engine/internal/scoring"
)

// SubmissionService is the submission ledger: at most one stored answer per
// (team, question), auto-graded where the type allows, with the team's score
// and streak mutated in the same unit of work.
type SubmissionService struct {
	store     Store
	questions QuestionProvider
	clock     clockwork.Clock
	log       zerolog.Logger
}

func NewSubmissionService(store Store, questions QuestionProvider, clock clockwork.Clock, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{store: store, questions: questions, clock: clock, log: log}
}

// Submit records a team's answer. A second call for the same (team, question)
// overwrites the first and re-derives the credit, so the ledger never
// double-counts; the first successful submission is still what callers should
// treat as authoritative.
func (s *SubmissionService) Submit(ctx context.Context, teamID, questionID, roundID string, qt domain.QuestionType, value domain.AnswerValue, timeSpent float64) (domain.SubmitResult, error) {
	if teamID == "" || questionID == "" || roundID == "" {
		return domain.SubmitResult{}, domain.Validationf("teamId, questionId and roundId are required")
	}
	switch qt {
	case domain.QuestionMCQ, domain.QuestionMTF, domain.QuestionSAQ, domain.QuestionSpot:
	default:
		return domain.SubmitResult{}, domain.Validationf("unknown question type %q", qt)
	}
	if math.IsNaN(timeSpent) || math.IsInf(timeSpent, 0) {
		return domain.SubmitResult{}, domain.Validationf("timeSpent must be a finite number")
	}

	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if question.Type != qt {
		return domain.SubmitResult{}, domain.Validationf("question %s is %s, got %s submission", questionID, question.Type, qt)
	}

	var result domain.SubmitResult
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		team, err := tx.Teams().Get(ctx, teamID)
		if err != nil {
			return err
		}

		verdict := scoring.Evaluate(question.Type, question.Key, value)
		points := 0
		if verdict.IsCorrect != nil && *verdict.IsCorrect {
			points = scoring.Points(question.Difficulty, timeSpent, team.Streak)
		}

		answer := domain.Answer{
			ID:               domain.AnswerID(teamID, questionID),
			TeamID:           teamID,
			QuestionID:       questionID,
			RoundID:          roundID,
			Type:             question.Type,
			Value:            value,
			SubmittedAt:      s.clock.Now(),
			TimeSpentSeconds: timeSpent,
			IsCorrect:        verdict.IsCorrect,
			Points:           points,
			MTFCorrectCount:  verdict.MTFCorrect,
			MTFTotalCount:    verdict.MTFTotal,
		}

		// Resubmission: reclaim whatever the overwritten record had credited.
		delta := points
		if prior, err := tx.Answers().Get(ctx, answer.ID); err == nil {
			delta = points - prior.Points
			answer.SubmittedAt = prior.SubmittedAt
		}

		if err := tx.Answers().Put(ctx, answer); err != nil {
			return err
		}

		team.Score += delta
		if verdict.IsCorrect != nil {
			team.Streak = scoring.NextStreak(team.Streak, verdict.IsCorrect)
		}
		team.UpdatedAt = s.clock.Now()
		if err := tx.Teams().Put(ctx, team); err != nil {
			return err
		}

		result = domain.SubmitResult{
			IsCorrect: verdict.IsCorrect,
			Points:    points,
			Streak:    team.Streak,
			Message:   submitMessage(verdict.IsCorrect),
		}
		return nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}

	s.log.Info().
		Str("team", teamID).
		Str("question", questionID).
		Int("points", result.Points).
		Msg("answer recorded")
	return result, nil
}

func submitMessage(isCorrect *bool) string {
	switch {
	case isCorrect == nil:
		return "answer recorded, pending manual grading"
	case *isCorrect:
		return "correct"
	default:
		return "incorrect"
	}
}
