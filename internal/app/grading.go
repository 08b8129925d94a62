package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"quizbowl-engine/internal/domain"
	"quizbowl-engine/internal/scoring"
)

// replayConcurrency bounds how many team replays run at once during a
// regrade. Replays for different teams are independent units of work.
const replayConcurrency = 4

// GradingService applies manual grades and coordinates key-correction
// regrades, including the full chronological replay that keeps every affected
// team's score and streak bit-for-bit consistent with its history.
type GradingService struct {
	store     Store
	questions QuestionProvider
	clock     clockwork.Clock
	log       zerolog.Logger
}

func NewGradingService(store Store, questions QuestionProvider, clock clockwork.Clock, log zerolog.Logger) *GradingService {
	return &GradingService{store: store, questions: questions, clock: clock, log: log}
}

// Grade manually settles an answer. The credit is applied as a delta against
// whatever the answer had already paid out, so correcting an earlier grade
// never double counts. The team's current streak feeds the formula.
func (g *GradingService) Grade(ctx context.Context, answerID string, isCorrect bool) (domain.GradeResult, error) {
	if answerID == "" {
		return domain.GradeResult{}, domain.Validationf("answerId is required")
	}

	var result domain.GradeResult
	err := g.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		answer, err := tx.Answers().Get(ctx, answerID)
		if err != nil {
			return err
		}
		team, err := tx.Teams().Get(ctx, answer.TeamID)
		if err != nil {
			return err
		}
		question, err := tx.Questions().Get(ctx, answer.QuestionID)
		if err != nil {
			return err
		}

		newPoints := 0
		if isCorrect {
			newPoints = scoring.Points(question.Difficulty, answer.TimeSpentSeconds, team.Streak)
		}
		delta := newPoints - answer.Points

		answer.IsCorrect = &isCorrect
		answer.Points = newPoints
		if err := tx.Answers().Put(ctx, answer); err != nil {
			return err
		}

		team.Score += delta
		team.Streak = scoring.NextStreak(team.Streak, &isCorrect)
		team.UpdatedAt = g.clock.Now()
		if err := tx.Teams().Put(ctx, team); err != nil {
			return err
		}

		result = domain.GradeResult{IsCorrect: isCorrect, Points: newPoints, NewStreak: team.Streak}
		return nil
	})
	if err != nil {
		return domain.GradeResult{}, err
	}

	g.log.Info().Str("answer", answerID).Bool("correct", isCorrect).Int("points", result.Points).Msg("manual grade applied")
	return result, nil
}

// Regrade persists a corrected key for a question and replays every affected
// team's complete chronological history from a zero state. Teams replay
// independently; one team's failure is reported without aborting the rest.
// Running it twice with no new submissions in between is idempotent.
func (g *GradingService) Regrade(ctx context.Context, questionID string, newKey domain.AnswerKey) (domain.RegradeReport, error) {
	if questionID == "" {
		return domain.RegradeReport{}, domain.Validationf("questionId is required")
	}

	question, err := g.store.Questions().Get(ctx, questionID)
	if err != nil {
		return domain.RegradeReport{}, err
	}
	question.Key = newKey
	if err := g.store.Questions().Put(ctx, question); err != nil {
		return domain.RegradeReport{}, fmt.Errorf("persist corrected key: %w", err)
	}
	if err := g.questions.Invalidate(ctx, questionID); err != nil {
		g.log.Warn().Err(err).Str("question", questionID).Msg("question cache invalidation failed")
	}

	affected, err := g.store.Answers().ListByQuestion(ctx, questionID)
	if err != nil {
		return domain.RegradeReport{}, err
	}
	teamIDs := make([]string, 0, len(affected))
	seen := make(map[string]struct{}, len(affected))
	for _, a := range affected {
		if _, ok := seen[a.TeamID]; !ok {
			seen[a.TeamID] = struct{}{}
			teamIDs = append(teamIDs, a.TeamID)
		}
	}
	sort.Strings(teamIDs)

	var (
		mu     sync.Mutex
		report domain.RegradeReport
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(replayConcurrency)
	for _, teamID := range teamIDs {
		teamID := teamID
		group.Go(func() error {
			if err := g.replayTeam(groupCtx, teamID, questionID, newKey); err != nil {
				mu.Lock()
				report.Errors = append(report.Errors, fmt.Sprintf("team %s: %v", teamID, err))
				mu.Unlock()
				g.log.Error().Err(err).Str("team", teamID).Str("question", questionID).Msg("regrade replay failed")
				return nil
			}
			mu.Lock()
			report.UpdatedTeams++
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	sort.Strings(report.Errors)
	g.log.Info().
		Str("question", questionID).
		Int("updatedTeams", report.UpdatedTeams).
		Int("failures", len(report.Errors)).
		Msg("regrade complete")
	return report, nil
}

// replayTeam re-derives one team's entire state inside a single transaction:
// all answer rewrites and the final score/streak land together or not at all.
func (g *GradingService) replayTeam(ctx context.Context, teamID, questionID string, newKey domain.AnswerKey) error {
	return g.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		team, err := tx.Teams().Get(ctx, teamID)
		if err != nil {
			return err
		}
		history, err := tx.Answers().ListByTeam(ctx, teamID)
		if err != nil {
			return err
		}

		questions := make(map[string]domain.Question, len(history))
		for _, a := range history {
			if _, ok := questions[a.QuestionID]; ok {
				continue
			}
			q, err := tx.Questions().Get(ctx, a.QuestionID)
			if err != nil {
				return fmt.Errorf("load question %s: %w", a.QuestionID, err)
			}
			questions[a.QuestionID] = q
		}

		outcome := scoring.Replay(questions, history, questionID, newKey)

		stored := make(map[string]domain.Answer, len(history))
		for _, a := range history {
			stored[a.ID] = a
		}
		var changed []domain.Answer
		for _, a := range outcome.Answers {
			if answerDiffers(stored[a.ID], a) {
				changed = append(changed, a)
			}
		}
		if len(changed) > 0 {
			if err := tx.Answers().PutAll(ctx, changed); err != nil {
				return err
			}
		}

		team.Score = outcome.Score
		team.Streak = outcome.Streak
		team.UpdatedAt = g.clock.Now()
		return tx.Teams().Put(ctx, team)
	})
}

// answerDiffers compares only the derived fields a replay may rewrite.
func answerDiffers(stored, derived domain.Answer) bool {
	if stored.Points != derived.Points {
		return true
	}
	if !boolPtrEqual(stored.IsCorrect, derived.IsCorrect) {
		return true
	}
	return stored.MTFCorrectCount != derived.MTFCorrectCount || stored.MTFTotalCount != derived.MTFTotalCount
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
