package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/domain"
)

// QuestionService maintains the question list of a round. Its single
// invariant: order values within a round are always a contiguous 1..N
// permutation, re-indexed after every insert, delete, or move.
type QuestionService struct {
	store     Store
	questions QuestionProvider
	log       zerolog.Logger
}

func NewQuestionService(store Store, questions QuestionProvider, log zerolog.Logger) *QuestionService {
	return &QuestionService{store: store, questions: questions, log: log}
}

// Add inserts a question at position (1-based; 0 or past the end appends) and
// re-indexes the round.
func (s *QuestionService) Add(ctx context.Context, q domain.Question, position int) (domain.Question, error) {
	if q.RoundID == "" {
		return domain.Question{}, domain.Validationf("roundId is required")
	}
	switch q.Type {
	case domain.QuestionMCQ, domain.QuestionMTF, domain.QuestionSAQ, domain.QuestionSpot:
	default:
		return domain.Question{}, domain.Validationf("unknown question type %q", q.Type)
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		list, err := tx.Questions().ListByRound(ctx, q.RoundID)
		if err != nil {
			return err
		}
		if position < 1 || position > len(list)+1 {
			position = len(list) + 1
		}
		list = append(list[:position-1], append([]domain.Question{q}, list[position-1:]...)...)
		if err := s.reindex(ctx, tx, list); err != nil {
			return err
		}
		q = list[position-1]
		return nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// Move shifts a question to a new 1-based position within its round.
func (s *QuestionService) Move(ctx context.Context, questionID string, newPosition int) error {
	if newPosition < 1 {
		return domain.Validationf("position must be >= 1")
	}
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		q, err := tx.Questions().Get(ctx, questionID)
		if err != nil {
			return err
		}
		list, err := tx.Questions().ListByRound(ctx, q.RoundID)
		if err != nil {
			return err
		}

		trimmed := make([]domain.Question, 0, len(list))
		for _, item := range list {
			if item.ID != questionID {
				trimmed = append(trimmed, item)
			}
		}
		if newPosition > len(trimmed)+1 {
			newPosition = len(trimmed) + 1
		}
		list = append(trimmed[:newPosition-1], append([]domain.Question{q}, trimmed[newPosition-1:]...)...)
		return s.reindex(ctx, tx, list)
	})
}

// Delete removes a question and closes the gap it leaves.
func (s *QuestionService) Delete(ctx context.Context, questionID string) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		q, err := tx.Questions().Get(ctx, questionID)
		if err != nil {
			return err
		}
		if err := tx.Questions().Delete(ctx, questionID); err != nil {
			return err
		}
		list, err := tx.Questions().ListByRound(ctx, q.RoundID)
		if err != nil {
			return err
		}
		return s.reindex(ctx, tx, list)
	})
	if err != nil {
		return err
	}
	return s.questions.Invalidate(ctx, questionID)
}

// reindex renumbers a round's question list 1..N in slice order, writing only
// the entries whose order actually changed.
func (s *QuestionService) reindex(ctx context.Context, tx Store, list []domain.Question) error {
	var changed []domain.Question
	for i := range list {
		if list[i].Order != i+1 {
			list[i].Order = i + 1
			changed = append(changed, list[i])
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return tx.Questions().PutAll(ctx, changed)
}
