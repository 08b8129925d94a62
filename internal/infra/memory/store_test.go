package memory_test

import (
	"context"
	"errors"
	"testing"

	"quizbowl-engine/internal/app"
	"quizbowl-engine/internal/domain"
	"quizbowl-engine/internal/infra/memory"
)

func TestTxRollbackLeavesNothing(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	if err := s.Teams().Put(ctx, domain.Team{ID: "t1", Score: 10}); err != nil {
		t.Fatalf("put: %v", err)
	}

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx app.Store) error {
		team, err := tx.Teams().Get(ctx, "t1")
		if err != nil {
			return err
		}
		team.Score = 999
		if err := tx.Teams().Put(ctx, team); err != nil {
			return err
		}
		if err := tx.Answers().Put(ctx, domain.Answer{ID: "t1:q1", TeamID: "t1", QuestionID: "q1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	team, err := s.Teams().Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if team.Score != 10 {
		t.Fatalf("rollback leaked a write: score = %d", team.Score)
	}
	if _, err := s.Answers().Get(ctx, "t1:q1"); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("rollback leaked an answer: %v", err)
	}
}

func TestTxCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	err := s.RunInTx(ctx, func(ctx context.Context, tx app.Store) error {
		if err := tx.Teams().Put(ctx, domain.Team{ID: "t1", Score: 7}); err != nil {
			return err
		}
		// Reads inside the tx see its own writes.
		team, err := tx.Teams().Get(ctx, "t1")
		if err != nil {
			return err
		}
		if team.Score != 7 {
			t.Fatalf("tx read own write = %d", team.Score)
		}
		return tx.Rounds().Put(ctx, domain.Round{ID: "r1", Status: domain.RoundWaiting})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	if _, err := s.Teams().Get(ctx, "t1"); err != nil {
		t.Fatalf("team missing after commit: %v", err)
	}
	if _, err := s.Rounds().Get(ctx, "r1"); err != nil {
		t.Fatalf("round missing after commit: %v", err)
	}
}

func TestNestedTxContinuesSameUnit(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	err := s.RunInTx(ctx, func(ctx context.Context, tx app.Store) error {
		return tx.RunInTx(ctx, func(ctx context.Context, inner app.Store) error {
			return inner.Teams().Put(ctx, domain.Team{ID: "t1"})
		})
	})
	if err != nil {
		t.Fatalf("nested tx: %v", err)
	}
	if _, err := s.Teams().Get(ctx, "t1"); err != nil {
		t.Fatalf("nested write lost: %v", err)
	}
}

func TestListByRoundSortsByOrder(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	for _, q := range []domain.Question{
		{ID: "q3", RoundID: "r1", Order: 3},
		{ID: "q1", RoundID: "r1", Order: 1},
		{ID: "q2", RoundID: "r1", Order: 2},
		{ID: "other", RoundID: "r2", Order: 1},
	} {
		if err := s.Questions().Put(ctx, q); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	list, err := s.Questions().ListByRound(ctx, "r1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, q := range list {
		if q.Order != i+1 {
			t.Fatalf("slot %d has order %d", i, q.Order)
		}
	}
}

func TestNotFoundSentinels(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	if _, err := s.Teams().Get(ctx, "x"); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("team err = %v", err)
	}
	if _, err := s.Rounds().Get(ctx, "x"); !errors.Is(err, domain.ErrRoundNotFound) {
		t.Fatalf("round err = %v", err)
	}
	if _, err := s.Questions().Get(ctx, "x"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("question err = %v", err)
	}
	if err := s.Questions().Delete(ctx, "x"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("delete err = %v", err)
	}
	if _, err := s.Answers().Get(ctx, "x"); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("answer err = %v", err)
	}
}
