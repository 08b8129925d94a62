package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/domain"
)

// RoundService owns the admin-driven round lifecycle mutations. The state
// machine itself is pure (see roundstate); this service only edits the round
// document those derivations read.
type RoundService struct {
	store Store
	clock clockwork.Clock
	log   zerolog.Logger
}

func NewRoundService(store Store, clock clockwork.Clock, log zerolog.Logger) *RoundService {
	return &RoundService{store: store, clock: clock, log: log}
}

// Activate schedules the round to start after the countdown lead-in and
// resets all pacing state to the first question.
func (s *RoundService) Activate(ctx context.Context, roundID string, countdown time.Duration) error {
	return s.mutate(ctx, roundID, func(r *domain.Round) {
		start := s.clock.Now().Add(countdown)
		r.Status = domain.RoundActive
		r.StartTime = &start
		r.CurrentQuestionIndex = 0
		r.PausedAt = nil
		r.TotalPauseSeconds = 0
		r.ShowResults = false
	})
}

// Advance moves to the next question and restarts the timer from now.
func (s *RoundService) Advance(ctx context.Context, roundID string) error {
	return s.mutate(ctx, roundID, func(r *domain.Round) {
		now := s.clock.Now()
		r.CurrentQuestionIndex++
		r.StartTime = &now
		r.PausedAt = nil
		r.TotalPauseSeconds = 0
		r.ShowResults = false
	})
}

// SetShowResults toggles the answer-reveal flag observers render from.
func (s *RoundService) SetShowResults(ctx context.Context, roundID string, show bool) error {
	return s.mutate(ctx, roundID, func(r *domain.Round) {
		r.ShowResults = show
	})
}

// End marks the round completed; observers fall back to waiting.
func (s *RoundService) End(ctx context.Context, roundID string) error {
	return s.mutate(ctx, roundID, func(r *domain.Round) {
		r.Status = domain.RoundCompleted
		r.ShowResults = false
		r.PausedAt = nil
	})
}

// PauseForGrading opens a pause interval. It is idempotent so the clients'
// fire-and-forget timeout requests can race harmlessly.
func (s *RoundService) PauseForGrading(ctx context.Context, roundID string) error {
	return s.mutate(ctx, roundID, func(r *domain.Round) {
		if r.PausedAt != nil {
			return
		}
		now := s.clock.Now()
		r.PausedAt = &now
	})
}

// ResumeFromGrading closes the open pause interval, folding it into the
// accumulated total. A no-op when the round is not paused.
func (s *RoundService) ResumeFromGrading(ctx context.Context, roundID string) error {
	return s.mutate(ctx, roundID, func(r *domain.Round) {
		if r.PausedAt == nil {
			return
		}
		r.TotalPauseSeconds += s.clock.Now().Sub(*r.PausedAt).Seconds()
		r.PausedAt = nil
	})
}

func (s *RoundService) mutate(ctx context.Context, roundID string, apply func(*domain.Round)) error {
	if roundID == "" {
		return domain.Validationf("roundId is required")
	}
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		round, err := tx.Rounds().Get(ctx, roundID)
		if err != nil {
			return err
		}
		apply(&round)
		return tx.Rounds().Put(ctx, round)
	})
}
