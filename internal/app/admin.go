package app

import (
	"context"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/domain"
)

// AdminService carries the competition-wide resets and the challenge intake.
type AdminService struct {
	store Store
	clock clockwork.Clock
	rnd   *rand.Rand
	log   zerolog.Logger
}

// NewAdminService builds the service. rnd may be nil; a time-seeded source is
// used then. Tests inject a fixed seed for deterministic shuffles.
func NewAdminService(store Store, clock clockwork.Clock, rnd *rand.Rand, log zerolog.Logger) *AdminService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(clock.Now().UnixNano()))
	}
	return &AdminService{store: store, clock: clock, rnd: rnd, log: log}
}

// InitGame resets the whole competition: every team back to zero score and
// streak, active status, full challenge quota, divisions dealt round-robin in
// name order; the answer ledger and challenge log are wiped and every round
// returns to waiting.
func (s *AdminService) InitGame(ctx context.Context) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		teams, err := tx.Teams().List(ctx)
		if err != nil {
			return err
		}
		sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
		for i := range teams {
			teams[i].Score = 0
			teams[i].Streak = 0
			teams[i].Status = domain.TeamActive
			teams[i].ChallengesRemaining = domain.DefaultChallengeQuota
			teams[i].Division = i%domain.NumDivisions + 1
			teams[i].UpdatedAt = s.clock.Now()
		}
		if err := tx.Teams().PutAll(ctx, teams); err != nil {
			return err
		}

		if err := tx.Answers().DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Challenges().DeleteAll(ctx); err != nil {
			return err
		}

		rounds, err := tx.Rounds().List(ctx)
		if err != nil {
			return err
		}
		for _, round := range rounds {
			round.Status = domain.RoundWaiting
			round.StartTime = nil
			round.CurrentQuestionIndex = 0
			round.PausedAt = nil
			round.TotalPauseSeconds = 0
			round.ShowResults = false
			if err := tx.Rounds().Put(ctx, round); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Msg("competition initialized")
	return nil
}

// ResetScoresForTurn3 zeroes score and streak for the surviving teams so the
// semifinal phase starts from a clean slate. Eliminated teams keep their
// final numbers.
func (s *AdminService) ResetScoresForTurn3(ctx context.Context) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		teams, err := tx.Teams().List(ctx)
		if err != nil {
			return err
		}
		var reset []domain.Team
		for _, team := range teams {
			if team.Status != domain.TeamActive {
				continue
			}
			team.Score = 0
			team.Streak = 0
			team.UpdatedAt = s.clock.Now()
			reset = append(reset, team)
		}
		if len(reset) == 0 {
			return nil
		}
		return tx.Teams().PutAll(ctx, reset)
	})
}

// ShuffleTeams deals the active teams randomly across the playing divisions,
// keeping division sizes balanced.
func (s *AdminService) ShuffleTeams(ctx context.Context) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		teams, err := tx.Teams().List(ctx)
		if err != nil {
			return err
		}
		var active []domain.Team
		for _, team := range teams {
			if team.Status == domain.TeamActive {
				active = append(active, team)
			}
		}
		sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
		s.rnd.Shuffle(len(active), func(i, j int) { active[i], active[j] = active[j], active[i] })
		for i := range active {
			active[i].Division = i%domain.NumDivisions + 1
			active[i].UpdatedAt = s.clock.Now()
		}
		if len(active) == 0 {
			return nil
		}
		return tx.Teams().PutAll(ctx, active)
	})
}

// FileChallenge records a dispute against an answer and spends one unit of
// the team's quota. Resolution stays with the humans.
func (s *AdminService) FileChallenge(ctx context.Context, teamID, answerID, reason string) (domain.Challenge, error) {
	if teamID == "" || answerID == "" {
		return domain.Challenge{}, domain.Validationf("teamId and answerId are required")
	}

	var challenge domain.Challenge
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		team, err := tx.Teams().Get(ctx, teamID)
		if err != nil {
			return err
		}
		if team.ChallengesRemaining <= 0 {
			return domain.ErrChallengeQuotaExhausted
		}
		answer, err := tx.Answers().Get(ctx, answerID)
		if err != nil {
			return err
		}

		challenge = domain.Challenge{
			ID:         uuid.NewString(),
			TeamID:     teamID,
			AnswerID:   answerID,
			QuestionID: answer.QuestionID,
			Reason:     reason,
			FiledAt:    s.clock.Now(),
		}
		if err := tx.Challenges().Put(ctx, challenge); err != nil {
			return err
		}

		team.ChallengesRemaining--
		team.UpdatedAt = s.clock.Now()
		return tx.Teams().Put(ctx, team)
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return challenge, nil
}
