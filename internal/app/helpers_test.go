package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/app"
	"quizbowl-engine/internal/domain"
	"quizbowl-engine/internal/infra/memory"
)

var testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store       *memory.Store
	clock       *clockwork.FakeClock
	submissions *app.SubmissionService
	grading     *app.GradingService
	divisions   *app.DivisionService
	rounds      *app.RoundService
	questions   *app.QuestionService
	admin       *app.AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(testStart)
	provider := app.NewStoreQuestionProvider(store)
	log := zerolog.Nop()
	return &fixture{
		store:       store,
		clock:       clock,
		submissions: app.NewSubmissionService(store, provider, clock, log),
		grading:     app.NewGradingService(store, provider, clock, log),
		divisions:   app.NewDivisionService(store, clock, log),
		rounds:      app.NewRoundService(store, clock, log),
		questions:   app.NewQuestionService(store, provider, log),
		admin:       app.NewAdminService(store, clock, nil, log),
	}
}

func (f *fixture) seedTeam(t *testing.T, id string, division, score, streak int) {
	t.Helper()
	f.seedTeamNamed(t, id, "Team "+id, division, score, streak)
}

func (f *fixture) seedTeamNamed(t *testing.T, id, name string, division, score, streak int) {
	t.Helper()
	err := f.store.Teams().Put(context.Background(), domain.Team{
		ID:                  id,
		Name:                name,
		Division:            division,
		Score:               score,
		Streak:              streak,
		Status:              domain.TeamActive,
		ChallengesRemaining: domain.DefaultChallengeQuota,
	})
	if err != nil {
		t.Fatalf("seed team %s: %v", id, err)
	}
}

func (f *fixture) seedRound(t *testing.T, id string) {
	t.Helper()
	err := f.store.Rounds().Put(context.Background(), domain.Round{
		ID:                   id,
		Status:               domain.RoundWaiting,
		QuestionTimerSeconds: 60,
	})
	if err != nil {
		t.Fatalf("seed round %s: %v", id, err)
	}
}

func (f *fixture) seedQuestion(t *testing.T, q domain.Question) {
	t.Helper()
	if err := f.store.Questions().Put(context.Background(), q); err != nil {
		t.Fatalf("seed question %s: %v", q.ID, err)
	}
}

func (f *fixture) team(t *testing.T, id string) domain.Team {
	t.Helper()
	team, err := f.store.Teams().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get team %s: %v", id, err)
	}
	return team
}

func (f *fixture) answer(t *testing.T, teamID, questionID string) domain.Answer {
	t.Helper()
	a, err := f.store.Answers().Get(context.Background(), domain.AnswerID(teamID, questionID))
	if err != nil {
		t.Fatalf("get answer %s/%s: %v", teamID, questionID, err)
	}
	return a
}

func mcq(id, roundID string, order int, difficulty domain.Difficulty, correct int) domain.Question {
	return domain.Question{
		ID:         id,
		RoundID:    roundID,
		Order:      order,
		Type:       domain.QuestionMCQ,
		Difficulty: difficulty,
		Choices:    []string{"a", "b", "c", "d"},
		Key:        domain.AnswerKey{Choice: correct},
	}
}

func saq(id, roundID string, order int, difficulty domain.Difficulty, text string) domain.Question {
	return domain.Question{
		ID:         id,
		RoundID:    roundID,
		Order:      order,
		Type:       domain.QuestionSAQ,
		Difficulty: difficulty,
		Key:        domain.AnswerKey{Text: text},
	}
}
