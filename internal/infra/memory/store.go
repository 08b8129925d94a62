// Package memory implements the document store in process. It backs tests
// and single-node demo runs; transactions clone the dataset and swap it in on
// success, so a failed unit of work leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"

	"quizbowl-engine/internal/app"
	"quizbowl-engine/internal/domain"
)

type data struct {
	teams      map[string]domain.Team
	rounds     map[string]domain.Round
	questions  map[string]domain.Question
	answers    map[string]domain.Answer
	challenges map[string]domain.Challenge
}

func newData() *data {
	return &data{
		teams:      make(map[string]domain.Team),
		rounds:     make(map[string]domain.Round),
		questions:  make(map[string]domain.Question),
		answers:    make(map[string]domain.Answer),
		challenges: make(map[string]domain.Challenge),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.teams {
		c.teams[k] = v
	}
	for k, v := range d.rounds {
		c.rounds[k] = v
	}
	for k, v := range d.questions {
		c.questions[k] = v
	}
	for k, v := range d.answers {
		c.answers[k] = v
	}
	for k, v := range d.challenges {
		c.challenges[k] = v
	}
	return c
}

// Store is the in-memory app.Store.
type Store struct {
	mu sync.RWMutex
	d  *data
}

func NewStore() *Store {
	return &Store{d: newData()}
}

func (s *Store) Teams() app.TeamRepository           { return teamRepo{s: s} }
func (s *Store) Rounds() app.RoundRepository         { return roundRepo{s: s} }
func (s *Store) Questions() app.QuestionRepository   { return questionRepo{s: s} }
func (s *Store) Answers() app.AnswerRepository       { return answerRepo{s: s} }
func (s *Store) Challenges() app.ChallengeRepository { return challengeRepo{s: s} }

// RunInTx runs fn against a cloned dataset under the store lock and swaps the
// clone in only when fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.d.clone()
	if err := fn(ctx, &txStore{d: staged}); err != nil {
		return err
	}
	s.d = staged
	return nil
}

// txStore is the unlocked view a transaction works on. Its nested RunInTx
// just continues in the same unit of work.
type txStore struct {
	d *data
}

func (t *txStore) Teams() app.TeamRepository           { return teamRepo{d: t.d} }
func (t *txStore) Rounds() app.RoundRepository         { return roundRepo{d: t.d} }
func (t *txStore) Questions() app.QuestionRepository   { return questionRepo{d: t.d} }
func (t *txStore) Answers() app.AnswerRepository       { return answerRepo{d: t.d} }
func (t *txStore) Challenges() app.ChallengeRepository { return challengeRepo{d: t.d} }

func (t *txStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	return fn(ctx, t)
}

// acquire returns the dataset to operate on and its release function. Inside
// a transaction the clone is used directly; outside, the store lock guards
// the live dataset.
func acquire(s *Store, d *data, write bool) (*data, func()) {
	if d != nil {
		return d, func() {}
	}
	if write {
		s.mu.Lock()
		return s.d, s.mu.Unlock
	}
	s.mu.RLock()
	return s.d, s.mu.RUnlock
}

type teamRepo struct {
	s *Store
	d *data
}

func (r teamRepo) Get(_ context.Context, id string) (domain.Team, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	team, ok := d.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return team, nil
}

func (r teamRepo) List(context.Context) ([]domain.Team, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	out := make([]domain.Team, 0, len(d.teams))
	for _, team := range d.teams {
		out = append(out, team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r teamRepo) Put(_ context.Context, team domain.Team) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	d.teams[team.ID] = team
	return nil
}

func (r teamRepo) PutAll(_ context.Context, teams []domain.Team) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	for _, team := range teams {
		d.teams[team.ID] = team
	}
	return nil
}

type roundRepo struct {
	s *Store
	d *data
}

func (r roundRepo) Get(_ context.Context, id string) (domain.Round, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	round, ok := d.rounds[id]
	if !ok {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	return round, nil
}

func (r roundRepo) List(context.Context) ([]domain.Round, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	out := make([]domain.Round, 0, len(d.rounds))
	for _, round := range d.rounds {
		out = append(out, round)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r roundRepo) Put(_ context.Context, round domain.Round) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	d.rounds[round.ID] = round
	return nil
}

type questionRepo struct {
	s *Store
	d *data
}

func (r questionRepo) Get(_ context.Context, id string) (domain.Question, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	q, ok := d.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (r questionRepo) ListByRound(_ context.Context, roundID string) ([]domain.Question, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	var out []domain.Question
	for _, q := range d.questions {
		if q.RoundID == roundID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r questionRepo) Put(_ context.Context, q domain.Question) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	d.questions[q.ID] = q
	return nil
}

func (r questionRepo) PutAll(_ context.Context, qs []domain.Question) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	for _, q := range qs {
		d.questions[q.ID] = q
	}
	return nil
}

func (r questionRepo) Delete(_ context.Context, id string) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	if _, ok := d.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(d.questions, id)
	return nil
}

type answerRepo struct {
	s *Store
	d *data
}

func (r answerRepo) Get(_ context.Context, id string) (domain.Answer, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	a, ok := d.answers[id]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	return a, nil
}

func (r answerRepo) ListByTeam(_ context.Context, teamID string) ([]domain.Answer, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	var out []domain.Answer
	for _, a := range d.answers {
		if a.TeamID == teamID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r answerRepo) ListByQuestion(_ context.Context, questionID string) ([]domain.Answer, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	var out []domain.Answer
	for _, a := range d.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r answerRepo) Put(_ context.Context, a domain.Answer) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	d.answers[a.ID] = a
	return nil
}

func (r answerRepo) PutAll(_ context.Context, as []domain.Answer) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	for _, a := range as {
		d.answers[a.ID] = a
	}
	return nil
}

func (r answerRepo) DeleteAll(context.Context) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	d.answers = make(map[string]domain.Answer)
	return nil
}

type challengeRepo struct {
	s *Store
	d *data
}

func (r challengeRepo) List(context.Context) ([]domain.Challenge, error) {
	d, release := acquire(r.s, r.d, false)
	defer release()
	out := make([]domain.Challenge, 0, len(d.challenges))
	for _, c := range d.challenges {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r challengeRepo) Put(_ context.Context, c domain.Challenge) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	d.challenges[c.ID] = c
	return nil
}

func (r challengeRepo) DeleteAll(context.Context) error {
	d, release := acquire(r.s, r.d, true)
	defer release()
	d.challenges = make(map[string]domain.Challenge)
	return nil
}
