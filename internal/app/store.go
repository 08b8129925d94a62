package app

import (
	"context"

	"quizbowl-engine/internal/domain"
)

// Store is the document-store boundary the engine runs against. It assumes
// per-document atomic read-modify-write through RunInTx and batched
// multi-document writes through the PutAll methods; replication and consensus
// are someone else's problem.
type Store interface {
	Teams() TeamRepository
	Rounds() RoundRepository
	Questions() QuestionRepository
	Answers() AnswerRepository
	Challenges() ChallengeRepository

	// RunInTx executes fn as one atomic unit of work. fn receives a Store view
	// whose writes all commit or all roll back. Used for score mutations and
	// for each team's regrade replay.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type TeamRepository interface {
	Get(ctx context.Context, id string) (domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	Put(ctx context.Context, team domain.Team) error
	PutAll(ctx context.Context, teams []domain.Team) error
}

type RoundRepository interface {
	Get(ctx context.Context, id string) (domain.Round, error)
	List(ctx context.Context) ([]domain.Round, error)
	Put(ctx context.Context, round domain.Round) error
}

type QuestionRepository interface {
	Get(ctx context.Context, id string) (domain.Question, error)
	// ListByRound returns the round's questions sorted by Order ascending.
	ListByRound(ctx context.Context, roundID string) ([]domain.Question, error)
	Put(ctx context.Context, q domain.Question) error
	PutAll(ctx context.Context, qs []domain.Question) error
	Delete(ctx context.Context, id string) error
}

type AnswerRepository interface {
	Get(ctx context.Context, id string) (domain.Answer, error)
	ListByTeam(ctx context.Context, teamID string) ([]domain.Answer, error)
	ListByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error)
	Put(ctx context.Context, a domain.Answer) error
	PutAll(ctx context.Context, as []domain.Answer) error
	DeleteAll(ctx context.Context) error
}

type ChallengeRepository interface {
	List(ctx context.Context) ([]domain.Challenge, error)
	Put(ctx context.Context, c domain.Challenge) error
	DeleteAll(ctx context.Context) error
}

// QuestionProvider is the hot-path read side for question documents. The
// Redis implementation caches them; Invalidate must be called whenever a key
// is corrected so stale keys never grade a submission.
type QuestionProvider interface {
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	Invalidate(ctx context.Context, id string) error
}

// storeQuestionProvider serves questions straight from the store, for setups
// without a cache tier.
type storeQuestionProvider struct {
	store Store
}

// NewStoreQuestionProvider adapts a Store into a QuestionProvider.
func NewStoreQuestionProvider(store Store) QuestionProvider {
	return &storeQuestionProvider{store: store}
}

func (p *storeQuestionProvider) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return p.store.Questions().Get(ctx, id)
}

func (p *storeQuestionProvider) Invalidate(context.Context, string) error {
	return nil
}
