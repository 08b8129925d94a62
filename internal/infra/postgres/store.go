// Package postgres implements the document store on Postgres through bun.
// Every collection is a table of (id, query columns, data jsonb); the
// document itself is the jsonb blob, the extra columns exist for the ledger
// lookups.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"quizbowl-engine/internal/app"
	"quizbowl-engine/internal/domain"
)

type teamRow struct {
	bun.BaseModel `bun:"table:teams"`
	ID            string          `bun:"id,pk"`
	Data          json.RawMessage `bun:"data,type:jsonb"`
}

type roundRow struct {
	bun.BaseModel `bun:"table:rounds"`
	ID            string          `bun:"id,pk"`
	Data          json.RawMessage `bun:"data,type:jsonb"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`
	ID            string          `bun:"id,pk"`
	RoundID       string          `bun:"round_id"`
	Ord           int             `bun:"ord"`
	Data          json.RawMessage `bun:"data,type:jsonb"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers"`
	ID            string          `bun:"id,pk"`
	TeamID        string          `bun:"team_id"`
	QuestionID    string          `bun:"question_id"`
	Data          json.RawMessage `bun:"data,type:jsonb"`
}

type challengeRow struct {
	bun.BaseModel `bun:"table:challenges"`
	ID            string          `bun:"id,pk"`
	Data          json.RawMessage `bun:"data,type:jsonb"`
}

// Store is the bun-backed app.Store.
type Store struct {
	db bun.IDB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Teams() app.TeamRepository           { return teamRepo{db: s.db} }
func (s *Store) Rounds() app.RoundRepository         { return roundRepo{db: s.db} }
func (s *Store) Questions() app.QuestionRepository   { return questionRepo{db: s.db} }
func (s *Store) Answers() app.AnswerRepository       { return answerRepo{db: s.db} }
func (s *Store) Challenges() app.ChallengeRepository { return challengeRepo{db: s.db} }

// RunInTx wraps fn in a database transaction. Re-entry from inside a
// transaction continues the same one.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	db, ok := s.db.(*bun.DB)
	if !ok {
		return fn(ctx, s)
	}
	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: tx})
	})
}

func marshalDoc(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return raw, nil
}

func unmarshalDoc(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}

type teamRepo struct {
	db bun.IDB
}

func (r teamRepo) Get(ctx context.Context, id string) (domain.Team, error) {
	var row teamRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Team{}, domain.ErrTeamNotFound
		}
		return domain.Team{}, err
	}
	var team domain.Team
	return team, unmarshalDoc(row.Data, &team)
}

func (r teamRepo) List(ctx context.Context) ([]domain.Team, error) {
	var rows []teamRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	teams := make([]domain.Team, 0, len(rows))
	for _, row := range rows {
		var team domain.Team
		if err := unmarshalDoc(row.Data, &team); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func (r teamRepo) Put(ctx context.Context, team domain.Team) error {
	return r.PutAll(ctx, []domain.Team{team})
}

func (r teamRepo) PutAll(ctx context.Context, teams []domain.Team) error {
	if len(teams) == 0 {
		return nil
	}
	rows := make([]teamRow, 0, len(teams))
	for _, team := range teams {
		raw, err := marshalDoc(team)
		if err != nil {
			return err
		}
		rows = append(rows, teamRow{ID: team.ID, Data: raw})
	}
	_, err := r.db.NewInsert().Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

type roundRepo struct {
	db bun.IDB
}

func (r roundRepo) Get(ctx context.Context, id string) (domain.Round, error) {
	var row roundRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Round{}, domain.ErrRoundNotFound
		}
		return domain.Round{}, err
	}
	var round domain.Round
	return round, unmarshalDoc(row.Data, &round)
}

func (r roundRepo) List(ctx context.Context) ([]domain.Round, error) {
	var rows []roundRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	rounds := make([]domain.Round, 0, len(rows))
	for _, row := range rows {
		var round domain.Round
		if err := unmarshalDoc(row.Data, &round); err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

func (r roundRepo) Put(ctx context.Context, round domain.Round) error {
	raw, err := marshalDoc(round)
	if err != nil {
		return err
	}
	row := roundRow{ID: round.ID, Data: raw}
	_, err = r.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

type questionRepo struct {
	db bun.IDB
}

func (r questionRepo) Get(ctx context.Context, id string) (domain.Question, error) {
	var row questionRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, err
	}
	var q domain.Question
	return q, unmarshalDoc(row.Data, &q)
}

func (r questionRepo) ListByRound(ctx context.Context, roundID string) ([]domain.Question, error) {
	var rows []questionRow
	err := r.db.NewSelect().Model(&rows).
		Where("round_id = ?", roundID).
		Order("ord ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		var q domain.Question
		if err := unmarshalDoc(row.Data, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (r questionRepo) Put(ctx context.Context, q domain.Question) error {
	return r.PutAll(ctx, []domain.Question{q})
}

func (r questionRepo) PutAll(ctx context.Context, qs []domain.Question) error {
	if len(qs) == 0 {
		return nil
	}
	rows := make([]questionRow, 0, len(qs))
	for _, q := range qs {
		raw, err := marshalDoc(q)
		if err != nil {
			return err
		}
		rows = append(rows, questionRow{ID: q.ID, RoundID: q.RoundID, Ord: q.Order, Data: raw})
	}
	_, err := r.db.NewInsert().Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("round_id = EXCLUDED.round_id").
		Set("ord = EXCLUDED.ord").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

func (r questionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

type answerRepo struct {
	db bun.IDB
}

func (r answerRepo) Get(ctx context.Context, id string) (domain.Answer, error) {
	var row answerRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Answer{}, domain.ErrAnswerNotFound
		}
		return domain.Answer{}, err
	}
	var a domain.Answer
	return a, unmarshalDoc(row.Data, &a)
}

func (r answerRepo) ListByTeam(ctx context.Context, teamID string) ([]domain.Answer, error) {
	return r.list(ctx, "team_id = ?", teamID)
}

func (r answerRepo) ListByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	return r.list(ctx, "question_id = ?", questionID)
}

func (r answerRepo) list(ctx context.Context, where string, arg any) ([]domain.Answer, error) {
	var rows []answerRow
	if err := r.db.NewSelect().Model(&rows).Where(where, arg).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	answers := make([]domain.Answer, 0, len(rows))
	for _, row := range rows {
		var a domain.Answer
		if err := unmarshalDoc(row.Data, &a); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, nil
}

func (r answerRepo) Put(ctx context.Context, a domain.Answer) error {
	return r.PutAll(ctx, []domain.Answer{a})
}

func (r answerRepo) PutAll(ctx context.Context, as []domain.Answer) error {
	if len(as) == 0 {
		return nil
	}
	rows := make([]answerRow, 0, len(as))
	for _, a := range as {
		raw, err := marshalDoc(a)
		if err != nil {
			return err
		}
		rows = append(rows, answerRow{ID: a.ID, TeamID: a.TeamID, QuestionID: a.QuestionID, Data: raw})
	}
	_, err := r.db.NewInsert().Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("team_id = EXCLUDED.team_id").
		Set("question_id = EXCLUDED.question_id").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

func (r answerRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.NewDelete().Model((*answerRow)(nil)).Where("TRUE").Exec(ctx)
	return err
}

type challengeRepo struct {
	db bun.IDB
}

func (r challengeRepo) List(ctx context.Context) ([]domain.Challenge, error) {
	var rows []challengeRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	challenges := make([]domain.Challenge, 0, len(rows))
	for _, row := range rows {
		var c domain.Challenge
		if err := unmarshalDoc(row.Data, &c); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

func (r challengeRepo) Put(ctx context.Context, c domain.Challenge) error {
	raw, err := marshalDoc(c)
	if err != nil {
		return err
	}
	row := challengeRow{ID: c.ID, Data: raw}
	_, err = r.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

func (r challengeRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.NewDelete().Model((*challengeRow)(nil)).Where("TRUE").Exec(ctx)
	return err
}
