package app

import (
	"context"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/domain"
)

// eliminationQuota maps the only valid elimination checkpoints to how many
// teams each division drops there.
var eliminationQuota = map[int]int{3: 3, 5: 2}

// DivisionService handles elimination, tie detection, and rotation-based
// re-seeding across the five playing divisions.
type DivisionService struct {
	store Store
	clock clockwork.Clock
	log   zerolog.Logger
}

func NewDivisionService(store Store, clock clockwork.Clock, log zerolog.Logger) *DivisionService {
	return &DivisionService{store: store, clock: clock, log: log}
}

// Eliminate drops the lowest-scoring K active teams from every division at a
// checkpoint (K=3 at round 3, K=2 at round 5; anything else is rejected).
// Equal lowest scores break by name, then id, so the cut is deterministic.
// The whole call commits or rolls back as one unit.
func (d *DivisionService) Eliminate(ctx context.Context, roundNum int) (int, error) {
	quota, ok := eliminationQuota[roundNum]
	if !ok {
		return 0, domain.ErrInvalidCheckpoint
	}

	eliminated := 0
	err := d.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		teams, err := tx.Teams().List(ctx)
		if err != nil {
			return err
		}

		var doomed []domain.Team
		for _, division := range activeByDivision(teams) {
			sort.Slice(division, func(i, j int) bool {
				if division[i].Score != division[j].Score {
					return division[i].Score < division[j].Score
				}
				if division[i].Name != division[j].Name {
					return division[i].Name < division[j].Name
				}
				return division[i].ID < division[j].ID
			})
			cut := quota
			if cut > len(division) {
				cut = len(division)
			}
			for _, team := range division[:cut] {
				team.Status = domain.TeamEliminated
				team.UpdatedAt = d.clock.Now()
				doomed = append(doomed, team)
			}
		}

		if len(doomed) == 0 {
			return nil
		}
		eliminated = len(doomed)
		return tx.Teams().PutAll(ctx, doomed)
	})
	if err != nil {
		return 0, err
	}

	d.log.Info().Int("round", roundNum).Int("eliminated", eliminated).Msg("elimination applied")
	return eliminated, nil
}

// CheckTies reports every group of two or more active teams sharing an exact
// score within one division. Groups come back ordered by division then score
// descending, teams by name.
func (d *DivisionService) CheckTies(ctx context.Context) ([]domain.TieGroup, error) {
	teams, err := d.store.Teams().List(ctx)
	if err != nil {
		return nil, err
	}

	var groups []domain.TieGroup
	byDivision := activeByDivision(teams)
	for div := 1; div <= domain.NumDivisions; div++ {
		byScore := make(map[int][]domain.Team)
		for _, team := range byDivision[div] {
			byScore[team.Score] = append(byScore[team.Score], team)
		}
		scores := make([]int, 0, len(byScore))
		for score, tied := range byScore {
			if len(tied) >= 2 {
				scores = append(scores, score)
			}
		}
		sort.Sort(sort.Reverse(sort.IntSlice(scores)))
		for _, score := range scores {
			tied := byScore[score]
			sort.Slice(tied, func(i, j int) bool { return tied[i].Name < tied[j].Name })
			group := domain.TieGroup{Division: div}
			for _, team := range tied {
				group.Teams = append(group.Teams, domain.TieTeam{ID: team.ID, Name: team.Name, Score: team.Score})
			}
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// Rearrange re-seeds divisions by rotation: within each pre-rearrangement
// division, active teams rank by score desc, streak desc, name asc, and the
// team ranked r moves to ((oldDivision-1)+(r-1)) mod 5 + 1. Eliminated teams
// are pinned to the graveyard regardless of rank.
func (d *DivisionService) Rearrange(ctx context.Context) error {
	return d.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		teams, err := tx.Teams().List(ctx)
		if err != nil {
			return err
		}

		var moved []domain.Team
		for _, team := range teams {
			if team.Status == domain.TeamEliminated && team.Division != domain.DivisionGraveyard {
				team.Division = domain.DivisionGraveyard
				team.UpdatedAt = d.clock.Now()
				moved = append(moved, team)
			}
		}

		for oldDivision, division := range activeByDivision(teams) {
			sort.Slice(division, func(i, j int) bool {
				if division[i].Score != division[j].Score {
					return division[i].Score > division[j].Score
				}
				if division[i].Streak != division[j].Streak {
					return division[i].Streak > division[j].Streak
				}
				return division[i].Name < division[j].Name
			})
			for rank, team := range division {
				newDivision := (oldDivision-1+rank)%domain.NumDivisions + 1
				if newDivision == team.Division {
					continue
				}
				team.Division = newDivision
				team.UpdatedAt = d.clock.Now()
				moved = append(moved, team)
			}
		}

		if len(moved) == 0 {
			return nil
		}
		if err := tx.Teams().PutAll(ctx, moved); err != nil {
			return err
		}
		d.log.Info().Int("moved", len(moved)).Msg("divisions rearranged")
		return nil
	})
}

// activeByDivision buckets active teams into their playing divisions.
func activeByDivision(teams []domain.Team) map[int][]domain.Team {
	out := make(map[int][]domain.Team)
	for _, team := range teams {
		if team.Status != domain.TeamActive {
			continue
		}
		if team.Division < 1 || team.Division > domain.NumDivisions {
			continue
		}
		out[team.Division] = append(out[team.Division], team)
	}
	return out
}
