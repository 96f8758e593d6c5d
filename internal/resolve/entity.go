package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/workfusion/internal/logging"
	"github.com/lehigh-university-libraries/workfusion/internal/models"
	"github.com/lehigh-university-libraries/workfusion/internal/similarity"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
)

// AcceptScore is the minimum score at which a stored entity is reused.
const AcceptScore = 2

// EntityMatch is the best stored entity for a candidate.
type EntityMatch struct {
	ID    int64
	Score int
}

// Accepted reports whether the match clears AcceptScore.
func (m EntityMatch) Accepted() bool {
	return m.Score >= AcceptScore
}

type entityScores struct {
	order  []int64
	scores map[int64]int
}

func (s *entityScores) add(id int64, n int) {
	if s.scores == nil {
		s.scores = make(map[int64]int)
	}
	if _, ok := s.scores[id]; !ok {
		s.order = append(s.order, id)
	}
	s.scores[id] += n
}

// best returns the highest scoring id. Ties go to the id seen first.
func (s *entityScores) best() (EntityMatch, bool) {
	var (
		best  EntityMatch
		found bool
	)
	for _, id := range s.order {
		if n := s.scores[id]; !found || n > best.Score {
			best, found = EntityMatch{ID: id, Score: n}, true
		}
	}
	return best, found
}

// ScoreEntity scores a candidate against the stored entities without
// writing. Points: viaf hit, lcnaf hit, fuzzy name hit, and a lifespan
// agreement on that same name hit. The returned match may be below
// AcceptScore; found is false when nothing scored at all.
func ScoreEntity(ctx context.Context, g storage.Gateway, cand models.Entity) (EntityMatch, bool, error) {
	var scores entityScores

	for _, ctrl := range []struct {
		field string
		value *string
	}{
		{"viaf", cand.VIAF},
		{"lcnaf", cand.LCNAF},
	} {
		if ctrl.value == nil || *ctrl.value == "" {
			continue
		}
		id, found, err := g.ExactLookup(ctx, storage.Entities, storage.Fields{ctrl.field: *ctrl.value})
		if err != nil {
			return EntityMatch{}, false, fmt.Errorf("failed to look up entity by %s: %w", ctrl.field, err)
		}
		if found {
			scores.add(id, 1)
		}
	}

	if strings.TrimSpace(cand.Name) != "" {
		row, found, err := g.FuzzySearch(ctx, storage.Entities, "name", cand.Name, similarity.Threshold)
		if err != nil {
			return EntityMatch{}, false, fmt.Errorf("failed to search entities by name: %w", err)
		}
		if found {
			points := 1
			if lifespanMatches(cand, row) {
				points++
			}
			scores.add(row.ID, points)
		}
	}

	match, found := scores.best()
	return match, found, nil
}

// lifespanMatches requires birth and death on both sides, numerically equal.
func lifespanMatches(cand models.Entity, stored storage.Row) bool {
	if cand.Birth == nil || cand.Death == nil {
		return false
	}
	birth, okB := stored.Int("birth")
	death, okD := stored.Int("death")
	if !okB || !okD {
		return false
	}
	return birth == int64(*cand.Birth) && death == int64(*cand.Death)
}

// FillNull returns the updates that copy candidate values into null stored
// columns. Non-null stored values are never overwritten.
func FillNull(stored storage.Row, cand models.Entity) storage.Fields {
	updates := storage.Fields{}
	for k, v := range storage.EntityFields(cand) {
		if v == nil || !stored.IsNull(k) {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		updates[k] = v
	}
	return updates
}

// ResolveEntity merges a contributor into workID. An accepted match has its
// null fields filled and the (work, entity, role) relation ensured. A
// candidate below AcceptScore reuses a same-named entity already related to
// the Work in that role; otherwise a new entity and relation are written.
func ResolveEntity(ctx context.Context, g storage.Gateway, workID int64, cand models.Entity) (Outcome, error) {
	log := logging.FromContext(ctx)

	role := cand.Role
	if role == "" {
		role = models.DefaultRole
	}

	match, found, err := ScoreEntity(ctx, g, cand)
	if err != nil {
		return Outcome{}, err
	}

	if found && match.Accepted() {
		stored, err := g.GetRow(ctx, storage.Entities, match.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to load entity %d: %w", match.ID, err)
		}
		if updates := FillNull(stored, cand); len(updates) > 0 {
			if err := g.Update(ctx, storage.Entities, match.ID, updates); err != nil {
				return Outcome{}, fmt.Errorf("failed to fill entity %d: %w", match.ID, err)
			}
		}
		if err := ensureEntityLink(ctx, g, workID, match.ID, role); err != nil {
			return Outcome{}, err
		}
		log.Debug().
			Str("name", cand.Name).
			Int64("entity_id", match.ID).
			Int("score", match.Score).
			Msg("Matched entity")
		return Matched(match.ID), nil
	}

	if strings.TrimSpace(cand.Name) == "" {
		return Rejected("entity has no name"), nil
	}

	if linkedID, ok, err := linkedByName(ctx, g, workID, cand.Name, role); err != nil {
		return Outcome{}, err
	} else if ok {
		stored, err := g.GetRow(ctx, storage.Entities, linkedID)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to load entity %d: %w", linkedID, err)
		}
		if updates := FillNull(stored, cand); len(updates) > 0 {
			if err := g.Update(ctx, storage.Entities, linkedID, updates); err != nil {
				return Outcome{}, fmt.Errorf("failed to fill entity %d: %w", linkedID, err)
			}
		}
		log.Debug().Str("name", cand.Name).Int64("entity_id", linkedID).Msg("Matched entity already linked to work")
		return Matched(linkedID), nil
	}

	id, err := g.Insert(ctx, storage.Entities, storage.EntityFields(cand))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to insert entity %q: %w", cand.Name, err)
	}
	if err := ensureEntityLink(ctx, g, workID, id, role); err != nil {
		return Outcome{}, err
	}
	log.Debug().
		Str("name", cand.Name).
		Int64("entity_id", id).
		Int("score", match.Score).
		Msg("Created entity")
	return Created(id), nil
}

func ensureEntityLink(ctx context.Context, g storage.Gateway, workID, entityID int64, role string) error {
	link := storage.Fields{"work_id": workID, "entity_id": entityID, "role": role}
	_, found, err := g.ExactLookup(ctx, storage.EntityWorks, link)
	if err != nil {
		return fmt.Errorf("failed to look up entity link: %w", err)
	}
	if found {
		return nil
	}
	if _, err := g.Insert(ctx, storage.EntityWorks, link); err != nil {
		return fmt.Errorf("failed to link entity %d to work %d: %w", entityID, workID, err)
	}
	return nil
}

// linkedByName finds an entity with the same normalized name already related
// to workID in role.
func linkedByName(ctx context.Context, g storage.Gateway, workID int64, name, role string) (int64, bool, error) {
	links, err := g.List(ctx, storage.EntityWorks, storage.Fields{"work_id": workID, "role": role})
	if err != nil {
		return 0, false, fmt.Errorf("failed to list entity links: %w", err)
	}
	for _, l := range links {
		entityID, _ := l.Int("entity_id")
		row, err := g.GetRow(ctx, storage.Entities, entityID)
		if err != nil {
			return 0, false, fmt.Errorf("failed to load entity %d: %w", entityID, err)
		}
		if stored, _ := row.String("name"); similarity.NormalizedEqual(stored, name) {
			return entityID, true, nil
		}
	}
	return 0, false, nil
}

// LinkedToWork reports whether entityID is related to workID in any role.
func LinkedToWork(ctx context.Context, g storage.Gateway, workID, entityID int64) (bool, error) {
	_, found, err := g.ExactLookup(ctx, storage.EntityWorks, storage.Fields{"work_id": workID, "entity_id": entityID})
	if err != nil {
		return false, fmt.Errorf("failed to look up entity link: %w", err)
	}
	return found, nil
}
