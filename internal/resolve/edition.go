package resolve

import (
	"context"
	"fmt"
	"slices"

	"github.com/lehigh-university-libraries/workfusion/internal/logging"
	"github.com/lehigh-university-libraries/workfusion/internal/models"
	"github.com/lehigh-university-libraries/workfusion/internal/similarity"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
)

// SameEditionScore is the score an edition must exceed to be the same
// manifestation.
const SameEditionScore = 1

// ScoreEdition counts agreement on place, publisher and year. Each component
// only counts when present on both sides.
func ScoreEdition(a, b models.Edition) int {
	score := 0
	if a.PubPlace != nil && b.PubPlace != nil && similarity.Similar(*a.PubPlace, *b.PubPlace) {
		score++
	}
	if a.Publisher != nil && b.Publisher != nil && similarity.Similar(*a.Publisher, *b.Publisher) {
		score++
	}
	if a.Year != nil && b.Year != nil && *a.Year == *b.Year {
		score++
	}
	return score
}

// SameEdition reports whether a and b describe the same manifestation.
func SameEdition(a, b models.Edition) bool {
	return ScoreEdition(a, b) > SameEditionScore
}

// MergeEditions folds incoming into existing using first-match semantics.
// The first edition that is the SameEdition gets the identifier union and
// the incoming notes; otherwise incoming is appended. The returned Outcome
// carries the slice index.
func MergeEditions(existing []models.Edition, incoming models.Edition) ([]models.Edition, Outcome) {
	for i, ed := range existing {
		if !SameEdition(ed, incoming) {
			continue
		}
		merged := ed
		merged.Identifiers = unionIdentifiers(ed.Identifiers, incoming.Identifiers)
		merged.Notes = incoming.Notes
		merged.Items = unionItems(ed.Items, incoming.Items)

		out := slices.Clone(existing)
		out[i] = merged
		return out, Matched(int64(i))
	}
	return append(slices.Clone(existing), incoming), Created(int64(len(existing)))
}

func unionIdentifiers(a, b []models.Identifier) []models.Identifier {
	out := slices.Clone(a)
	for _, id := range b {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func unionItems(a, b []models.Item) []models.Item {
	out := slices.Clone(a)
	for _, it := range b {
		if !slices.ContainsFunc(out, func(o models.Item) bool { return o.URL == it.URL }) {
			out = append(out, it)
		}
	}
	return out
}

// ResolveEdition merges an edition into workID's stored editions. Stored
// editions are scanned in id order and the first SameEdition wins. An edition
// with an identical description also counts as the same. Shared identifiers
// alone never merge two editions.
func ResolveEdition(ctx context.Context, g storage.Gateway, workID int64, ed models.Edition) (Outcome, error) {
	log := logging.FromContext(ctx)

	rows, err := g.List(ctx, storage.Editions, storage.Fields{"work_id": workID})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to list editions for work %d: %w", workID, err)
	}

	for _, row := range rows {
		stored := storage.EditionFromRow(row)
		score := ScoreEdition(stored, ed)
		if score <= SameEditionScore && !sameDescription(stored, ed) {
			continue
		}

		updates := storage.Fields{"notes": storage.Value(ed.Notes)}
		if row.IsNull("extent") && ed.Extent != nil {
			updates["extent"] = *ed.Extent
		}
		if row.IsNull("language") && ed.Language != "" {
			updates["language"] = ed.Language
		}
		if err := g.Update(ctx, storage.Editions, row.ID, updates); err != nil {
			return Outcome{}, fmt.Errorf("failed to update edition %d: %w", row.ID, err)
		}
		if err := attachEditionChildren(ctx, g, row.ID, ed); err != nil {
			return Outcome{}, err
		}

		log.Debug().
			Int64("edition_id", row.ID).
			Int("score", score).
			Msg("Matched edition")
		return Matched(row.ID), nil
	}

	id, err := g.Insert(ctx, storage.Editions, storage.EditionFields(workID, ed))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to insert edition: %w", err)
	}
	if err := attachEditionChildren(ctx, g, id, ed); err != nil {
		return Outcome{}, err
	}

	log.Debug().Int64("edition_id", id).Msg("Created edition")
	return Created(id), nil
}

// sameDescription covers sparse editions the 2-of-3 rule cannot score: title,
// place, publisher and year all agree, absent values included.
func sameDescription(a, b models.Edition) bool {
	return similarity.NormalizedEqual(a.Title, b.Title) &&
		equalOptional(a.PubPlace, b.PubPlace) &&
		equalOptional(a.Publisher, b.Publisher) &&
		((a.Year == nil && b.Year == nil) || (a.Year != nil && b.Year != nil && *a.Year == *b.Year))
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return similarity.NormalizedEqual(*a, *b)
}

// attachEditionChildren unions identifiers and attaches items by URL.
func attachEditionChildren(ctx context.Context, g storage.Gateway, editionID int64, ed models.Edition) error {
	for _, id := range ed.Identifiers {
		if _, err := storage.LinkIdentifier(ctx, g, storage.Editions, editionID, id); err != nil {
			return err
		}
	}

	for _, it := range ed.Items {
		_, found, err := g.ExactLookup(ctx, storage.Items, storage.Fields{"edition_id": editionID, "url": it.URL})
		if err != nil {
			return fmt.Errorf("failed to look up item %s: %w", it.URL, err)
		}
		if found {
			continue
		}
		if _, err := g.Insert(ctx, storage.Items, storage.ItemFields(editionID, it)); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", it.URL, err)
		}
	}
	return nil
}
