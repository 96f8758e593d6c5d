package storage

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/workfusion/internal/models"
)

// LinkIdentifier finds or creates the identifier row for id and links it to
// the owner row. It reports whether a new link was written.
func LinkIdentifier(ctx context.Context, g Gateway, owner Table, ownerID int64, id models.Identifier) (bool, error) {
	link, col, err := IdentifierLink(owner)
	if err != nil {
		return false, err
	}

	match := Fields{"type": id.Type, "identifier": id.Value}
	identID, found, err := g.ExactLookup(ctx, Identifiers, match)
	if err != nil {
		return false, fmt.Errorf("failed to look up identifier %s:%s: %w", id.Type, id.Value, err)
	}
	if !found {
		identID, err = g.Insert(ctx, Identifiers, match)
		if err != nil {
			return false, fmt.Errorf("failed to insert identifier %s:%s: %w", id.Type, id.Value, err)
		}
	}

	linkFields := Fields{col: ownerID, "identifier_id": identID}
	if found {
		_, linked, err := g.ExactLookup(ctx, link, linkFields)
		if err != nil {
			return false, fmt.Errorf("failed to look up %s: %w", link, err)
		}
		if linked {
			return false, nil
		}
	}

	if _, err := g.Insert(ctx, link, linkFields); err != nil {
		return false, fmt.Errorf("failed to link identifier %s:%s: %w", id.Type, id.Value, err)
	}
	return true, nil
}

// ListIdentifiers returns the identifiers linked to an owner row in link order.
func ListIdentifiers(ctx context.Context, g Gateway, owner Table, ownerID int64) ([]models.Identifier, error) {
	link, col, err := IdentifierLink(owner)
	if err != nil {
		return nil, err
	}

	links, err := g.List(ctx, link, Fields{col: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", link, err)
	}

	ids := make([]models.Identifier, 0, len(links))
	for _, l := range links {
		identID, _ := l.Int("identifier_id")
		row, err := g.GetRow(ctx, Identifiers, identID)
		if err != nil {
			return nil, fmt.Errorf("failed to load identifier %d: %w", identID, err)
		}
		typ, _ := row.String("type")
		value, _ := row.String("identifier")
		ids = append(ids, models.Identifier{Type: typ, Value: value})
	}
	return ids, nil
}

// LoadWork rebuilds the stored Work with its identifiers, entities, editions
// and subjects.
func LoadWork(ctx context.Context, g Gateway, id int64) (models.Work, error) {
	row, err := g.GetRow(ctx, Works, id)
	if err != nil {
		return models.Work{}, err
	}

	work := models.Work{ID: id}
	work.UUID, _ = row.String("uuid")
	work.Title, _ = row.String("title")
	work.Language, _ = row.String("language")
	work.RightsStatement = row.StringPtr("rights_stmt")

	if work.Identifiers, err = ListIdentifiers(ctx, g, Works, id); err != nil {
		return models.Work{}, err
	}

	links, err := g.List(ctx, EntityWorks, Fields{"work_id": id})
	if err != nil {
		return models.Work{}, fmt.Errorf("failed to list entity links: %w", err)
	}
	for _, l := range links {
		entityID, _ := l.Int("entity_id")
		er, err := g.GetRow(ctx, Entities, entityID)
		if err != nil {
			return models.Work{}, fmt.Errorf("failed to load entity %d: %w", entityID, err)
		}
		ent := EntityFromRow(er)
		ent.Role, _ = l.String("role")
		work.Entities = append(work.Entities, ent)
	}

	editions, err := g.List(ctx, Editions, Fields{"work_id": id})
	if err != nil {
		return models.Work{}, fmt.Errorf("failed to list editions: %w", err)
	}
	for _, er := range editions {
		ed := EditionFromRow(er)
		if ed.Identifiers, err = ListIdentifiers(ctx, g, Editions, er.ID); err != nil {
			return models.Work{}, err
		}
		items, err := g.List(ctx, Items, Fields{"edition_id": er.ID})
		if err != nil {
			return models.Work{}, fmt.Errorf("failed to list items: %w", err)
		}
		for _, ir := range items {
			ed.Items = append(ed.Items, ItemFromRow(ir))
		}
		if len(ed.Identifiers) == 0 {
			ed.Identifiers = nil
		}
		work.Editions = append(work.Editions, ed)
	}

	subjects, err := g.List(ctx, SubjectWorks, Fields{"work_id": id})
	if err != nil {
		return models.Work{}, fmt.Errorf("failed to list subject links: %w", err)
	}
	for _, l := range subjects {
		subjectID, _ := l.Int("subject_id")
		sr, err := g.GetRow(ctx, Subjects, subjectID)
		if err != nil {
			return models.Work{}, fmt.Errorf("failed to load subject %d: %w", subjectID, err)
		}
		subj := SubjectFromRow(sr)
		subj.Weight, _ = l.Float("weight")
		work.Subjects = append(work.Subjects, subj)
	}

	return work, nil
}
