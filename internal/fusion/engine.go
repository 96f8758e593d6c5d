// Package fusion folds one canonical record into the stored Work graph.
//
// Resolution order is fixed. An identifier already linked to a stored Work is
// authoritative and short-circuits everything else. Otherwise a fuzzy title
// hit is accepted only when one of the incoming contributors resolves to an
// entity already linked to that Work. Otherwise a new Work is created. The
// record's editions, entities and subjects are then merged into the Work,
// all inside a single transaction.
package fusion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/workfusion/internal/logging"
	"github.com/lehigh-university-libraries/workfusion/internal/models"
	"github.com/lehigh-university-libraries/workfusion/internal/resolve"
	"github.com/lehigh-university-libraries/workfusion/internal/similarity"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
)

// Status says whether the Work existed before the call.
type Status string

const (
	StatusNew      Status = "new"
	StatusExisting Status = "existing"
)

// Resolution names the rule that selected the Work.
type Resolution string

const (
	ByIdentifier Resolution = "identifier"
	ByFuzzyTitle Resolution = "fuzzy"
	ByCreation   Resolution = "created"
)

// Result describes what one Fuse call did.
type Result struct {
	Status     Status     `json:"status" yaml:"status"`
	WorkID     int64      `json:"work_id" yaml:"work_id"`
	WorkUUID   string     `json:"work_uuid" yaml:"work_uuid"`
	Resolution Resolution `json:"resolution" yaml:"resolution"`

	// LinkedIdentifiers counts identifiers newly attached to the Work.
	LinkedIdentifiers int `json:"linked_identifiers" yaml:"linked_identifiers"`

	Editions []resolve.Outcome `json:"editions,omitempty" yaml:"editions,omitempty"`
	Entities []resolve.Outcome `json:"entities,omitempty" yaml:"entities,omitempty"`
	Subjects []resolve.Outcome `json:"subjects,omitempty" yaml:"subjects,omitempty"`
}

// Engine runs Fuse against a Store.
type Engine struct {
	store   storage.Store
	newUUID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithUUIDGenerator replaces the Work uuid source.
func WithUUIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newUUID = fn
		}
	}
}

// New creates an Engine writing to store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		newUUID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fuse resolves work to a stored Work and merges it. Any error rolls back
// every write made by the call.
func (e *Engine) Fuse(ctx context.Context, work models.CanonicalWork) (result Result, err error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to begin fuse: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err = e.fuse(ctx, tx, work)
	if err != nil {
		return Result{}, err
	}
	if err = tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("failed to commit fuse: %w", err)
	}
	return result, nil
}

func (e *Engine) fuse(ctx context.Context, g storage.Gateway, work models.CanonicalWork) (Result, error) {
	log := logging.FromContext(ctx)

	workID, res, err := e.resolveWork(ctx, g, work)
	if err != nil {
		return Result{}, err
	}

	row, err := g.GetRow(ctx, storage.Works, workID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load work %d: %w", workID, err)
	}

	result := Result{WorkID: workID, Resolution: res, Status: StatusExisting}
	result.WorkUUID, _ = row.String("uuid")
	if res == ByCreation {
		result.Status = StatusNew
	} else if err := fillWork(ctx, g, row, work); err != nil {
		return Result{}, err
	}

	if result.LinkedIdentifiers, err = linkIdentifiers(ctx, g, workID, work.Identifiers); err != nil {
		return Result{}, err
	}

	for _, ed := range work.Editions {
		out, err := resolve.ResolveEdition(ctx, g, workID, ed)
		if err != nil {
			return Result{}, fmt.Errorf("failed to merge edition: %w", err)
		}
		result.Editions = append(result.Editions, out)
	}

	for _, ent := range work.Entities {
		out, err := resolve.ResolveEntity(ctx, g, workID, ent)
		if err != nil {
			return Result{}, fmt.Errorf("failed to merge entity: %w", err)
		}
		result.Entities = append(result.Entities, out)
	}

	for _, subj := range work.Subjects {
		out, err := attachSubject(ctx, g, workID, subj)
		if err != nil {
			return Result{}, fmt.Errorf("failed to attach subject: %w", err)
		}
		result.Subjects = append(result.Subjects, out)
	}

	log.Debug().
		Int64("work_id", workID).
		Str("status", string(result.Status)).
		Str("resolution", string(res)).
		Int("editions", len(result.Editions)).
		Int("entities", len(result.Entities)).
		Int("subjects", len(result.Subjects)).
		Msg("Fused work")

	return result, nil
}

func (e *Engine) resolveWork(ctx context.Context, g storage.Gateway, work models.CanonicalWork) (int64, Resolution, error) {
	log := logging.FromContext(ctx)

	for _, id := range work.Identifiers {
		workID, found, err := g.LookupByIdentifier(ctx, storage.Works, id.Type, id.Value)
		if err != nil {
			return 0, "", fmt.Errorf("failed to look up work by %s: %w", id.Type, err)
		}
		if found {
			log.Debug().
				Str("type", id.Type).
				Str("identifier", id.Value).
				Int64("work_id", workID).
				Msg("Resolved work by identifier")
			return workID, ByIdentifier, nil
		}
	}

	workID, found, err := matchByTitle(ctx, g, work)
	if err != nil {
		return 0, "", err
	}
	if found {
		log.Debug().Str("title", work.Title).Int64("work_id", workID).Msg("Resolved work by title and contributor")
		return workID, ByFuzzyTitle, nil
	}

	workID, err = g.Insert(ctx, storage.Works, storage.Fields{
		"uuid":        e.newUUID(),
		"title":       work.Title,
		"rights_stmt": storage.Value(work.RightsStatement),
		"language":    work.Language,
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to insert work: %w", err)
	}
	log.Debug().Str("title", work.Title).Int64("work_id", workID).Msg("Created work")
	return workID, ByCreation, nil
}

// matchByTitle accepts the best fuzzy title hit only when an incoming
// contributor resolves to an entity already linked to it.
func matchByTitle(ctx context.Context, g storage.Gateway, work models.CanonicalWork) (int64, bool, error) {
	row, found, err := g.FuzzySearch(ctx, storage.Works, "title", work.Title, similarity.Threshold)
	if err != nil {
		return 0, false, fmt.Errorf("failed to search works by title: %w", err)
	}
	if !found {
		return 0, false, nil
	}

	for _, ent := range work.Entities {
		match, ok, err := resolve.ScoreEntity(ctx, g, ent)
		if err != nil {
			return 0, false, err
		}
		if !ok || !match.Accepted() {
			continue
		}
		linked, err := resolve.LinkedToWork(ctx, g, row.ID, match.ID)
		if err != nil {
			return 0, false, err
		}
		if linked {
			return row.ID, true, nil
		}
	}
	return 0, false, nil
}

// fillWork copies incoming values into null columns of an existing Work.
// The title is never changed.
func fillWork(ctx context.Context, g storage.Gateway, row storage.Row, work models.CanonicalWork) error {
	updates := storage.Fields{}
	if row.IsNull("rights_stmt") && work.RightsStatement != nil {
		updates["rights_stmt"] = *work.RightsStatement
	}
	if row.IsNull("language") && work.Language != "" {
		updates["language"] = work.Language
	}
	if len(updates) == 0 {
		return nil
	}
	if err := g.Update(ctx, storage.Works, row.ID, updates); err != nil {
		return fmt.Errorf("failed to fill work %d: %w", row.ID, err)
	}
	return nil
}

// linkIdentifiers grows the Work's identifier set. An identifier that already
// belongs to another Work is left where it is.
func linkIdentifiers(ctx context.Context, g storage.Gateway, workID int64, ids []models.Identifier) (int, error) {
	log := logging.FromContext(ctx)

	linked := 0
	for _, id := range ids {
		owner, found, err := g.LookupByIdentifier(ctx, storage.Works, id.Type, id.Value)
		if err != nil {
			return 0, fmt.Errorf("failed to look up work by %s: %w", id.Type, err)
		}
		if found {
			if owner != workID {
				log.Warn().
					Str("type", id.Type).
					Str("identifier", id.Value).
					Int64("work_id", workID).
					Int64("owner_id", owner).
					Msg("Identifier already belongs to another work")
			}
			continue
		}
		if _, err := storage.LinkIdentifier(ctx, g, storage.Works, workID, id); err != nil {
			return 0, err
		}
		linked++
	}
	return linked, nil
}

// attachSubject finds or creates the subject by exact (authority, text) and
// ensures the (work, subject) relation with the default weight.
func attachSubject(ctx context.Context, g storage.Gateway, workID int64, subj models.Subject) (resolve.Outcome, error) {
	key := storage.Fields{"authority": subj.Authority, "subject": subj.Text}
	subjectID, found, err := g.ExactLookup(ctx, storage.Subjects, key)
	if err != nil {
		return resolve.Outcome{}, fmt.Errorf("failed to look up subject %q: %w", subj.Text, err)
	}

	out := resolve.Matched(subjectID)
	if found {
		if subj.URI != nil {
			row, err := g.GetRow(ctx, storage.Subjects, subjectID)
			if err != nil {
				return resolve.Outcome{}, fmt.Errorf("failed to load subject %d: %w", subjectID, err)
			}
			if row.IsNull("uri") {
				if err := g.Update(ctx, storage.Subjects, subjectID, storage.Fields{"uri": *subj.URI}); err != nil {
					return resolve.Outcome{}, fmt.Errorf("failed to fill subject %d: %w", subjectID, err)
				}
			}
		}
	} else {
		fields := key.Clone()
		fields["uri"] = storage.Value(subj.URI)
		if subjectID, err = g.Insert(ctx, storage.Subjects, fields); err != nil {
			return resolve.Outcome{}, fmt.Errorf("failed to insert subject %q: %w", subj.Text, err)
		}
		out = resolve.Created(subjectID)
	}

	link := storage.Fields{"work_id": workID, "subject_id": subjectID}
	_, linked, err := g.ExactLookup(ctx, storage.SubjectWorks, link)
	if err != nil {
		return resolve.Outcome{}, fmt.Errorf("failed to look up subject link: %w", err)
	}
	if !linked {
		link["weight"] = DefaultSubjectWeight
		if _, err := g.Insert(ctx, storage.SubjectWorks, link); err != nil {
			return resolve.Outcome{}, fmt.Errorf("failed to link subject %d to work %d: %w", subjectID, workID, err)
		}
	}
	return out, nil
}

// DefaultSubjectWeight is the weight given to new (work, subject) relations.
const DefaultSubjectWeight = 1.0
