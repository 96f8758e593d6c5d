// Package enrich applies pre-fetched enrichment and classification payloads
// to a catalog record. Nothing here performs I/O.
package enrich

import (
	"regexp"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/workfusion/internal/models"
	"github.com/lehigh-university-libraries/workfusion/internal/resolve"
	"github.com/lehigh-university-libraries/workfusion/internal/similarity"
)

var controlNumber = regexp.MustCompile(`[a-z]*[0-9]+$`)

// ControlNumber extracts the trailing authority control number from an
// authority URL, e.g. "n79006936" from
// http://id.loc.gov/authorities/names/n79006936.
func ControlNumber(url string) (string, bool) {
	m := controlNumber.FindString(strings.TrimRight(strings.TrimSpace(url), "/"))
	return m, m != ""
}

// Enrich runs every available stage on src. Stages without a payload are
// skipped and not recorded.
func Enrich(src models.SourceRecord) models.EnrichedRecord {
	rec := models.EnrichedRecord{
		Source:          src.Source,
		Title:           src.Title,
		RightsStatement: src.RightsStatement,
		Language:        src.Language,
		Identifiers:     slices.Clone(src.Identifiers),
		Entities:        slices.Clone(src.Entities),
		Editions:        slices.Clone(src.Editions),
		Subjects:        slices.Clone(src.Subjects),
	}
	if src.Lookup != nil {
		rec = ApplyLookup(rec, *src.Lookup)
	}
	if src.Classify != nil {
		rec = ApplyClassification(rec, *src.Classify)
	}
	return rec
}

// ApplyLookup adds sort names and authority ids to the entities the payload
// describes, adds its gutenberg identifiers and sets the language.
func ApplyLookup(rec models.EnrichedRecord, p models.LookupPayload) models.EnrichedRecord {
	rec.Entities = slices.Clone(rec.Entities)
	rec.Identifiers = slices.Clone(rec.Identifiers)
	for _, author := range p.Authors {
		name := strings.Trim(author.Name, "., ")
		sortName := strings.Trim(author.SortName, "., ")
		if name == "" {
			name = sortName
		}
		viaf, lcnaf := authorityIDs(author.SameAs)

		for i, ent := range rec.Entities {
			if !(sameName(ent.Name, name) || sameName(ent.Name, sortName)) {
				continue
			}
			if sortName != "" {
				ent.SortName = sortName
			}
			if viaf != nil {
				ent.VIAF = viaf
			}
			if lcnaf != nil {
				ent.LCNAF = lcnaf
			}
			rec.Entities[i] = ent
		}
	}

	for _, id := range p.Identifiers {
		if id.Type == "" {
			id.Type = models.IDGutenberg
		}
		if !slices.Contains(rec.Identifiers, id) {
			rec.Identifiers = append(rec.Identifiers, id)
		}
	}

	rec.Language = p.Language
	if strings.TrimSpace(rec.Language) == "" {
		rec.Language = models.DefaultLanguage
	}
	rec.Stages = append(slices.Clone(rec.Stages), models.StageLookup)
	return rec
}

func sameName(a, b string) bool {
	return b != "" && similarity.NormalizedEqual(a, b)
}

func authorityIDs(sameAs []string) (viaf, lcnaf *string) {
	for _, url := range sameAs {
		ctrl, ok := ControlNumber(url)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(url, "viaf"):
			viaf = models.Ptr(ctrl)
		case strings.Contains(url, "authorities/names"):
			lcnaf = models.Ptr(ctrl)
		}
	}
	return viaf, lcnaf
}

// ApplyClassification replaces the title with the classified work title,
// records the work identifier, appends the work authors and folds the
// classified editions into the record's editions.
func ApplyClassification(rec models.EnrichedRecord, p models.ClassifyPayload) models.EnrichedRecord {
	if t := strings.TrimSpace(p.WorkTitle); t != "" {
		rec.Title = t
	}

	if owi := strings.TrimSpace(p.OWI); owi != "" {
		id := models.Identifier{Type: models.IDOWI, Value: owi}
		if !slices.Contains(rec.Identifiers, id) {
			rec.Identifiers = append(slices.Clone(rec.Identifiers), id)
		}
	}

	rec.Entities = slices.Clone(rec.Entities)
	for _, author := range p.Authors {
		author.Role = models.DefaultRole
		rec.Entities = append(rec.Entities, author)
	}

	editions := slices.Clone(rec.Editions)
	for _, ed := range p.Editions {
		editions, _ = resolve.MergeEditions(editions, ed)
	}
	rec.Editions = editions

	rec.Stages = append(slices.Clone(rec.Stages), models.StageClassify)
	return rec
}
