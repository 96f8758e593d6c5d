package models

import (
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/workfusion/internal/errors"
)

// Normalize validates an EnrichedRecord and returns the CanonicalWork handed
// to the fusion engine. It is the only place that rejects records: a missing
// title or an empty identifier set returns a *errors.ValidationError.
func Normalize(rec EnrichedRecord) (CanonicalWork, error) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		return CanonicalWork{}, errors.NewValidationError("title", rec.Title, "must not be empty")
	}

	ids := NormalizeIdentifiers(rec.Identifiers)
	if len(ids) == 0 {
		return CanonicalWork{}, errors.NewValidationError("identifiers", rec.Identifiers, "at least one identifier is required")
	}

	lang := normalizeLanguage(rec.Language)

	work := CanonicalWork{
		Title:           title,
		RightsStatement: optional(rec.RightsStatement),
		Language:        lang,
		Identifiers:     ids,
	}

	for _, e := range rec.Entities {
		work.Entities = append(work.Entities, normalizeEntity(e))
	}
	for _, ed := range rec.Editions {
		work.Editions = append(work.Editions, normalizeEdition(ed, title, lang))
	}
	for _, s := range rec.Subjects {
		if subj, ok := normalizeSubject(s); ok {
			work.Subjects = append(work.Subjects, subj)
		}
	}
	return work, nil
}

// NormalizeIdentifiers lowercases types, trims values, strips ISBN/ISSN
// punctuation and drops empty or repeated identifiers. Input order is kept.
func NormalizeIdentifiers(in []Identifier) []Identifier {
	var out []Identifier
	for _, id := range in {
		n := Identifier{
			Type:  strings.ToLower(strings.TrimSpace(id.Type)),
			Value: strings.TrimSpace(id.Value),
		}
		if n.Type == IDISBN || n.Type == IDISSN {
			n.Value = strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(n.Value))
		}
		if n.Type == "" || n.Value == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func normalizeEntity(e Entity) Entity {
	n := Entity{
		Name:      strings.TrimSpace(e.Name),
		SortName:  strings.TrimSpace(e.SortName),
		VIAF:      optional(e.VIAF),
		LCNAF:     optional(e.LCNAF),
		Wikipedia: optional(e.Wikipedia),
		Birth:     positive(e.Birth),
		Death:     positive(e.Death),
		Role:      strings.ToLower(strings.TrimSpace(e.Role)),
	}
	if n.SortName == "" {
		n.SortName = n.Name
	}
	if n.Role == "" {
		n.Role = DefaultRole
	}
	for _, a := range e.Aliases {
		a = strings.TrimSpace(a)
		if a != "" && !slices.Contains(n.Aliases, a) {
			n.Aliases = append(n.Aliases, a)
		}
	}
	return n
}

func normalizeEdition(ed Edition, workTitle, workLang string) Edition {
	n := Edition{
		Title:       strings.TrimSpace(ed.Title),
		PubPlace:    optional(ed.PubPlace),
		Publisher:   optional(ed.Publisher),
		Year:        positive(ed.Year),
		Extent:      optional(ed.Extent),
		Notes:       optional(ed.Notes),
		Language:    strings.ToLower(strings.TrimSpace(ed.Language)),
		Identifiers: NormalizeIdentifiers(ed.Identifiers),
	}
	if n.Title == "" {
		n.Title = workTitle
	}
	if n.Language == "" {
		n.Language = workLang
	}
	for _, it := range ed.Items {
		it.URL = strings.TrimSpace(it.URL)
		if it.URL == "" {
			continue
		}
		n.Items = append(n.Items, it)
	}
	return n
}

func normalizeSubject(s Subject) (Subject, bool) {
	n := Subject{
		Authority: strings.ToLower(strings.TrimSpace(s.Authority)),
		URI:       optional(s.URI),
		Text:      strings.TrimSpace(s.Text),
	}
	return n, n.Text != ""
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}

// optional trims s and maps empty strings to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func positive(n *int) *int {
	if n == nil || *n <= 0 {
		return nil
	}
	v := *n
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
