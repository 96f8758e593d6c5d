package storage

import (
	"encoding/json"

	"github.com/lehigh-university-libraries/workfusion/internal/models"
)

// EntityFields maps an entity onto the entities table. Role lives on the
// entity_works relation and is not included.
func EntityFields(e models.Entity) Fields {
	sortName := e.SortName
	if sortName == "" {
		sortName = e.Name
	}
	return Fields{
		"name":      e.Name,
		"sort_name": sortName,
		"viaf":      Value(e.VIAF),
		"lcnaf":     Value(e.LCNAF),
		"wikipedia": Value(e.Wikipedia),
		"birth":     Value(e.Birth),
		"death":     Value(e.Death),
		"aliases":   EncodeAliases(e.Aliases),
	}
}

// EntityFromRow is the inverse of EntityFields.
func EntityFromRow(r Row) models.Entity {
	name, _ := r.String("name")
	sortName, _ := r.String("sort_name")
	return models.Entity{
		Name:      name,
		SortName:  sortName,
		VIAF:      r.StringPtr("viaf"),
		LCNAF:     r.StringPtr("lcnaf"),
		Wikipedia: r.StringPtr("wikipedia"),
		Birth:     r.IntPtr("birth"),
		Death:     r.IntPtr("death"),
		Aliases:   DecodeAliases(r.Fields),
	}
}

// EncodeAliases stores aliases as a JSON array. No aliases is null.
func EncodeAliases(aliases []string) any {
	if len(aliases) == 0 {
		return nil
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return nil
	}
	return string(b)
}

// DecodeAliases reads the aliases column; malformed values decode as none.
func DecodeAliases(f Fields) []string {
	raw, ok := f.String("aliases")
	if !ok || raw == "" {
		return nil
	}
	var aliases []string
	if err := json.Unmarshal([]byte(raw), &aliases); err != nil {
		return nil
	}
	return aliases
}

// EditionFields maps an edition onto the editions table.
func EditionFields(workID int64, ed models.Edition) Fields {
	return Fields{
		"work_id":   workID,
		"title":     ed.Title,
		"pub_place": Value(ed.PubPlace),
		"publisher": Value(ed.Publisher),
		"pub_year":  Value(ed.Year),
		"extent":    Value(ed.Extent),
		"notes":     Value(ed.Notes),
		"language":  ed.Language,
	}
}

// EditionFromRow maps an editions row back onto an Edition without its
// identifiers or items.
func EditionFromRow(r Row) models.Edition {
	title, _ := r.String("title")
	lang, _ := r.String("language")
	return models.Edition{
		Title:     title,
		PubPlace:  r.StringPtr("pub_place"),
		Publisher: r.StringPtr("publisher"),
		Year:      r.IntPtr("pub_year"),
		Extent:    r.StringPtr("extent"),
		Notes:     r.StringPtr("notes"),
		Language:  lang,
	}
}

// ItemFields maps an item onto the items table.
func ItemFields(editionID int64, it models.Item) Fields {
	return Fields{
		"edition_id": editionID,
		"url":        it.URL,
		"path":       it.Path,
		"source":     it.Source,
		"size":       it.Size,
		"modified":   it.Modified,
	}
}

// ItemFromRow is the inverse of ItemFields.
func ItemFromRow(r Row) models.Item {
	url, _ := r.String("url")
	path, _ := r.String("path")
	source, _ := r.String("source")
	size, _ := r.Int("size")
	modified, _ := r.String("modified")
	return models.Item{URL: url, Path: path, Source: source, Size: size, Modified: modified}
}

// SubjectFromRow maps a subjects row onto a Subject.
func SubjectFromRow(r Row) models.Subject {
	authority, _ := r.String("authority")
	text, _ := r.String("subject")
	return models.Subject{Authority: authority, URI: r.StringPtr("uri"), Text: text}
}
