// Package storage defines the persistence gateway the resolvers run against
// and the table layout shared by every backend.
package storage

import (
	"context"
	"fmt"
	"slices"
)

// Table names a stored relation.
type Table string

const (
	Works              Table = "works"
	Editions           Table = "editions"
	Items              Table = "items"
	Entities           Table = "entities"
	EntityWorks        Table = "entity_works"
	Subjects           Table = "subjects"
	SubjectWorks       Table = "subject_works"
	Identifiers        Table = "identifiers"
	WorkIdentifiers    Table = "work_identifiers"
	EditionIdentifiers Table = "edition_identifiers"
)

// Columns lists the writable columns of each table. Every table also has an
// integer primary key "id" assigned on insert.
var Columns = map[Table][]string{
	Works:              {"uuid", "title", "rights_stmt", "language"},
	Editions:           {"work_id", "title", "pub_place", "publisher", "pub_year", "extent", "notes", "language"},
	Items:              {"edition_id", "url", "path", "source", "size", "modified"},
	Entities:           {"name", "sort_name", "viaf", "lcnaf", "wikipedia", "birth", "death", "aliases"},
	EntityWorks:        {"work_id", "entity_id", "role"},
	Subjects:           {"authority", "uri", "subject"},
	SubjectWorks:       {"work_id", "subject_id", "weight"},
	Identifiers:        {"type", "identifier"},
	WorkIdentifiers:    {"work_id", "identifier_id"},
	EditionIdentifiers: {"edition_id", "identifier_id"},
}

// Tables returns every table in creation order.
func Tables() []Table {
	return []Table{
		Works, Editions, Items, Entities, EntityWorks,
		Subjects, SubjectWorks, Identifiers, WorkIdentifiers, EditionIdentifiers,
	}
}

// Gateway is the set of operations the resolvers need from a backend.
// Rows come back in ascending id order wherever more than one is possible.
type Gateway interface {
	// LookupByIdentifier returns the owner (a Work or Edition) linked to the
	// identifier {idType, value}.
	LookupByIdentifier(ctx context.Context, owner Table, idType, value string) (int64, bool, error)

	// FuzzySearch returns the row whose field scores highest against value,
	// provided that score is strictly greater than threshold. Ties go to the
	// lowest id.
	FuzzySearch(ctx context.Context, table Table, field, value string, threshold float64) (Row, bool, error)

	// ExactLookup returns the first row whose fields equal match. A nil value
	// in match only equals a null column.
	ExactLookup(ctx context.Context, table Table, match Fields) (int64, bool, error)

	Insert(ctx context.Context, table Table, fields Fields) (int64, error)
	Update(ctx context.Context, table Table, id int64, fields Fields) error
	GetRow(ctx context.Context, table Table, id int64) (Row, error)

	// List returns every row whose fields equal where.
	List(ctx context.Context, table Table, where Fields) ([]Row, error)
}

// Tx is a Gateway whose writes become visible only on Commit. Rollback after
// Commit is a no-op so it can always be deferred.
type Tx interface {
	Gateway
	Commit() error
	Rollback() error
}

// Store hands out transactions. Only one transaction is open at a time.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// IdentifierLink returns the link table and owner column joining owner rows
// to the identifiers table.
func IdentifierLink(owner Table) (Table, string, error) {
	switch owner {
	case Works:
		return WorkIdentifiers, "work_id", nil
	case Editions:
		return EditionIdentifiers, "edition_id", nil
	default:
		return "", "", fmt.Errorf("table %s has no identifiers", owner)
	}
}

// CheckColumns reports the first key in fields that is not a column of table.
func CheckColumns(table Table, fields Fields) error {
	cols, ok := Columns[table]
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	for k := range fields {
		if k != "id" && !slices.Contains(cols, k) {
			return fmt.Errorf("unknown column %s.%s", table, k)
		}
	}
	return nil
}
