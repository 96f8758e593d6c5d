// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/workfusion/internal/errors"
	"github.com/lehigh-university-libraries/workfusion/internal/models"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Store

// Run exercises a backend against the storage.Gateway contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("insert get update", func(t *testing.T) { testInsertGetUpdate(t, newStore(t)) })
	t.Run("list order and filters", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("exact lookup is null safe", func(t *testing.T) { testExactLookup(t, newStore(t)) })
	t.Run("fuzzy search", func(t *testing.T) { testFuzzySearch(t, newStore(t)) })
	t.Run("identifier links", func(t *testing.T) { testIdentifiers(t, newStore(t)) })
	t.Run("rollback restores state", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("errors", func(t *testing.T) { testErrors(t, newStore(t)) })
	t.Run("load work", func(t *testing.T) { testLoadWork(t, newStore(t)) })
}

func begin(t *testing.T, s storage.Store) storage.Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func insertWork(t *testing.T, g storage.Gateway, uuid, title string) int64 {
	t.Helper()
	id, err := g.Insert(context.Background(), storage.Works, storage.Fields{"uuid": uuid, "title": title, "language": "en"})
	require.NoError(t, err)
	return id
}

func testInsertGetUpdate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s)

	id := insertWork(t, tx, "u-1", "Typee")
	row, err := tx.GetRow(ctx, storage.Works, id)
	require.NoError(t, err)
	assert.Equal(t, id, row.ID)
	title, _ := row.String("title")
	assert.Equal(t, "Typee", title)
	assert.True(t, row.IsNull("rights_stmt"))

	require.NoError(t, tx.Update(ctx, storage.Works, id, storage.Fields{"rights_stmt": "Public domain"}))
	row, err = tx.GetRow(ctx, storage.Works, id)
	require.NoError(t, err)
	assert.Equal(t, "Public domain", *row.StringPtr("rights_stmt"))

	entityID, err := tx.Insert(ctx, storage.Entities, storage.Fields{"name": "Herman Melville", "birth": 1819})
	require.NoError(t, err)
	er, err := tx.GetRow(ctx, storage.Entities, entityID)
	require.NoError(t, err)
	birth, ok := er.Int("birth")
	require.True(t, ok)
	assert.Equal(t, int64(1819), birth)

	require.NoError(t, tx.Commit())
}

func testList(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s)

	w1 := insertWork(t, tx, "u-1", "Typee")
	w2 := insertWork(t, tx, "u-2", "Omoo")
	for _, place := range []string{"London", "Boston", "New York"} {
		_, err := tx.Insert(ctx, storage.Editions, storage.Fields{"work_id": w1, "title": "Typee", "pub_place": place})
		require.NoError(t, err)
	}
	_, err := tx.Insert(ctx, storage.Editions, storage.Fields{"work_id": w2, "title": "Omoo"})
	require.NoError(t, err)

	rows, err := tx.List(ctx, storage.Editions, storage.Fields{"work_id": w1})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	var places []string
	for i, r := range rows {
		if i > 0 {
			assert.Greater(t, r.ID, rows[i-1].ID)
		}
		p, _ := r.String("pub_place")
		places = append(places, p)
	}
	assert.Equal(t, []string{"London", "Boston", "New York"}, places)

	all, err := tx.List(ctx, storage.Editions, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := tx.List(ctx, storage.Editions, storage.Fields{"work_id": w2, "pub_place": "London"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testExactLookup(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s)

	withVIAF, err := tx.Insert(ctx, storage.Entities, storage.Fields{"name": "Herman Melville", "viaf": "27068555"})
	require.NoError(t, err)
	withoutVIAF, err := tx.Insert(ctx, storage.Entities, storage.Fields{"name": "Herman Melville"})
	require.NoError(t, err)

	id, found, err := tx.ExactLookup(ctx, storage.Entities, storage.Fields{"viaf": "27068555"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, withVIAF, id)

	id, found, err = tx.ExactLookup(ctx, storage.Entities, storage.Fields{"name": "Herman Melville", "viaf": nil})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, withoutVIAF, id)

	_, found, err = tx.ExactLookup(ctx, storage.Entities, storage.Fields{"viaf": "0000"})
	require.NoError(t, err)
	assert.False(t, found)
}

func testFuzzySearch(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s)

	long := insertWork(t, tx, "u-1", "Moby Dick; or, The Whale")
	exact := insertWork(t, tx, "u-2", "Moby Dick")
	dupe := insertWork(t, tx, "u-3", "Moby Dick")
	insertWork(t, tx, "u-4", "Pierre")

	row, found, err := tx.FuzzySearch(ctx, storage.Works, "title", "moby dick", 0.9)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, exact, row.ID, "best score wins and ties go to the lowest id")
	assert.NotEqual(t, dupe, row.ID)
	assert.NotEqual(t, long, row.ID)

	_, found, err = tx.FuzzySearch(ctx, storage.Works, "title", "Moby Dick", 1.0)
	require.NoError(t, err)
	assert.False(t, found, "a score equal to the threshold is not a match")

	_, found, err = tx.FuzzySearch(ctx, storage.Works, "title", "Bartleby", 0.9)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = tx.FuzzySearch(ctx, storage.Works, "rights_stmt", "Public domain", 0.9)
	require.NoError(t, err)
	assert.False(t, found, "null columns never match")
}

func testIdentifiers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s)

	w1 := insertWork(t, tx, "u-1", "Typee")
	w2 := insertWork(t, tx, "u-2", "Omoo")
	gid := models.Identifier{Type: models.IDGutenberg, Value: "1900"}

	linked, err := storage.LinkIdentifier(ctx, tx, storage.Works, w1, gid)
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = storage.LinkIdentifier(ctx, tx, storage.Works, w1, gid)
	require.NoError(t, err)
	assert.False(t, linked, "linking twice is a no-op")

	owner, found, err := tx.LookupByIdentifier(ctx, storage.Works, models.IDGutenberg, "1900")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, w1, owner)

	_, found, err = tx.LookupByIdentifier(ctx, storage.Works, models.IDOCLC, "1900")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = tx.LookupByIdentifier(ctx, storage.Editions, models.IDGutenberg, "1900")
	require.NoError(t, err)
	assert.False(t, found, "edition links are separate from work links")

	_, err = storage.LinkIdentifier(ctx, tx, storage.Works, w2, models.Identifier{Type: models.IDOCLC, Value: "42"})
	require.NoError(t, err)
	ids, err := storage.ListIdentifiers(ctx, tx, storage.Works, w2)
	require.NoError(t, err)
	assert.Equal(t, []models.Identifier{{Type: models.IDOCLC, Value: "42"}}, ids)

	all, err := tx.List(ctx, storage.Identifiers, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	kept := insertWork(t, tx, "u-1", "Typee")
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	insertWork(t, tx, "u-2", "Omoo")
	require.NoError(t, tx.Update(ctx, storage.Works, kept, storage.Fields{"title": "Changed"}))
	require.NoError(t, tx.Rollback())

	tx = begin(t, s)
	rows, err := tx.List(ctx, storage.Works, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	title, _ := rows[0].String("title")
	assert.Equal(t, "Typee", title)

	next := insertWork(t, tx, "u-3", "Mardi")
	assert.Greater(t, next, kept)
}

func testErrors(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s)

	_, err := tx.GetRow(ctx, storage.Works, 99)
	assert.True(t, errors.IsNotFound(err))

	err = tx.Update(ctx, storage.Works, 99, storage.Fields{"title": "x"})
	assert.True(t, errors.IsPersistence(err))
	assert.True(t, errors.IsNotFound(err))

	_, err = tx.Insert(ctx, storage.Works, storage.Fields{"colour": "red"})
	assert.True(t, errors.IsPersistence(err))

	_, err = tx.List(ctx, storage.Table("nope"), nil)
	assert.True(t, errors.IsPersistence(err))
}

func testLoadWork(t *testing.T, s storage.Store) {
	ctx := context.Background()
	tx := begin(t, s)

	workID := insertWork(t, tx, "u-1", "Typee")
	_, err := storage.LinkIdentifier(ctx, tx, storage.Works, workID, models.Identifier{Type: models.IDGutenberg, Value: "1900"})
	require.NoError(t, err)

	melville := models.Entity{Name: "Herman Melville", SortName: "Melville, Herman", Birth: models.Ptr(1819), Aliases: []string{"H. Melville"}}
	entityID, err := tx.Insert(ctx, storage.Entities, storage.EntityFields(melville))
	require.NoError(t, err)
	_, err = tx.Insert(ctx, storage.EntityWorks, storage.Fields{"work_id": workID, "entity_id": entityID, "role": "author"})
	require.NoError(t, err)

	ed := models.Edition{Title: "Typee", PubPlace: models.Ptr("London"), Year: models.Ptr(1846), Language: "en"}
	edID, err := tx.Insert(ctx, storage.Editions, storage.EditionFields(workID, ed))
	require.NoError(t, err)
	_, err = storage.LinkIdentifier(ctx, tx, storage.Editions, edID, models.Identifier{Type: models.IDISBN, Value: "9780140434880"})
	require.NoError(t, err)
	item := models.Item{URL: "http://example.org/1900.epub", Source: "gutenberg", Size: 1024}
	_, err = tx.Insert(ctx, storage.Items, storage.ItemFields(edID, item))
	require.NoError(t, err)

	subjectID, err := tx.Insert(ctx, storage.Subjects, storage.Fields{"authority": "lcsh", "subject": "Marquesas Islands -- Fiction"})
	require.NoError(t, err)
	_, err = tx.Insert(ctx, storage.SubjectWorks, storage.Fields{"work_id": workID, "subject_id": subjectID, "weight": 1.0})
	require.NoError(t, err)

	work, err := storage.LoadWork(ctx, tx, workID)
	require.NoError(t, err)

	assert.Equal(t, "u-1", work.UUID)
	assert.Equal(t, "Typee", work.Title)
	assert.Equal(t, []models.Identifier{{Type: models.IDGutenberg, Value: "1900"}}, work.Identifiers)

	melville.Role = "author"
	assert.Equal(t, []models.Entity{melville}, work.Entities)

	ed.Identifiers = []models.Identifier{{Type: models.IDISBN, Value: "9780140434880"}}
	ed.Items = []models.Item{item}
	assert.Equal(t, []models.Edition{ed}, work.Editions)

	assert.Equal(t, []models.Subject{{Authority: "lcsh", Text: "Marquesas Islands -- Fiction", Weight: 1.0}}, work.Subjects)

	_, err = storage.LoadWork(ctx, tx, workID+100)
	assert.True(t, errors.IsNotFound(err))
}
