package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/workfusion/internal/models"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
	"github.com/lehigh-university-libraries/workfusion/internal/storage/memory"
)

func newTx(t *testing.T) storage.Tx {
	t.Helper()
	tx, err := memory.New().Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func seedWork(t *testing.T, g storage.Gateway, title string) int64 {
	t.Helper()
	id, err := g.Insert(context.Background(), storage.Works, storage.Fields{"uuid": title, "title": title, "language": "en"})
	require.NoError(t, err)
	return id
}

func seedEntity(t *testing.T, g storage.Gateway, e models.Entity) int64 {
	t.Helper()
	id, err := g.Insert(context.Background(), storage.Entities, storage.EntityFields(e))
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, g storage.Gateway, table storage.Table, where storage.Fields) int {
	t.Helper()
	rows, err := g.List(context.Background(), table, where)
	require.NoError(t, err)
	return len(rows)
}

func TestScoreEntity(t *testing.T) {
	melville := models.Entity{
		Name:  "Herman Melville",
		VIAF:  models.Ptr("27068555"),
		LCNAF: models.Ptr("n79006936"),
		Birth: models.Ptr(1819),
		Death: models.Ptr(1891),
	}

	tests := []struct {
		name      string
		candidate models.Entity
		score     int
		accepted  bool
	}{
		{
			name:      "name only",
			candidate: models.Entity{Name: "Herman Melville"},
			score:     1,
		},
		{
			name:      "name with one year",
			candidate: models.Entity{Name: "Herman Melville", Birth: models.Ptr(1819)},
			score:     1,
		},
		{
			name:      "name with mismatched lifespan",
			candidate: models.Entity{Name: "Herman Melville", Birth: models.Ptr(1819), Death: models.Ptr(1899)},
			score:     1,
		},
		{
			name:      "name with lifespan",
			candidate: models.Entity{Name: "Herman Melvile", Birth: models.Ptr(1819), Death: models.Ptr(1891)},
			score:     2,
			accepted:  true,
		},
		{
			name:      "viaf only",
			candidate: models.Entity{Name: "H. M.", VIAF: models.Ptr("27068555")},
			score:     1,
		},
		{
			name:      "viaf and name",
			candidate: models.Entity{Name: "Herman Melville", VIAF: models.Ptr("27068555")},
			score:     2,
			accepted:  true,
		},
		{
			name:      "every signal",
			candidate: melville,
			score:     4,
			accepted:  true,
		},
		{
			name:      "nothing in common",
			candidate: models.Entity{Name: "Emily Dickinson"},
			score:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newTx(t)
			id := seedEntity(t, tx, melville)

			match, found, err := ScoreEntity(context.Background(), tx, tt.candidate)
			require.NoError(t, err)
			assert.Equal(t, tt.score > 0, found)
			assert.Equal(t, tt.score, match.Score)
			assert.Equal(t, tt.accepted, match.Accepted())
			if found {
				assert.Equal(t, id, match.ID)
			}
		})
	}
}

func TestScoreEntityTieGoesToFirstInScanOrder(t *testing.T) {
	tx := newTx(t)
	byControl := seedEntity(t, tx, models.Entity{Name: "Samuel Clemens", VIAF: models.Ptr("50566653"), LCNAF: models.Ptr("n79021164")})
	seedEntity(t, tx, models.Entity{Name: "Mark Twain", Birth: models.Ptr(1835), Death: models.Ptr(1910)})

	cand := models.Entity{
		Name:  "Mark Twain",
		VIAF:  models.Ptr("50566653"),
		LCNAF: models.Ptr("n79021164"),
		Birth: models.Ptr(1835),
		Death: models.Ptr(1910),
	}
	match, found, err := ScoreEntity(context.Background(), tx, cand)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, byControl, match.ID)
	assert.Equal(t, 2, match.Score)
}

func TestResolveEntityNameOnlyCreates(t *testing.T) {
	ctx := context.Background()
	tx := newTx(t)
	workID := seedWork(t, tx, "Moby Dick")
	existing := seedEntity(t, tx, models.Entity{Name: "Herman Melville"})

	out, err := ResolveEntity(ctx, tx, workID, models.Entity{Name: "Herman Melville", Role: "author"})
	require.NoError(t, err)
	assert.Equal(t, KindCreated, out.Kind)
	assert.NotEqual(t, existing, out.ID)
	assert.Equal(t, 2, countRows(t, tx, storage.Entities, nil))
	assert.Equal(t, 1, countRows(t, tx, storage.EntityWorks, storage.Fields{"work_id": workID, "entity_id": out.ID, "role": "author"}))
}

func TestResolveEntityMatchFillsNulls(t *testing.T) {
	ctx := context.Background()
	tx := newTx(t)
	workID := seedWork(t, tx, "Moby Dick")
	existing := seedEntity(t, tx, models.Entity{Name: "Herman Melville", VIAF: models.Ptr("27068555"), Birth: models.Ptr(1819)})

	cand := models.Entity{
		Name:      "Herman Melville",
		VIAF:      models.Ptr("27068555"),
		LCNAF:     models.Ptr("n79006936"),
		Wikipedia: models.Ptr("https://en.wikipedia.org/wiki/Herman_Melville"),
		Birth:     models.Ptr(1820),
		Death:     models.Ptr(1891),
		Role:      "author",
	}
	out, err := ResolveEntity(ctx, tx, workID, cand)
	require.NoError(t, err)
	assert.Equal(t, Matched(existing), out)

	row, err := tx.GetRow(ctx, storage.Entities, existing)
	require.NoError(t, err)
	got := storage.EntityFromRow(row)
	assert.Equal(t, "n79006936", *got.LCNAF)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Herman_Melville", *got.Wikipedia)
	assert.Equal(t, 1819, *got.Birth, "non-null values are never overwritten")
	assert.Equal(t, 1891, *got.Death)
	assert.Equal(t, 1, countRows(t, tx, storage.Entities, nil))
}

func TestResolveEntityRelationIsUnique(t *testing.T) {
	ctx := context.Background()
	tx := newTx(t)
	workID := seedWork(t, tx, "Moby Dick")
	cand := models.Entity{Name: "Herman Melville", VIAF: models.Ptr("27068555"), Role: "author"}

	first, err := ResolveEntity(ctx, tx, workID, cand)
	require.NoError(t, err)
	assert.Equal(t, KindCreated, first.Kind)

	second, err := ResolveEntity(ctx, tx, workID, cand)
	require.NoError(t, err)
	assert.Equal(t, Matched(first.ID), second)
	assert.Equal(t, 1, countRows(t, tx, storage.EntityWorks, nil))

	cand.Role = "editor"
	third, err := ResolveEntity(ctx, tx, workID, cand)
	require.NoError(t, err)
	assert.Equal(t, Matched(first.ID), third)
	assert.Equal(t, 2, countRows(t, tx, storage.EntityWorks, nil))

	linked, err := LinkedToWork(ctx, tx, workID, first.ID)
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestResolveEntityWithoutName(t *testing.T) {
	ctx := context.Background()
	tx := newTx(t)
	workID := seedWork(t, tx, "Moby Dick")

	out, err := ResolveEntity(ctx, tx, workID, models.Entity{VIAF: models.Ptr("1")})
	require.NoError(t, err)
	assert.Equal(t, KindRejected, out.Kind)
	assert.Equal(t, 0, countRows(t, tx, storage.Entities, nil))

	existing := seedEntity(t, tx, models.Entity{Name: "Herman Melville", VIAF: models.Ptr("27068555"), LCNAF: models.Ptr("n79006936")})
	out, err = ResolveEntity(ctx, tx, workID, models.Entity{VIAF: models.Ptr("27068555"), LCNAF: models.Ptr("n79006936")})
	require.NoError(t, err)
	assert.Equal(t, Matched(existing), out)
}

func TestFillNull(t *testing.T) {
	stored := storage.Row{ID: 1, Fields: storage.EntityFields(models.Entity{Name: "Herman Melville", Birth: models.Ptr(1819)})}
	stored.Fields["sort_name"] = nil

	updates := FillNull(stored, models.Entity{
		Name:    "Melville, Herman",
		Birth:   models.Ptr(1900),
		Death:   models.Ptr(1891),
		Aliases: []string{"Tawney"},
	})

	assert.Equal(t, storage.Fields{
		"sort_name": "Melville, Herman",
		"death":     int64(1891),
		"aliases":   `["Tawney"]`,
	}, updates)

	stored.Fields = storage.EntityFields(models.Entity{Name: "Herman Melville", Birth: models.Ptr(1819), Death: models.Ptr(1891)})
	assert.Empty(t, FillNull(stored, models.Entity{Name: "Herman Melville", Birth: models.Ptr(1819), Death: models.Ptr(1891)}))
}

func TestResolveEntityReusesLinkedName(t *testing.T) {
	ctx := context.Background()
	tx := newTx(t)
	workID := seedWork(t, tx, "Moby Dick")

	first, err := ResolveEntity(ctx, tx, workID, models.Entity{Name: "Herman Melville", Role: "author"})
	require.NoError(t, err)
	require.Equal(t, KindCreated, first.Kind)

	second, err := ResolveEntity(ctx, tx, workID, models.Entity{Name: "herman  melville", Role: "author", Birth: models.Ptr(1819)})
	require.NoError(t, err)
	assert.Equal(t, Matched(first.ID), second)
	assert.Equal(t, 1, countRows(t, tx, storage.Entities, nil))

	row, err := tx.GetRow(ctx, storage.Entities, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1819, *storage.EntityFromRow(row).Birth)

	editor, err := ResolveEntity(ctx, tx, workID, models.Entity{Name: "Herman Melville", Role: "editor"})
	require.NoError(t, err)
	assert.Equal(t, KindCreated, editor.Kind, "reuse is scoped to the role")
}
