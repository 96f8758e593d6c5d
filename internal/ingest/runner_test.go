package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lehigh-university-libraries/workfusion/internal/errors"
	"github.com/lehigh-university-libraries/workfusion/internal/fusion"
	"github.com/lehigh-university-libraries/workfusion/internal/metrics"
	"github.com/lehigh-university-libraries/workfusion/internal/models"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
	"github.com/lehigh-university-libraries/workfusion/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func gutenberg(id, title string) models.SourceRecord {
	return models.SourceRecord{
		Source:      "gutenberg",
		Title:       title,
		Identifiers: []models.Identifier{{Type: models.IDGutenberg, Value: id}},
		Entities:    []models.Entity{{Name: "Herman Melville", Role: "author"}},
		Editions: []models.Edition{{
			Publisher: models.Ptr("Project Gutenberg"),
			Items:     []models.Item{{URL: "https://www.gutenberg.org/ebooks/" + id + ".epub.images", Source: "gutenberg"}},
		}},
		Lookup: &models.LookupPayload{
			Authors: []models.LookupAuthor{{
				Name:     "Herman Melville",
				SortName: "Melville, Herman",
				SameAs:   []string{"http://viaf.org/viaf/27068555"},
			}},
		},
	}
}

func TestRunCountsOutcomes(t *testing.T) {
	ctx := context.Background()
	rec := metrics.New()
	runner := NewRunner(fusion.New(memory.New()), rec)

	records := []models.SourceRecord{
		gutenberg("2701", "Moby Dick"),
		gutenberg("1900", "Typee"),
		{Source: "gutenberg", Title: "", Identifiers: []models.Identifier{{Type: models.IDGutenberg, Value: "9"}}},
		gutenberg("2701", "Moby Dick; Or, The Whale"),
		gutenberg("1900", "Typee"),
	}

	sum, err := runner.Run(ctx, records)
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 2, sum.New)
	assert.Equal(t, 2, sum.Existing)
	assert.Equal(t, 1, sum.Skipped)
	require.Len(t, sum.Outcomes, 5)
	assert.Equal(t, StatusSkipped, sum.Outcomes[2].Status)
	assert.Contains(t, sum.Outcomes[2].Reason, "title")
	assert.Equal(t, sum.Outcomes[0].WorkID, sum.Outcomes[3].WorkID)
	assert.Equal(t, string(fusion.ByIdentifier), sum.Outcomes[3].Resolution)
	assert.Equal(t, []int64{sum.Outcomes[0].WorkID, sum.Outcomes[1].WorkID}, sum.Reproject)
	assert.False(t, sum.Finished.Before(sum.Started))

	assert.Equal(t, 2.0, recCounter(t, rec, "new"))
	assert.Equal(t, 1.0, recCounter(t, rec, StatusSkipped))
}

func recCounter(t *testing.T, rec *metrics.Recorder, outcome string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "workfusion_records_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// failingStore refuses to open transactions after the first n.
type failingStore struct {
	storage.Store
	remaining int
}

func (s *failingStore) Begin(ctx context.Context) (storage.Tx, error) {
	if s.remaining == 0 {
		return nil, errors.NewPersistenceError("begin", "", fmt.Errorf("database is locked"))
	}
	s.remaining--
	return s.Store.Begin(ctx)
}

func TestRunAbortsOnPersistenceError(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(fusion.New(&failingStore{Store: memory.New(), remaining: 1}), nil)

	sum, err := runner.Run(ctx, []models.SourceRecord{
		gutenberg("2701", "Moby Dick"),
		gutenberg("1900", "Typee"),
		gutenberg("4045", "Omoo"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))
	assert.Contains(t, err.Error(), "record 1")
	assert.Equal(t, 1, sum.Total)
	assert.Len(t, sum.Outcomes, 1)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewRunner(fusion.New(memory.New()), nil).Run(ctx, []models.SourceRecord{gutenberg("2701", "Moby Dick")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Total)
}

func TestRunEnrichesBeforeFusing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	sum, err := NewRunner(fusion.New(s), nil).Run(ctx, []models.SourceRecord{gutenberg("2701", "Moby Dick")})
	require.NoError(t, err)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	work, err := storage.LoadWork(ctx, tx, sum.Outcomes[0].WorkID)
	require.NoError(t, err)

	require.Len(t, work.Entities, 1)
	assert.Equal(t, "Melville, Herman", work.Entities[0].SortName)
	assert.Equal(t, "27068555", *work.Entities[0].VIAF)
	assert.Equal(t, models.DefaultLanguage, work.Language)
	require.Len(t, work.Editions, 1)
	assert.Equal(t, "Moby Dick", work.Editions[0].Title, "edition title defaults to the work title")
}
