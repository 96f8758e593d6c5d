// Package ingest drives records from files through enrichment,
// normalization and fusion, and reports what happened to each.
package ingest

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/lehigh-university-libraries/workfusion/internal/enrich"
	"github.com/lehigh-university-libraries/workfusion/internal/errors"
	"github.com/lehigh-university-libraries/workfusion/internal/fusion"
	"github.com/lehigh-university-libraries/workfusion/internal/logging"
	"github.com/lehigh-university-libraries/workfusion/internal/metrics"
	"github.com/lehigh-university-libraries/workfusion/internal/models"
	"github.com/lehigh-university-libraries/workfusion/internal/resolve"
)

// StatusSkipped marks a record rejected by normalization.
const StatusSkipped = "skipped"

// Outcome is the per-record line of a run report.
type Outcome struct {
	Index      int    `json:"index" yaml:"index" parquet:"index"`
	Source     string `json:"source,omitempty" yaml:"source,omitempty" parquet:"source"`
	Title      string `json:"title" yaml:"title" parquet:"title"`
	Status     string `json:"status" yaml:"status" parquet:"status"`
	WorkID     int64  `json:"work_id,omitempty" yaml:"work_id,omitempty" parquet:"work_id"`
	WorkUUID   string `json:"work_uuid,omitempty" yaml:"work_uuid,omitempty" parquet:"work_uuid"`
	Resolution string `json:"resolution,omitempty" yaml:"resolution,omitempty" parquet:"resolution"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty" parquet:"reason"`
	Editions   int    `json:"editions" yaml:"editions" parquet:"editions"`
	Entities   int    `json:"entities" yaml:"entities" parquet:"entities"`
	Subjects   int    `json:"subjects" yaml:"subjects" parquet:"subjects"`
}

// Summary totals a run.
type Summary struct {
	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`
	Total    int       `json:"total" yaml:"total"`
	New      int       `json:"new" yaml:"new"`
	Existing int       `json:"existing" yaml:"existing"`
	Skipped  int       `json:"skipped" yaml:"skipped"`

	// Reproject lists Works that existed before the run and were merged
	// into, in first-seen order.
	Reproject []int64 `json:"reproject,omitempty" yaml:"reproject,omitempty"`

	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Runner fuses records one at a time through a single engine.
type Runner struct {
	engine  *fusion.Engine
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewRunner creates a Runner. A nil recorder disables metrics.
func NewRunner(engine *fusion.Engine, rec *metrics.Recorder) *Runner {
	return &Runner{engine: engine, metrics: rec, now: time.Now}
}

// Run processes records in order. A record that fails validation is logged,
// counted as skipped and the run continues. Any other error stops the run;
// the summary up to that record is returned with it.
func (r *Runner) Run(ctx context.Context, records []models.SourceRecord) (Summary, error) {
	log := logging.FromContext(ctx)
	sum := Summary{Started: r.now(), Outcomes: make([]Outcome, 0, len(records))}

	for i, src := range records {
		if err := ctx.Err(); err != nil {
			sum.Finished = r.now()
			return sum, err
		}

		rctx := logging.WithRecord(ctx, src.Source, i)
		out, err := r.runOne(rctx, i, src)
		if err != nil {
			r.count("failed")
			sum.Finished = r.now()
			return sum, fmt.Errorf("record %d (%s): %w", i, src.Title, err)
		}

		sum.Total++
		switch out.Status {
		case StatusSkipped:
			sum.Skipped++
		case string(fusion.StatusNew):
			sum.New++
		case string(fusion.StatusExisting):
			sum.Existing++
			if !slices.Contains(sum.Reproject, out.WorkID) {
				sum.Reproject = append(sum.Reproject, out.WorkID)
			}
		}
		r.count(out.Status)
		sum.Outcomes = append(sum.Outcomes, out)
	}

	sum.Finished = r.now()
	log.Info().
		Int("total", sum.Total).
		Int("new", sum.New).
		Int("existing", sum.Existing).
		Int("skipped", sum.Skipped).
		Dur("elapsed", sum.Finished.Sub(sum.Started)).
		Msg("Ingest run finished")
	return sum, nil
}

func (r *Runner) runOne(ctx context.Context, index int, src models.SourceRecord) (Outcome, error) {
	log := logging.FromContext(ctx)
	out := Outcome{Index: index, Source: src.Source, Title: src.Title}

	work, err := models.Normalize(enrich.Enrich(src))
	if errors.IsValidation(err) {
		log.Warn().Err(err).Str("title", src.Title).Msg("Skipping invalid record")
		out.Status = StatusSkipped
		out.Reason = err.Error()
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Title = work.Title

	start := r.now()
	res, err := r.engine.Fuse(ctx, work)
	if err != nil {
		return out, err
	}
	if r.metrics != nil {
		r.metrics.ObserveFuse(r.now().Sub(start))
	}

	out.Status = string(res.Status)
	out.WorkID = res.WorkID
	out.WorkUUID = res.WorkUUID
	out.Resolution = string(res.Resolution)
	out.Editions = len(res.Editions)
	out.Entities = len(res.Entities)
	out.Subjects = len(res.Subjects)
	r.countMerges("edition", res.Editions)
	r.countMerges("entity", res.Entities)
	r.countMerges("subject", res.Subjects)

	log.Debug().
		Int64("work_id", res.WorkID).
		Str("status", out.Status).
		Str("resolution", out.Resolution).
		Msg("Record fused")
	return out, nil
}

func (r *Runner) count(outcome string) {
	if r.metrics != nil {
		r.metrics.Record(outcome)
	}
}

func (r *Runner) countMerges(child string, outs []resolve.Outcome) {
	if r.metrics == nil {
		return
	}
	for _, o := range outs {
		r.metrics.Merge(child, string(o.Kind))
	}
}
