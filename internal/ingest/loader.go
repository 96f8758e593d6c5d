package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/workfusion/internal/errors"
	"github.com/lehigh-university-libraries/workfusion/internal/logging"
	"github.com/lehigh-university-libraries/workfusion/internal/models"
)

// maxLineSize bounds one JSONL record.
const maxLineSize = 10 * 1024 * 1024

// Loader reads SourceRecords from a JSONL or Parquet file.
type Loader struct {
	path string
}

// NewLoader creates a loader for path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads every record in the file. The format is chosen by extension.
func (l *Loader) Load(ctx context.Context) ([]models.SourceRecord, error) {
	ext := strings.ToLower(filepath.Ext(l.path))

	switch ext {
	case ".parquet":
		return l.loadParquet(ctx)
	case ".jsonl", ".json":
		return l.loadJSONL(ctx)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func (l *Loader) loadJSONL(ctx context.Context) ([]models.SourceRecord, error) {
	log := logging.FromContext(ctx)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}
	defer file.Close()

	var records []models.SourceRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var record models.SourceRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at %s:%d: %w", l.path, lineNum, err)
		}
		records = append(records, record)

		if lineNum%1000 == 0 {
			log.Debug().Str("path", l.path).Int("lines_read", lineNum).Msg("Reading JSONL")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", l.path, err)
	}

	log.Debug().
		Str("path", l.path).
		Int("total_records", len(records)).
		Int("total_lines", lineNum).
		Msg("Finished reading JSONL file")
	return records, nil
}

func (l *Loader) loadParquet(ctx context.Context) ([]models.SourceRecord, error) {
	log := logging.FromContext(ctx)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	log.Debug().
		Str("path", l.path).
		Int64("num_rows", pf.NumRows()).
		Int("num_row_groups", len(pf.RowGroups())).
		Msg("Parquet file opened")

	reader := parquet.NewGenericReader[models.SourceRecord](pf)
	defer reader.Close()

	records := make([]models.SourceRecord, 0, pf.NumRows())
	batch := make([]models.SourceRecord, 128)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := reader.Read(batch)
		records = append(records, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	log.Debug().Str("path", l.path).Int("total_records", len(records)).Msg("Finished reading Parquet file")
	return records, nil
}

// LoadAll decodes the files concurrently and returns their records in the
// order the paths were given.
func LoadAll(ctx context.Context, paths []string) ([]models.SourceRecord, error) {
	perFile := make([][]models.SourceRecord, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			records, err := NewLoader(path).Load(gctx)
			if err != nil {
				return err
			}
			perFile[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.SourceRecord
	for _, records := range perFile {
		all = append(all, records...)
	}
	return all, nil
}
