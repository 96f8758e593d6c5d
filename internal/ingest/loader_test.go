package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/workfusion/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	path := "./records.parquet"
	loader := NewLoader(path)

	if loader.path != path {
		t.Errorf("Expected path %s, got %s", path, loader.path)
	}
}

func TestLoadJSONL(t *testing.T) {
	path := writeFile(t, "records.jsonl", strings.Join([]string{
		`{"source":"gutenberg","title":"Moby Dick","identifiers":[{"type":"gutenberg","identifier":"2701"}]}`,
		``,
		`{"source":"gutenberg","title":"Typee","identifiers":[{"type":"gutenberg","identifier":"1900"}],"lookup":{"language":"en"}}`,
	}, "\n"))

	records, err := NewLoader(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Title != "Moby Dick" {
		t.Errorf("Expected first title Moby Dick, got %s", records[0].Title)
	}
	if records[0].Identifiers[0].Value != "2701" {
		t.Errorf("Expected identifier 2701, got %s", records[0].Identifiers[0].Value)
	}
	if records[1].Lookup == nil || records[1].Lookup.Language != "en" {
		t.Errorf("Expected lookup payload on second record, got %+v", records[1].Lookup)
	}
}

func TestLoadJSONLReportsLine(t *testing.T) {
	path := writeFile(t, "broken.jsonl", "{\"title\":\"ok\"}\n{not json}\n")

	_, err := NewLoader(path).Load(context.Background())
	if err == nil {
		t.Fatal("Expected parse error, got nil")
	}
	if !strings.Contains(err.Error(), "broken.jsonl:2") {
		t.Errorf("Expected error to name line 2, got %v", err)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "records.csv", "title\n")

	_, err := NewLoader(path).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unsupported file format") {
		t.Errorf("Expected unsupported format error, got %v", err)
	}
}

func TestLoadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.parquet")
	want := []models.SourceRecord{
		{
			Source:      "gutenberg",
			Title:       "Moby Dick",
			Identifiers: []models.Identifier{{Type: models.IDGutenberg, Value: "2701"}},
			Entities:    []models.Entity{{Name: "Herman Melville", VIAF: models.Ptr("27068555"), Role: "author"}},
		},
		{
			Source:      "gutenberg",
			Title:       "Typee",
			Identifiers: []models.Identifier{{Type: models.IDGutenberg, Value: "1900"}},
		},
	}
	if err := parquet.WriteFile(path, want); err != nil {
		t.Fatalf("failed to write parquet fixture: %v", err)
	}

	records, err := NewLoader(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i := range want {
		if records[i].Title != want[i].Title {
			t.Errorf("record %d: expected title %s, got %s", i, want[i].Title, records[i].Title)
		}
		if records[i].Identifiers[0] != want[i].Identifiers[0] {
			t.Errorf("record %d: expected identifier %v, got %v", i, want[i].Identifiers[0], records[i].Identifiers[0])
		}
	}
	if got := records[0].Entities[0].VIAF; got == nil || *got != "27068555" {
		t.Errorf("Expected viaf 27068555, got %v", got)
	}
}

func TestLoadAllKeepsOrder(t *testing.T) {
	var paths []string
	for _, title := range []string{"Moby Dick", "Typee", "Omoo", "Mardi", "Redburn"} {
		paths = append(paths, writeFile(t, title+".jsonl",
			`{"title":"`+title+`","identifiers":[{"type":"gutenberg","identifier":"1"}]}`+"\n"))
	}

	records, err := LoadAll(context.Background(), paths)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	var titles []string
	for _, r := range records {
		titles = append(titles, r.Title)
	}
	if got := strings.Join(titles, ","); got != "Moby Dick,Typee,Omoo,Mardi,Redburn" {
		t.Errorf("Expected input order, got %s", got)
	}
}

func TestLoadAllFailsOnAnyFile(t *testing.T) {
	good := writeFile(t, "good.jsonl", `{"title":"Typee"}`+"\n")
	_, err := LoadAll(context.Background(), []string{good, filepath.Join(t.TempDir(), "missing.jsonl")})
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
}
