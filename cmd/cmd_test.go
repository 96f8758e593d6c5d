package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/workfusion/internal/models"
)

const records = `{"source":"gutenberg","title":"Moby Dick","identifiers":[{"type":"gutenberg","identifier":"2701"}],"entities":[{"name":"Herman Melville"}],"subjects":[{"authority":"lcsh","subject":"Whaling -- Fiction"}]}
{"source":"gutenberg","title":"","identifiers":[{"type":"gutenberg","identifier":"0"}]}
{"source":"gutenberg","title":"Moby Dick","identifiers":[{"type":"gutenberg","identifier":"2701"},{"type":"oclc","identifier":"26311962"}],"entities":[{"name":"Herman Melville"}]}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngestAndShow(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	input := filepath.Join(dir, "records.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(records), 0o644))
	db := filepath.Join(dir, "data", "works.db")

	out, err := execute(t, "ingest", "--db", db, "--log-level", "error",
		"--parquet", filepath.Join(dir, "outcomes.parquet"),
		"--metrics-file", filepath.Join(dir, "workfusion.prom"),
		input)
	require.NoError(t, err)
	assert.Contains(t, out, "total=3 new=1 existing=1 skipped=1 reproject=1")

	reports, err := filepath.Glob(filepath.Join(dir, "reports", "ingest-*.yaml"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.FileExists(t, filepath.Join(dir, "outcomes.parquet"))

	out, err = execute(t, "report", "--log-level", "error", reports[0])
	require.NoError(t, err)
	assert.Contains(t, out, "backend=sqlite")
	assert.Contains(t, out, "total=3 new=1 existing=1 skipped=1 reproject=1")
	assert.Contains(t, out, "skipped record 1")
	assert.FileExists(t, filepath.Join(dir, "workfusion.prom"))

	out, err = execute(t, "show", "--db", db, "--log-level", "error", "1")
	require.NoError(t, err)

	var work models.Work
	require.NoError(t, yaml.Unmarshal([]byte(out), &work))
	assert.Equal(t, int64(1), work.ID)
	assert.Equal(t, "Moby Dick", work.Title)
	assert.ElementsMatch(t, []models.Identifier{
		{Type: models.IDGutenberg, Value: "2701"},
		{Type: models.IDOCLC, Value: "26311962"},
	}, work.Identifiers)
	require.Len(t, work.Entities, 1, "re-ingesting a name-only contributor reuses it")
	require.Len(t, work.Subjects, 1)
}

func TestShowMissingWork(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	_, err := execute(t, "show", "--db", filepath.Join(dir, "works.db"), "--log-level", "error", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "work 7 not found")

	_, err = execute(t, "show", "--backend", "memory", "--log-level", "error", "abc")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid work id"))
}

func TestShowRejectsMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	_, err := execute(t, "show", "--backend", "memory", "--log-level", "error", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent store")
	assert.NotContains(t, err.Error(), "not found")
}

func TestIngestRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	_, err := execute(t, "ingest", "--backend", "postgres", "records.jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}
