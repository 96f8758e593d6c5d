package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()
	r.Record("new")
	r.Record("new")
	r.Record("skipped")
	r.Merge("edition", "matched")
	r.ObserveFuse(3 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.records.WithLabelValues("new")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.records.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.children.WithLabelValues("edition", "matched")))
	n, err := testutil.GatherAndCount(r.registry)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "one series per label set plus the histogram")
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Record("new")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.records.WithLabelValues("new")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Record("existing")

	path := filepath.Join(t.TempDir(), "workfusion.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `workfusion_records_total{outcome="existing"} 1`)
}
