package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Converter.RecordConverted()
	m.Converter.RecordFileWritten(1)
	m.Converter.RecordRun(nil)

	path := filepath.Join(t.TempDir(), "coco2yolo.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "coco2yolo_annotations_converted_total 1")
	assert.Contains(t, string(data), `coco2yolo_runs_total{status="success"} 1`)
}

func TestWriteTextfileExtension(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	require.Error(t, m.WriteTextfile(filepath.Join(t.TempDir(), "metrics.txt")))
}

func TestNewMetricsIndependentRegistries(t *testing.T) {
	t.Parallel()

	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)

	a.Converter.RecordConverted()

	dir := t.TempDir()
	require.NoError(t, b.WriteTextfile(filepath.Join(dir, "b.prom")))

	data, err := os.ReadFile(filepath.Join(dir, "b.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "coco2yolo_annotations_converted_total 0")
}
