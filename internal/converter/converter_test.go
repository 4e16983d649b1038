package converter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/coco2yolo/internal/coco"
	"github.com/tphakala/coco2yolo/internal/converter"
	"github.com/tphakala/coco2yolo/internal/errors"
	"github.com/tphakala/coco2yolo/internal/logger"
	"github.com/tphakala/coco2yolo/internal/observability/metrics"
	"github.com/tphakala/coco2yolo/internal/yolo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const scenarioLine = "0 0.200000 0.300000 0.300000 0.200000"

// keypoints returns 21 triples at the origin with visibility 2
func keypoints() []float64 {
	kps := make([]float64, yolo.KeypointValues)
	for i := 2; i < len(kps); i += yolo.KeypointDims {
		kps[i] = 2
	}
	return kps
}

func scenarioDocument() *coco.Document {
	return &coco.Document{
		Images:     []coco.Image{{ID: 1, FileName: `img\001.jpg`, Width: 100, Height: 200}},
		Categories: []coco.Category{{ID: 5, Name: "hand"}},
		Annotations: []coco.Annotation{
			{ID: 1, ImageID: 1, CategoryID: 5, BBox: []float64{10, 20, 30, 40}, Keypoints: keypoints()},
		},
	}
}

func writeDocument(t *testing.T, fs afero.Fs, path string, doc *coco.Document) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, data, 0o600))
}

func newConverter(t *testing.T, fs afero.Fs, cfg converter.Config, opts ...converter.Option) *converter.Converter {
	t.Helper()
	opts = append([]converter.Option{
		converter.WithFs(fs),
		converter.WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelDebug, time.UTC)),
	}, opts...)
	c, err := converter.New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func assertNoOutputDir(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	exists, err := afero.DirExists(fs, dir)
	require.NoError(t, err)
	assert.False(t, exists, "%s must not be created by a failed run", dir)
}

func listDir(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewRequiresPaths(t *testing.T) {
	t.Parallel()

	_, err := converter.New(converter.Config{OutputDir: "out"})
	require.ErrorIs(t, err, converter.ErrMissingPath)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Contains(t, err.Error(), "input file")

	_, err = converter.New(converter.Config{InputPath: "in.json"})
	require.ErrorIs(t, err, converter.ErrMissingPath)
	assert.Contains(t, err.Error(), "output directory")
}

func TestRunScenario(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeDocument(t, fs, "train.json", scenarioDocument())

	c := newConverter(t, fs, converter.Config{InputPath: "train.json", OutputDir: "labels"})
	res, err := c.Run(t.Context())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Images)
	assert.Equal(t, 1, res.Categories)
	assert.Equal(t, 1, res.Annotations)
	assert.Equal(t, 1, res.Converted)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 1, res.FilesWritten)
	assert.Equal(t, "labels/coco.names", res.NamesPath)
	assert.Empty(t, res.ManifestPath)

	assert.ElementsMatch(t, []string{"001.txt", "coco.names"}, listDir(t, fs, "labels"))

	content := readFile(t, fs, "labels/001.txt")
	require.True(t, strings.HasSuffix(content, "\n"))
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	require.Len(t, lines, 1)

	fields := strings.Fields(lines[0])
	require.Len(t, fields, yolo.FieldsPerLine)
	assert.True(t, strings.HasPrefix(lines[0], scenarioLine+" "))
	for i := range yolo.KeypointCount {
		kp := fields[5+i*yolo.KeypointDims : 5+(i+1)*yolo.KeypointDims]
		assert.Equal(t, []string{"0.000000", "0.000000", "2"}, kp, "keypoint %d", i)
	}

	assert.Equal(t, "hand\n", readFile(t, fs, "labels/coco.names"))
}

func TestRunNamesOverride(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeDocument(t, fs, "train.json", scenarioDocument())

	c := newConverter(t, fs, converter.Config{InputPath: "train.json", OutputDir: "labels", NamesPath: "meta/classes.names"})
	res, err := c.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "meta/classes.names", res.NamesPath)
	assert.Equal(t, "hand\n", readFile(t, fs, "meta/classes.names"))
	assert.Equal(t, []string{"001.txt"}, listDir(t, fs, "labels"))
}

func TestRunIdempotent(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	doc := scenarioDocument()
	doc.Images = append(doc.Images, coco.Image{ID: 2, FileName: "frames/002.png", Width: 640, Height: 480})
	doc.Categories = append(doc.Categories, coco.Category{ID: 1, Name: "face"})
	doc.Annotations = append(doc.Annotations,
		coco.Annotation{ID: 2, ImageID: 2, CategoryID: 1, BBox: []float64{5.5, 6.25, 100, 50}, Keypoints: keypoints()},
		coco.Annotation{ID: 3, ImageID: 1, CategoryID: 1, BBox: []float64{1, 2, 3, 4}, Keypoints: keypoints()},
	)
	writeDocument(t, fs, "train.json", doc)

	cfg := converter.Config{InputPath: "train.json", OutputDir: "labels", Workers: 2}

	_, err := newConverter(t, fs, cfg).Run(t.Context())
	require.NoError(t, err)
	first := map[string]string{}
	for _, name := range listDir(t, fs, "labels") {
		first[name] = readFile(t, fs, "labels/"+name)
	}

	_, err = newConverter(t, fs, cfg).Run(t.Context())
	require.NoError(t, err)
	second := map[string]string{}
	for _, name := range listDir(t, fs, "labels") {
		second[name] = readFile(t, fs, "labels/"+name)
	}

	assert.Equal(t, first, second)
	assert.Equal(t, "face\nhand\n", second["coco.names"])
}

func TestRunZeroDimensionWritesNothing(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	doc := scenarioDocument()
	doc.Images[0].Width = 0
	writeDocument(t, fs, "train.json", doc)

	c := newConverter(t, fs, converter.Config{InputPath: "train.json", OutputDir: "labels"})
	_, err := c.Run(t.Context())
	require.ErrorIs(t, err, yolo.ErrZeroDimension)
	assert.True(t, errors.IsCategory(err, errors.CategoryDivisionHazard))
	assert.Contains(t, err.Error(), "image 1")

	assertNoOutputDir(t, fs, "labels")
}

func TestRunUnknownImageWritesNothing(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	doc := scenarioDocument()
	doc.Annotations = append(doc.Annotations, coco.Annotation{
		ID: 9, ImageID: 42, CategoryID: 5, BBox: []float64{1, 1, 1, 1}, Keypoints: keypoints(),
	})
	writeDocument(t, fs, "train.json", doc)

	c := newConverter(t, fs, converter.Config{InputPath: "train.json", OutputDir: "labels"})
	_, err := c.Run(t.Context())
	require.ErrorIs(t, err, converter.ErrUnknownImage)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
	assert.Contains(t, err.Error(), "image 42")

	assertNoOutputDir(t, fs, "labels")
}

func TestRunSkipInvalid(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	doc := scenarioDocument()
	doc.Images = append(doc.Images, coco.Image{ID: 2, FileName: "empty.jpg"})
	doc.Annotations = append(doc.Annotations,
		coco.Annotation{ID: 2, ImageID: 42, CategoryID: 5, BBox: []float64{1, 1, 1, 1}, Keypoints: keypoints()},
		coco.Annotation{ID: 3, ImageID: 1, CategoryID: 77, BBox: []float64{1, 1, 1, 1}, Keypoints: keypoints()},
		coco.Annotation{ID: 4, ImageID: 2, CategoryID: 5, BBox: []float64{1, 1, 1, 1}, Keypoints: keypoints()},
		coco.Annotation{ID: 5, ImageID: 1, CategoryID: 5, BBox: []float64{1, 1, 1, 1}, Keypoints: []float64{1, 2}},
	)
	writeDocument(t, fs, "train.json", doc)

	var logs bytes.Buffer
	rec := &fakeRecorder{}
	c := newConverter(t, fs,
		converter.Config{InputPath: "train.json", OutputDir: "labels", SkipInvalid: true},
		converter.WithLogger(logger.NewSlogLogger(&logs, logger.LogLevelWarn, time.UTC)),
		converter.WithMetrics(rec),
	)

	res, err := c.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Converted)
	assert.Equal(t, 4, res.Skipped)
	assert.ElementsMatch(t, []string{"001.txt", "coco.names"}, listDir(t, fs, "labels"))

	assert.Equal(t, map[string]int{
		metrics.SkipUnknownImage:    1,
		metrics.SkipUnknownCategory: 1,
		metrics.SkipZeroDimension:   1,
		metrics.SkipMalformed:       1,
	}, rec.skipped)
	assert.Equal(t, 1, rec.converted)
	assert.Equal(t, []int{1}, rec.filesWritten)
	assert.Equal(t, []error{nil}, rec.runs)
	assert.Contains(t, logs.String(), `"annotation_id":2`)
	assert.Contains(t, logs.String(), `"category_id":77`)
}

func TestRunMissingInput(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	rec := &fakeRecorder{}
	c := newConverter(t, fs, converter.Config{InputPath: "missing.json", OutputDir: "labels"}, converter.WithMetrics(rec))

	_, err := c.Run(t.Context())
	require.ErrorIs(t, err, coco.ErrInputNotFound)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	require.Len(t, rec.runs, 1)
	assert.Error(t, rec.runs[0])

	assertNoOutputDir(t, fs, "labels")
}

func TestRunManifest(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeDocument(t, fs, "train.json", scenarioDocument())

	c := newConverter(t, fs, converter.Config{
		InputPath:    "train.json",
		OutputDir:    "hands/labels/train",
		ManifestPath: "hands/data.yaml",
		ValImages:    "images/test",
	})
	res, err := c.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "hands/data.yaml", res.ManifestPath)

	data := readFile(t, fs, "hands/data.yaml")
	assert.Contains(t, data, "train: images/train\n")
	assert.Contains(t, data, "val: images/test\n")

	var m yolo.Manifest
	require.NoError(t, yaml.Unmarshal([]byte(data), &m))
	assert.Equal(t, "hands", m.Path)
	assert.Equal(t, yolo.DefaultTrainImages, m.Train)
	assert.Equal(t, "images/test", m.Val)
	assert.Equal(t, [2]int{yolo.KeypointCount, yolo.KeypointDims}, m.KptShape)
	assert.Equal(t, 1, m.Classes)
	assert.Equal(t, map[int]string{0: "hand"}, m.Names)
}

func TestDatasetRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		labelDir string
		want     string
	}{
		{"/data/hands/labels/train", "/data/hands"},
		{"/data/hands/labels", "/data/hands"},
		{"hands/labels/val/", "hands"},
		{"labels", "."},
		{"/data/out", "/data"},
		{"out", "."},
	}

	for _, tt := range tests {
		t.Run(tt.labelDir, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, converter.DatasetRoot(tt.labelDir))
		})
	}
}

func TestRunStageMetrics(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeDocument(t, fs, "train.json", scenarioDocument())

	rec := &fakeRecorder{}
	c := newConverter(t, fs, converter.Config{InputPath: "train.json", OutputDir: "labels"}, converter.WithMetrics(rec))
	_, err := c.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []string{metrics.StageLoad, metrics.StageIndex, metrics.StageAggregate, metrics.StageWrite}, rec.stages)
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeDocument(t, fs, "train.json", scenarioDocument())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	c := newConverter(t, fs, converter.Config{InputPath: "train.json", OutputDir: "labels"})
	_, err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := fs.Stat("labels/coco.names")
	assert.Error(t, statErr)
}

func TestWriteNames(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	doc := scenarioDocument()
	doc.Categories = append(doc.Categories, coco.Category{ID: 2, Name: "foot"})
	writeDocument(t, fs, "train.json", doc)

	c := newConverter(t, fs, converter.Config{InputPath: "train.json", OutputDir: "labels"})
	path, err := c.WriteNames(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "labels/coco.names", path)
	assert.Equal(t, "foot\nhand\n", readFile(t, fs, path))
	assert.Equal(t, []string{"coco.names"}, listDir(t, fs, "labels"))
}

type fakeRecorder struct {
	mu           sync.Mutex
	converted    int
	skipped      map[string]int
	filesWritten []int
	stages       []string
	runs         []error
}

func (r *fakeRecorder) RecordConverted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converted++
}

func (r *fakeRecorder) RecordSkipped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.skipped == nil {
		r.skipped = map[string]int{}
	}
	r.skipped[reason]++
}

func (r *fakeRecorder) RecordFileWritten(labels int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filesWritten = append(r.filesWritten, labels)
}

func (r *fakeRecorder) ObserveStage(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *fakeRecorder) RecordRun(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, err)
}
