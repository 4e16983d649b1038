// Package converter runs the COCO to YOLO keypoint label conversion.
package converter

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tphakala/coco2yolo/internal/coco"
	"github.com/tphakala/coco2yolo/internal/errors"
	"github.com/tphakala/coco2yolo/internal/logger"
	"github.com/tphakala/coco2yolo/internal/observability/metrics"
	"github.com/tphakala/coco2yolo/internal/yolo"
)

// DefaultNamesFile is the class list file name written into the output directory
const DefaultNamesFile = "coco.names"

var ErrMissingPath = errors.NewStd("required path not set")

// Config is everything a conversion run needs
type Config struct {
	InputPath    string // COCO JSON document
	OutputDir    string // label files directory, created if missing
	NamesPath    string // class list, defaults to OutputDir/coco.names
	ManifestPath string // optional data.yaml, empty disables it
	DatasetRoot  string // data.yaml path, defaults to the directory above "labels" in OutputDir
	TrainImages  string // data.yaml train entry, relative to DatasetRoot
	ValImages    string // data.yaml val entry, relative to DatasetRoot
	Workers      int    // concurrent label file writes, 0 = number of CPUs
	SkipInvalid  bool   // skip and warn instead of aborting on bad annotations
}

// Result summarizes a finished run
type Result struct {
	RunID        string
	Images       int
	Categories   int
	Annotations  int
	Converted    int
	Skipped      int
	FilesWritten int
	NamesPath    string
	ManifestPath string
}

// Converter converts one COCO document per Run
type Converter struct {
	cfg     Config
	fs      afero.Fs
	log     logger.Logger
	metrics metrics.Recorder
}

// Option configures a Converter
type Option func(*Converter)

// WithFs sets the filesystem, the OS filesystem by default
func WithFs(fs afero.Fs) Option {
	return func(c *Converter) {
		c.fs = fs
	}
}

// WithLogger sets the logger, usually a "converter" module logger
func WithLogger(log logger.Logger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *Converter) {
		c.metrics = rec
	}
}

// New validates cfg and creates a Converter
func New(cfg Config, opts ...Option) (*Converter, error) {
	if cfg.InputPath == "" {
		return nil, configError("input file")
	}
	if cfg.OutputDir == "" {
		return nil, configError("output directory")
	}
	if cfg.NamesPath == "" {
		cfg.NamesPath = filepath.Join(cfg.OutputDir, DefaultNamesFile)
	}
	if cfg.DatasetRoot == "" {
		cfg.DatasetRoot = DatasetRoot(cfg.OutputDir)
	}
	if cfg.TrainImages == "" {
		cfg.TrainImages = yolo.DefaultTrainImages
	}
	if cfg.ValImages == "" {
		cfg.ValImages = yolo.DefaultValImages
	}

	c := &Converter{
		cfg:     cfg,
		fs:      afero.NewOsFs(),
		log:     logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil),
		metrics: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// DatasetRoot guesses the Ultralytics dataset root from a label directory.
// Labels conventionally live in <root>/labels/<split>, so the root is the
// directory holding the last "labels" element, or the parent of labelDir
// when there is none.
func DatasetRoot(labelDir string) string {
	dir := filepath.Clean(labelDir)
	for d := dir; ; {
		if filepath.Base(d) == "labels" {
			return filepath.Dir(d)
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return filepath.Dir(dir)
}

func configError(what string) error {
	return errors.Newf("%w: %s", ErrMissingPath, what).
		Category(errors.CategoryConfiguration).
		Build()
}

// Run converts the input document and writes label files, the class list and
// the optional manifest. Any invalid annotation aborts the run before a label
// file is written, unless SkipInvalid is set.
func (c *Converter) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{RunID: uuid.NewString(), NamesPath: c.cfg.NamesPath}
	ctx = logger.WithTraceID(ctx, res.RunID)
	log := c.log.WithContext(ctx)
	start := time.Now()

	defer func() {
		c.metrics.RecordRun(err)
		if err != nil {
			log.Error("conversion failed", failureFields(err, time.Since(start))...)
		}
	}()

	doc, err := c.load(log)
	if err != nil {
		return res, err
	}
	res.Images = len(doc.Images)
	res.Categories = len(doc.Categories)
	res.Annotations = len(doc.Annotations)

	stageStart := time.Now()
	categories, err := coco.NewCategoryIndex(doc.Categories)
	if err != nil {
		return res, err
	}
	images, err := coco.NewImageRegistry(doc.Images)
	if err != nil {
		return res, err
	}
	c.metrics.ObserveStage(metrics.StageIndex, time.Since(stageStart))
	log.Debug("class names", logger.Any("names", categories.Names()))

	stageStart = time.Now()
	set, err := Aggregate(doc.Annotations, images, categories, AggregateOptions{
		SkipInvalid: c.cfg.SkipInvalid,
		Log:         log,
		Metrics:     c.metrics,
	})
	if err != nil {
		return res, err
	}
	res.Converted = set.Converted
	res.Skipped = set.Skipped
	c.metrics.ObserveStage(metrics.StageAggregate, time.Since(stageStart))
	log.Info("annotations converted",
		logger.Int("converted", set.Converted),
		logger.Int("skipped", set.Skipped),
		logger.Bool("skip_invalid", c.cfg.SkipInvalid),
		logger.Int("images_with_labels", set.Images()))

	stageStart = time.Now()
	res.FilesWritten, err = yolo.WriteLabels(ctx, c.fs, c.cfg.OutputDir, set.Files(), yolo.WriteOptions{
		Workers: c.cfg.Workers,
		OnWritten: func(f *yolo.LabelFile) {
			c.metrics.RecordFileWritten(len(f.Labels))
		},
	})
	if err != nil {
		return res, err
	}

	if err := yolo.WriteClassNames(c.fs, c.cfg.NamesPath, categories.Names()); err != nil {
		return res, err
	}

	if c.cfg.ManifestPath != "" {
		manifest := yolo.NewManifest(c.cfg.DatasetRoot, c.cfg.TrainImages, c.cfg.ValImages, categories.Names())
		if err := yolo.WriteDatasetManifest(c.fs, c.cfg.ManifestPath, &manifest); err != nil {
			return res, err
		}
		res.ManifestPath = c.cfg.ManifestPath
	}
	c.metrics.ObserveStage(metrics.StageWrite, time.Since(stageStart))

	log.Info("conversion finished",
		logger.Int("label_files", res.FilesWritten),
		logger.String("output_dir", c.cfg.OutputDir),
		logger.String("names_file", c.cfg.NamesPath),
		logger.Duration("elapsed", time.Since(start)))

	return res, nil
}

// WriteNames writes only the class list of the input document and returns its path
func (c *Converter) WriteNames(ctx context.Context) (string, error) {
	log := c.log.WithContext(ctx)

	doc, err := c.load(log)
	if err != nil {
		return "", err
	}
	categories, err := coco.NewCategoryIndex(doc.Categories)
	if err != nil {
		return "", err
	}
	if err := yolo.WriteClassNames(c.fs, c.cfg.NamesPath, categories.Names()); err != nil {
		return "", err
	}

	log.Info("class names written",
		logger.Int("categories", categories.Len()),
		logger.String("names_file", c.cfg.NamesPath))
	return c.cfg.NamesPath, nil
}

func (c *Converter) load(log logger.Logger) (*coco.Document, error) {
	start := time.Now()
	log.Info("loading annotations", logger.String("input", c.cfg.InputPath))

	doc, err := coco.Load(c.fs, c.cfg.InputPath)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveStage(metrics.StageLoad, time.Since(start))

	log.Info("annotations loaded",
		logger.Int("images", len(doc.Images)),
		logger.Int("categories", len(doc.Categories)),
		logger.Int("annotations", len(doc.Annotations)))
	return doc, nil
}

// failureFields adds the category, component and context of enhanced errors
func failureFields(err error, elapsed time.Duration) []logger.Field {
	fields := []logger.Field{logger.Error(err), logger.Duration("elapsed", elapsed)}

	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		fields = append(fields,
			logger.String("category", ee.GetCategory()),
			logger.String("component", ee.GetComponent()))
		for k, v := range ee.GetContext() {
			fields = append(fields, logger.Any(k, v))
		}
	}
	return fields
}
