package yolo

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/coco2yolo/internal/errors"
)

const (
	// LabelExt is the extension of per-image label files
	LabelExt = ".txt"

	// DefaultTrainImages and DefaultValImages follow the Ultralytics
	// images/<split> layout, relative to the dataset root
	DefaultTrainImages = "images/train"
	DefaultValImages   = "images/val"

	dirPermissions  = 0o755
	filePermissions = 0o644
)

// ErrStemCollision is returned when two images would write the same label file
var ErrStemCollision = errors.NewStd("label file name used by more than one image")

// LabelFile holds the labels of one image in output order
type LabelFile struct {
	ImageID int64
	Stem    string
	Labels  []Label
}

// Name returns the label file name
func (f *LabelFile) Name() string {
	return f.Stem + LabelExt
}

// Encode renders the file content, one newline-terminated line per label
func (f *LabelFile) Encode() []byte {
	buf := make([]byte, 0, len(f.Labels)*FieldsPerLine*10)
	for i := range f.Labels {
		buf = AppendLabel(buf, &f.Labels[i])
		buf = append(buf, '\n')
	}
	return buf
}

// WriteOptions controls the label write stage
type WriteOptions struct {
	// Workers bounds concurrent file writes, 0 means runtime.NumCPU()
	Workers int
	// OnWritten is called after each file is written, from worker goroutines
	OnWritten func(f *LabelFile)
}

// WriteLabels writes one label file per entry into dir, creating dir if needed
// and replacing existing files. It returns the number of files written.
// The first failure cancels the remaining writes.
func WriteLabels(ctx context.Context, fs afero.Fs, dir string, files []LabelFile, opts WriteOptions) (int, error) {
	if err := checkStems(files); err != nil {
		return 0, err
	}

	if err := fs.MkdirAll(dir, dirPermissions); err != nil {
		return 0, errors.FileError(err, dir)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range files {
		f := &files[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.New(err).Category(errors.CategoryCancellation).Build()
			}
			if err := writeFileAtomic(fs, filepath.Join(dir, f.Name()), f.Encode()); err != nil {
				return errors.New(err).
					Category(errors.CategoryFileIO).
					Context("image_id", f.ImageID).
					FileContext(f.Name()).
					Build()
			}
			written.Add(1)
			if opts.OnWritten != nil {
				opts.OnWritten(f)
			}
			return nil
		})
	}

	err := g.Wait()
	return int(written.Load()), err
}

func checkStems(files []LabelFile) error {
	seen := make(map[string]int64, len(files))
	for i := range files {
		f := &files[i]
		if other, dup := seen[f.Stem]; dup {
			return errors.Newf("%w: %s (images %d and %d)", ErrStemCollision, f.Name(), other, f.ImageID).
				Category(errors.CategoryConfiguration).
				Context("image_id", f.ImageID).
				Context("other_image_id", other).
				Build()
		}
		seen[f.Stem] = f.ImageID
	}
	return nil
}

// WriteClassNames writes one category name per line, line i naming class i.
func WriteClassNames(fs afero.Fs, path string, names []string) error {
	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte('\n')
	}
	if err := ensureParent(fs, path); err != nil {
		return err
	}
	if err := writeFileAtomic(fs, path, buf.Bytes()); err != nil {
		return errors.FileError(err, path)
	}
	return nil
}

// Manifest is an Ultralytics pose dataset description. Train and Val name
// image directories relative to Path; the trainer finds the labels by
// swapping the images element for labels.
type Manifest struct {
	Path     string         `yaml:"path"`
	Train    string         `yaml:"train"`
	Val      string         `yaml:"val"`
	KptShape [2]int         `yaml:"kpt_shape,flow"`
	Classes  int            `yaml:"nc"`
	Names    map[int]string `yaml:"names"`
}

// NewManifest describes the dataset under root with the given train and val
// image directories
func NewManifest(root, train, val string, names []string) Manifest {
	m := Manifest{
		Path:     root,
		Train:    train,
		Val:      val,
		KptShape: [2]int{KeypointCount, KeypointDims},
		Classes:  len(names),
		Names:    make(map[int]string, len(names)),
	}
	for i, name := range names {
		m.Names[i] = name
	}
	return m
}

// WriteDatasetManifest writes m as YAML to path
func WriteDatasetManifest(fs afero.Fs, path string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return errors.New(err).Category(errors.CategoryGeneric).Build()
	}
	if err := enc.Close(); err != nil {
		return errors.New(err).Category(errors.CategoryGeneric).Build()
	}
	if err := ensureParent(fs, path); err != nil {
		return err
	}
	if err := writeFileAtomic(fs, path, buf.Bytes()); err != nil {
		return errors.FileError(err, path)
	}
	return nil
}

func ensureParent(fs afero.Fs, path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := fs.MkdirAll(dir, dirPermissions); err != nil {
		return errors.FileError(err, dir)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never see a partial label file.
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return err
	}
	if err := fs.Chmod(tmpName, filePermissions); err != nil {
		_ = fs.Remove(tmpName)
		return err
	}
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return err
	}
	return nil
}
