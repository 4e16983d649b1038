package converter

import (
	"github.com/tphakala/coco2yolo/internal/coco"
	"github.com/tphakala/coco2yolo/internal/errors"
	"github.com/tphakala/coco2yolo/internal/logger"
	"github.com/tphakala/coco2yolo/internal/observability/metrics"
	"github.com/tphakala/coco2yolo/internal/yolo"
)

var (
	ErrUnknownImage    = errors.NewStd("annotation references unknown image")
	ErrUnknownCategory = errors.NewStd("annotation references unknown category")
)

// LabelSet holds converted labels grouped per image. Images keep the order
// in which their first annotation appeared, labels keep annotation order.
type LabelSet struct {
	order  []int64
	images map[int64]coco.ImageInfo
	labels map[int64][]yolo.Label

	Converted int
	Skipped   int
}

func newLabelSet() *LabelSet {
	return &LabelSet{
		images: make(map[int64]coco.ImageInfo),
		labels: make(map[int64][]yolo.Label),
	}
}

func (s *LabelSet) add(imageID int64, info coco.ImageInfo, l yolo.Label) {
	if _, seen := s.labels[imageID]; !seen {
		s.order = append(s.order, imageID)
		s.images[imageID] = info
	}
	s.labels[imageID] = append(s.labels[imageID], l)
	s.Converted++
}

// Images returns the number of images with at least one label
func (s *LabelSet) Images() int {
	return len(s.order)
}

// Labels returns the labels of one image in annotation order
func (s *LabelSet) Labels(imageID int64) []yolo.Label {
	return s.labels[imageID]
}

// Files returns one label file per image, in first-seen order
func (s *LabelSet) Files() []yolo.LabelFile {
	files := make([]yolo.LabelFile, 0, len(s.order))
	for _, id := range s.order {
		files = append(files, yolo.LabelFile{
			ImageID: id,
			Stem:    s.images[id].Stem,
			Labels:  s.labels[id],
		})
	}
	return files
}

// AggregateOptions controls how invalid annotations are handled
type AggregateOptions struct {
	// SkipInvalid logs and skips annotations that fail lookup or transform
	// instead of aborting
	SkipInvalid bool
	Log         logger.Logger
	Metrics     metrics.Recorder
}

// Aggregate converts annotations in input order and groups them per image.
func Aggregate(annotations []coco.Annotation, images *coco.ImageRegistry, categories *coco.CategoryIndex, opts AggregateOptions) (*LabelSet, error) {
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	set := newLabelSet()
	for i := range annotations {
		ann := &annotations[i]

		info, label, err := convertAnnotation(ann, images, categories)
		if err != nil {
			if !opts.SkipInvalid {
				return nil, err
			}
			reason := skipReason(err)
			rec.RecordSkipped(reason)
			set.Skipped++
			if opts.Log != nil {
				opts.Log.Warn("skipping annotation",
					logger.Int64("annotation_id", ann.ID),
					logger.Int64("image_id", ann.ImageID),
					logger.Int64("category_id", ann.CategoryID),
					logger.String("reason", reason),
					logger.Error(err))
			}
			continue
		}

		set.add(ann.ImageID, info, label)
		rec.RecordConverted()
	}

	return set, nil
}

func convertAnnotation(ann *coco.Annotation, images *coco.ImageRegistry, categories *coco.CategoryIndex) (coco.ImageInfo, yolo.Label, error) {
	info, ok := images.Lookup(ann.ImageID)
	if !ok {
		return info, yolo.Label{}, annotationError(ann, ErrUnknownImage, errors.CategoryNotFound)
	}

	class, ok := categories.Lookup(ann.CategoryID)
	if !ok {
		return info, yolo.Label{}, annotationError(ann, ErrUnknownCategory, errors.CategoryNotFound)
	}

	box, kps, err := yolo.Transform(ann.BBox, info.Width, info.Height, ann.Keypoints)
	if err != nil {
		var category errors.ErrorCategory = errors.CategoryMalformedInput
		if errors.Is(err, yolo.ErrZeroDimension) {
			category = errors.CategoryDivisionHazard
		}
		return info, yolo.Label{}, annotationError(ann, err, category)
	}

	return info, yolo.Label{Class: class, Box: box, Keypoints: kps}, nil
}

// annotationError names the annotation, image and category in the message
// so the record can be found in the source document.
func annotationError(ann *coco.Annotation, err error, category errors.ErrorCategory) error {
	return errors.Newf("annotation %d (image %d, category %d): %w", ann.ID, ann.ImageID, ann.CategoryID, err).
		Category(category).
		Context("annotation_id", ann.ID).
		Context("image_id", ann.ImageID).
		Context("category_id", ann.CategoryID).
		Build()
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownImage):
		return metrics.SkipUnknownImage
	case errors.Is(err, ErrUnknownCategory):
		return metrics.SkipUnknownCategory
	case errors.Is(err, yolo.ErrZeroDimension):
		return metrics.SkipZeroDimension
	default:
		return metrics.SkipMalformed
	}
}
