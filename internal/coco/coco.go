// Package coco reads COCO keypoint annotation documents and builds the
// lookup tables the YOLO conversion needs.
package coco

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/tphakala/coco2yolo/internal/errors"
)

// Sentinel errors, wrapped with context by the functions returning them
var (
	ErrInputNotFound     = errors.NewStd("annotation file not found")
	ErrDecode            = errors.NewStd("malformed COCO document")
	ErrNoCategories      = errors.NewStd("no categories defined")
	ErrDuplicateCategory = errors.NewStd("duplicate category id")
	ErrDuplicateImage    = errors.NewStd("duplicate image id")
)

// Document is the subset of the COCO schema used for keypoint conversion
type Document struct {
	Images      []Image      `json:"images"`
	Categories  []Category   `json:"categories"`
	Annotations []Annotation `json:"annotations"`
}

// Image describes one annotated image
type Image struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Category is an object class. Keypoints and Skeleton are carried along
// when present but not interpreted.
type Category struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Supercategory string   `json:"supercategory,omitempty"`
	Keypoints     []string `json:"keypoints,omitempty"`
	Skeleton      [][2]int `json:"skeleton,omitempty"`
}

// Annotation is one object instance. BBox is [x, y, width, height] in pixels
// with a top-left origin, Keypoints is a flat list of (x, y, visibility) triples.
type Annotation struct {
	ID           int64     `json:"id"`
	ImageID      int64     `json:"image_id"`
	CategoryID   int64     `json:"category_id"`
	BBox         []float64 `json:"bbox"`
	Keypoints    []float64 `json:"keypoints"`
	NumKeypoints int       `json:"num_keypoints,omitempty"`
}

// Load reads a COCO document from path on fs
func Load(fs afero.Fs, path string) (*Document, error) {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Newf("%w: %s", ErrInputNotFound, path).
				Category(errors.CategoryConfiguration).
				FileContext(path).
				Build()
		}
		return nil, errors.FileError(err, path)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryMalformedInput).
			FileContext(path).
			Build()
	}
	return doc, nil
}

// Decode parses a COCO document from r
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Newf("%w: %w", ErrDecode, err).
			Category(errors.CategoryMalformedInput).
			Build()
	}
	return &doc, nil
}
