// Package yolo converts COCO geometry into normalized YOLO pose labels and
// writes them to disk.
package yolo

import (
	"github.com/tphakala/coco2yolo/internal/errors"
)

const (
	// KeypointCount is the number of keypoints per instance
	KeypointCount = 21
	// KeypointDims is the number of values per keypoint: x, y, visibility
	KeypointDims = 3
	// KeypointValues is the length of a flat COCO keypoint array
	KeypointValues = KeypointCount * KeypointDims
	// BoxValues is the length of a COCO bbox array
	BoxValues = 4
)

var (
	ErrZeroDimension = errors.NewStd("image has zero or negative dimension")
	ErrKeypointArity = errors.NewStd("unexpected keypoint count")
	ErrBoxArity      = errors.NewStd("unexpected bbox length")
)

// Box is a bounding box normalized to the image size
type Box struct {
	CenterX float64
	CenterY float64
	Width   float64
	Height  float64
}

// Keypoint is a normalized keypoint. Visibility is the COCO flag, unscaled.
type Keypoint struct {
	X          float64
	Y          float64
	Visibility int
}

// Label is one YOLO pose line
type Label struct {
	Class     int
	Box       Box
	Keypoints [KeypointCount]Keypoint
}

// Transform normalizes a COCO bbox [x, y, w, h] and a flat keypoint array.
//
// Both box center coordinates are scaled by 1/imgW, width by 1/imgW and
// height by 1/imgH:
//
//	cx = (x + w) / 2 / imgW
//	cy = (y + h) / 2 / imgW
//
// Existing pose datasets were produced with this convention and labels must
// stay byte-compatible with them. Keypoints use 1/imgW for x and 1/imgH for y.
// Values outside [0, 1] are passed through.
func Transform(bbox []float64, imgW, imgH int, keypoints []float64) (Box, [KeypointCount]Keypoint, error) {
	var kps [KeypointCount]Keypoint

	if imgW <= 0 || imgH <= 0 {
		return Box{}, kps, errors.Newf("%w: %dx%d", ErrZeroDimension, imgW, imgH).
			Category(errors.CategoryDivisionHazard).
			Context("width", imgW).
			Context("height", imgH).
			Build()
	}
	if len(bbox) != BoxValues {
		return Box{}, kps, errors.Newf("%w: got %d values, want %d", ErrBoxArity, len(bbox), BoxValues).
			Category(errors.CategoryMalformedInput).
			Build()
	}
	if len(keypoints) != KeypointValues {
		return Box{}, kps, errors.Newf("%w: got %d values, want %d", ErrKeypointArity, len(keypoints), KeypointValues).
			Category(errors.CategoryMalformedInput).
			Build()
	}

	dw := 1 / float64(imgW)
	dh := 1 / float64(imgH)

	x, y, w, h := bbox[0], bbox[1], bbox[2], bbox[3]
	box := Box{
		CenterX: (x + w) / 2 * dw,
		CenterY: (y + h) / 2 * dw,
		Width:   w * dw,
		Height:  h * dh,
	}

	for i := range kps {
		off := i * KeypointDims
		kps[i] = Keypoint{
			X:          keypoints[off] * dw,
			Y:          keypoints[off+1] * dh,
			Visibility: int(keypoints[off+2]),
		}
	}

	return box, kps, nil
}
