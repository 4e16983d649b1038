package yolo_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/coco2yolo/internal/errors"
	"github.com/tphakala/coco2yolo/internal/yolo"
)

// visibleKeypoints returns a keypoint array with zero coordinates and
// visibility 2 on every triple
func visibleKeypoints() []float64 {
	kps := make([]float64, yolo.KeypointValues)
	for i := 2; i < len(kps); i += yolo.KeypointDims {
		kps[i] = 2
	}
	return kps
}

func TestKeypointConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 21, yolo.KeypointCount)
	assert.Equal(t, 63, yolo.KeypointValues)
	assert.Equal(t, 68, yolo.FieldsPerLine)
}

func TestTransformBox(t *testing.T) {
	t.Parallel()

	box, kps, err := yolo.Transform([]float64{10, 20, 30, 40}, 100, 200, visibleKeypoints())
	require.NoError(t, err)

	// centers both use 1/width, height uses 1/height
	assert.InDelta(t, 0.2, box.CenterX, 1e-12)
	assert.InDelta(t, 0.3, box.CenterY, 1e-12)
	assert.InDelta(t, 0.3, box.Width, 1e-12)
	assert.InDelta(t, 0.2, box.Height, 1e-12)

	for i, kp := range kps {
		assert.Equal(t, yolo.Keypoint{X: 0, Y: 0, Visibility: 2}, kp, "keypoint %d", i)
	}
}

func TestTransformKeypoints(t *testing.T) {
	t.Parallel()

	raw := make([]float64, yolo.KeypointValues)
	for i := range yolo.KeypointCount {
		raw[i*3] = float64(10 * i)
		raw[i*3+1] = float64(20 * i)
		raw[i*3+2] = float64(i % 3)
	}

	_, kps, err := yolo.Transform([]float64{0, 0, 1, 1}, 400, 100, raw)
	require.NoError(t, err)

	for i, kp := range kps {
		assert.InDelta(t, float64(10*i)/400, kp.X, 1e-12, "x of keypoint %d", i)
		assert.InDelta(t, float64(20*i)/100, kp.Y, 1e-12, "y of keypoint %d", i)
		assert.Equal(t, i%3, kp.Visibility, "visibility of keypoint %d", i)
	}
}

func TestTransformVisibilityTruncation(t *testing.T) {
	t.Parallel()

	raw := make([]float64, yolo.KeypointValues)
	raw[2] = 1.9
	raw[5] = 2.0
	raw[8] = 0.4
	raw[11] = -1.7

	_, kps, err := yolo.Transform([]float64{0, 0, 1, 1}, 10, 10, raw)
	require.NoError(t, err)

	assert.Equal(t, 1, kps[0].Visibility)
	assert.Equal(t, 2, kps[1].Visibility)
	assert.Equal(t, 0, kps[2].Visibility)
	assert.Equal(t, -1, kps[3].Visibility)
}

func TestTransformNoClamping(t *testing.T) {
	t.Parallel()

	raw := visibleKeypoints()
	raw[0] = 250

	box, kps, err := yolo.Transform([]float64{150, 0, 100, 50}, 100, 100, raw)
	require.NoError(t, err)

	assert.InDelta(t, 1.25, box.CenterX, 1e-12)
	assert.InDelta(t, 1.0, box.Width, 1e-12)
	assert.InDelta(t, 2.5, kps[0].X, 1e-12)
}

// denormalize recovers the COCO bbox [x, y, w, h] from a box produced by
// Transform for an image of the given size
func denormalize(b yolo.Box, imgW, imgH int) [yolo.BoxValues]float64 {
	fw, fh := float64(imgW), float64(imgH)
	w := b.Width * fw
	h := b.Height * fh
	return [yolo.BoxValues]float64{
		b.CenterX*2*fw - w,
		b.CenterY*2*fw - h,
		w,
		h,
	}
}

func TestTransformRoundTrip(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		imgW := 1 + rng.IntN(4096)
		imgH := 1 + rng.IntN(4096)
		bbox := []float64{
			rng.Float64() * float64(imgW),
			rng.Float64() * float64(imgH),
			rng.Float64() * float64(imgW),
			rng.Float64() * float64(imgH),
		}

		box, _, err := yolo.Transform(bbox, imgW, imgH, visibleKeypoints())
		require.NoError(t, err)

		got := denormalize(box, imgW, imgH)
		for i := range got {
			assert.InDelta(t, bbox[i], got[i], 1e-6, "bbox[%d] for %dx%d", i, imgW, imgH)
		}
	}
}

func TestTransformErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bbox     []float64
		w, h     int
		kps      []float64
		sentinel error
		category errors.ErrorCategory
	}{
		{"zero width", []float64{0, 0, 1, 1}, 0, 10, visibleKeypoints(), yolo.ErrZeroDimension, errors.CategoryDivisionHazard},
		{"zero height", []float64{0, 0, 1, 1}, 10, 0, visibleKeypoints(), yolo.ErrZeroDimension, errors.CategoryDivisionHazard},
		{"negative width", []float64{0, 0, 1, 1}, -5, 10, visibleKeypoints(), yolo.ErrZeroDimension, errors.CategoryDivisionHazard},
		{"short keypoints", []float64{0, 0, 1, 1}, 10, 10, make([]float64, 51), yolo.ErrKeypointArity, errors.CategoryMalformedInput},
		{"long keypoints", []float64{0, 0, 1, 1}, 10, 10, make([]float64, 66), yolo.ErrKeypointArity, errors.CategoryMalformedInput},
		{"missing keypoints", []float64{0, 0, 1, 1}, 10, 10, nil, yolo.ErrKeypointArity, errors.CategoryMalformedInput},
		{"short bbox", []float64{0, 0, 1}, 10, 10, visibleKeypoints(), yolo.ErrBoxArity, errors.CategoryMalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := yolo.Transform(tt.bbox, tt.w, tt.h, tt.kps)
			require.ErrorIs(t, err, tt.sentinel)
			assert.True(t, errors.IsCategory(err, tt.category))

			var ee *errors.EnhancedError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, "yolo", ee.GetComponent())
		})
	}
}
