package coco

import (
	"path"
	"strings"

	"github.com/tphakala/coco2yolo/internal/errors"
)

// ImageInfo is the per-image data the converter needs
type ImageInfo struct {
	Stem   string
	Width  int
	Height int
}

// ImageRegistry maps image ids to their output stem and dimensions
type ImageRegistry struct {
	images map[int64]ImageInfo
}

// NewImageRegistry indexes images by id. Dimensions are not checked here,
// the geometry transform rejects zero-sized images when they are used.
func NewImageRegistry(images []Image) (*ImageRegistry, error) {
	reg := &ImageRegistry{images: make(map[int64]ImageInfo, len(images))}
	for _, img := range images {
		if _, dup := reg.images[img.ID]; dup {
			return nil, errors.Newf("%w: image %d", ErrDuplicateImage, img.ID).
				Category(errors.CategoryConfiguration).
				Context("image_id", img.ID).
				Build()
		}
		reg.images[img.ID] = ImageInfo{
			Stem:   Stem(img.FileName),
			Width:  img.Width,
			Height: img.Height,
		}
	}
	return reg, nil
}

// Lookup returns the info for an image id
func (r *ImageRegistry) Lookup(imageID int64) (ImageInfo, bool) {
	info, ok := r.images[imageID]
	return info, ok
}

// Len returns the number of registered images
func (r *ImageRegistry) Len() int {
	return len(r.images)
}

// Stem strips everything up to the last '/' or '\' and the extension.
// COCO files exported on Windows use backslashes regardless of the host OS.
func Stem(fileName string) string {
	base := fileName
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if ext := path.Ext(base); ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
