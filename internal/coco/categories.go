package coco

import (
	"cmp"
	"slices"

	"github.com/tphakala/coco2yolo/internal/errors"
)

// CategoryIndex maps COCO category ids to dense zero-based class indices.
// Index i belongs to the category with the i-th smallest id.
type CategoryIndex struct {
	index map[int64]int
	names []string
}

// NewCategoryIndex sorts categories by ascending id and assigns each its position.
func NewCategoryIndex(categories []Category) (*CategoryIndex, error) {
	if len(categories) == 0 {
		return nil, errors.New(ErrNoCategories).
			Category(errors.CategoryConfiguration).
			Build()
	}

	sorted := slices.Clone(categories)
	slices.SortStableFunc(sorted, func(a, b Category) int {
		return cmp.Compare(a.ID, b.ID)
	})

	ci := &CategoryIndex{
		index: make(map[int64]int, len(sorted)),
		names: make([]string, len(sorted)),
	}
	for i, c := range sorted {
		if _, dup := ci.index[c.ID]; dup {
			return nil, errors.Newf("%w: category %d", ErrDuplicateCategory, c.ID).
				Category(errors.CategoryConfiguration).
				Context("category_id", c.ID).
				Build()
		}
		ci.index[c.ID] = i
		ci.names[i] = c.Name
	}

	return ci, nil
}

// Lookup returns the class index for a COCO category id
func (ci *CategoryIndex) Lookup(categoryID int64) (int, bool) {
	i, ok := ci.index[categoryID]
	return i, ok
}

// Names returns category names in index order
func (ci *CategoryIndex) Names() []string {
	return slices.Clone(ci.names)
}

// Len returns the number of categories
func (ci *CategoryIndex) Len() int {
	return len(ci.names)
}
