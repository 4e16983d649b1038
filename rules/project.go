//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// conversionPackages are the packages whose errors reach the user and must
// carry a category.
const conversionPackages = `internal/(coco|yolo|converter|conf)$`

// CategorizedErrors flags plain error construction in the conversion
// packages. Errors there are built with internal/errors so that callers can
// match them with errors.IsCategory.
//
// Old pattern:
//
//	return fmt.Errorf("image %d: %w", id, err)
//
// New pattern:
//
//	return errors.Newf("image %d: %w", id, err).
//	    Category(errors.CategoryNotFound).
//	    Context("image_id", id).
//	    Build()
func CategorizedErrors(m dsl.Matcher) {
	m.Import("github.com/tphakala/coco2yolo/internal/errors")

	m.Match(`fmt.Errorf($*_)`).
		Where(m.File().PkgPath.Matches(conversionPackages)).
		Report("build errors with errors.Newf(...).Category(...).Build() so the category survives")

	m.Match(`return $*_, errors.NewStd($_)`, `return errors.NewStd($_)`).
		Where(m.File().PkgPath.Matches(conversionPackages)).
		Report("errors.NewStd is for package-level sentinels; wrap the sentinel with errors.New(...).Category(...).Build()")
}

// FilesystemAbstraction flags direct os file access in the packages that read
// annotations and write labels. They take an afero.Fs so tests can run on a
// MemMapFs.
func FilesystemAbstraction(m dsl.Matcher) {
	m.Match(
		`os.Open($*_)`,
		`os.OpenFile($*_)`,
		`os.Create($*_)`,
		`os.ReadFile($*_)`,
		`os.WriteFile($*_)`,
		`os.MkdirAll($*_)`,
		`os.Rename($*_)`,
		`os.Remove($*_)`,
	).
		Where(m.File().PkgPath.Matches(`internal/(coco|yolo|converter)$`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("use the afero.Fs passed in instead of the os package")
}

// LabelFloatFormatting flags fmt based float formatting in the label writer.
// Label lines are built with strconv.AppendFloat into a reused buffer.
func LabelFloatFormatting(m dsl.Matcher) {
	m.Match(
		`fmt.Sprintf($f, $*_)`,
		`fmt.Fprintf($_, $f, $*_)`,
	).
		Where(m["f"].Text.Matches(`%\.?\d*f`) && m.File().PkgPath.Matches(`internal/yolo$`)).
		Report("format label values with yolo.AppendLabel / strconv.AppendFloat")
}

// KeypointArity flags literal keypoint sizes. The arity lives in
// yolo.KeypointCount, yolo.KeypointDims and yolo.KeypointValues.
func KeypointArity(m dsl.Matcher) {
	m.Match(`make([]float64, 63)`, `[63]float64{$*_}`, `[21]$_{$*_}`, `var $_ [21]$_`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report("use the yolo keypoint arity constants instead of a literal size")
}
