// constants.go: label values shared by the converter metrics
package metrics

// Pipeline stages observed by the stage duration histogram.
const (
	StageLoad      = "load"
	StageIndex     = "index"
	StageAggregate = "aggregate"
	StageWrite     = "write"
)

// Reasons an annotation is skipped when invalid annotations are tolerated.
const (
	SkipUnknownImage    = "unknown_image"
	SkipUnknownCategory = "unknown_category"
	SkipZeroDimension   = "zero_dimension"
	SkipMalformed       = "malformed"
)

// Run outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
