// Package metrics provides custom Prometheus metrics for coco2yolo.
package metrics

import "time"

// Recorder defines a minimal interface for recording conversion metrics.
// Components depend on it rather than on ConverterMetrics so tests can pass
// a fake or NoopRecorder.
type Recorder interface {
	// RecordConverted counts one annotation turned into a label line.
	RecordConverted()

	// RecordSkipped counts one annotation dropped under the skip policy.
	// reason is one of the Skip* constants.
	RecordSkipped(reason string)

	// RecordFileWritten counts one label file holding the given number of labels.
	RecordFileWritten(labels int)

	// ObserveStage records how long a pipeline stage took, stage is one of the Stage* constants.
	ObserveStage(stage string, d time.Duration)

	// RecordRun records the outcome of a whole run.
	RecordRun(err error)
}

// NoopRecorder discards all metrics
type NoopRecorder struct{}

func (NoopRecorder) RecordConverted()                   {}
func (NoopRecorder) RecordSkipped(string)               {}
func (NoopRecorder) RecordFileWritten(int)              {}
func (NoopRecorder) ObserveStage(string, time.Duration) {}
func (NoopRecorder) RecordRun(error)                    {}

var (
	_ Recorder = (*ConverterMetrics)(nil)
	_ Recorder = NoopRecorder{}
)
