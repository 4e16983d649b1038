package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConverterMetrics contains the Prometheus metrics of a conversion run.
type ConverterMetrics struct {
	annotationsConverted prometheus.Counter
	annotationsSkipped   *prometheus.CounterVec
	labelFilesWritten    prometheus.Counter
	labelsWritten        prometheus.Counter
	stageDuration        *prometheus.HistogramVec
	runsTotal            *prometheus.CounterVec
	lastRunTimestamp     prometheus.Gauge
}

// NewConverterMetrics creates the converter metrics and registers them with registry.
func NewConverterMetrics(registry *prometheus.Registry) (*ConverterMetrics, error) {
	m := &ConverterMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register converter metrics: %w", err)
	}
	return m, nil
}

func (m *ConverterMetrics) initMetrics() {
	m.annotationsConverted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coco2yolo_annotations_converted_total",
		Help: "Total number of annotations converted to YOLO labels.",
	})
	m.annotationsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coco2yolo_annotations_skipped_total",
			Help: "Total number of annotations skipped, partitioned by reason.",
		},
		[]string{"reason"},
	)
	m.labelFilesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coco2yolo_label_files_written_total",
		Help: "Total number of per-image label files written.",
	})
	m.labelsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coco2yolo_labels_written_total",
		Help: "Total number of label lines written.",
	})
	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coco2yolo_stage_duration_seconds",
			Help:    "Time spent in each conversion stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
		},
		[]string{"stage"},
	)
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coco2yolo_runs_total",
			Help: "Total number of conversion runs, partitioned by status.",
		},
		[]string{"status"},
	)
	m.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coco2yolo_last_run_timestamp_seconds",
		Help: "Unix time of the last finished conversion run.",
	})
}

// RecordConverted counts one converted annotation.
func (m *ConverterMetrics) RecordConverted() {
	m.annotationsConverted.Inc()
}

// RecordSkipped counts one skipped annotation.
func (m *ConverterMetrics) RecordSkipped(reason string) {
	m.annotationsSkipped.WithLabelValues(reason).Inc()
}

// RecordFileWritten counts one label file holding the given number of labels.
func (m *ConverterMetrics) RecordFileWritten(labels int) {
	m.labelFilesWritten.Inc()
	m.labelsWritten.Add(float64(labels))
}

// ObserveStage records how long a pipeline stage took.
func (m *ConverterMetrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished run.
func (m *ConverterMetrics) RecordRun(err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.lastRunTimestamp.SetToCurrentTime()
}

// Describe implements the prometheus.Collector interface.
func (m *ConverterMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.annotationsConverted.Desc()
	m.annotationsSkipped.Describe(ch)
	ch <- m.labelFilesWritten.Desc()
	ch <- m.labelsWritten.Desc()
	m.stageDuration.Describe(ch)
	m.runsTotal.Describe(ch)
	ch <- m.lastRunTimestamp.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *ConverterMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.annotationsConverted
	m.annotationsSkipped.Collect(ch)
	ch <- m.labelFilesWritten
	ch <- m.labelsWritten
	m.stageDuration.Collect(ch)
	m.runsTotal.Collect(ch)
	ch <- m.lastRunTimestamp
}
