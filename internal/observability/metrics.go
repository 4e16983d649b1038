// Package observability provides metrics for conversion runs.
package observability

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tphakala/coco2yolo/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Converter *metrics.ConverterMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	converterMetrics, err := metrics.NewConverterMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create converter metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Converter: converterMetrics,
	}, nil
}

// WriteTextfile writes all metrics in the text exposition format, for
// node_exporter's textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if filepath.Ext(path) != ".prom" {
		return fmt.Errorf("metrics textfile %s must have a .prom extension", path)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
