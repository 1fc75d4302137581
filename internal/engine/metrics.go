package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what conversions saw. Each Metrics owns its registry, so
// several scans in one process never collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	records     *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	rows        prometheus.Counter
	duplicates  prometheus.Counter
	lines       prometheus.Gauge
}

// NewMetrics registers the conversion metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heulog_records_total",
			Help: "Log records read, by tag.",
		}, []string{"tag"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heulog_diagnostics_total",
			Help: "Records skipped, by reason.",
		}, []string{"kind"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heulog_rows_total",
			Help: "Tabular rows written, duplicate edge rows included.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heulog_duplicate_rows_total",
			Help: "Duplicate edge rows synthesized.",
		}),
		lines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heulog_scan_lines",
			Help: "Input line reached by the last scan.",
		}),
	}
	m.reg.MustRegister(m.records, m.diagnostics, m.rows, m.duplicates, m.lines)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteFile writes the metrics in text exposition format, for a
// node-exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// The recorders below are nil-safe so the engine can run without metrics.

func (m *Metrics) record(tag string) {
	if m != nil {
		m.records.WithLabelValues(tag).Inc()
	}
}

func (m *Metrics) diagnostic(kind string) {
	if m != nil {
		m.diagnostics.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) row(duplicate bool) {
	if m == nil {
		return
	}
	m.rows.Inc()
	if duplicate {
		m.duplicates.Inc()
	}
}

func (m *Metrics) scanned(lines int) {
	if m != nil {
		m.lines.Set(float64(lines))
	}
}
