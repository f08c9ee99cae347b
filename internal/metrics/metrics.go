// Package metrics exports archive scan results in the Prometheus text format
// so node_exporter's textfile collector can pick them up.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"miesnwb/internal/archiveindex"
)

const namespace = "miesnwb"

// Scan results by outcome.
const (
	ResultSummarized = "summarized"
	ResultUnchanged  = "unchanged"
	ResultFailed     = "failed"
	ResultRemoved    = "removed"
)

// Recorder holds the gauges describing the most recent scan.
type Recorder struct {
	registry *prometheus.Registry

	scanArchives   *prometheus.GaugeVec
	scanDuration   prometheus.Gauge
	scanTimestamp  prometheus.Gauge
	sweeps         *prometheus.GaugeVec
	recordings     *prometheus.GaugeVec
	failures       *prometheus.GaugeVec
	testPulses     *prometheus.GaugeVec
	samples        *prometheus.GaugeVec
	notebookRows   *prometheus.GaugeVec
	lastSweepStart *prometheus.GaugeVec
}

// NewRecorder registers all gauges on a private registry.
func NewRecorder() *Recorder {
	archiveGauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      name,
			Help:      help,
		}, append([]string{"archive"}, labels...))
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scanArchives: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "archives",
			Help:      "Archives seen by the last scan, by outcome.",
		}, []string{"result"}),
		scanDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Wall time of the last scan.",
		}),
		scanTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last scan started.",
		}),
		sweeps:         archiveGauge("sweeps", "Sweeps with acquisition data."),
		recordings:     archiveGauge("recordings", "Resolved recordings by clamp mode.", "clamp_mode"),
		failures:       archiveGauge("recording_failures", "AD channels that did not resolve to a recording."),
		testPulses:     archiveGauge("test_pulses", "Standalone test pulse blocks in the notebook."),
		samples:        archiveGauge("samples", "Stored samples across all series."),
		notebookRows:   archiveGauge("notebook_rows", "Physical lab notebook rows."),
		lastSweepStart: archiveGauge("last_sweep_timestamp_seconds", "Unix time of the latest sweep."),
	}
	r.registry.MustRegister(
		r.scanArchives, r.scanDuration, r.scanTimestamp,
		r.sweeps, r.recordings, r.failures, r.testPulses,
		r.samples, r.notebookRows, r.lastSweepStart,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe replaces the recorded values with those of report.
func (r *Recorder) Observe(report archiveindex.Report) {
	r.scanArchives.Reset()
	r.scanArchives.WithLabelValues(ResultSummarized).Set(float64(report.Summarized))
	r.scanArchives.WithLabelValues(ResultUnchanged).Set(float64(report.Unchanged))
	r.scanArchives.WithLabelValues(ResultFailed).Set(float64(len(report.Failed)))
	r.scanArchives.WithLabelValues(ResultRemoved).Set(float64(report.Removed))
	r.scanDuration.Set(report.Elapsed.Seconds())
	if !report.Started.IsZero() {
		r.scanTimestamp.Set(float64(report.Started.UnixNano()) / 1e9)
	}

	for _, vec := range []*prometheus.GaugeVec{r.sweeps, r.recordings, r.failures, r.testPulses, r.samples, r.notebookRows, r.lastSweepStart} {
		vec.Reset()
	}
	for _, entry := range report.Entries {
		name := archiveLabel(report.Dir, entry.Path)
		r.sweeps.WithLabelValues(name).Set(float64(entry.Sweeps))
		r.failures.WithLabelValues(name).Set(float64(entry.Failures))
		r.testPulses.WithLabelValues(name).Set(float64(entry.TestPulses))
		r.samples.WithLabelValues(name).Set(float64(entry.Samples))
		r.notebookRows.WithLabelValues(name).Set(float64(entry.NotebookRows))
		for mode, n := range entry.ClampModes {
			r.recordings.WithLabelValues(name, mode).Set(float64(n))
		}
		if !entry.LastSweepAt.IsZero() {
			r.lastSweepStart.WithLabelValues(name).Set(float64(entry.LastSweepAt.Unix()))
		}
	}
}

// WriteTextfile atomically writes the current values to path.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return errors.New("metrics textfile path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// archiveLabel names an archive relative to the scanned directory.
func archiveLabel(dir, path string) string {
	if rel, err := filepath.Rel(dir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.Base(path)
}
