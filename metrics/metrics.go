// Package metrics exposes Prometheus metrics for merges and ffmpeg runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ffmerge"

// Metrics holds all Prometheus metrics.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional recorder.
type Metrics struct {
	// Merge metrics
	MergesTotal    *prometheus.CounterVec
	MergeDuration  *prometheus.HistogramVec
	ActiveMerges   prometheus.Gauge
	InputsSkipped  prometheus.Counter
	TempFilesAlive prometheus.Gauge

	// FFmpeg operation metrics
	FFmpegOperationsTotal *prometheus.CounterVec
	FFmpegProcessingTime  *prometheus.HistogramVec
	FFmpegPeakRSS         *prometheus.HistogramVec

	// Probe metrics
	ProbeRetriesTotal prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MergesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "merges_total",
				Help:      "Total number of merges by final status",
			},
			[]string{"status"},
		),
		MergeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "merge_duration_seconds",
				Help:      "Merge wall time in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"status"},
		),
		ActiveMerges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_merges",
			Help:      "Number of merges in progress",
		}),
		InputsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_skipped_total",
			Help:      "Inputs left out of a merge under the proceed policy",
		}),
		TempFilesAlive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temp_files",
			Help:      "Intermediate files currently on disk",
		}),

		FFmpegOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ffmpeg_operations_total",
				Help:      "Total number of ffmpeg invocations by stage and status",
			},
			[]string{"stage", "status"},
		),
		FFmpegProcessingTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ffmpeg_processing_seconds",
				Help:      "ffmpeg invocation wall time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		FFmpegPeakRSS: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ffmpeg_peak_rss_bytes",
				Help:      "Peak resident memory of an ffmpeg process tree",
				Buckets:   prometheus.ExponentialBuckets(16<<20, 2, 8),
			},
			[]string{"stage"},
		),

		ProbeRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_retries_total",
			Help:      "Bitrate probes that needed the retry",
		}),
	}
}

// RecordMergeStarted records a merge start.
func (m *Metrics) RecordMergeStarted() {
	if m == nil {
		return
	}
	m.ActiveMerges.Inc()
}

// RecordMergeCompleted records merge completion. status is "success",
// "failed" or "cancelled".
func (m *Metrics) RecordMergeCompleted(status string, duration time.Duration, skipped int) {
	if m == nil {
		return
	}
	m.ActiveMerges.Dec()
	m.MergesTotal.WithLabelValues(status).Inc()
	m.MergeDuration.WithLabelValues(status).Observe(duration.Seconds())
	if skipped > 0 {
		m.InputsSkipped.Add(float64(skipped))
	}
}

// RecordFFmpegOperation records one ffmpeg invocation.
func (m *Metrics) RecordFFmpegOperation(stage string, success bool, duration time.Duration, peakRSS uint64) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}

	m.FFmpegOperationsTotal.WithLabelValues(stage, status).Inc()
	m.FFmpegProcessingTime.WithLabelValues(stage).Observe(duration.Seconds())
	if peakRSS > 0 {
		m.FFmpegPeakRSS.WithLabelValues(stage).Observe(float64(peakRSS))
	}
}

// RecordTempFiles adjusts the live intermediate file gauge by delta.
func (m *Metrics) RecordTempFiles(delta int) {
	if m == nil {
		return
	}
	m.TempFilesAlive.Add(float64(delta))
}

// RecordProbeRetry records a bitrate probe retry.
func (m *Metrics) RecordProbeRetry() {
	if m == nil {
		return
	}
	m.ProbeRetriesTotal.Inc()
}
