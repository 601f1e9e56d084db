// Package metrics provides Prometheus metrics for playback-qoe batches.
//
// Metrics are organized into panels:
//   - Run overview: run info, discovered files, progress, throughput
//   - Sessions: parsed and failed counts, malformed fields by signal
//   - QoE: join time, stall and startup distributions, bitrate switches
//
// Every Collector owns its registry; the HTTP server and the textfile
// exporter both gather from it.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "playback_qoe"

// Failure reasons used as the "reason" label.
const (
	ReasonUnparsable = "unparsable"
	ReasonRead       = "read"
)

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	RunID   string
	Version string
	Input   string
	Format  string
	Workers int

	// RuntimeMetrics adds the Go runtime and process collectors.
	RuntimeMetrics bool
}

// Collector manages all Prometheus metrics for a batch run.
type Collector struct {
	registry *prometheus.Registry

	// --- Panel 1: Run Overview ---
	info            *prometheus.GaugeVec
	workers         prometheus.Gauge
	filesDiscovered prometheus.Gauge
	progress        prometheus.Gauge
	elapsedSeconds  prometheus.Gauge
	sessionsPerSec  prometheus.Gauge

	// --- Panel 2: Sessions ---
	sessionsParsed *prometheus.CounterVec
	sessionsFailed *prometheus.CounterVec
	fieldIssues    *prometheus.CounterVec
	trimmed        prometheus.Counter

	// --- Panel 3: QoE ---
	joinTime        *prometheus.HistogramVec
	startupOffset   *prometheus.HistogramVec
	stallDuration   *prometheus.HistogramVec
	stallsPerSess   *prometheus.HistogramVec
	bitrateSwitches *prometheus.CounterVec
	notJoined       *prometheus.CounterVec

	mu         sync.Mutex
	startTime  time.Time
	discovered int
	parsed     int
	failed     int
}

// NewCollector creates a collector with its own registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.NewRegistry())
}

// NewCollectorWithRegistry creates a collector registering into registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry *prometheus.Registry) *Collector {
	c := &Collector{
		registry:  registry,
		startTime: time.Now(),

		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "info",
				Help:      "Information about the batch run (value always 1)",
			},
			[]string{"version", "run_id", "input", "format"},
		),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Sessions parsed concurrently",
		}),
		filesDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_discovered",
			Help:      "Capture files matched by the input filter",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_progress",
			Help:      "Fraction of discovered files processed (0.0 to 1.0)",
		}),
		elapsedSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_elapsed_seconds",
			Help:      "Seconds since the batch started",
		}),
		sessionsPerSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_per_second",
			Help:      "Files processed per second over the last 10 seconds",
		}),

		sessionsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_parsed_total",
				Help:      "Sessions built successfully",
			},
			[]string{"format"},
		),
		sessionsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_failed_total",
				Help:      "Capture files that could not be built",
			},
			[]string{"reason"}, // "unparsable" | "read"
		),
		fieldIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "field_issues_total",
				Help:      "Malformed fields replaced by the carried-forward value",
			},
			[]string{"signal"},
		),
		trimmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aborted_starts_total",
			Help:      "Element sessions trimmed after an aborted first load",
		}),

		joinTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "join_time_seconds",
				Help:      "Time from session start to first playback",
				Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34},
			},
			[]string{"format"},
		),
		startupOffset: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "startup_offset_seconds",
				Help:      "Time of the first sample with a positive playback position",
				Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34},
			},
			[]string{"format"},
		),
		stallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stall_duration_seconds",
				Help:      "Duration of individual rebuffering stalls",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 300},
			},
			[]string{"format"},
		),
		stallsPerSess: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stalls_per_session",
				Help:      "Number of stalls in each session",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
			},
			[]string{"format"},
		),
		bitrateSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bitrate_switches_total",
				Help:      "Bitrate changes after join",
			},
			[]string{"format", "direction"},
		),
		notJoined: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_not_joined_total",
				Help:      "Sessions in which playback never started",
			},
			[]string{"format"},
		),
	}

	registry.MustRegister(
		// Panel 1
		c.info,
		c.workers,
		c.filesDiscovered,
		c.progress,
		c.elapsedSeconds,
		c.sessionsPerSec,

		// Panel 2
		c.sessionsParsed,
		c.sessionsFailed,
		c.fieldIssues,
		c.trimmed,

		// Panel 3
		c.joinTime,
		c.startupOffset,
		c.stallDuration,
		c.stallsPerSess,
		c.bitrateSwitches,
		c.notJoined,
	)

	if cfg.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c.info.WithLabelValues(cfg.Version, cfg.RunID, cfg.Input, cfg.Format).Set(1)
	c.workers.Set(float64(cfg.Workers))

	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// =============================================================================
// Update Methods
// =============================================================================

// SessionUpdate is the per-session data the collector records. It mirrors
// the fields of a session summary without importing the stats package.
// Times are in milliseconds, as captured.
type SessionUpdate struct {
	Format        string
	Joined        bool
	JoinTime      float64
	HasStartup    bool
	StartupOffset float64
	Stalls        []float64
	BitrateUps    int
	BitrateDowns  int
	Trimmed       bool
}

// SetDiscovered records how many files the batch will process.
func (c *Collector) SetDiscovered(n int) {
	c.filesDiscovered.Set(float64(n))

	c.mu.Lock()
	c.discovered = n
	c.updateProgressLocked()
	c.mu.Unlock()
}

// RecordSession records one successfully built session.
func (c *Collector) RecordSession(u SessionUpdate) {
	c.sessionsParsed.WithLabelValues(u.Format).Inc()

	if u.Joined {
		c.joinTime.WithLabelValues(u.Format).Observe(u.JoinTime / 1000)
	} else {
		c.notJoined.WithLabelValues(u.Format).Inc()
	}
	if u.HasStartup {
		c.startupOffset.WithLabelValues(u.Format).Observe(u.StartupOffset / 1000)
	}

	stalls := c.stallDuration.WithLabelValues(u.Format)
	for _, d := range u.Stalls {
		stalls.Observe(d / 1000)
	}
	c.stallsPerSess.WithLabelValues(u.Format).Observe(float64(len(u.Stalls)))

	if u.BitrateUps > 0 {
		c.bitrateSwitches.WithLabelValues(u.Format, "up").Add(float64(u.BitrateUps))
	}
	if u.BitrateDowns > 0 {
		c.bitrateSwitches.WithLabelValues(u.Format, "down").Add(float64(u.BitrateDowns))
	}
	if u.Trimmed {
		c.trimmed.Inc()
	}

	c.mu.Lock()
	c.parsed++
	c.updateProgressLocked()
	c.mu.Unlock()
}

// RecordFailure records a file that could not be built.
func (c *Collector) RecordFailure(reason string) {
	c.sessionsFailed.WithLabelValues(reason).Inc()

	c.mu.Lock()
	c.failed++
	c.updateProgressLocked()
	c.mu.Unlock()
}

// RecordIssue counts a malformed field. It satisfies the session package's
// issue recorder so it can be attached to every parse.
func (c *Collector) RecordIssue(_ int, signal string, _ error) {
	c.fieldIssues.WithLabelValues(signal).Inc()
}

// SetRate updates the processing rate gauge.
func (c *Collector) SetRate(perSecond float64) {
	c.sessionsPerSec.Set(perSecond)
}

// updateProgressLocked must be called with mu held.
func (c *Collector) updateProgressLocked() {
	c.elapsedSeconds.Set(time.Since(c.startTime).Seconds())
	if c.discovered <= 0 {
		c.progress.Set(0)
		return
	}
	p := float64(c.parsed+c.failed) / float64(c.discovered)
	if p > 1.0 {
		p = 1.0
	}
	c.progress.Set(p)
}

// Processed returns the parsed and failed counts seen so far.
func (c *Collector) Processed() (parsed, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parsed, c.failed
}
