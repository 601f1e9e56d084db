// Package stats provides per-session summaries and cross-session aggregation
// for playback QoE batches.
//
// This file implements BatchAggregator which folds session summaries into:
// - Quantiles and means of join time, stalls, startup offset (T-Digest)
// - Per-format and per-browser session counts
// - Failure counts with a bounded list of recent failures
package stats

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Metric names a per-session quantity aggregated across a batch.
type Metric string

const (
	MetricJoinTime       Metric = "join_time"
	MetricStallCount     Metric = "stall_count"
	MetricStallTime      Metric = "stall_time"
	MetricStartupOffset  Metric = "startup_offset"
	MetricBitrateChanges Metric = "bitrate_changes"
)

// Metrics lists every aggregated metric in report order.
var Metrics = []Metric{
	MetricJoinTime,
	MetricStartupOffset,
	MetricStallCount,
	MetricStallTime,
	MetricBitrateChanges,
}

// MaxRecentFailures bounds the failure list kept for the summary.
const MaxRecentFailures = 20

// Failure is a session file that could not be built.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// QuantileValue is one estimated quantile.
type QuantileValue struct {
	Q     float64 `json:"q"`
	Value float64 `json:"value"`
}

// MetricStats is the distribution of one metric across the batch.
type MetricStats struct {
	Name      Metric          `json:"name"`
	Count     int             `json:"count"`
	Mean      float64         `json:"mean"`
	Min       float64         `json:"min"`
	Max       float64         `json:"max"`
	Quantiles []QuantileValue `json:"quantiles"`
}

// BatchResult is a snapshot of a BatchAggregator.
type BatchResult struct {
	Timestamp time.Time     `json:"timestamp"`
	Elapsed   time.Duration `json:"elapsed"`

	Sessions int `json:"sessions"`
	Failures int `json:"failures"`
	Joined   int `json:"joined"`
	Stalled  int `json:"stalled"`
	Trimmed  int `json:"trimmed"`
	Issues   int `json:"issues"`

	PerFormat  map[string]int `json:"per_format"`
	PerBrowser map[string]int `json:"per_browser,omitempty"`

	Metrics        []MetricStats `json:"metrics"`
	RecentFailures []Failure     `json:"recent_failures,omitempty"`
}

// Metric returns the stats for name, or a zero value if absent.
func (r *BatchResult) Metric(name Metric) MetricStats {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m
		}
	}
	return MetricStats{Name: name}
}

// digestStat tracks one metric: the t-digest plus exact count/sum/min/max.
type digestStat struct {
	digest *tdigest.TDigest
	count  int
	sum    float64
	min    float64
	max    float64
}

func newDigestStat(compression float64) *digestStat {
	return &digestStat{
		digest: tdigest.NewWithCompression(compression),
		min:    math.Inf(1),
		max:    math.Inf(-1),
	}
}

func (d *digestStat) add(v float64) {
	d.digest.Add(v, 1)
	d.count++
	d.sum += v
	d.min = math.Min(d.min, v)
	d.max = math.Max(d.max, v)
}

// quantile returns the estimate for q. The extremes are exact.
func (d *digestStat) quantile(q float64) float64 {
	switch {
	case d.count == 0:
		return 0
	case q <= 0:
		return d.min
	case q >= 1:
		return d.max
	}
	return d.digest.Quantile(q)
}

func (d *digestStat) snapshot(name Metric, quantiles []float64) MetricStats {
	ms := MetricStats{Name: name, Count: d.count}
	if d.count > 0 {
		ms.Mean = d.sum / float64(d.count)
		ms.Min = d.min
		ms.Max = d.max
	}
	ms.Quantiles = make([]QuantileValue, len(quantiles))
	for i, q := range quantiles {
		ms.Quantiles[i] = QuantileValue{Q: q, Value: d.quantile(q)}
	}
	return ms
}

// BatchAggregator aggregates session summaries across a batch.
//
// Thread-safe: all methods can be called concurrently.
type BatchAggregator struct {
	mu        sync.Mutex
	quantiles []float64
	startTime time.Time

	metrics    map[Metric]*digestStat
	perFormat  map[string]int
	perBrowser map[string]int

	sessions int
	joined   int
	stalled  int
	trimmed  int
	issues   int
	failures int
	recent   []Failure
}

// NewBatchAggregator creates an aggregator reporting the given quantiles.
func NewBatchAggregator(quantiles []float64, compression float64) *BatchAggregator {
	qs := append([]float64(nil), quantiles...)
	sort.Float64s(qs)
	a := &BatchAggregator{
		quantiles:  qs,
		startTime:  time.Now(),
		metrics:    make(map[Metric]*digestStat, len(Metrics)),
		perFormat:  make(map[string]int),
		perBrowser: make(map[string]int),
	}
	for _, m := range Metrics {
		a.metrics[m] = newDigestStat(compression)
	}
	return a
}

// Add folds one session into the aggregate. Join time and startup offset
// only count sessions where they were observed.
func (a *BatchAggregator) Add(s SessionSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sessions++
	a.perFormat[s.Format]++
	if s.Browser != "" {
		a.perBrowser[s.Browser]++
	}
	a.issues += s.Issues
	if s.Trimmed {
		a.trimmed++
	}

	if s.Joined {
		a.joined++
		a.metrics[MetricJoinTime].add(s.JoinTime)
	}
	if s.HasStartup {
		a.metrics[MetricStartupOffset].add(s.StartupOffset)
	}
	if s.StallCount > 0 {
		a.stalled++
	}
	a.metrics[MetricStallCount].add(float64(s.StallCount))
	a.metrics[MetricStallTime].add(s.StallTime)
	a.metrics[MetricBitrateChanges].add(float64(s.BitrateUps + s.BitrateDowns))
}

// AddFailure records a session that failed to build.
func (a *BatchAggregator) AddFailure(path string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failures++
	f := Failure{Path: path}
	if err != nil {
		f.Error = err.Error()
	}
	a.recent = append(a.recent, f)
	if len(a.recent) > MaxRecentFailures {
		a.recent = a.recent[len(a.recent)-MaxRecentFailures:]
	}
}

// Processed returns the number of sessions and failures seen so far.
func (a *BatchAggregator) Processed() (sessions, failures int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions, a.failures
}

// Quantiles returns the configured quantiles in ascending order.
func (a *BatchAggregator) Quantiles() []float64 {
	return append([]float64(nil), a.quantiles...)
}

// StartTime returns when the aggregator was created.
func (a *BatchAggregator) StartTime() time.Time {
	return a.startTime
}

// Aggregate returns a snapshot of the batch so far.
func (a *BatchAggregator) Aggregate() *BatchResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	r := &BatchResult{
		Timestamp:      now,
		Elapsed:        now.Sub(a.startTime),
		Sessions:       a.sessions,
		Failures:       a.failures,
		Joined:         a.joined,
		Stalled:        a.stalled,
		Trimmed:        a.trimmed,
		Issues:         a.issues,
		PerFormat:      copyCounts(a.perFormat),
		PerBrowser:     copyCounts(a.perBrowser),
		RecentFailures: append([]Failure(nil), a.recent...),
	}
	for _, m := range Metrics {
		r.Metrics = append(r.Metrics, a.metrics[m].snapshot(m, a.quantiles))
	}
	return r
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
