// Package orchestrator runs a batch: it discovers capture files, builds
// their sessions on a bounded worker pool and folds the results into the
// aggregator, the metrics collector and the final report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/randomizedcoder/go-playback-qoe/internal/config"
	"github.com/randomizedcoder/go-playback-qoe/internal/logging"
	"github.com/randomizedcoder/go-playback-qoe/internal/metrics"
	"github.com/randomizedcoder/go-playback-qoe/internal/preflight"
	"github.com/randomizedcoder/go-playback-qoe/internal/session"
	"github.com/randomizedcoder/go-playback-qoe/internal/stats"
	"github.com/randomizedcoder/go-playback-qoe/internal/timeseries"
)

const (
	progressInterval    = time.Second
	progressLogInterval = 10 * time.Second
	shutdownTimeout     = 5 * time.Second

	// topIssueSignals is how many signals the summary lists.
	topIssueSignals = 5
)

// Callbacks are invoked from worker goroutines as the batch progresses.
// Any of them may be nil.
type Callbacks struct {
	OnDiscovered func(total int)
	OnSession    func(path string, summary stats.SessionSummary)
	OnFailure    func(path string, err error)
}

// Orchestrator coordinates all components of a batch run.
type Orchestrator struct {
	config  *config.Config
	logger  *slog.Logger
	version string
	runID   string
	out     io.Writer

	issues        *logging.FieldIssueLog
	aggregator    *stats.BatchAggregator
	metrics       *metrics.Collector
	metricsServer *metrics.Server
	rate          *timeseries.RateTracker
	callbacks     Callbacks

	startTime  time.Time
	discovered atomic.Int64
	done       atomic.Bool
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, version string) *Orchestrator {
	runID := uuid.NewString()

	collector := metrics.NewCollector(metrics.CollectorConfig{
		RunID:          runID,
		Version:        version,
		Input:          cfg.Input,
		Format:         cfg.Format,
		Workers:        cfg.Workers,
		RuntimeMetrics: cfg.MetricsAddr != "",
	})

	o := &Orchestrator{
		config:     cfg,
		logger:     logger,
		version:    version,
		runID:      runID,
		out:        os.Stdout,
		issues:     logging.NewFieldIssueLog(logger, cfg.Verbose),
		aggregator: stats.NewBatchAggregator(cfg.Quantiles, cfg.Compression),
		metrics:    collector,
		rate:       timeseries.NewRateTracker(),
		startTime:  time.Now(),
	}
	if cfg.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(cfg.MetricsAddr, collector.Registry(), logger)
	}
	return o
}

// SetCallbacks installs progress callbacks. Call before Run.
func (o *Orchestrator) SetCallbacks(cb Callbacks) {
	o.callbacks = cb
}

// SetOutput redirects the preflight report, stdout by default.
func (o *Orchestrator) SetOutput(w io.Writer) {
	o.out = w
}

// Result describes a finished batch.
type Result struct {
	RunID       string
	Input       string
	Discovered  int
	Duration    time.Duration
	Interrupted bool
	MetricsAddr string
	Batch       *stats.BatchResult
	TopIssues   []stats.IssueCount
}

// Summary renders the exit summary.
func (r *Result) Summary() string {
	return stats.FormatBatchSummary(r.Batch, stats.SummaryConfig{
		RunID:       r.RunID,
		Input:       r.Input,
		Discovered:  r.Discovered,
		Duration:    r.Duration,
		MetricsAddr: r.MetricsAddr,
		TopIssues:   r.TopIssues,
	})
}

// Run executes the batch. It blocks until every discovered file has been
// processed or ctx is cancelled (SIGINT and SIGTERM cancel it too). An
// interrupted batch still returns the partial result.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	o.startTime = time.Now()

	// Run preflight checks
	if !o.config.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			Input:    o.config.Input,
			Workers:  o.config.Workers,
			Output:   o.config.Output,
			Textfile: o.config.MetricsTextfile,
		})
		preflight.PrintResults(o.out, result)
		if !result.Passed {
			return nil, fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
		}
	}

	filter, err := o.filter()
	if err != nil {
		return nil, err
	}
	captures, err := Discover(o.config.Input, o.config.Recursive, filter)
	if err != nil {
		return nil, fmt.Errorf("discover captures: %w", err)
	}
	o.discovered.Store(int64(len(captures)))
	o.metrics.SetDiscovered(len(captures))
	if cb := o.callbacks.OnDiscovered; cb != nil {
		cb(len(captures))
	}

	// Start metrics server
	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	o.logger.Info("batch_starting",
		"run_id", o.runID,
		"input", o.config.Input,
		"files", len(captures),
		"workers", o.config.Workers,
	)

	// Setup signal handling
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	stopProgress := make(chan struct{})
	var progressWG sync.WaitGroup
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		o.trackProgress(stopProgress)
	}()

	o.processAll(ctx, captures)

	close(stopProgress)
	progressWG.Wait()
	o.rate.Sample()
	o.metrics.SetRate(o.rate.Stats().Rate10s)
	o.done.Store(true)

	res := o.result()
	res.Interrupted = ctx.Err() != nil
	if res.Interrupted {
		o.logger.Warn("batch_interrupted",
			"processed", res.Batch.Sessions+res.Batch.Failures,
			"discovered", res.Discovered,
		)
	}
	o.logger.Info("batch_complete",
		"run_id", o.runID,
		"sessions", res.Batch.Sessions,
		"failures", res.Batch.Failures,
		"issues", res.Batch.Issues,
		"duration", res.Duration.String(),
	)

	var errs []error
	if o.config.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(o.config.MetricsTextfile, o.metrics.Registry()); err != nil {
			errs = append(errs, err)
		} else {
			o.logger.Info("metrics_textfile_written", "path", o.config.MetricsTextfile)
		}
	}
	if o.config.Output != "" {
		if err := WriteReport(o.config.Output, o.report(res)); err != nil {
			errs = append(errs, err)
		} else {
			o.logger.Info("report_written", "path", o.config.Output)
		}
	}

	if o.metricsServer != nil {
		o.metricsServer.SetDone()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("metrics_server_shutdown_error", "error", err)
		}
	}

	return res, errors.Join(errs...)
}

func (o *Orchestrator) filter() (Filter, error) {
	f := Filter{Device: o.config.Device}
	if o.config.Format != config.FormatAll {
		format, err := session.ParseFormat(o.config.Format)
		if err != nil {
			return Filter{}, err
		}
		f.Format = format
	}
	return f, nil
}

// processAll fans captures out to at most Workers goroutines. Sessions are
// independent so no ordering is kept between them.
func (o *Orchestrator) processAll(ctx context.Context, captures []Capture) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)

	for _, c := range captures {
		if gctx.Err() != nil {
			break
		}
		c := c
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			o.process(c)
			return nil
		})
	}
	_ = g.Wait()
}

// issueFanout hands every field issue to each recorder.
type issueFanout []session.IssueRecorder

func (f issueFanout) RecordIssue(tick int, signal string, err error) {
	for _, rec := range f {
		rec.RecordIssue(tick, signal, err)
	}
}

// process builds one capture. Fatal parse errors skip the file; the batch
// carries on.
func (o *Orchestrator) process(c Capture) {
	src := o.issues.ForSource(c.Path)
	s, err := session.Open(c.Path, c.Format,
		session.WithIssueRecorder(issueFanout{src, o.metrics}))
	if err != nil {
		o.fail(c.Path, err)
		return
	}

	sum := stats.Summarize(s)
	sum.Path = c.Path
	if sum.Device == "" {
		sum.Device = c.Device
	}
	sum.Issues = src.Count()

	o.aggregator.Add(sum)
	o.metrics.RecordSession(sessionUpdate(sum, s.Stalls()))
	o.rate.Add(1)

	o.logger.Debug("session_parsed",
		"path", c.Path,
		"format", sum.Format,
		"samples", sum.Samples,
		"join_time", sum.JoinTime,
		"stalls", sum.StallCount,
		"issues", sum.Issues,
	)
	if cb := o.callbacks.OnSession; cb != nil {
		cb(c.Path, sum)
	}
}

func (o *Orchestrator) fail(path string, err error) {
	reason := metrics.ReasonRead
	if errors.Is(err, session.ErrUnparsable) {
		reason = metrics.ReasonUnparsable
	}
	o.logger.Warn("session_skipped", "path", path, "reason", reason, "error", err)

	o.aggregator.AddFailure(path, err)
	o.metrics.RecordFailure(reason)
	o.rate.Add(1)

	if cb := o.callbacks.OnFailure; cb != nil {
		cb(path, err)
	}
}

func sessionUpdate(sum stats.SessionSummary, stalls []session.Stall) metrics.SessionUpdate {
	u := metrics.SessionUpdate{
		Format:        sum.Format,
		Joined:        sum.Joined,
		JoinTime:      sum.JoinTime,
		HasStartup:    sum.HasStartup,
		StartupOffset: sum.StartupOffset,
		Stalls:        make([]float64, len(stalls)),
		BitrateUps:    sum.BitrateUps,
		BitrateDowns:  sum.BitrateDowns,
		Trimmed:       sum.Trimmed,
	}
	for i, st := range stalls {
		u.Stalls[i] = st.Duration()
	}
	return u
}

// trackProgress samples the processing rate until stop is closed.
func (o *Orchestrator) trackProgress(stop <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	lastLog := time.Now()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.rate.Sample()
			rs := o.rate.Stats()
			o.metrics.SetRate(rs.Rate10s)

			if time.Since(lastLog) < progressLogInterval {
				continue
			}
			lastLog = time.Now()
			total := o.discovered.Load()
			o.logger.Info("batch_progress",
				"processed", rs.Total,
				"discovered", total,
				"rate", rs.Rate10s,
				"eta", o.rate.ETA(total-rs.Total).String(),
			)
		}
	}
}

func (o *Orchestrator) result() *Result {
	res := &Result{
		RunID:      o.runID,
		Input:      o.config.Input,
		Discovered: int(o.discovered.Load()),
		Duration:   time.Since(o.startTime),
		Batch:      o.aggregator.Aggregate(),
		TopIssues:  o.topIssues(),
	}
	if o.metricsServer != nil {
		res.MetricsAddr = o.metricsServer.Addr()
	}
	return res
}

func (o *Orchestrator) topIssues() []stats.IssueCount {
	top := o.issues.TopSignals(topIssueSignals)
	out := make([]stats.IssueCount, len(top))
	for i, sc := range top {
		out[i] = stats.IssueCount{Signal: sc.Signal, Count: sc.Count}
	}
	return out
}

// Progress is a point-in-time view of a running batch.
type Progress struct {
	RunID      string
	Discovered int
	Done       bool
	Batch      *stats.BatchResult
	Rate       timeseries.RateStats
	ETA        time.Duration
	Issues     []logging.Issue
}

// Progress returns the batch state so far. Safe to call from any goroutine.
func (o *Orchestrator) Progress() Progress {
	rs := o.rate.Stats()
	total := o.discovered.Load()
	return Progress{
		RunID:      o.runID,
		Discovered: int(total),
		Done:       o.done.Load(),
		Batch:      o.aggregator.Aggregate(),
		Rate:       rs,
		ETA:        o.rate.ETA(total - rs.Total),
		Issues:     o.issues.Recent(5),
	}
}

// RunID returns the identifier of this batch.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Quantiles returns the quantiles the batch reports.
func (o *Orchestrator) Quantiles() []float64 {
	return o.aggregator.Quantiles()
}
