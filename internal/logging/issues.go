package logging

import (
	"log/slog"
	"sort"
	"sync"
)

// MaxRecentIssues is how many field issues a FieldIssueLog keeps for the
// summary and the dashboard.
const MaxRecentIssues = 100

// Issue is one recoverable field-level condition absorbed during ingestion.
type Issue struct {
	Source string
	Tick   int
	Signal string
	Detail string
}

// FieldIssueLog absorbs malformed-field conditions reported while sessions
// are built. Recent issues are kept in a ring buffer and counted per signal;
// each one is logged at debug level when verbose.
//
// It is safe for concurrent use so one log can be shared by a worker pool.
type FieldIssueLog struct {
	logger  *slog.Logger
	verbose bool

	mu     sync.Mutex
	ring   []Issue
	next   int
	filled bool
	counts map[string]int
	total  int
}

// NewFieldIssueLog creates an issue log.
func NewFieldIssueLog(logger *slog.Logger, verbose bool) *FieldIssueLog {
	if logger == nil {
		logger = Discard()
	}
	return &FieldIssueLog{
		logger:  logger,
		verbose: verbose,
		ring:    make([]Issue, MaxRecentIssues),
		counts:  make(map[string]int),
	}
}

// ForSource returns a recorder that tags issues with source (usually the
// capture file) and shares this log's ring and counters.
func (l *FieldIssueLog) ForSource(source string) *SourceIssues {
	return &SourceIssues{log: l, source: source}
}

// RecordIssue records an issue with no source.
func (l *FieldIssueLog) RecordIssue(tick int, signal string, err error) {
	l.record("", tick, signal, err)
}

func (l *FieldIssueLog) record(source string, tick int, signal string, err error) {
	issue := Issue{Source: source, Tick: tick, Signal: signal}
	if err != nil {
		issue.Detail = err.Error()
	}

	l.mu.Lock()
	l.ring[l.next] = issue
	l.next = (l.next + 1) % len(l.ring)
	if l.next == 0 {
		l.filled = true
	}
	l.counts[signal]++
	l.total++
	l.mu.Unlock()

	if !l.verbose {
		return
	}
	l.logger.Debug("field_issue",
		"source", source,
		"tick", tick,
		"signal", signal,
		"detail", issue.Detail,
	)
}

// Recent returns up to n of the most recent issues, oldest first.
func (l *FieldIssueLog) Recent(n int) []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.next
	if l.filled {
		size = len(l.ring)
	}
	if n > size {
		n = size
	}
	out := make([]Issue, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.next - n + i + len(l.ring)) % len(l.ring)
		out = append(out, l.ring[idx])
	}
	return out
}

// Counts returns a copy of the per-signal issue counts.
func (l *FieldIssueLog) Counts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Total returns the number of issues recorded.
func (l *FieldIssueLog) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// SignalCount is a per-signal issue total.
type SignalCount struct {
	Signal string
	Count  int
}

// TopSignals returns the n signals with the most issues, most first.
func (l *FieldIssueLog) TopSignals(n int) []SignalCount {
	counts := l.Counts()
	out := make([]SignalCount, 0, len(counts))
	for s, c := range counts {
		out = append(out, SignalCount{Signal: s, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Signal < out[j].Signal
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SourceIssues records into a shared FieldIssueLog under a fixed source.
type SourceIssues struct {
	log    *FieldIssueLog
	source string
	count  int
}

// RecordIssue records an issue for this source.
func (s *SourceIssues) RecordIssue(tick int, signal string, err error) {
	s.count++
	s.log.record(s.source, tick, signal, err)
}

// Count returns how many issues this source recorded.
func (s *SourceIssues) Count() int {
	return s.count
}
