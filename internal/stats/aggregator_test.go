package stats

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// =============================================================================
// BatchAggregator
// =============================================================================

func TestBatchAggregator_Empty(t *testing.T) {
	agg := NewBatchAggregator([]float64{0.5, 1}, 100)
	r := agg.Aggregate()

	if r.Sessions != 0 || r.Failures != 0 {
		t.Errorf("counts = %d/%d", r.Sessions, r.Failures)
	}
	if len(r.Metrics) != len(Metrics) {
		t.Fatalf("len(Metrics) = %d, want %d", len(r.Metrics), len(Metrics))
	}
	for _, m := range r.Metrics {
		if m.Count != 0 || m.Mean != 0 || m.Min != 0 || m.Max != 0 {
			t.Errorf("%s = %+v, want zeros", m.Name, m)
		}
		for _, q := range m.Quantiles {
			if q.Value != 0 {
				t.Errorf("%s P%v = %v, want 0", m.Name, q.Q*100, q.Value)
			}
		}
	}
}

func TestBatchAggregator_JoinTimeQuantiles(t *testing.T) {
	agg := NewBatchAggregator([]float64{1, 0, 0.5}, 100)
	for _, jt := range []float64{100, 200, 300, 400} {
		agg.Add(SessionSummary{Format: "element", Joined: true, JoinTime: jt})
	}
	agg.Add(SessionSummary{Format: "element"}) // never joined

	r := agg.Aggregate()
	jt := r.Metric(MetricJoinTime)

	if jt.Count != 4 {
		t.Errorf("Count = %d, want 4 (unjoined sessions excluded)", jt.Count)
	}
	if jt.Mean != 250 || jt.Min != 100 || jt.Max != 400 {
		t.Errorf("mean/min/max = %v/%v/%v", jt.Mean, jt.Min, jt.Max)
	}
	if len(jt.Quantiles) != 3 {
		t.Fatalf("Quantiles = %+v", jt.Quantiles)
	}
	if jt.Quantiles[0].Q != 0 || jt.Quantiles[0].Value != 100 {
		t.Errorf("P0 = %+v, want exact min", jt.Quantiles[0])
	}
	if jt.Quantiles[2].Q != 1 || jt.Quantiles[2].Value != 400 {
		t.Errorf("P100 = %+v, want exact max", jt.Quantiles[2])
	}
	if med := jt.Quantiles[1].Value; med < 100 || med > 400 {
		t.Errorf("P50 = %v, outside observed range", med)
	}
	if r.Joined != 4 || r.Sessions != 5 {
		t.Errorf("Joined/Sessions = %d/%d", r.Joined, r.Sessions)
	}
}

func TestBatchAggregator_Counts(t *testing.T) {
	agg := NewBatchAggregator([]float64{0.5}, 100)
	agg.Add(SessionSummary{Format: "element", StallCount: 2, StallTime: 1500, Trimmed: true, Issues: 3})
	agg.Add(SessionSummary{Format: "overlay", Browser: "Chrome", BitrateUps: 1, BitrateDowns: 2})
	agg.Add(SessionSummary{Format: "overlay", Browser: "Firefox", HasStartup: true, StartupOffset: 2000})

	r := agg.Aggregate()

	if r.PerFormat["element"] != 1 || r.PerFormat["overlay"] != 2 {
		t.Errorf("PerFormat = %v", r.PerFormat)
	}
	if r.PerBrowser["Chrome"] != 1 || r.PerBrowser["Firefox"] != 1 || len(r.PerBrowser) != 2 {
		t.Errorf("PerBrowser = %v", r.PerBrowser)
	}
	if r.Stalled != 1 || r.Trimmed != 1 || r.Issues != 3 {
		t.Errorf("Stalled/Trimmed/Issues = %d/%d/%d", r.Stalled, r.Trimmed, r.Issues)
	}
	if m := r.Metric(MetricStallCount); m.Count != 3 || m.Max != 2 {
		t.Errorf("stall_count = %+v", m)
	}
	if m := r.Metric(MetricBitrateChanges); m.Max != 3 {
		t.Errorf("bitrate_changes max = %v, want 3", m.Max)
	}
	if m := r.Metric(MetricStartupOffset); m.Count != 1 || m.Mean != 2000 {
		t.Errorf("startup_offset = %+v", m)
	}
}

func TestBatchAggregator_Failures(t *testing.T) {
	agg := NewBatchAggregator([]float64{0.5}, 100)
	for i := 0; i < MaxRecentFailures+5; i++ {
		agg.AddFailure(fmt.Sprintf("f%d.json", i), errors.New("bad"))
	}
	agg.AddFailure("nil.json", nil)

	r := agg.Aggregate()
	if r.Failures != MaxRecentFailures+6 {
		t.Errorf("Failures = %d", r.Failures)
	}
	if len(r.RecentFailures) != MaxRecentFailures {
		t.Fatalf("len(RecentFailures) = %d", len(r.RecentFailures))
	}
	last := r.RecentFailures[len(r.RecentFailures)-1]
	if last.Path != "nil.json" || last.Error != "" {
		t.Errorf("last failure = %+v", last)
	}
	if r.RecentFailures[0].Path != "f6.json" {
		t.Errorf("oldest kept = %q, want f6.json", r.RecentFailures[0].Path)
	}
}

func TestBatchAggregator_QuantilesSortedAndCopied(t *testing.T) {
	in := []float64{0.75, 0.25}
	agg := NewBatchAggregator(in, 100)
	in[0] = 0.99

	qs := agg.Quantiles()
	if len(qs) != 2 || qs[0] != 0.25 || qs[1] != 0.75 {
		t.Errorf("Quantiles = %v", qs)
	}
	qs[0] = 0
	if agg.Quantiles()[0] != 0.25 {
		t.Error("Quantiles exposes internal slice")
	}
}

func TestBatchAggregator_SnapshotIsolation(t *testing.T) {
	agg := NewBatchAggregator([]float64{0.5}, 100)
	agg.Add(SessionSummary{Format: "element"})
	r := agg.Aggregate()
	r.PerFormat["element"] = 99

	if agg.Aggregate().PerFormat["element"] != 1 {
		t.Error("snapshot shares map with aggregator")
	}
}

func TestBatchAggregator_Concurrent(t *testing.T) {
	agg := NewBatchAggregator([]float64{0.5, 1}, 100)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				agg.Add(SessionSummary{Format: "overlay", Joined: true, JoinTime: float64(w*100 + i)})
				if i%10 == 0 {
					agg.AddFailure("x.json", errors.New("bad"))
				}
				_ = agg.Aggregate()
			}
		}(w)
	}
	wg.Wait()

	sessions, failures := agg.Processed()
	if sessions != 800 || failures != 80 {
		t.Errorf("Processed = %d/%d, want 800/80", sessions, failures)
	}
	if m := agg.Aggregate().Metric(MetricJoinTime); m.Max != 799 || m.Min != 0 {
		t.Errorf("join_time min/max = %v/%v", m.Min, m.Max)
	}
}
