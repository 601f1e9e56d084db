package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// =============================================================================
// Test Helpers
// =============================================================================

// newTestCollector creates a collector with an isolated registry.
func newTestCollector(cfg CollectorConfig) (*Collector, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(cfg, registry)
	return c, registry
}

// family returns the gathered family with the given name, or nil.
func family(t *testing.T, g prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// metricWith returns the metric in mf whose labels include all of labels.
func metricWith(mf *dto.MetricFamily, labels map[string]string) *dto.Metric {
	if mf == nil {
		return nil
	}
	for _, m := range mf.GetMetric() {
		matched := 0
		for _, lp := range m.GetLabel() {
			if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return m
		}
	}
	return nil
}

func counterValue(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	m := metricWith(family(t, g, name), labels)
	if m == nil {
		t.Fatalf("%s%v not found", name, labels)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	m := metricWith(family(t, g, name), labels)
	if m == nil {
		t.Fatalf("%s%v not found", name, labels)
	}
	return m.GetGauge().GetValue()
}

func histogramOf(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) *dto.Histogram {
	t.Helper()
	m := metricWith(family(t, g, name), labels)
	if m == nil {
		t.Fatalf("%s%v not found", name, labels)
	}
	return m.GetHistogram()
}

// =============================================================================
// Tests: NewCollector
// =============================================================================

func TestNewCollector(t *testing.T) {
	tests := []struct {
		name string
		cfg  CollectorConfig
	}{
		{
			name: "basic config",
			cfg:  CollectorConfig{RunID: "run-a", Version: "1.0", Input: "/data", Format: "all", Workers: 4},
		},
		{
			name: "single format",
			cfg:  CollectorConfig{RunID: "run-b", Version: "dev", Input: ".", Format: "overlay", Workers: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, reg := newTestCollector(tt.cfg)
			if c.Registry() != reg {
				t.Error("Registry() does not return the configured registry")
			}

			info := gaugeValue(t, reg, "playback_qoe_info", map[string]string{
				"run_id": tt.cfg.RunID,
				"format": tt.cfg.Format,
			})
			if info != 1 {
				t.Errorf("info = %v, want 1", info)
			}
			if w := gaugeValue(t, reg, "playback_qoe_workers", nil); w != float64(tt.cfg.Workers) {
				t.Errorf("workers = %v, want %d", w, tt.cfg.Workers)
			}
		})
	}
}

func TestNewCollector_OwnRegistry(t *testing.T) {
	// Two collectors must not collide on registration.
	a := NewCollector(CollectorConfig{RunID: "a"})
	b := NewCollector(CollectorConfig{RunID: "b"})
	if a.Registry() == b.Registry() {
		t.Error("collectors share a registry")
	}
}

func TestNewCollector_RuntimeMetrics(t *testing.T) {
	_, reg := newTestCollector(CollectorConfig{RuntimeMetrics: true})
	if family(t, reg, "go_goroutines") == nil {
		t.Error("go runtime metrics not registered")
	}

	_, plain := newTestCollector(CollectorConfig{})
	if family(t, plain, "go_goroutines") != nil {
		t.Error("runtime metrics registered without RuntimeMetrics")
	}
}

// =============================================================================
// Tests: Recording
// =============================================================================

func TestCollector_RecordSession(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})

	c.RecordSession(SessionUpdate{
		Format:        "element",
		Joined:        true,
		JoinTime:      1500,
		HasStartup:    true,
		StartupOffset: 2000,
		Stalls:        []float64{1000, 500},
		BitrateUps:    2,
		BitrateDowns:  1,
		Trimmed:       true,
	})
	c.RecordSession(SessionUpdate{Format: "overlay"})

	element := map[string]string{"format": "element"}
	if v := counterValue(t, reg, "playback_qoe_sessions_parsed_total", element); v != 1 {
		t.Errorf("sessions_parsed{element} = %v", v)
	}

	jt := histogramOf(t, reg, "playback_qoe_join_time_seconds", element)
	if jt.GetSampleCount() != 1 || jt.GetSampleSum() != 1.5 {
		t.Errorf("join_time count/sum = %d/%v, want 1/1.5", jt.GetSampleCount(), jt.GetSampleSum())
	}
	st := histogramOf(t, reg, "playback_qoe_stall_duration_seconds", element)
	if st.GetSampleCount() != 2 || st.GetSampleSum() != 1.5 {
		t.Errorf("stall_duration count/sum = %d/%v, want 2/1.5", st.GetSampleCount(), st.GetSampleSum())
	}
	so := histogramOf(t, reg, "playback_qoe_startup_offset_seconds", element)
	if so.GetSampleSum() != 2 {
		t.Errorf("startup_offset sum = %v, want 2", so.GetSampleSum())
	}

	if v := counterValue(t, reg, "playback_qoe_bitrate_switches_total", map[string]string{"format": "element", "direction": "up"}); v != 2 {
		t.Errorf("bitrate up = %v, want 2", v)
	}
	if v := counterValue(t, reg, "playback_qoe_bitrate_switches_total", map[string]string{"format": "element", "direction": "down"}); v != 1 {
		t.Errorf("bitrate down = %v, want 1", v)
	}
	if v := counterValue(t, reg, "playback_qoe_aborted_starts_total", nil); v != 1 {
		t.Errorf("aborted_starts = %v, want 1", v)
	}
	if v := counterValue(t, reg, "playback_qoe_sessions_not_joined_total", map[string]string{"format": "overlay"}); v != 1 {
		t.Errorf("not_joined{overlay} = %v, want 1", v)
	}

	perSession := histogramOf(t, reg, "playback_qoe_stalls_per_session", map[string]string{"format": "overlay"})
	if perSession.GetSampleCount() != 1 || perSession.GetSampleSum() != 0 {
		t.Errorf("stalls_per_session{overlay} = %d/%v, want 1/0", perSession.GetSampleCount(), perSession.GetSampleSum())
	}
}

func TestCollector_Progress(t *testing.T) {
	tests := []struct {
		name       string
		discovered int
		parsed     int
		failed     int
		want       float64
	}{
		{"nothing discovered", 0, 0, 0, 0},
		{"half done", 4, 1, 1, 0.5},
		{"complete", 2, 2, 0, 1},
		{"capped", 1, 2, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, reg := newTestCollector(CollectorConfig{})
			c.SetDiscovered(tt.discovered)
			for i := 0; i < tt.parsed; i++ {
				c.RecordSession(SessionUpdate{Format: "element"})
			}
			for i := 0; i < tt.failed; i++ {
				c.RecordFailure(ReasonUnparsable)
			}

			if got := gaugeValue(t, reg, "playback_qoe_batch_progress", nil); got != tt.want {
				t.Errorf("batch_progress = %v, want %v", got, tt.want)
			}
			parsed, failed := c.Processed()
			if parsed != tt.parsed || failed != tt.failed {
				t.Errorf("Processed = %d/%d", parsed, failed)
			}
		})
	}
}

func TestCollector_RecordFailure(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})
	c.RecordFailure(ReasonUnparsable)
	c.RecordFailure(ReasonUnparsable)
	c.RecordFailure(ReasonRead)

	if v := counterValue(t, reg, "playback_qoe_sessions_failed_total", map[string]string{"reason": ReasonUnparsable}); v != 2 {
		t.Errorf("failed{unparsable} = %v, want 2", v)
	}
	if v := counterValue(t, reg, "playback_qoe_sessions_failed_total", map[string]string{"reason": ReasonRead}); v != 1 {
		t.Errorf("failed{read} = %v, want 1", v)
	}
}

func TestCollector_RecordIssue(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})
	c.RecordIssue(3, "VHE", nil)
	c.RecordIssue(9, "VHE", nil)
	c.RecordIssue(1, "BBR", nil)

	if v := counterValue(t, reg, "playback_qoe_field_issues_total", map[string]string{"signal": "VHE"}); v != 2 {
		t.Errorf("field_issues{VHE} = %v, want 2", v)
	}
}

func TestCollector_SetRate(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})
	c.SetRate(42.5)
	if v := gaugeValue(t, reg, "playback_qoe_sessions_per_second", nil); v != 42.5 {
		t.Errorf("sessions_per_second = %v", v)
	}
}

// =============================================================================
// Tests: Thread Safety
// =============================================================================

func TestCollector_ThreadSafety(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})
	c.SetDiscovered(1000)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordSession(SessionUpdate{Format: "overlay", Joined: true, JoinTime: float64(j), Stalls: []float64{1}})
				c.RecordIssue(j, "Pos", nil)
				if j%10 == 0 {
					c.RecordFailure(ReasonUnparsable)
				}
				_, _ = c.Processed()
			}
		}()
	}
	wg.Wait()

	parsed, failed := c.Processed()
	if parsed != 500 || failed != 50 {
		t.Errorf("Processed = %d/%d, want 500/50", parsed, failed)
	}
	if v := counterValue(t, reg, "playback_qoe_field_issues_total", map[string]string{"signal": "Pos"}); v != 500 {
		t.Errorf("field_issues{Pos} = %v, want 500", v)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkCollector_RecordSession(b *testing.B) {
	c := NewCollector(CollectorConfig{})
	u := SessionUpdate{Format: "element", Joined: true, JoinTime: 800, Stalls: []float64{200, 1200}, BitrateUps: 1}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.RecordSession(u)
	}
}
