package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Format != FormatAll {
		t.Errorf("Format = %q, want all", cfg.Format)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	want := []float64{0.25, 0.5, 0.75, 1}
	if len(cfg.Quantiles) != len(want) {
		t.Fatalf("Quantiles = %v, want %v", cfg.Quantiles, want)
	}
	for i := range want {
		if cfg.Quantiles[i] != want[i] {
			t.Errorf("Quantiles[%d] = %v, want %v", i, cfg.Quantiles[i], want[i])
		}
	}
	if cfg.CDNHost != "googlevideo" {
		t.Errorf("CDNHost = %q", cfg.CDNHost)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

// =============================================================================
// Validate
// =============================================================================

func TestValidate_Fields(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"empty input", func(c *Config) { c.Input = "" }, "input"},
		{"bad format", func(c *Config) { c.Format = "youtube" }, "format"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"no quantiles", func(c *Config) { c.Quantiles = nil }, "quantiles"},
		{"quantile above one", func(c *Config) { c.Quantiles = []float64{0.5, 50} }, "quantiles"},
		{"negative quantile", func(c *Config) { c.Quantiles = []float64{-0.1} }, "quantiles"},
		{"compression", func(c *Config) { c.Compression = 0 }, "compression"},
		{"metrics addr", func(c *Config) { c.MetricsAddr = "17092" }, "metrics_addr"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"report format", func(c *Config) { c.ReportFormat = "csv" }, "report_format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %T, want ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Errorf("Field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestValidate_MetricsAddrOK(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsAddr = "0.0.0.0:17092"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = ""
	cfg.Workers = -1
	cfg.LogFormat = "yaml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, field := range []string{"input", "workers", "log_format"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error %q missing %s", msg, field)
		}
	}
}

func TestValidateCorrelate(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateCorrelate(cfg); err == nil {
		t.Error("missing request history should fail")
	}
	cfg.Requests = "requests.json"
	if err := ValidateCorrelate(cfg); err != nil {
		t.Errorf("ValidateCorrelate: %v", err)
	}
	cfg.CDNHost = ""
	if err := ValidateCorrelate(cfg); err == nil {
		t.Error("empty cdn host should fail")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "workers", Message: "must be at least 1"}
	if got := err.Error(); got != "workers: must be at least 1" {
		t.Errorf("Error() = %q", got)
	}
}

// =============================================================================
// Flags and config file
// =============================================================================

func newBatchFlags(cfg *Config) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet("batch", pflag.ContinueOnError)
	path := BindCommonFlags(fs, cfg)
	BindBatchFlags(fs, cfg)
	return fs, path
}

func TestBindBatchFlags(t *testing.T) {
	cfg := DefaultConfig()
	fs, _ := newBatchFlags(cfg)

	err := fs.Parse([]string{"-i", "/data/sessions", "-w", "8", "-q", "0.5,0.9", "--format", "overlay", "--tui", "-v"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Input != "/data/sessions" || cfg.Workers != 8 || cfg.Format != FormatOverlay {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Quantiles) != 2 || cfg.Quantiles[1] != 0.9 {
		t.Errorf("Quantiles = %v", cfg.Quantiles)
	}
	if !cfg.TUIEnabled || !cfg.Verbose {
		t.Error("bool flags not bound")
	}
}

func TestFlagFieldsCoverBoundFlags(t *testing.T) {
	cfg := DefaultConfig()
	batch, _ := newBatchFlags(cfg)
	inspect := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	BindInspectFlags(inspect, cfg)
	correlate := pflag.NewFlagSet("correlate", pflag.ContinueOnError)
	BindCorrelateFlags(correlate, cfg)

	for _, fs := range []*pflag.FlagSet{batch, inspect, correlate} {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			if _, ok := flagFields[f.Name]; !ok {
				t.Errorf("flag %q has no file merge entry", f.Name)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qoe.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestApplyFile_ExpandsEnvOverDefaults(t *testing.T) {
	t.Setenv("QOE_DATA", "/srv/captures")
	path := writeConfig(t, `
input: ${QOE_DATA}/2017
format: element
workers: 16
quantiles: [0.5, 0.95]
metrics_addr: 127.0.0.1:17092
`)

	cfg := DefaultConfig()
	fs, _ := newBatchFlags(cfg)
	if err := ApplyFile(cfg, fs, path); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}
	if cfg.Input != "/srv/captures/2017" {
		t.Errorf("Input = %q, want expanded path", cfg.Input)
	}
	if cfg.Format != FormatElement || cfg.Workers != 16 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Quantiles) != 2 || cfg.Quantiles[0] != 0.5 {
		t.Errorf("Quantiles = %v", cfg.Quantiles)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("unset keys should keep defaults, LogFormat = %q", cfg.LogFormat)
	}
}

func TestApplyFile_Errors(t *testing.T) {
	cfg := DefaultConfig()
	fs, _ := newBatchFlags(cfg)
	if err := ApplyFile(cfg, fs, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if err := ApplyFile(cfg, fs, writeConfig(t, "workers: [1, 2")); err == nil {
		t.Error("invalid YAML should fail")
	}
}

func TestApplyFile_FlagsWin(t *testing.T) {
	path := writeConfig(t, "workers: 16\nformat: element\ndevice: 10.0.0.5\n")

	cfg := DefaultConfig()
	fs, _ := newBatchFlags(cfg)
	if err := fs.Parse([]string{"--workers", "2"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := ApplyFile(cfg, fs, path); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}

	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want flag value 2", cfg.Workers)
	}
	if cfg.Format != FormatElement || cfg.Device != "10.0.0.5" {
		t.Errorf("file values not applied: %+v", cfg)
	}
}

func TestApplyFile_EmptyPath(t *testing.T) {
	cfg := DefaultConfig()
	fs, _ := newBatchFlags(cfg)
	if err := ApplyFile(cfg, fs, ""); err != nil {
		t.Errorf("ApplyFile(\"\") = %v", err)
	}
}
