package config

import (
	"github.com/spf13/pflag"
)

// BindCommonFlags registers the logging and config-file flags shared by every
// command. The returned pointer receives the --config path.
func BindCommonFlags(fs *pflag.FlagSet, cfg *Config) *string {
	path := fs.String("config", "", "YAML config file (flags override it)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging (debug level, field issues)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn", "error"`)
	return path
}

// BindInputFlags registers the capture selection flags.
func BindInputFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Format, "format", "f", cfg.Format, `Capture format: "element", "overlay" or "all"`)
}

// BindBatchFlags registers the flags of the batch command.
func BindBatchFlags(fs *pflag.FlagSet, cfg *Config) {
	BindInputFlags(fs, cfg)
	fs.StringVarP(&cfg.Input, "input", "i", cfg.Input, "Directory of capture sessions (<input>/<dir>/<file>.json)")
	fs.BoolVarP(&cfg.Recursive, "recursive", "r", cfg.Recursive, "Descend below the session directories")
	fs.StringVar(&cfg.Device, "device", cfg.Device, "Only files whose device/IP field contains this substring")
	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Sessions parsed concurrently")
	fs.Float64SliceVarP(&cfg.Quantiles, "quantiles", "q", cfg.Quantiles, "Quantiles to report (0..1)")
	fs.Float64Var(&cfg.Compression, "compression", cfg.Compression, "t-digest compression")
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Write the JSON batch report to this path")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, `Serve Prometheus metrics on this address (e.g. "0.0.0.0:17092")`)
	fs.StringVar(&cfg.MetricsTextfile, "metrics-textfile", cfg.MetricsTextfile, "Write metrics in text exposition format at batch end")
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Show the live batch dashboard")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
}

// BindInspectFlags registers the flags of the inspect command.
func BindInspectFlags(fs *pflag.FlagSet, cfg *Config) {
	BindInputFlags(fs, cfg)
	fs.StringVar(&cfg.ReportFormat, "report", cfg.ReportFormat, `Report format: "text" or "json"`)
}

// BindCorrelateFlags registers the flags of the correlate command.
func BindCorrelateFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Requests, "requests", cfg.Requests, "Browser request-history JSON")
	fs.StringVar(&cfg.CDNHost, "cdn-host", cfg.CDNHost, "URL substring identifying media requests")
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Write correlated requests here instead of stdout")
}
