// Package config provides configuration management for playback-qoe.
package config

// Config holds all configuration options for the analysis commands.
type Config struct {
	// Input
	Input     string `json:"input" yaml:"input"`         // capture file or directory
	Recursive bool   `json:"recursive" yaml:"recursive"` // walk below <input>/<dir>/
	Format    string `json:"format" yaml:"format"`       // element, overlay, all
	Device    string `json:"device" yaml:"device"`       // filename device substring filter

	// Batch
	Workers     int       `json:"workers" yaml:"workers"`
	Quantiles   []float64 `json:"quantiles" yaml:"quantiles"`
	Compression float64   `json:"compression" yaml:"compression"` // t-digest compression
	Output      string    `json:"output" yaml:"output"`           // JSON report path, "" = none

	// Correlation
	Requests string `json:"requests" yaml:"requests"` // request-history JSON
	CDNHost  string `json:"cdn_host" yaml:"cdn_host"` // URL marker for media requests

	// Observability
	MetricsAddr     string `json:"metrics_addr" yaml:"metrics_addr"`         // "" = no HTTP server
	MetricsTextfile string `json:"metrics_textfile" yaml:"metrics_textfile"` // "" = no export
	Verbose         bool   `json:"verbose" yaml:"verbose"`
	LogFormat       string `json:"log_format" yaml:"log_format"` // json, text
	LogLevel        string `json:"log_level" yaml:"log_level"`

	// Output modes
	TUIEnabled    bool   `json:"tui" yaml:"tui"`
	ReportFormat  string `json:"report_format" yaml:"report_format"` // json, text
	SkipPreflight bool   `json:"skip_preflight" yaml:"skip_preflight"`
}

// Supported values for Config.Format.
const (
	FormatAll     = "all"
	FormatElement = "element"
	FormatOverlay = "overlay"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Input:  ".",
		Format: FormatAll,

		Workers:     4,
		Quantiles:   []float64{0.25, 0.5, 0.75, 1},
		Compression: 100,

		CDNHost: "googlevideo",

		LogFormat: "json",
		LogLevel:  "info",

		ReportFormat: "text",
	}
}
