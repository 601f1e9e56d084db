package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// loadInto reads a YAML config file over cfg. Environment variables
// (${VAR}) are expanded before parsing.
func loadInto(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// flagFields copies the field behind each flag name.
var flagFields = map[string]func(dst, src *Config){
	"verbose":          func(d, s *Config) { d.Verbose = s.Verbose },
	"log-format":       func(d, s *Config) { d.LogFormat = s.LogFormat },
	"log-level":        func(d, s *Config) { d.LogLevel = s.LogLevel },
	"format":           func(d, s *Config) { d.Format = s.Format },
	"input":            func(d, s *Config) { d.Input = s.Input },
	"recursive":        func(d, s *Config) { d.Recursive = s.Recursive },
	"device":           func(d, s *Config) { d.Device = s.Device },
	"workers":          func(d, s *Config) { d.Workers = s.Workers },
	"quantiles":        func(d, s *Config) { d.Quantiles = append([]float64(nil), s.Quantiles...) },
	"compression":      func(d, s *Config) { d.Compression = s.Compression },
	"output":           func(d, s *Config) { d.Output = s.Output },
	"metrics":          func(d, s *Config) { d.MetricsAddr = s.MetricsAddr },
	"metrics-textfile": func(d, s *Config) { d.MetricsTextfile = s.MetricsTextfile },
	"tui":              func(d, s *Config) { d.TUIEnabled = s.TUIEnabled },
	"skip-preflight":   func(d, s *Config) { d.SkipPreflight = s.SkipPreflight },
	"report":           func(d, s *Config) { d.ReportFormat = s.ReportFormat },
	"requests":         func(d, s *Config) { d.Requests = s.Requests },
	"cdn-host":         func(d, s *Config) { d.CDNHost = s.CDNHost },
}

// ApplyFile merges the YAML file at path into cfg, which already holds the
// parsed flag values. Flags set explicitly on the command line win over the
// file; the file wins over flag defaults. An empty path is a no-op.
func ApplyFile(cfg *Config, fs *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}
	flagged := *cfg
	if err := loadInto(cfg, path); err != nil {
		return err
	}
	fs.Visit(func(f *pflag.Flag) {
		if copyField, ok := flagFields[f.Name]; ok {
			copyField(cfg, &flagged)
		}
	})
	return nil
}
