package config

import (
	"errors"
	"fmt"
	"net"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// All problems are reported together, joined with errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Input == "" {
		errs = append(errs, ValidationError{
			Field:   "input",
			Message: "capture file or directory is required",
		})
	}

	validFormats := map[string]bool{FormatAll: true, FormatElement: true, FormatOverlay: true}
	if !validFormats[cfg.Format] {
		errs = append(errs, ValidationError{
			Field:   "format",
			Message: fmt.Sprintf("must be one of: all, element, overlay (got %q)", cfg.Format),
		})
	}

	if cfg.Workers < 1 {
		errs = append(errs, ValidationError{
			Field:   "workers",
			Message: "must be at least 1",
		})
	}

	if len(cfg.Quantiles) == 0 {
		errs = append(errs, ValidationError{
			Field:   "quantiles",
			Message: "at least one quantile is required",
		})
	}
	for _, q := range cfg.Quantiles {
		if q < 0 || q > 1 {
			errs = append(errs, ValidationError{
				Field:   "quantiles",
				Message: fmt.Sprintf("must be within [0, 1] (got %v)", q),
			})
		}
	}

	if cfg.Compression < 1 {
		errs = append(errs, ValidationError{
			Field:   "compression",
			Message: "must be at least 1",
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: fmt.Sprintf("must be host:port (%v)", err),
			})
		}
	}

	if !oneOf(cfg.LogFormat, "json", "text") {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}
	if !oneOf(cfg.LogLevel, "debug", "info", "warn", "warning", "error") {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}
	if !oneOf(cfg.ReportFormat, "json", "text") {
		errs = append(errs, ValidationError{
			Field:   "report_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.ReportFormat),
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateCorrelate checks the settings the correlate command needs on top
// of Validate.
func ValidateCorrelate(cfg *Config) error {
	var errs []error
	if cfg.Requests == "" {
		errs = append(errs, ValidationError{
			Field:   "requests",
			Message: "request-history file is required",
		})
	}
	if cfg.CDNHost == "" {
		errs = append(errs, ValidationError{
			Field:   "cdn_host",
			Message: "must not be empty",
		})
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
