// Package main provides the playback-qoe CLI entry point.
//
// playback-qoe turns captured browser playback telemetry into QoE metrics:
// join time, stalls, bitrate changes and aligned playback series. It
// inspects single captures, aggregates directories of them and correlates
// element captures with browser request logs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-playback-qoe/internal/config"
	"github.com/randomizedcoder/go-playback-qoe/internal/correlate"
	"github.com/randomizedcoder/go-playback-qoe/internal/logging"
	"github.com/randomizedcoder/go-playback-qoe/internal/orchestrator"
	"github.com/randomizedcoder/go-playback-qoe/internal/session"
	"github.com/randomizedcoder/go-playback-qoe/internal/stats"
	"github.com/randomizedcoder/go-playback-qoe/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/playback-qoe
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "playback-qoe",
		Short:         "Derive playback QoE metrics from captured browser telemetry",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("playback-qoe {{.Version}}\n")

	root.AddCommand(newInspectCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newCorrelateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// setup merges the config file, validates and installs the logger.
func setup(cmd *cobra.Command, cfg *config.Config, configPath string) (*slog.Logger, error) {
	if err := config.ApplyFile(cfg, cmd.Flags(), configPath); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.Discard()
	} else {
		logger = logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	}
	logging.SetDefault(logger)
	return logger, nil
}

// =============================================================================
// inspect
// =============================================================================

func newInspectCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var configPath *string

	cmd := &cobra.Command{
		Use:   "inspect <capture.json>",
		Short: "Build one session and print its derived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := setup(cmd, cfg, *configPath)
			if err != nil {
				return err
			}
			path := args[0]

			format, err := inspectFormat(cfg, path)
			if err != nil {
				return err
			}

			issues := logging.NewFieldIssueLog(logger, cfg.Verbose).ForSource(path)
			s, err := session.Open(path, format, session.WithIssueRecorder(issues))
			if err != nil {
				return err
			}
			logger.Debug("session_parsed",
				"path", path,
				"format", format,
				"samples", s.Len(),
				"issues", issues.Count(),
			)

			out := cmd.OutOrStdout()
			if cfg.ReportFormat == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s.Report())
			}
			fmt.Fprint(out, stats.FormatSession(path, s.Report(), issues.Count()))
			return nil
		},
	}
	configPath = config.BindCommonFlags(cmd.Flags(), cfg)
	config.BindInspectFlags(cmd.Flags(), cfg)
	return cmd
}

// inspectFormat takes the format from --format, or from the capture
// filename when the filter is "all".
func inspectFormat(cfg *config.Config, path string) (session.Format, error) {
	if cfg.Format != config.FormatAll {
		return session.ParseFormat(cfg.Format)
	}
	_, format, err := orchestrator.ParseCaptureName(path)
	if err != nil {
		return "", fmt.Errorf("cannot infer format, pass --format: %w", err)
	}
	return format, nil
}

// =============================================================================
// batch
// =============================================================================

func newBatchCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var configPath *string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Aggregate QoE metrics over a directory of captures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := setup(cmd, cfg, *configPath)
			if err != nil {
				return err
			}

			logger.Info("starting",
				"version", version,
				"input", cfg.Input,
				"format", cfg.Format,
				"workers", cfg.Workers,
				"metrics_addr", cfg.MetricsAddr,
			)

			orch := orchestrator.New(cfg, logger, version)
			out := cmd.OutOrStdout()
			orch.SetOutput(out)

			if !cfg.TUIEnabled {
				printBanner(out, cfg, orch.RunID())
				res, err := orch.Run(cmd.Context())
				if res != nil {
					fmt.Fprint(out, res.Summary())
				}
				return err
			}
			return runWithTUI(cmd.Context(), out, cfg, orch)
		},
	}
	configPath = config.BindCommonFlags(cmd.Flags(), cfg)
	config.BindBatchFlags(cmd.Flags(), cfg)
	return cmd
}

// runWithTUI runs the batch behind the dashboard. Quitting the dashboard
// interrupts the batch; the summary is printed once the screen is restored.
func runWithTUI(ctx context.Context, out io.Writer, cfg *config.Config, orch *orchestrator.Orchestrator) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	orch.SetOutput(io.Discard)
	program := tea.NewProgram(tui.New(tui.Config{
		Input:       cfg.Input,
		MetricsAddr: cfg.MetricsAddr,
		Source:      orch,
	}), tea.WithAltScreen())

	type outcome struct {
		res *orchestrator.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := orch.Run(ctx)
		tui.SendProgress(program, orch.Progress())
		tui.SendQuit(program)
		done <- outcome{res, err}
	}()

	_, tuiErr := program.Run()
	cancel()
	o := <-done

	if o.res != nil {
		fmt.Fprint(out, o.res.Summary())
	}
	if tuiErr != nil {
		return fmt.Errorf("tui: %w", tuiErr)
	}
	return o.err
}

// printBanner prints the startup banner.
func printBanner(w io.Writer, cfg *config.Config, runID string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║                          playback-qoe                             ║")
	fmt.Fprintln(w, "║         QoE metrics from captured playback telemetry              ║")
	fmt.Fprintln(w, "╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Run:         %s\n", runID)
	fmt.Fprintf(w, "  Input:       %s\n", cfg.Input)
	fmt.Fprintf(w, "  Format:      %s\n", cfg.Format)
	if cfg.Device != "" {
		fmt.Fprintf(w, "  Device:      %s\n", cfg.Device)
	}
	fmt.Fprintf(w, "  Workers:     %d\n", cfg.Workers)
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(w, "  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Fprintln(w)
}

// =============================================================================
// correlate
// =============================================================================

func newCorrelateCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var configPath *string

	cmd := &cobra.Command{
		Use:   "correlate <capture.json>",
		Short: "Attach playback state to the media requests of an element capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := setup(cmd, cfg, *configPath)
			if err != nil {
				return err
			}
			if err := config.ValidateCorrelate(cfg); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			issues := logging.NewFieldIssueLog(logger, cfg.Verbose).ForSource(args[0])
			s, err := session.OpenElement(args[0], session.WithIssueRecorder(issues))
			if err != nil {
				return err
			}
			history, err := correlate.LoadHistory(cfg.Requests)
			if err != nil {
				return err
			}
			if n := len(history.Malformed); n > 0 {
				logger.Warn("request_entries_malformed", "path", cfg.Requests, "count", n)
			}

			result := correlate.New(cfg.CDNHost, logger).Correlate(s, history)

			if cfg.Output == "" {
				return correlate.WriteOutput(cmd.OutOrStdout(), result)
			}
			f, err := os.Create(cfg.Output)
			if err != nil {
				return fmt.Errorf("create %s: %w", cfg.Output, err)
			}
			if err := correlate.WriteOutput(f, result); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.Info("correlation_written", "path", cfg.Output, "requests", len(result.Vals))
			return nil
		},
	}
	configPath = config.BindCommonFlags(cmd.Flags(), cfg)
	config.BindCorrelateFlags(cmd.Flags(), cfg)
	return cmd
}

// =============================================================================
// version
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "playback-qoe %s\n", version)
		},
	}
}
