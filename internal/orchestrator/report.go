package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/randomizedcoder/go-playback-qoe/internal/stats"
)

// Report is the JSON batch report written with --output.
type Report struct {
	RunID           string             `json:"run_id"`
	Version         string             `json:"version"`
	Input           string             `json:"input"`
	Format          string             `json:"format"`
	Device          string             `json:"device,omitempty"`
	StartedAt       time.Time          `json:"started_at"`
	DurationSeconds float64            `json:"duration_seconds"`
	Discovered      int                `json:"discovered"`
	Interrupted     bool               `json:"interrupted,omitempty"`
	Batch           *stats.BatchResult `json:"batch"`
	TopIssues       []stats.IssueCount `json:"top_issues,omitempty"`
}

func (o *Orchestrator) report(res *Result) *Report {
	return &Report{
		RunID:           res.RunID,
		Version:         o.version,
		Input:           res.Input,
		Format:          o.config.Format,
		Device:          o.config.Device,
		StartedAt:       o.startTime.UTC(),
		DurationSeconds: res.Duration.Seconds(),
		Discovered:      res.Discovered,
		Interrupted:     res.Interrupted,
		Batch:           res.Batch,
		TopIssues:       res.TopIssues,
	}
}

// WriteReport writes r as indented JSON to path.
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
