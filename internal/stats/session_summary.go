package stats

import (
	"github.com/randomizedcoder/go-playback-qoe/internal/session"
)

// SessionSummary is the per-session QoE digest fed to the batch aggregator.
type SessionSummary struct {
	Path    string `json:"path,omitempty"`
	Format  string `json:"format"`
	MovieID string `json:"movie_id"`
	Device  string `json:"device,omitempty"`
	Browser string `json:"browser,omitempty"`

	Samples int `json:"samples"`

	// Joined is false when playback never started; JoinTime is then 0.
	Joined   bool    `json:"joined"`
	JoinTime float64 `json:"join_time"`

	StallCount int     `json:"stall_count"`
	StallTime  float64 `json:"stall_time"`

	BitrateUps   int `json:"bitrate_ups"`
	BitrateDowns int `json:"bitrate_downs"`

	// StartupOffset is the timestamp of the first sample with a positive
	// playback position.
	HasStartup    bool    `json:"has_startup"`
	StartupOffset float64 `json:"startup_offset"`

	Issues  int  `json:"issues"`
	Trimmed bool `json:"trimmed,omitempty"`
}

// Summarize digests a built session.
func Summarize(s session.Session) SessionSummary {
	sum := SessionSummary{
		Format:   string(s.Format()),
		MovieID:  s.MovieID(),
		Samples:  s.Len(),
		JoinTime: s.JoinTime(),
	}

	switch v := s.(type) {
	case *session.ElementSession:
		sum.Trimmed = v.Trimmed()
		for _, ev := range v.Events() {
			if ev.Code == session.ElementSchema.JoinEvent {
				sum.Joined = true
				break
			}
		}
	case *session.OverlaySession:
		sum.Device = v.Device()
		sum.Browser = v.Client().Browser
		for _, rs := range v.RenderingStates() {
			if rs == session.OverlaySchema.PlayingState {
				sum.Joined = true
				break
			}
		}
	}

	for _, st := range s.Stalls() {
		sum.StallCount++
		sum.StallTime += st.Duration()
	}
	for _, c := range s.BitrateChanges() {
		if c.Direction == session.DirectionUp {
			sum.BitrateUps++
		} else {
			sum.BitrateDowns++
		}
	}

	ts := s.Timestamps()
	for i, pos := range s.Positions() {
		if pos > 0 {
			sum.HasStartup = true
			sum.StartupOffset = ts[i]
			break
		}
	}
	return sum
}
