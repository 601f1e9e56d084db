// Package correlate matches a browser request log against an element capture:
// each media download is annotated with the player state at the moment the
// request was issued and when it completed.
package correlate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/randomizedcoder/go-playback-qoe/internal/session"
)

// MaxStatus is the highest response status kept.
const MaxStatus = 204

var (
	errNotMedia   = errors.New("not a media request")
	errIncomplete = errors.New("request incomplete")
	errStatus     = errors.New("unsuccessful status")
	errQuery      = errors.New("media query incomplete")
)

// Snapshot is the player state at one instant. Fields are null when the
// instant falls outside the captured series.
type Snapshot struct {
	Closest *float64                 `json:"closest"`
	Buffer  []session.BufferInterval `json:"buffer"`
	Pos     *float64                 `json:"pos"`
}

// Request is one correlated media download.
type Request struct {
	IP          string `json:"ip"`
	StartTS     int64  `json:"start_ts"`
	EndTS       int64  `json:"end_ts"`
	URL         string `json:"url"`
	Method      string `json:"method"`
	Status      int    `json:"status"`
	ContentType string `json:"content-type"`
	Itag        string `json:"itag"`
	Resolution  int    `json:"resolution"`
	Range       string `json:"range"`
	Clen        string `json:"clen"`

	DownloadStart Snapshot `json:"download_start"`
	DownloadEnd   Snapshot `json:"download_end"`
}

// Output is the correlated document.
type Output struct {
	MovieID  string             `json:"movie_id"`
	Duration float64            `json:"duration"`
	StartTS  float64            `json:"startTs"`
	EndTS    float64            `json:"endTs"`
	Vals     map[string]Request `json:"vals"`
}

// Correlator annotates media requests with element session state.
type Correlator struct {
	cdnHost string
	logger  *slog.Logger
}

// New creates a correlator keeping requests whose URL contains cdnHost.
func New(cdnHost string, logger *slog.Logger) *Correlator {
	return &Correlator{cdnHost: cdnHost, logger: logger}
}

// Correlate builds the output for s. Requests that are not successful media
// downloads are skipped.
func (c *Correlator) Correlate(s *session.ElementSession, h *RequestHistory) *Output {
	out := &Output{
		MovieID:  s.MovieID(),
		Duration: lastDuration(s),
		StartTS:  s.StartTime(),
		EndTS:    s.EndTime(),
		Vals:     make(map[string]Request),
	}

	skipped := map[string]int{}
	for id, entry := range h.Entries {
		req, err := c.prepare(entry, s)
		if err != nil {
			skipped[err.Error()]++
			continue
		}
		out.Vals[id] = req
	}

	c.logger.Debug("requests_correlated",
		"movie_id", out.MovieID,
		"kept", len(out.Vals),
		"skipped", skipped,
		"malformed", len(h.Malformed),
	)
	return out
}

func (c *Correlator) prepare(e RequestEntry, s *session.ElementSession) (Request, error) {
	if e.Before == nil || !strings.Contains(e.Before.URL, c.cdnHost) {
		return Request{}, errNotMedia
	}
	if e.Completed == nil {
		return Request{}, errIncomplete
	}
	done := e.Completed
	if done.StatusCode > MaxStatus {
		return Request{}, errStatus
	}

	req := Request{
		IP:      done.IP,
		StartTS: int64(e.Before.TimeStamp),
		EndTS:   int64(done.TimeStamp),
		URL:     done.URL,
		Method:  done.Method,
		Status:  done.StatusCode,
	}
	for _, hdr := range done.ResponseHeaders {
		if hdr.Name == "content-type" {
			req.ContentType = hdr.Value
		}
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return Request{}, errQuery
	}
	q := u.Query()
	for _, key := range []string{"itag", "range", "clen"} {
		if _, ok := q[key]; !ok {
			return Request{}, errQuery
		}
	}
	req.Itag = q.Get("itag")
	req.Resolution = Resolution(req.Itag)
	req.Range = q.Get("range")
	req.Clen = q.Get("clen")

	req.DownloadStart = snapshotAt(s, float64(req.StartTS))
	req.DownloadEnd = snapshotAt(s, float64(req.EndTS))
	return req, nil
}

func snapshotAt(s *session.ElementSession, t float64) Snapshot {
	var snap Snapshot
	if ts, ok := s.TimestampAt(t); ok {
		snap.Closest = &ts
	}
	if buf, ok := s.BufferAt(t); ok {
		snap.Buffer = buf
	}
	if pos, ok := s.PositionAt(t); ok {
		snap.Pos = &pos
	}
	return snap
}

// lastDuration is the media duration last reported by the player.
func lastDuration(s *session.ElementSession) float64 {
	d := s.Durations()
	if len(d) == 0 {
		return 0
	}
	return d[len(d)-1]
}

// WriteOutput encodes out as indented JSON.
func WriteOutput(w io.Writer, out *Output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode correlation: %w", err)
	}
	return nil
}
