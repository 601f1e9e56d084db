package session

// Report is the derived output of a session: bounds, events and every
// aligned series. Format-specific fields are omitted when empty.
type Report struct {
	Format    Format  `json:"format"`
	MovieID   string  `json:"movie_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Samples   int     `json:"samples"`

	JoinTime       float64         `json:"join_time"`
	Stalls         []Stall         `json:"stalls"`
	BitrateChanges []BitrateChange `json:"bitrate_changes"`

	Timestamps  []float64    `json:"timestamps"`
	Positions   []float64    `json:"positions"`
	ReadyStates []int        `json:"ready_states"`
	Resolutions []Resolution `json:"resolutions"`

	// Element captures.
	Version           string             `json:"version,omitempty"`
	Trimmed           bool               `json:"trimmed,omitempty"`
	Buffers           [][]BufferInterval `json:"buffers,omitempty"`
	BufferDurations   []float64          `json:"buffer_durations,omitempty"`
	VideoRates        []float64          `json:"video_rates,omitempty"`
	DecodedVideoBytes []int64            `json:"decoded_video_bytes,omitempty"`
	Durations         []float64          `json:"durations,omitempty"`
	Events            []Event            `json:"events,omitempty"`

	// Overlay captures.
	Device            string        `json:"device,omitempty"`
	Client            *Client       `json:"client,omitempty"`
	PlayerVersion     string        `json:"player_version,omitempty"`
	ShortcutTime      float64       `json:"shortcut_time,omitempty"`
	BufferStalls      []Stall       `json:"buffer_stalls,omitempty"`
	BufferingBitrates []float64     `json:"buffering_bitrates,omitempty"`
	PlayingBitrates   []float64     `json:"playing_bitrates,omitempty"`
	BufferBytes       []AV[int64]   `json:"buffer_bytes,omitempty"`
	BufferSeconds     []AV[float64] `json:"buffer_seconds,omitempty"`
	Throughputs       []float64     `json:"throughputs,omitempty"`
	RenderingStates   []string      `json:"rendering_states,omitempty"`
}

func (b *base) report() *Report {
	return &Report{
		Format:         b.schema.Format,
		MovieID:        b.movieID,
		StartTime:      b.start,
		EndTime:        b.end,
		Samples:        len(b.timestamps),
		JoinTime:       b.joinTime,
		Stalls:         b.stalls,
		BitrateChanges: b.changes,
		Timestamps:     b.timestamps,
		Positions:      b.positions,
		ReadyStates:    b.readyStates,
		Resolutions:    b.resolutions,
	}
}

// Report returns the derived output of the session.
func (s *ElementSession) Report() *Report {
	r := s.report()
	r.Version = s.version
	r.Trimmed = s.trimmed
	r.Buffers = s.buffers
	r.BufferDurations = s.bufferDurations
	r.VideoRates = s.videoRates
	r.DecodedVideoBytes = s.decoded
	r.Durations = s.durations
	r.Events = s.events
	return r
}

// Report returns the derived output of the session.
func (s *OverlaySession) Report() *Report {
	r := s.report()
	r.Device = s.device
	if s.client.UserAgent != "" {
		c := s.client
		r.Client = &c
	}
	r.PlayerVersion = s.playerVersion
	r.ShortcutTime = s.shortcutTime
	r.BufferStalls = s.bufferStalls
	r.BufferingBitrates = s.bufferingBitrates
	r.PlayingBitrates = s.playingBitrates
	r.BufferBytes = s.bufferBytes
	r.BufferSeconds = s.bufferSeconds
	r.Throughputs = s.throughputs
	r.RenderingStates = s.renderingStates
	return r
}
