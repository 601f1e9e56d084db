package correlate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// RequestHistory is a browser web-request log keyed by request id.
type RequestHistory struct {
	Entries map[string]RequestEntry

	// Malformed lists the ids of entries that were not request objects.
	Malformed []string
}

// RequestEntry pairs the before-request and completed callbacks of one
// request. Either side may be missing in a truncated capture.
type RequestEntry struct {
	Before    *BeforeRequest `json:"OnBeforeRequestOptions"`
	Completed *Completed     `json:"onCompleted"`
}

// BeforeRequest is the request as issued.
type BeforeRequest struct {
	URL       string  `json:"url"`
	TimeStamp float64 `json:"timeStamp"`
}

// Completed is the request as finished.
type Completed struct {
	IP              string   `json:"ip"`
	TimeStamp       float64  `json:"timeStamp"`
	URL             string   `json:"url"`
	Method          string   `json:"method"`
	StatusCode      int      `json:"statusCode"`
	ResponseHeaders []Header `json:"responseHeaders"`
}

// Header is one response header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DecodeHistory reads a request history document. Entries that do not
// decode are listed in Malformed instead of failing the document.
func DecodeHistory(r io.Reader) (*RequestHistory, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode request history: %w", err)
	}

	h := &RequestHistory{Entries: make(map[string]RequestEntry, len(raw))}
	for id, msg := range raw {
		var e RequestEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			h.Malformed = append(h.Malformed, id)
			continue
		}
		h.Entries[id] = e
	}
	sort.Strings(h.Malformed)
	return h, nil
}

// LoadHistory reads a request history file.
func LoadHistory(path string) (*RequestHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open request history: %w", err)
	}
	defer f.Close()
	return DecodeHistory(f)
}
