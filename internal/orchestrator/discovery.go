package orchestrator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/randomizedcoder/go-playback-qoe/internal/session"
)

// Capture is a session file selected for a batch.
type Capture struct {
	Path   string
	Device string
	Format session.Format
}

// ParseCaptureName decodes a capture filename of the form
// <prefix>_<device>_<code>[_...].json, where code is "y" for element and
// "n" for overlay captures.
func ParseCaptureName(name string) (device string, format session.Format, err error) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".json") {
		return "", "", fmt.Errorf("%s: not a json capture", base)
	}
	parts := strings.Split(strings.TrimSuffix(base, ".json"), "_")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%s: want <prefix>_<device>_<code>", base)
	}
	format, err = session.ParseFormat(parts[2])
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", base, err)
	}
	return parts[1], format, nil
}

// Filter selects captures by format and device substring. Zero values
// match everything.
type Filter struct {
	Format session.Format
	Device string
}

// Match reports whether c passes the filter.
func (f Filter) Match(c Capture) bool {
	if f.Format != "" && c.Format != f.Format {
		return false
	}
	return f.Device == "" || strings.Contains(c.Device, f.Device)
}

// Discover lists the captures below root matching filter, sorted by path.
// Without recursive, only <root>/<dir>/<file> is considered. Files whose
// name does not decode are skipped.
func Discover(root string, recursive bool, filter Filter) ([]Capture, error) {
	var paths []string

	if recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	} else {
		dirs, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", root, err)
		}
		for _, dir := range dirs {
			if !dir.IsDir() {
				continue
			}
			sub := filepath.Join(root, dir.Name())
			files, err := os.ReadDir(sub)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", sub, err)
			}
			for _, f := range files {
				if !f.IsDir() {
					paths = append(paths, filepath.Join(sub, f.Name()))
				}
			}
		}
	}

	var captures []Capture
	for _, p := range paths {
		device, format, err := ParseCaptureName(p)
		if err != nil {
			continue
		}
		c := Capture{Path: p, Device: device, Format: format}
		if filter.Match(c) {
			captures = append(captures, c)
		}
	}
	sort.Slice(captures, func(i, j int) bool {
		return captures[i].Path < captures[j].Path
	})
	return captures, nil
}
