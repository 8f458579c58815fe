package subway

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Station is a named stop. Identity is the name; Lines holds every line
// identifier the station was seen on while loading.
type Station struct {
	Name  string
	Lines map[string]struct{}
}

func newStation(name string) *Station {
	return &Station{Name: name, Lines: make(map[string]struct{})}
}

// clone returns a copy that shares no state with s.
func (s Station) clone() Station {
	lines := make(map[string]struct{}, len(s.Lines))
	for id := range s.Lines {
		lines[id] = struct{}{}
	}
	return Station{Name: s.Name, Lines: lines}
}

// LineIDs returns the station's line identifiers in sorted order.
func (s Station) LineIDs() []string {
	ids := make([]string, 0, len(s.Lines))
	for id := range s.Lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsTransfer reports whether the station is served by more than one line.
func (s Station) IsTransfer() bool { return len(s.Lines) > 1 }

func (s Station) String() string {
	return s.Name + " [" + strings.Join(s.LineIDs(), ", ") + "]"
}

// Segment is one directed hop between adjacent stations on a line.
type Segment struct {
	Line     string
	From     string
	To       string
	Distance float64 // kilometers
}

func (s Segment) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s km)", s.Line, s.From, s.To, formatKm(s.Distance))
}

// formatKm renders whole distances with one decimal place ("1.0") and keeps
// every significant digit otherwise.
func formatKm(d float64) string {
	out := strconv.FormatFloat(d, 'f', -1, 64)
	if !strings.ContainsAny(out, ".IN") {
		out += ".0"
	}
	return out
}

// Record is one undirected connection as read from a data source, before it
// is expanded into a forward and a reverse Segment.
type Record struct {
	Line     string
	From     string
	To       string
	Distance float64
}
