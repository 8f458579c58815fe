package subway

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Network is the loaded station graph. It is read-only once built, so any
// number of goroutines may query it.
type Network struct {
	stations map[string]*Station
	segments []Segment
	// outgoing maps a station name to the indexes of segments leaving it,
	// in load order.
	outgoing map[string][]int
	lines    map[string]struct{}
}

func (n *Network) appendSegment(s Segment) {
	n.outgoing[s.From] = append(n.outgoing[s.From], len(n.segments))
	n.segments = append(n.segments, s)
}

// Station returns the station called name.
func (n *Network) Station(name string) (Station, error) {
	st, ok := n.stations[normalizeName(name)]
	if !ok {
		return Station{}, &NotFoundError{Name: name}
	}
	return st.clone(), nil
}

// Stations returns every station sorted by name.
func (n *Network) Stations() []Station {
	out := make([]Station, 0, len(n.stations))
	for _, st := range n.stations {
		out = append(out, st.clone())
	}
	sortStations(out)
	return out
}

// Segments returns a copy of all segments in load order.
func (n *Network) Segments() []Segment {
	return append([]Segment(nil), n.segments...)
}

// Lines returns the line identifiers in sorted order.
func (n *Network) Lines() []string {
	ids := make([]string, 0, len(n.lines))
	for id := range n.lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (n *Network) StationCount() int { return len(n.stations) }
func (n *Network) SegmentCount() int { return len(n.segments) }

// Fingerprint hashes the ordered segment list. Two networks loaded from the
// same data have the same fingerprint.
func (n *Network) Fingerprint() string {
	h := xxhash.New()
	for _, s := range n.segments {
		_, _ = h.WriteString(s.Line)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(s.From)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(s.To)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(strconv.FormatFloat(s.Distance, 'g', -1, 64))
		_, _ = h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// TransferStations returns the stations served by more than one line,
// sorted by name.
func (n *Network) TransferStations() []Station {
	var out []Station
	for _, st := range n.stations {
		if st.IsTransfer() {
			out = append(out, st.clone())
		}
	}
	sortStations(out)
	return out
}

// Nearby returns the stations one hop away from name whose connecting
// segment is at most maxDistance kilometers long. When two lines connect the
// same pair of stations the shorter distance is reported. A NaN maxDistance
// matches nothing.
func (n *Network) Nearby(name string, maxDistance float64) (map[string]float64, error) {
	key := normalizeName(name)
	if _, ok := n.stations[key]; !ok {
		return nil, &NotFoundError{Name: name}
	}
	out := make(map[string]float64)
	if math.IsNaN(maxDistance) {
		return out, nil
	}
	for _, i := range n.outgoing[key] {
		s := n.segments[i]
		if s.Distance > maxDistance {
			continue
		}
		if d, seen := out[s.To]; seen && d <= s.Distance {
			continue
		}
		out[s.To] = s.Distance
	}
	return out, nil
}

// AllPaths enumerates every simple path from one station to another. Paths
// are listed in the order a depth-first walk over the segments in load
// order finds them. Segments of different lines between the same two
// stations yield separate, identical-looking paths. The result is empty, not
// nil, when the stations are disconnected.
//
// The number of paths grows combinatorially with graph density; callers own
// bounding the input.
func (n *Network) AllPaths(from, to string) ([][]string, error) {
	start, end := normalizeName(from), normalizeName(to)
	if _, ok := n.stations[start]; !ok {
		return nil, &NotFoundError{Name: from}
	}
	if _, ok := n.stations[end]; !ok {
		return nil, &NotFoundError{Name: to}
	}
	paths := n.walk(start, end, nil)
	if paths == nil {
		paths = [][]string{}
	}
	return paths, nil
}

// walk returns the simple paths from cur to end that extend trail. trail is
// never written to: every call works on its own copy.
func (n *Network) walk(cur, end string, trail []string) [][]string {
	here := make([]string, len(trail), len(trail)+1)
	copy(here, trail)
	here = append(here, cur)
	if cur == end {
		return [][]string{here}
	}

	var found [][]string
	for _, i := range n.outgoing[cur] {
		next := n.segments[i].To
		if visited(here, next) {
			continue
		}
		found = append(found, n.walk(next, end, here)...)
	}
	return found
}

func visited(trail []string, name string) bool {
	for _, s := range trail {
		if s == name {
			return true
		}
	}
	return false
}

func sortStations(s []Station) {
	sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })
}
