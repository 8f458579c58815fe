package subway

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// A header such as "1号线站点间距" opens the distance table of line "1".
	headerMarker = "号线站点间距"
	lineSuffix   = "号线"
	// A data line looks like "车站A---车站B\t2.5".
	stationSep = "---"
	fieldSep   = "\t"
)

// Builder accumulates records into a Network. It is not safe for concurrent
// use; once Network is called the builder must not be reused.
type Builder struct {
	net *Network
}

func NewBuilder() *Builder {
	return &Builder{net: &Network{
		stations: make(map[string]*Station),
		outgoing: make(map[string][]int),
		lines:    make(map[string]struct{}),
	}}
}

// Add registers both stations of r on r.Line and appends the forward and
// reverse segments.
func (b *Builder) Add(r Record) error {
	line := normalizeName(r.Line)
	from := normalizeName(r.From)
	to := normalizeName(r.To)
	if line == "" {
		return ErrNoCurrentLine
	}
	if from == "" || to == "" {
		return fmt.Errorf("%w: empty station name", ErrMalformedRecord)
	}
	if r.Distance < 0 || math.IsNaN(r.Distance) || math.IsInf(r.Distance, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidDistance, r.Distance)
	}

	n := b.net
	for _, name := range []string{from, to} {
		st, ok := n.stations[name]
		if !ok {
			st = newStation(name)
			n.stations[name] = st
		}
		st.Lines[line] = struct{}{}
	}
	n.lines[line] = struct{}{}
	n.appendSegment(Segment{Line: line, From: from, To: to, Distance: r.Distance})
	n.appendSegment(Segment{Line: line, From: to, To: from, Distance: r.Distance})
	return nil
}

// Network returns the built network.
func (b *Builder) Network() *Network { return b.net }

// Parse reads the line-oriented distance table format. Lines that are neither
// a line header nor a segment record are skipped. The first malformed line
// aborts the load with a *LoadError.
func Parse(r io.Reader) (*Network, error) {
	b := NewBuilder()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	current := ""
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}

		switch {
		case strings.Contains(text, headerMarker):
			id, _, _ := strings.Cut(text, lineSuffix)
			id = normalizeName(id)
			if id == "" {
				return nil, &LoadError{Line: lineNo, Text: text, Err: ErrMalformedHeader}
			}
			current = id
		case strings.Contains(text, stationSep):
			rec, err := parseRecord(text)
			if err != nil {
				return nil, &LoadError{Line: lineNo, Text: text, Err: err}
			}
			if current == "" {
				return nil, &LoadError{Line: lineNo, Text: text, Err: ErrNoCurrentLine}
			}
			rec.Line = current
			if err := b.Add(rec); err != nil {
				return nil, &LoadError{Line: lineNo, Text: text, Err: err}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read network: %w", err)
	}
	return b.Network(), nil
}

// LoadFile opens path and parses it with Parse.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// FromRecords builds a network from already split records, e.g. rows read
// from a database. Records keep their order.
func FromRecords(records []Record) (*Network, error) {
	b := NewBuilder()
	for _, r := range records {
		if err := b.Add(r); err != nil {
			return nil, &LoadError{Text: r.Line + ":" + r.From + stationSep + r.To, Err: err}
		}
	}
	return b.Network(), nil
}

func parseRecord(text string) (Record, error) {
	names, rest, ok := strings.Cut(text, fieldSep)
	if !ok {
		return Record{}, fmt.Errorf("%w: missing distance column", ErrMalformedRecord)
	}
	from, to, ok := strings.Cut(names, stationSep)
	if !ok || strings.Contains(to, stationSep) {
		return Record{}, fmt.Errorf("%w: expected two stations", ErrMalformedRecord)
	}
	field, _, _ := strings.Cut(rest, fieldSep)
	field = strings.TrimSpace(field)
	d, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidDistance, field)
	}
	return Record{From: from, To: to, Distance: d}, nil
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
