package subway

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedHeader = errors.New("malformed line header")
	ErrMalformedRecord = errors.New("malformed segment record")
	ErrInvalidDistance = errors.New("invalid distance")
	ErrNoCurrentLine   = errors.New("segment record before any line header")

	// ErrStationNotFound is matched by every *NotFoundError.
	ErrStationNotFound = errors.New("station not found")
)

// LoadError reports why a source line could not be turned into graph data.
// Line is 1-based; it is 0 for records that did not come from a text file.
type LoadError struct {
	Line int
	Text string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("record %q: %v", e.Text, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NotFoundError names a station missing from the network.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("station not found: %s", e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrStationNotFound }
