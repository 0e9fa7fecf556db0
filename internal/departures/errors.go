package departures

import "fmt"

// NetworkError reports a failed upstream request: transport failure,
// unreadable body, or a non-2xx status.
type NetworkError struct {
	StopID     string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("departures for stop %s: HTTP %d from %s", e.StopID, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("departures for stop %s: %v", e.StopID, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError describes a feed line that was skipped.
type ParseError struct {
	Line   int // 1-based line of the raw body, counting the header and leading blank lines
	Fields int
	Text   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: want at least %d fields, got %d", e.Line, minFields, e.Fields)
}
