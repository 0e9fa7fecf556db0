package departures

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// Parse turns a raw departures response into records, computing each
// record's minutes-until-departure against now.
//
// The text is trimmed before splitting, so trailing blank lines never become
// records. The first line is always treated as a header. Lines with fewer
// than six comma-separated fields are skipped and reported in Feed.Skipped.
func Parse(text string, now time.Time) *Feed {
	feed := &Feed{Departures: []Departure{}}

	// Blank lines trimmed from the front still count toward line numbers.
	leading := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	offset := strings.Count(text[:leading], "\n")

	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		fields := strings.Split(line, ",")
		if len(fields) < minFields {
			feed.Skipped = append(feed.Skipped, &ParseError{
				Line:   offset + i + 1,
				Fields: len(fields),
				Text:   line,
			})
			continue
		}

		feed.Departures = append(feed.Departures, Departure{
			Type:      fields[fieldType],
			Number:    fields[fieldNumber],
			Direction: fields[fieldDirection],
			Time:      FormatMinutes(fields[fieldTime], now),
		})
	}
	return feed
}

// JSON encodes the feed's departures as a JSON array.
func (f *Feed) JSON() (string, error) {
	return EncodeJSON(f.Departures)
}

// EncodeJSON encodes departures as a JSON array. A nil slice encodes as [].
func EncodeJSON(deps []Departure) (string, error) {
	if deps == nil {
		deps = []Departure{}
	}
	b, err := json.Marshal(deps)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
