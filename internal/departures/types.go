package departures

// Departure is one parsed line of the stops.lt departures feed.
// Field order matches the JSON key order consumers rely on.
type Departure struct {
	Type      string `json:"bus_type"`      // "bus", "trol", "expressbus", ...
	Number    string `json:"bus_num"`       // route short name, e.g. "3G"
	Direction string `json:"bus_direction"` // headsign
	Time      string `json:"bus_time"`      // "<minutes> min" or "NaN min"
}

// Feed is the result of parsing one departures response.
type Feed struct {
	Departures []Departure
	Skipped    []*ParseError // lines dropped for having too few fields
}

// Feed line positions.
const (
	fieldType      = 0
	fieldNumber    = 1
	fieldTime      = 3
	fieldDirection = 5

	minFields = fieldDirection + 1
)
