package gtfs

// Stop is a row of stops.txt. Only the columns the stop reference table
// needs are mapped.
type Stop struct {
	StopID       string `csv:"stop_id"`
	StopCode     string `csv:"stop_code"`
	StopName     string `csv:"stop_name"`
	StopLat      string `csv:"stop_lat"`
	StopLon      string `csv:"stop_lon"`
	LocationType string `csv:"location_type"`
}
