package departures

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MinutesUntil converts a feed timestamp (seconds since local midnight) into
// whole minutes from now, truncated toward zero. The result is negative for
// departures that already left. There is no wraparound at midnight, so the
// value is only meaningful when now and the feed share a calendar day.
//
// ok is false when raw is not a number, or when the result lies beyond
// ±math.MaxInt32 minutes.
func MinutesUntil(raw string, now time.Time) (minutes int, ok bool) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, false
	}
	remaining := secs - float64(secondsSinceMidnight(now))
	m := math.Trunc(remaining / 60)
	if m > math.MaxInt32 || m < -math.MaxInt32 {
		return 0, false
	}
	return int(m), true
}

// FormatMinutes renders MinutesUntil as "<n> min", or "NaN min" for input
// that isn't a number.
func FormatMinutes(raw string, now time.Time) string {
	m, ok := MinutesUntil(raw, now)
	if !ok {
		return "NaN min"
	}
	return fmt.Sprintf("%d min", m)
}

func secondsSinceMidnight(now time.Time) int64 {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int64(now.Sub(midnight) / time.Second)
}
