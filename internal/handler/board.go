package handler

import (
	"net/url"
	"time"

	"vilniusbus/internal/departures"
	"vilniusbus/internal/realtime"
)

//go:generate templ generate -f board.templ

type stopBoardData struct {
	StopID      string
	Name        string
	Departures  []departures.Departure
	Alerts      []realtime.Alert
	RouteAlerts []routeAlert
	Stale       bool
	FetchedAt   time.Time
	Error       string
}

// routeAlert is an alert shown on a board because it names a route that
// departs from the stop.
type routeAlert struct {
	Route string
	realtime.Alert
}

func departuresJSONPath(stopID string) string {
	return "/api/departures/" + url.PathEscape(stopID)
}

// routeAlerts collects alerts for the routes in deps, in departure order,
// leaving out alerts already listed for the stop itself.
func routeAlerts(rt *realtime.Store, deps []departures.Departure, shown []realtime.Alert) []routeAlert {
	seen := make(map[string]bool, len(shown))
	for _, a := range shown {
		seen[a.ID] = true
	}
	routes := make(map[string]bool)

	var out []routeAlert
	for _, d := range deps {
		if d.Number == "" || routes[d.Number] {
			continue
		}
		routes[d.Number] = true
		for _, a := range rt.AlertsForRoute(d.Number) {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			out = append(out, routeAlert{Route: d.Number, Alert: a})
		}
	}
	return out
}
