package handler

import (
	"net/http"
	"sort"
	"strconv"

	"vilniusbus/internal/geo"
	"vilniusbus/internal/storage"
)

// nearbyStop is a stop with its distance from the query point.
type nearbyStop struct {
	storage.StopRow
	DistanceMeters int `json:"distance_m"`
}

// NearbyStops lists stops within radius meters (default 400, max 2000) of
// lat/lon, nearest first.
func (h *Handler) NearbyStops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	radius := 400.0
	if v := q.Get("radius"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			radius = min(n, 2000)
		}
	}

	center := geo.Point{Lat: lat, Lon: lon}
	lo, hi := geo.Bounds(center, radius)
	candidates, err := h.db.StopsInBounds(r.Context(), lo.Lat, lo.Lon, hi.Lat, hi.Lon, 500)
	if err != nil {
		h.logger.Error("nearby stops", "lat", lat, "lon", lon, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	results := []nearbyStop{}
	for _, s := range candidates {
		d := geo.Distance(center, geo.Point{Lat: s.Lat, Lon: s.Lon})
		if d <= radius {
			results = append(results, nearbyStop{StopRow: s, DistanceMeters: int(d)})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})
	if len(results) > 20 {
		results = results[:20]
	}
	writeJSON(w, http.StatusOK, results)
}
