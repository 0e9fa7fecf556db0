package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"vilniusbus/internal/realtime"
	"vilniusbus/internal/storage"
)

// StopDetail serves the HTML departure board for a stop.
func (h *Handler) StopDetail(w http.ResponseWriter, r *http.Request) {
	stopID := r.PathValue("id")
	ctx := r.Context()

	data := stopBoardData{StopID: stopID, Name: "Stop " + stopID}

	// The reference table is optional; unknown stops still get a board.
	stop, err := h.db.Stop(ctx, stopID)
	switch {
	case err == nil:
		data.Name = stop.Name
	case !errors.Is(err, storage.ErrNotFound):
		h.logger.Error("fetching stop", "stop", stopID, "error", err)
	}

	res, err := h.loadFeed(ctx, stopID, h.clock())
	if err != nil {
		data.Error = "Departures are unavailable right now."
	} else {
		data.Departures = res.feed.Departures
		data.Stale = res.stale
		data.FetchedAt = res.fetchedAt.In(h.loc)
	}
	if h.rt != nil {
		data.Alerts = h.rt.AlertsForStop(stopID)
		data.RouteAlerts = routeAlerts(h.rt, data.Departures, data.Alerts)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := stopBoard(data).Render(ctx, w); err != nil {
		h.logger.Error("rendering stop board", "stop", stopID, "error", err)
	}
}

// SearchStops serves stop search results from the reference table as JSON.
func (h *Handler) SearchStops(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	results, err := h.db.SearchStops(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("search stops", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if results == nil {
		results = []storage.StopRow{}
	}
	writeJSON(w, http.StatusOK, results)
}

// StopAlerts serves the service alerts affecting a stop as JSON.
func (h *Handler) StopAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := []realtime.Alert{}
	if h.rt != nil {
		alerts = h.rt.AlertsForStop(r.PathValue("id"))
	}
	writeJSON(w, http.StatusOK, alerts)
}

// Alerts serves every active service alert as JSON. X-Alerts-Updated-At
// carries the time the alert set was last replaced.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts := []realtime.Alert{}
	if h.rt != nil {
		alerts = h.rt.AllAlerts()
		if at := h.rt.UpdatedAt(); !at.IsZero() {
			w.Header().Set("X-Alerts-Updated-At", at.UTC().Format(time.RFC3339))
		}
	}
	writeJSON(w, http.StatusOK, alerts)
}
