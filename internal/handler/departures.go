package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vilniusbus/internal/departures"
	"vilniusbus/internal/storage"
)

// feedResult is a parsed feed plus where it came from.
type feedResult struct {
	feed      *departures.Feed
	stale     bool
	fetchedAt time.Time
}

// loadFeed fetches a stop's feed, saving it as the latest snapshot stamped
// with its download time. When the upstream fails it falls back to the
// stored snapshot, re-parsed against now.
func (h *Handler) loadFeed(ctx context.Context, stopID string, now time.Time) (*feedResult, error) {
	body, fetchedAt, err := h.feeds.FetchFeed(ctx, stopID)
	if err == nil {
		if err := h.db.SaveFeed(ctx, stopID, body, fetchedAt); err != nil {
			h.logger.Warn("saving feed snapshot", "stop", stopID, "error", err)
		}
		return &feedResult{feed: h.parse(stopID, body, now), fetchedAt: fetchedAt}, nil
	}

	var netErr *departures.NetworkError
	if !errors.As(err, &netErr) {
		return nil, err
	}
	h.logger.Warn("departures upstream unavailable", "stop", stopID, "error", err)

	body, fetchedAt, serr := h.db.LatestFeed(ctx, stopID)
	if serr != nil {
		if !errors.Is(serr, storage.ErrNotFound) {
			h.logger.Error("loading feed snapshot", "stop", stopID, "error", serr)
		}
		return nil, err
	}
	return &feedResult{feed: h.parse(stopID, body, now), stale: true, fetchedAt: fetchedAt}, nil
}

func (h *Handler) parse(stopID, body string, now time.Time) *departures.Feed {
	feed := departures.Parse(body, now)
	if n := len(feed.Skipped); n > 0 {
		h.logger.Warn("skipped malformed departure lines", "stop", stopID, "count", n,
			"first", feed.Skipped[0].Error())
	}
	return feed
}

// Departures serves a stop's departures as a JSON array of
// {bus_type, bus_num, bus_direction, bus_time} objects.
func (h *Handler) Departures(w http.ResponseWriter, r *http.Request) {
	stopID := r.PathValue("id")
	res, err := h.loadFeed(r.Context(), stopID, h.clock())
	if err != nil {
		writeError(w, http.StatusBadGateway, "departures unavailable: "+err.Error())
		return
	}

	body, err := res.feed.JSON()
	if err != nil {
		h.logger.Error("encoding departures", "stop", stopID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if res.stale {
		w.Header().Set("X-Feed-Stale", "true")
		w.Header().Set("X-Feed-Fetched-At", res.fetchedAt.UTC().Format(time.RFC3339))
	}
	w.Write([]byte(body))
}
