package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// SSEDepartures streams a stop's departures via Server-Sent Events. Each
// "departures" event carries the same JSON array as the Departures endpoint.
func (h *Handler) SSEDepartures(w http.ResponseWriter, r *http.Request) {
	stopID := r.PathValue("id")
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	h.sendDepartureEvent(ctx, w, flusher, stopID)

	ticker := time.NewTicker(h.sseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sendDepartureEvent(ctx, w, flusher, stopID)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) sendDepartureEvent(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, stopID string) {
	res, err := h.loadFeed(ctx, stopID, h.clock())
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
		flusher.Flush()
		return
	}
	body, err := res.feed.JSON()
	if err != nil {
		h.logger.Error("encoding SSE departures", "stop", stopID, "error", err)
		return
	}

	// The JSON array is a single line, so it fits one data field.
	fmt.Fprintf(w, "event: departures\n")
	if res.stale {
		fmt.Fprintf(w, "id: stale-%d\n", res.fetchedAt.Unix())
	}
	fmt.Fprintf(w, "data: %s\n\n", body)
	flusher.Flush()
}
