package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"vilniusbus/internal/realtime"
	"vilniusbus/internal/storage"
)

// FeedSource fetches raw departures text for a stop, along with the time the
// text was downloaded.
type FeedSource interface {
	FetchFeed(ctx context.Context, stopID string) (string, time.Time, error)
}

// Store is the storage used by handlers.
type Store interface {
	Stop(ctx context.Context, stopID string) (*storage.StopRow, error)
	SearchStops(ctx context.Context, query string, limit int) ([]storage.StopRow, error)
	StopsInBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64, limit int) ([]storage.StopRow, error)
	SaveFeed(ctx context.Context, stopID, body string, fetchedAt time.Time) error
	LatestFeed(ctx context.Context, stopID string) (string, time.Time, error)
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	feeds  FeedSource
	db     Store
	rt     *realtime.Store
	loc    *time.Location
	logger *slog.Logger

	now         func() time.Time
	sseInterval time.Duration
}

// New creates a Handler. Departure minutes are computed against the wall
// clock in loc.
func New(feeds FeedSource, db Store, rt *realtime.Store, loc *time.Location, logger *slog.Logger) *Handler {
	return &Handler{
		feeds:       feeds,
		db:          db,
		rt:          rt,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
		sseInterval: 30 * time.Second,
	}
}

func (h *Handler) clock() time.Time {
	return h.now().In(h.loc)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "code": status})
}
