package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Fetcher polls a GTFS-Realtime alerts feed and updates the store.
type Fetcher struct {
	url      string
	store    *Store
	client   *http.Client
	interval time.Duration
	logger   *slog.Logger
}

// NewFetcher creates an alerts fetcher polling url every interval.
func NewFetcher(url string, interval time.Duration, store *Store, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		url:      url,
		store:    store,
		client:   &http.Client{Timeout: 15 * time.Second},
		interval: interval,
		logger:   logger,
	}
}

// Start polls the feed until ctx is cancelled.
func (f *Fetcher) Start(ctx context.Context) {
	if err := f.Fetch(ctx); err != nil {
		f.logger.Warn("fetch alerts failed", "error", err)
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.Fetch(ctx); err != nil {
				f.logger.Warn("fetch alerts failed", "error", err)
			}
		case <-ctx.Done():
			f.logger.Info("alerts fetcher stopped")
			return
		}
	}
}

// Fetch downloads the feed once and replaces the stored alerts.
func (f *Fetcher) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", f.url, nil)
	if err != nil {
		return fmt.Errorf("create alerts request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("alerts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alerts feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read alerts body: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return fmt.Errorf("parse alerts protobuf: %w", err)
	}

	alerts := decodeAlerts(feed)
	f.store.SetAlerts(alerts, time.Now())
	f.logger.Info("alerts updated", "count", len(alerts))
	return nil
}

func decodeAlerts(feed *gtfs.FeedMessage) []Alert {
	var alerts []Alert
	for _, entity := range feed.GetEntity() {
		a := entity.GetAlert()
		if a == nil || entity.GetIsDeleted() {
			continue
		}

		alert := Alert{
			ID:          entity.GetId(),
			Header:      translation(a.GetHeaderText()),
			Description: translation(a.GetDescriptionText()),
			Effect:      a.GetEffect().String(),
			Cause:       a.GetCause().String(),
		}

		routeSet := make(map[string]bool)
		stopSet := make(map[string]bool)
		for _, ie := range a.GetInformedEntity() {
			if rid := ie.GetRouteId(); rid != "" && !routeSet[rid] {
				alert.RouteIDs = append(alert.RouteIDs, rid)
				routeSet[rid] = true
			}
			if sid := ie.GetStopId(); sid != "" && !stopSet[sid] {
				alert.StopIDs = append(alert.StopIDs, sid)
				stopSet[sid] = true
			}
		}

		alerts = append(alerts, alert)
	}
	return alerts
}

// translation picks the Lithuanian text when present, else the first
// non-empty one.
func translation(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}
	var first string
	for _, t := range ts.GetTranslation() {
		text := t.GetText()
		if text == "" {
			continue
		}
		if t.GetLanguage() == "lt" {
			return text
		}
		if first == "" {
			first = text
		}
	}
	return first
}

// EffectLabel returns a human-readable effect description.
func EffectLabel(effect string) string {
	switch effect {
	case "NO_SERVICE":
		return "No service"
	case "REDUCED_SERVICE":
		return "Reduced service"
	case "SIGNIFICANT_DELAYS":
		return "Significant delays"
	case "DETOUR":
		return "Detour"
	case "ADDITIONAL_SERVICE":
		return "Additional service"
	case "MODIFIED_SERVICE":
		return "Modified service"
	case "STOP_MOVED":
		return "Stop moved"
	default:
		return "Alert"
	}
}
