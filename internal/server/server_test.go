package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vilniusbus/internal/handler"
	"vilniusbus/internal/realtime"
	"vilniusbus/internal/storage"
)

type staticFeeds string

func (f staticFeeds) FetchFeed(ctx context.Context, stopID string) (string, time.Time, error) {
	return string(f), time.Now(), nil
}

type nopStore struct{}

func (nopStore) Stop(ctx context.Context, id string) (*storage.StopRow, error) {
	return nil, storage.ErrNotFound
}
func (nopStore) SearchStops(ctx context.Context, q string, limit int) ([]storage.StopRow, error) {
	return nil, nil
}
func (nopStore) StopsInBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64, limit int) ([]storage.StopRow, error) {
	return nil, nil
}
func (nopStore) SaveFeed(ctx context.Context, id, body string, at time.Time) error { return nil }
func (nopStore) LatestFeed(ctx context.Context, id string) (string, time.Time, error) {
	return "", time.Time{}, storage.ErrNotFound
}

func TestServer_Routes(t *testing.T) {
	h := handler.New(staticFeeds("header\nbus,1,x,0,y,A\n"), nopStore{}, realtime.NewStore(), time.UTC, testLogger)
	srv := httptest.NewServer(New(0, h, testLogger).Handler())
	defer srv.Close()

	tests := []struct {
		method, path string
		wantCode     int
		wantBody     string
	}{
		{"GET", "/api/departures/0701", 200, `"bus_num":"1"`},
		{"GET", "/api/stops/0701/alerts", 200, "[]"},
		{"GET", "/api/alerts", 200, "[]"},
		{"GET", "/api/stops/nearby?lat=54.68&lon=25.28", 200, "[]"},
		{"GET", "/healthz", 200, "ok"},
		{"GET", "/metrics", 200, "vilniusbus_feed_fetch_seconds"},
		{"POST", "/api/departures/0701", 405, ""},
		{"GET", "/nope", 404, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				if !strings.Contains(string(body), tt.wantBody) {
					t.Errorf("body missing %q", tt.wantBody)
				}
			}
		})
	}
}
