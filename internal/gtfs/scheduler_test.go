package gtfs

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vilniusbus/internal/storage"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const stopsTxt = "\xef\xbb\xbfstop_id,stop_code,stop_name,stop_desc,stop_lat,stop_lon,location_type\n" +
	"0701,0701,Stoties st.,,54.6706,25.2840,0\n" +
	"0702,,\"Stoties st.\",,54.6709,25.2845,\n" +
	"P1,,Parent station,,54.0,25.0,1\n"

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	os.WriteFile(path, buildZip(t, map[string]string{
		"agency.txt": "agency_id\nx\n",
		"stops.txt":  stopsTxt,
	}), 0o644)

	got, err := ParseStops(path)
	if err != nil {
		t.Fatalf("ParseStops() error: %v", err)
	}

	want := []storage.StopRow{
		{StopID: "0701", StopCode: "0701", Name: "Stoties st.", Lat: 54.6706, Lon: 25.2840},
		{StopID: "0702", Name: "Stoties st.", Lat: 54.6709, Lon: 25.2845},
	}
	if len(got) != len(want) {
		t.Fatalf("ParseStops() = %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseStops_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	os.WriteFile(path, buildZip(t, map[string]string{"routes.txt": "route_id\n"}), 0o644)

	if _, err := ParseStops(path); err == nil {
		t.Error("ParseStops() should fail without stops.txt")
	}
}

type memStore struct {
	mu    sync.Mutex
	stops []storage.StopRow
	meta  map[string]string
}

func newMemStore() *memStore { return &memStore{meta: map[string]string{}} }

func (m *memStore) HasStops(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stops) > 0
}

func (m *memStore) ReplaceStops(ctx context.Context, stops []storage.StopRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops = stops
	return nil
}

func (m *memStore) GetMetadata(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta[key], nil
}

func (m *memStore) SetMetadata(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func archiveServer(t *testing.T, archive []byte, etag string) (*httptest.Server, *int) {
	gets := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		if r.Method == "GET" {
			gets++
			w.Write(archive)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &gets
}

func TestScheduler_EnsureDataImportsOnce(t *testing.T) {
	archive := buildZip(t, map[string]string{"stops.txt": stopsTxt})
	srv, gets := archiveServer(t, archive, `"v1"`)

	store := newMemStore()
	s := NewScheduler(NewDownloader(srv.URL, t.TempDir(), testLogger), store, time.UTC, testLogger)
	ctx := context.Background()

	if err := s.EnsureData(ctx); err != nil {
		t.Fatalf("EnsureData() error: %v", err)
	}
	if err := s.EnsureData(ctx); err != nil {
		t.Fatalf("EnsureData() second call error: %v", err)
	}

	if *gets != 1 {
		t.Errorf("archive downloaded %d times, want 1", *gets)
	}
	if len(store.stops) != 2 {
		t.Errorf("imported %d stops, want 2", len(store.stops))
	}
	if store.meta["etag"] != `"v1"` {
		t.Errorf("etag = %q, want \"v1\"", store.meta["etag"])
	}
	if store.meta["imported_at"] == "" {
		t.Error("imported_at should be recorded")
	}
}

func TestScheduler_CheckAndUpdateNotModified(t *testing.T) {
	archive := buildZip(t, map[string]string{"stops.txt": stopsTxt})
	srv, gets := archiveServer(t, archive, `"v1"`)

	store := newMemStore()
	store.meta["etag"] = `"v1"`
	s := NewScheduler(NewDownloader(srv.URL, t.TempDir(), testLogger), store, time.UTC, testLogger)

	if err := s.CheckAndUpdate(context.Background()); err != nil {
		t.Fatalf("CheckAndUpdate() error: %v", err)
	}
	if *gets != 0 {
		t.Errorf("archive downloaded %d times, want 0", *gets)
	}
}

func TestScheduler_CheckAndUpdateOncePerDay(t *testing.T) {
	archive := buildZip(t, map[string]string{"stops.txt": stopsTxt})
	srv, gets := archiveServer(t, archive, `"v2"`)

	store := newMemStore()
	store.meta["etag"] = `"v1"`
	s := NewScheduler(NewDownloader(srv.URL, t.TempDir(), testLogger), store, time.UTC, testLogger)
	ctx := context.Background()

	s.CheckAndUpdate(ctx)
	s.CheckAndUpdate(ctx)

	if *gets != 1 {
		t.Errorf("archive downloaded %d times, want 1", *gets)
	}
	if store.meta["etag"] != `"v2"` {
		t.Errorf("etag = %q, want \"v2\"", store.meta["etag"])
	}
}

func TestNext3AM(t *testing.T) {
	loc := time.FixedZone("EET", 2*60*60)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before 3am", time.Date(2025, 6, 15, 1, 0, 0, 0, loc), time.Date(2025, 6, 15, 3, 0, 0, 0, loc)},
		{"exactly 3am", time.Date(2025, 6, 15, 3, 0, 0, 0, loc), time.Date(2025, 6, 16, 3, 0, 0, 0, loc)},
		{"afternoon", time.Date(2025, 6, 15, 15, 0, 0, 0, loc), time.Date(2025, 6, 16, 3, 0, 0, 0, loc)},
		{"utc input", time.Date(2025, 6, 15, 0, 30, 0, 0, time.UTC), time.Date(2025, 6, 15, 3, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := next3AM(tt.now, loc); !got.Equal(tt.want) {
				t.Errorf("next3AM(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}
