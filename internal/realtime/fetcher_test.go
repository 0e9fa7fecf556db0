package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func text(lang, s string) *gtfs.TranslatedString {
	return &gtfs.TranslatedString{Translation: []*gtfs.TranslatedString_Translation{
		{Text: proto.String(s), Language: proto.String(lang)},
	}}
}

func sampleFeed() *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("a1"),
				Alert: &gtfs.Alert{
					HeaderText: &gtfs.TranslatedString{Translation: []*gtfs.TranslatedString_Translation{
						{Text: proto.String("Detour"), Language: proto.String("en")},
						{Text: proto.String("Apvažiavimas"), Language: proto.String("lt")},
					}},
					Effect: gtfs.Alert_DETOUR.Enum(),
					InformedEntity: []*gtfs.EntitySelector{
						{StopId: proto.String("0701")},
						{StopId: proto.String("0701")},
						{RouteId: proto.String("3G")},
					},
				},
			},
			{
				Id: proto.String("a2"),
				Alert: &gtfs.Alert{
					HeaderText:     text("en", "Stop closed"),
					Effect:         gtfs.Alert_NO_SERVICE.Enum(),
					InformedEntity: []*gtfs.EntitySelector{{StopId: proto.String("1201")}},
				},
			},
			{
				Id:        proto.String("a3"),
				IsDeleted: proto.Bool(true),
				Alert:     &gtfs.Alert{HeaderText: text("en", "gone")},
			},
			{Id: proto.String("vehicle-only")},
		},
	}
}

func TestFetcher_Fetch(t *testing.T) {
	body, err := proto.Marshal(sampleFeed())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	store := NewStore()
	f := NewFetcher(srv.URL, time.Minute, store, testLogger)
	if err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	all := store.AllAlerts()
	if len(all) != 2 {
		t.Fatalf("AllAlerts() = %d, want 2", len(all))
	}
	if store.UpdatedAt().IsZero() {
		t.Error("UpdatedAt() should be set after a fetch")
	}

	stop := store.AlertsForStop("0701")
	if len(stop) != 1 {
		t.Fatalf("AlertsForStop(0701) = %d, want 1", len(stop))
	}
	a := stop[0]
	if a.Header != "Apvažiavimas" {
		t.Errorf("Header = %q, want Lithuanian text", a.Header)
	}
	if a.Effect != "DETOUR" {
		t.Errorf("Effect = %q, want DETOUR", a.Effect)
	}
	if len(a.StopIDs) != 1 {
		t.Errorf("StopIDs = %v, want deduplicated", a.StopIDs)
	}

	if got := store.AlertsForRoute("3G"); len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("AlertsForRoute(3G) = %+v", got)
	}
	if got := store.AlertsForStop("9999"); got == nil || len(got) != 0 {
		t.Errorf("AlertsForStop(unknown) = %#v, want empty slice", got)
	}
}

func TestFetcher_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"garbage", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("not protobuf \xff\xff")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			store := NewStore()
			store.SetAlerts([]Alert{{ID: "keep"}}, time.Now())

			f := NewFetcher(srv.URL, time.Minute, store, testLogger)
			if err := f.Fetch(context.Background()); err == nil {
				t.Fatal("Fetch() should fail")
			}
			if got := store.AllAlerts(); len(got) != 1 || got[0].ID != "keep" {
				t.Errorf("failed fetch should keep previous alerts, got %+v", got)
			}
		})
	}
}

func TestEffectLabel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"NO_SERVICE", "No service"},
		{"DETOUR", "Detour"},
		{"STOP_MOVED", "Stop moved"},
		{"UNKNOWN_EFFECT", "Alert"},
		{"", "Alert"},
	}
	for _, tt := range tests {
		if got := EffectLabel(tt.in); got != tt.want {
			t.Errorf("EffectLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
