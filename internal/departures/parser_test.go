package departures

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// midnight + 3000s
var parseNow = time.Date(2025, 6, 15, 0, 50, 0, 0, time.UTC)

func TestParse_RecordCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"header only", "stop,0701", 0},
		{"header only with newline", "stop,0701\n", 0},
		{"one line", "stop\nbus,1,x,3600,y,North", 1},
		{"three lines", "stop\nbus,1,x,3600,y,A\nbus,2,x,3660,y,B\ntrol,3,x,3720,y,C", 3},
		{"trailing blank line", "stop\nbus,1,x,3600,y,A\n", 1},
		{"trailing blank lines and spaces", "stop\nbus,1,x,3600,y,A\n\n  \n", 1},
		{"crlf", "stop\r\nbus,1,x,3600,y,A\r\nbus,2,x,3600,y,B\r\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := Parse(tt.text, parseNow)
			if len(feed.Departures) != tt.want {
				t.Errorf("Parse() = %d records, want %d", len(feed.Departures), tt.want)
			}
			if len(feed.Skipped) != 0 {
				t.Errorf("Parse() skipped %d lines, want 0: %v", len(feed.Skipped), feed.Skipped)
			}
		})
	}
}

func TestParse_FieldPositions(t *testing.T) {
	feed := Parse("header\nBUS,123,X,3600,Y,North", parseNow)
	if len(feed.Departures) != 1 {
		t.Fatalf("got %d records, want 1", len(feed.Departures))
	}

	want := Departure{Type: "BUS", Number: "123", Direction: "North", Time: "10 min"}
	if got := feed.Departures[0]; got != want {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParse_PastDepartureIsNegative(t *testing.T) {
	now := parseNow.Add(900 * time.Second) // midnight + 3900s
	feed := Parse("header\nBUS,123,X,3600,Y,North", now)
	if got := feed.Departures[0].Time; got != "-5 min" {
		t.Errorf("Time = %q, want %q", got, "-5 min")
	}
}

func TestParse_ExtraFieldsIgnored(t *testing.T) {
	feed := Parse("header\nexpressbus,3G,a,3660,b,Santariškės,c,d,e", parseNow)
	got := feed.Departures[0]
	if got.Number != "3G" || got.Direction != "Santariškės" || got.Time != "11 min" {
		t.Errorf("Parse() = %+v", got)
	}
}

func TestParse_BadTimeIsNaN(t *testing.T) {
	feed := Parse("header\nbus,1,x,soon,y,A\nbus,2,x,,y,B", parseNow)
	for _, d := range feed.Departures {
		if d.Time != "NaN min" {
			t.Errorf("route %s Time = %q, want NaN min", d.Number, d.Time)
		}
	}
}

func TestParse_ShortLinesSkipped(t *testing.T) {
	text := "header\nbus,1,x,3600,y,A\nbus,2,x\n\nbus,3,x,3660,y,C"
	feed := Parse(text, parseNow)

	if len(feed.Departures) != 2 {
		t.Fatalf("got %d records, want 2", len(feed.Departures))
	}
	if feed.Departures[1].Number != "3" {
		t.Errorf("second record = %+v, want route 3", feed.Departures[1])
	}
	if len(feed.Skipped) != 2 {
		t.Fatalf("skipped %d lines, want 2", len(feed.Skipped))
	}

	first := feed.Skipped[0]
	if first.Line != 3 || first.Fields != 3 || first.Text != "bus,2,x" {
		t.Errorf("skipped[0] = %+v", first)
	}
	if first.Error() != "line 3: want at least 6 fields, got 3" {
		t.Errorf("Error() = %q", first.Error())
	}
	if feed.Skipped[1].Line != 4 || feed.Skipped[1].Fields != 1 {
		t.Errorf("skipped[1] = %+v", feed.Skipped[1])
	}
}

func TestParse_SkippedLineNumbersMatchRawBody(t *testing.T) {
	feed := Parse("\n\r\n  \nheader\nbus,1,x,3600,y,A\nbus,2\n", parseNow)
	if len(feed.Skipped) != 1 {
		t.Fatalf("skipped %d lines, want 1", len(feed.Skipped))
	}
	if got := feed.Skipped[0].Line; got != 6 {
		t.Errorf("Line = %d, want 6", got)
	}
}

func TestParse_HeaderDiscardedRegardlessOfContent(t *testing.T) {
	feed := Parse("bus,9,x,3600,y,Looks like data\nbus,1,x,3600,y,A", parseNow)
	if len(feed.Departures) != 1 || feed.Departures[0].Number != "1" {
		t.Errorf("Parse() = %+v", feed.Departures)
	}
}

func TestFeedJSON(t *testing.T) {
	feed := Parse("header\nBUS,123,X,3600,Y,North\ntrol,7,X,2700,Y,South", parseNow)
	got, err := feed.JSON()
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	want := `[{"bus_type":"BUS","bus_num":"123","bus_direction":"North","bus_time":"10 min"},` +
		`{"bus_type":"trol","bus_num":"7","bus_direction":"South","bus_time":"-5 min"}]`
	if got != want {
		t.Errorf("JSON() = %s\nwant %s", got, want)
	}
}

func TestFeedJSON_Empty(t *testing.T) {
	for _, text := range []string{"", "header", "header\n", "header\nshort"} {
		got, err := Parse(text, parseNow).JSON()
		if err != nil {
			t.Fatalf("JSON() error: %v", err)
		}
		if got != "[]" {
			t.Errorf("Parse(%q).JSON() = %s, want []", text, got)
		}
	}

	if got, _ := EncodeJSON(nil); got != "[]" {
		t.Errorf("EncodeJSON(nil) = %s, want []", got)
	}
}

func TestFeedJSON_AlwaysFourKeys(t *testing.T) {
	text := strings.Join([]string{
		"header",
		`bus,"quoted",x,3600,y,A`,
		"bus,1,x,NaN,y,<b>&</b>",
		"bus,,,,,",
		"trol,2,x,99999,y,Žvėrynas",
	}, "\n")

	out, err := Parse(text, parseNow).JSON()
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if len(decoded) != 4 {
		t.Fatalf("decoded %d objects, want 4", len(decoded))
	}
	for i, obj := range decoded {
		if len(obj) != 4 {
			t.Errorf("object %d has %d keys, want 4: %v", i, len(obj), obj)
		}
		for _, k := range []string{"bus_type", "bus_num", "bus_direction", "bus_time"} {
			if _, ok := obj[k].(string); !ok {
				t.Errorf("object %d: key %q missing or not a string", i, k)
			}
		}
	}
}
