package executor

import (
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line   string
		want   Event
		wantOK bool
	}{
		{"progress 0.5 10\n", Progress{Fraction: 0.5, Seconds: 10}, true},
		{"progress 0.5", Progress{Fraction: 0.5}, true},
		{"progress abc x", Progress{}, true},
		{"set_progress 0.3", SetProgress{Fraction: 0.3}, true},
		{"ui_print hello  world", UIPrint{Text: "hello  world"}, true},
		{"ui_print", UIPrint{}, true},
		{"wipe_cache", WipeCache{}, true},
		{"  wipe_cache", WipeCache{}, true},
		{"clear_display", ClearDisplay{}, true},
		{"enable_reboot", EnableReboot{Enabled: true}, true},
		{"retry_update", RetryRequested{}, true},
		{"log hello", LogLine{Text: "hello"}, true},
		{"log", LogLine{}, true},
		{"format_partition /system", Unknown{Raw: "format_partition /system"}, true},
		{"", nil, false},
		{"   \n", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			if ok != tt.wantOK || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLine(%q) = %#v, %v; want %#v, %v", tt.line, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseLineIsStable(t *testing.T) {
	lines := []string{"progress 0.5 10", "log hello", "wipe_cache"}
	want := []Event{Progress{Fraction: 0.5, Seconds: 10}, LogLine{Text: "hello"}, WipeCache{}}

	for round := 0; round < 2; round++ {
		var got []Event
		for _, l := range lines {
			if ev, ok := ParseLine(l); ok {
				got = append(got, ev)
			}
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round %d: events = %#v, want %#v", round, got, want)
		}
	}
}
