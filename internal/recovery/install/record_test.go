package install

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLogRecordMarshal(t *testing.T) {
	r := &LogRecord{
		Path:      "/x.zip",
		Success:   true,
		TimeTotal: 12,
		Retry:     0,
		Lines:     []string{"source_build: 1", "target_build: 2"},
	}
	got := strings.Split(string(r.Marshal()), "\n")
	want := []string{"/x.zip", "1", "time_total: 12", "retry: 0", "source_build: 1", "target_build: 2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Marshal() lines = %q, want %q", got, want)
	}

	back, err := ParseLogRecord(r.Marshal())
	if err != nil {
		t.Fatalf("ParseLogRecord() error = %v", err)
	}
	if !reflect.DeepEqual(back, r) {
		t.Errorf("ParseLogRecord() = %+v, want %+v", back, r)
	}
}

func TestParseLogRecordFailures(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"too short", "/x.zip\n1\n"},
		{"bad flag", "/x.zip\nyes\ntime_total: 1\nretry: 0\n"},
		{"bad time", "/x.zip\n1\ntime: 1\nretry: 0\n"},
		{"bad retry", "/x.zip\n1\ntime_total: 1\nretry: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLogRecord([]byte(tt.data)); err == nil {
				t.Error("ParseLogRecord() should fail")
			}
		})
	}

	r, err := ParseLogRecord([]byte("/x.zip\n0\ntime_total: 3\nretry: 1\n"))
	if err != nil {
		t.Fatalf("header only: %v", err)
	}
	if r.Success || r.Retry != 1 || len(r.Lines) != 0 {
		t.Errorf("header only = %+v", r)
	}
}

func TestPersistCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "recovery", "last_install")
	r := &LogRecord{Path: "/x.zip"}
	if err := r.Persist(path); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if err := r.Persist(""); err == nil {
		t.Error("Persist(\"\") should fail")
	}
}
