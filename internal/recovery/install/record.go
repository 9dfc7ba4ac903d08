package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultLogFile is where the install log record is persisted.
const DefaultLogFile = "/cache/recovery/last_install"

// LogRecord is the persisted summary of one apply attempt.
type LogRecord struct {
	Path      string
	Success   bool
	TimeTotal int
	Retry     int
	Lines     []string
}

// Marshal renders the four header lines followed by the log lines.
func (r *LogRecord) Marshal() []byte {
	flag := "0"
	if r.Success {
		flag = "1"
	}
	header := []string{
		r.Path,
		flag,
		"time_total: " + strconv.Itoa(r.TimeTotal),
		"retry: " + strconv.Itoa(r.Retry),
	}
	return []byte(strings.Join(header, "\n") + "\n" + strings.Join(r.Lines, "\n"))
}

func (r *LogRecord) String() string { return string(r.Marshal()) }

// ParseLogRecord reads a record written by Marshal.
func ParseLogRecord(data []byte) (*LogRecord, error) {
	lines := strings.Split(string(data), "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("install log has %d lines, want at least 4", len(lines))
	}

	r := &LogRecord{Path: lines[0]}
	switch lines[1] {
	case "1":
		r.Success = true
	case "0":
	default:
		return nil, fmt.Errorf("invalid success flag %q", lines[1])
	}

	var err error
	if r.TimeTotal, err = headerInt(lines[2], "time_total: "); err != nil {
		return nil, err
	}
	if r.Retry, err = headerInt(lines[3], "retry: "); err != nil {
		return nil, err
	}

	rest := lines[4:]
	if len(rest) == 1 && rest[0] == "" {
		rest = nil
	}
	r.Lines = rest
	return r, nil
}

func headerInt(line, prefix string) (int, error) {
	v, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return 0, fmt.Errorf("header line %q lacks %q", line, prefix)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("header line %q: %w", line, err)
	}
	return n, nil
}

// Persist writes the record to path, creating the parent directory.
func (r *LogRecord) Persist(path string) error {
	if path == "" {
		return errors.New("no install log path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, r.Marshal(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
