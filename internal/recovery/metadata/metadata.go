// Package metadata reads the key=value metadata block embedded in an OTA package.
package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess"
)

// Path is the fixed archive location of the metadata entry.
const Path = "META-INF/com/android/metadata"

// Keys consumed by the installer.
const (
	KeyPreDevice           = "pre-device"
	KeySerialNo            = "serialno"
	KeyOTAType             = "ota-type"
	KeyPreBuildIncremental = "pre-build-incremental"
	KeyPreBuild            = "pre-build"
	KeyPostBuildIncrement  = "post-build-incremental"
	KeyPostTimestamp       = "post-timestamp"
	KeyOTADowngrade        = "ota-downgrade"
)

var (
	ErrNotFound = errors.New("metadata entry not found")
	ErrRead     = errors.New("metadata entry unreadable")
)

// Metadata is the parsed key/value set. Keys keep first-seen order.
type Metadata struct {
	keys   []string
	values map[string]string
	lines  []string
}

// Read locates, decompresses and parses the metadata entry of pkg.
func Read(pkg *pkgaccess.Package) (*Metadata, error) {
	f := pkg.Find(Path)
	if f == nil {
		return nil, fmt.Errorf("%s in %s: %w", Path, pkg.Path(), ErrNotFound)
	}
	data, err := pkgaccess.ReadEntry(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return Parse(string(data)), nil
}

// Parse splits text on newlines, trims each line and splits it at the first
// '='. Lines without '=' are ignored. A repeated key keeps its last value.
func Parse(text string) *Metadata {
	m := &Metadata{values: make(map[string]string)}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m.lines = append(m.lines, line)

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := m.values[key]; !seen {
			m.keys = append(m.keys, key)
		}
		m.values[key] = strings.TrimSpace(value)
	}
	return m
}

// Get returns the value for key, or "" when absent.
func (m *Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m.values[key]
}

// Lookup reports whether key is present.
func (m *Metadata) Lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns keys in first-seen order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// BuildNumbers returns the "source_build: N" and "target_build: N" install log
// lines. Lines whose value is not an integer are skipped and reported in bad.
func (m *Metadata) BuildNumbers() (lines []string, bad []string) {
	if m == nil {
		return nil, nil
	}
	for _, line := range m.lines {
		var label string
		switch {
		case strings.HasPrefix(line, KeyPreBuildIncremental):
			label = "source_build"
		case strings.HasPrefix(line, KeyPostBuildIncrement):
			label = "target_build"
		default:
			continue
		}
		n, ok := parseBuildNumber(line)
		if !ok {
			bad = append(bad, line)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d", label, n))
	}
	return lines, bad
}

func parseBuildNumber(line string) (int, bool) {
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return 0, false
	}
	// Decimal, or hex with a 0x prefix. Leading zeros are not octal.
	value = strings.TrimSpace(value)
	base := 10
	if hex, ok := strings.CutPrefix(strings.ToLower(value), "0x"); ok {
		value, base = hex, 16
	}
	n, err := strconv.ParseInt(value, base, 32)
	if err != nil || n < 0 {
		return 0, false
	}
	return int(n), true
}
