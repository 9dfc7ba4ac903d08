// Package caremap reads the block-range manifest written during the apply
// phase and parses its range strings.
package caremap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// DefaultPath is where the apply phase leaves the care map.
const DefaultPath = "/data/ota_package/care_map.txt"

// Entry is one partition: a block device name prefix and its range string.
type Entry struct {
	DevicePrefix string
	RangeSpec    string
}

// CareMap lists the partitions to verify, system first.
type CareMap struct {
	Entries []Entry
	// Missing is set when the file did not exist and nothing is to be verified.
	Missing bool
}

// BlockRange is the half-open block interval [Start, End).
type BlockRange struct {
	Start uint64
	End   uint64
}

// Blocks is End-Start.
func (r BlockRange) Blocks() uint64 { return r.End - r.Start }

// Load reads the care map at path. A missing file yields an empty care map
// with Missing set.
func Load(path string) (*CareMap, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &CareMap{Missing: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read care map: %w", err)
	}
	return Parse(string(data))
}

// Parse accepts exactly 2 or 4 non-empty lines.
func Parse(content string) (*CareMap, error) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 && len(lines) != 4 {
		return nil, fmt.Errorf("invalid lines in care map: found %d lines, expecting 2 or 4 lines", len(lines))
	}
	cm := &CareMap{}
	for i := 0; i < len(lines); i += 2 {
		prefix := strings.TrimSpace(lines[i])
		spec := strings.TrimSpace(lines[i+1])
		if prefix == "" || spec == "" {
			return nil, fmt.Errorf("care map line %d: empty entry", i+1)
		}
		cm.Entries = append(cm.Entries, Entry{DevicePrefix: prefix, RangeSpec: spec})
	}
	return cm, nil
}

// ParseRanges parses "count,s1,e1,s2,e2,...". count must be even, non-zero
// and equal to the number of values that follow; every start must be
// below its end.
func ParseRanges(spec string) ([]BlockRange, error) {
	tokens := strings.Split(spec, ",")
	count, err := strconv.ParseUint(tokens[0], 10, 64)
	if err != nil || count == 0 || count%2 != 0 || count != uint64(len(tokens)-1) {
		return nil, fmt.Errorf("error in parsing range string %q", spec)
	}

	ranges := make([]BlockRange, 0, count/2)
	for i := 1; i < len(tokens); i += 2 {
		start, err1 := strconv.ParseUint(tokens[i], 10, 32)
		end, err2 := strconv.ParseUint(tokens[i+1], 10, 32)
		if err1 != nil || err2 != nil || start >= end {
			return nil, fmt.Errorf("invalid range pair %s, %s", tokens[i], tokens[i+1])
		}
		ranges = append(ranges, BlockRange{Start: start, End: end})
	}
	return ranges, nil
}
