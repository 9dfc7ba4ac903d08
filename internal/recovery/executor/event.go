package executor

import (
	"strconv"
	"strings"
)

// Event is one control line emitted by the update executor.
type Event interface {
	isEvent()
}

// Progress fills the next Fraction of the bar over Seconds.
type Progress struct {
	Fraction float64
	Seconds  int
}

// SetProgress positions the bar within the current segment.
type SetProgress struct {
	Fraction float64
}

type UIPrint struct {
	Text string
}

type WipeCache struct{}

type ClearDisplay struct{}

type EnableReboot struct {
	Enabled bool
}

// RetryRequested asks the caller to run the attempt again.
type RetryRequested struct{}

// LogLine is appended to the install log.
type LogLine struct {
	Text string
}

type Unknown struct {
	Raw string
}

func (Progress) isEvent()       {}
func (SetProgress) isEvent()    {}
func (UIPrint) isEvent()        {}
func (WipeCache) isEvent()      {}
func (ClearDisplay) isEvent()   {}
func (EnableReboot) isEvent()   {}
func (RetryRequested) isEvent() {}
func (LogLine) isEvent()        {}
func (Unknown) isEvent()        {}

// ParseLine turns one protocol line into an Event. Blank lines yield false.
// Numeric arguments that fail to parse read as zero.
func ParseLine(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimLeft(line, " ")
	if strings.TrimSpace(trimmed) == "" {
		return nil, false
	}

	command, rest, _ := strings.Cut(trimmed, " ")
	args := strings.Fields(rest)
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch command {
	case "progress":
		return Progress{Fraction: parseFloat(arg(0)), Seconds: parseInt(arg(1))}, true
	case "set_progress":
		return SetProgress{Fraction: parseFloat(arg(0))}, true
	case "ui_print":
		return UIPrint{Text: rest}, true
	case "wipe_cache":
		return WipeCache{}, true
	case "clear_display":
		return ClearDisplay{}, true
	case "enable_reboot":
		return EnableReboot{Enabled: true}, true
	case "retry_update":
		return RetryRequested{}, true
	case "log":
		return LogLine{Text: rest}, true
	default:
		return Unknown{Raw: line}, true
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
