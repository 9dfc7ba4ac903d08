package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Session carries the cross-cutting state of one apply attempt. It is built
// once per attempt and passed explicitly to every stage.
type Session struct {
	// ID identifies the attempt in reports and archived logs.
	ID string
	UI UI
	// RetryCount is 0 on the first attempt.
	RetryCount int
	// ModifiedFlash is set as soon as an install begins.
	ModifiedFlash bool
	Log           *LogBuffer
}

// NewSession returns a session with a fresh ID and an empty log buffer. A nil
// ui is replaced by NopUI.
func NewSession(ui UI, retryCount int) *Session {
	if ui == nil {
		ui = NopUI{}
	}
	return &Session{
		ID:         uuid.NewString(),
		UI:         ui,
		RetryCount: retryCount,
		Log:        &LogBuffer{},
	}
}

// LogBuffer accumulates install log lines in emission order.
type LogBuffer struct {
	lines []string
}

func (b *LogBuffer) Append(line string) {
	b.lines = append(b.lines, line)
}

func (b *LogBuffer) Appendf(format string, args ...any) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the buffered lines.
func (b *LogBuffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *LogBuffer) Len() int { return len(b.lines) }

func (b *LogBuffer) String() string {
	return strings.Join(b.lines, "\n")
}
