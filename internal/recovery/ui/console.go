// Package ui is the text-console binding of the recovery presentation
// capability. Rendering beyond plain text is left to the device's own UI.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

// Console writes screen text to an io.Writer and mirrors it to the log.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	// segment start and size of the current progress segment.
	segStart, segSize float64
	progress          float64
	background        core.Background
	rebootEnabled     bool
}

var _ core.UI = (*Console)(nil)

func NewConsole(out io.Writer) *Console {
	return &Console{out: out, rebootEnabled: true}
}

func (c *Console) write(text string) {
	if c.out == nil {
		return
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, _ = io.WriteString(c.out, text)
}

func (c *Console) Print(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.mu.Lock()
	c.write(text)
	c.mu.Unlock()
	if t := strings.TrimSpace(text); t != "" {
		log.Info(t)
	}
}

func (c *Console) PrintOnScreenOnly(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.write(text)
}

func (c *Console) ShowProgress(fraction float64, seconds int) {
	c.mu.Lock()
	c.segStart += c.segSize
	c.segSize = fraction
	c.progress = c.segStart
	total := c.progress
	c.mu.Unlock()
	log.Debug("Progress segment", "fraction", fraction, "seconds", seconds, "total", total)
}

func (c *Console) SetProgress(fraction float64) {
	c.mu.Lock()
	c.progress = c.segStart + clamp(fraction)*c.segSize
	c.mu.Unlock()
}

func (c *Console) SetBackground(bg core.Background) {
	c.mu.Lock()
	c.background = bg
	c.mu.Unlock()
}

func (c *Console) SetEnableReboot(enabled bool) {
	c.mu.Lock()
	c.rebootEnabled = enabled
	c.mu.Unlock()
}

// Progress returns the overall bar position in [0,1].
func (c *Console) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clamp(c.progress)
}

func (c *Console) Background() core.Background {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background
}

// RebootEnabled reports whether the user may reboot right now.
func (c *Console) RebootEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebootEnabled
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
