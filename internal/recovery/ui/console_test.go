package ui

import (
	"bytes"
	"math"
	"testing"

	"github.com/autopeer-io/otarecovery/internal/recovery/core"
)

func TestConsoleText(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Print("Retry attempt: %d", 2)
	c.PrintOnScreenOnly("Patching system\n")
	c.PrintOnScreenOnly("\n")

	if got, want := buf.String(), "Retry attempt: 2\nPatching system\n\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsoleProgressSegments(t *testing.T) {
	c := NewConsole(nil)
	c.ShowProgress(0.25, 60)
	c.SetProgress(1)
	if got := c.Progress(); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("after verification segment: %v", got)
	}
	c.ShowProgress(0.75, 30)
	c.SetProgress(0.5)
	if got := c.Progress(); math.Abs(got-0.625) > 1e-9 {
		t.Errorf("halfway through install: %v", got)
	}
}

func TestConsoleState(t *testing.T) {
	c := NewConsole(nil)
	if !c.RebootEnabled() {
		t.Error("reboot should start enabled")
	}
	c.SetEnableReboot(false)
	c.SetBackground(core.BackgroundInstallingUpdate)
	if c.RebootEnabled() || c.Background() != core.BackgroundInstallingUpdate {
		t.Errorf("state = reboot %v, background %v", c.RebootEnabled(), c.Background())
	}
}
