package core

// Background selects the icon behind the recovery text.
type Background int

const (
	BackgroundNone Background = iota
	BackgroundInstallingUpdate
	BackgroundErasing
	BackgroundNoCommand
	BackgroundError
)

// UI is the presentation capability. Rendering is owned by the caller;
// the install flow only issues these calls.
type UI interface {
	// Print writes to the screen and to the log.
	Print(format string, args ...any)
	// PrintOnScreenOnly writes text to the screen only.
	PrintOnScreenOnly(text string)
	// ShowProgress fills the next fraction of the bar over seconds.
	ShowProgress(fraction float64, seconds int)
	// SetProgress sets progress within the current segment.
	SetProgress(fraction float64)
	SetBackground(bg Background)
	SetEnableReboot(enabled bool)
}

// NopUI discards every call.
type NopUI struct{}

func (NopUI) Print(string, ...any)      {}
func (NopUI) PrintOnScreenOnly(string)  {}
func (NopUI) ShowProgress(float64, int) {}
func (NopUI) SetProgress(float64)       {}
func (NopUI) SetBackground(Background)  {}
func (NopUI) SetEnableReboot(bool)      {}
