// Package verity classifies the dm-verity enforcement mode.
package verity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/autopeer-io/otarecovery/internal/device/props"
)

// ModeEnforcing is the only mode in which blocks are verified.
const ModeEnforcing = "enforcing"

var (
	// ErrEIOMode means verity returns I/O errors instead of rebooting. A slot
	// that never booted successfully should not be in that mode.
	ErrEIOMode = errors.New("dm-verity is in EIO mode")
	// ErrModeUnavailable means the mode property could not be read.
	ErrModeUnavailable = errors.New("failed to get dm-verity mode")
)

// UnexpectedModeError carries a mode that is neither enforcing nor eio.
type UnexpectedModeError struct {
	Mode string
}

func (e *UnexpectedModeError) Error() string {
	return fmt.Sprintf("unexpected dm-verity mode %q, expecting %s", e.Mode, ModeEnforcing)
}

// Check returns nil only when ro.boot.veritymode is exactly "enforcing".
func Check(s props.Store) error {
	mode, ok := s.Get(props.BootVerityMode)
	if !ok {
		return ErrModeUnavailable
	}
	return Classify(mode)
}

// Classify maps a mode string to the Check result.
func Classify(mode string) error {
	switch {
	case strings.EqualFold(mode, "eio"):
		return ErrEIOMode
	case mode == ModeEnforcing:
		return nil
	default:
		return &UnexpectedModeError{Mode: mode}
	}
}
