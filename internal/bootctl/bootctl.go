// Package bootctl is the boot-control capability: which slot is running,
// whether it has been marked successful, and the request to mark it.
package bootctl

import (
	"context"
	"fmt"
)

// BoolResult is the tri-state answer of IsSlotMarkedSuccessful.
type BoolResult int32

const (
	False BoolResult = iota
	True
	InvalidSlot
)

func (b BoolResult) String() string {
	switch b {
	case False:
		return "false"
	case True:
		return "true"
	case InvalidSlot:
		return "invalid-slot"
	default:
		return fmt.Sprintf("BoolResult(%d)", int32(b))
	}
}

// CommandResult reports a slot state transition request.
type CommandResult struct {
	Success bool
	Message string
}

// Client is implemented by every boot-control binding.
type Client interface {
	GetCurrentSlot(ctx context.Context) (uint32, error)
	IsSlotMarkedSuccessful(ctx context.Context, slot uint32) (BoolResult, error)
	// MarkBootSuccessful marks the running slot. A refused request is a
	// CommandResult with Success false, not an error.
	MarkBootSuccessful(ctx context.Context) (CommandResult, error)
}

// Slot describes one slot for status output.
type Slot struct {
	Index      uint32 `json:"index"`
	Suffix     string `json:"suffix"`
	Bootable   bool   `json:"bootable"`
	Successful bool   `json:"successful"`
	Current    bool   `json:"current"`
}

// Inspector is implemented by bindings that can enumerate slots.
type Inspector interface {
	Slots(ctx context.Context) ([]Slot, error)
}
