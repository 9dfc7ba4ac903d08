// Package verify decides, on the first boot after an update, whether the
// running slot is trustworthy and commits it through boot control.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/otarecovery/internal/bootctl"
	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/otarecovery/internal/pkg/util/fsm"
	"github.com/autopeer-io/otarecovery/internal/verify/blockcheck"
	"github.com/autopeer-io/otarecovery/internal/verify/caremap"
	"github.com/autopeer-io/otarecovery/internal/verify/verity"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

// States of a verification run.
const (
	StateStart             = "start"
	StateCheckingSlot      = "checking_slot"
	StateAlreadySuccessful = "already_successful"
	StateNeedsVerification = "needs_verification"
	StateCheckingVerity    = "checking_verity"
	StateVerifyingBlocks   = "verifying_blocks"
	StateCommitting        = "committing"
	StateCommitted         = "committed"
	StateFailed            = "failed"
)

const (
	EventCheck        = "check"
	EventSkip         = "skip"
	EventVerify       = "verify"
	EventCheckVerity  = "check_verity"
	EventVerifyBlocks = "verify_blocks"
	EventCommit       = "commit"
	EventDone         = "done"
	EventFail         = "fail"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeCommitted         Outcome = StateCommitted
	OutcomeAlreadySuccessful Outcome = StateAlreadySuccessful
	OutcomeFailed            Outcome = StateFailed
)

// Succeeded reports whether the boot may proceed.
func (o Outcome) Succeeded() bool { return o != OutcomeFailed }

// ErrMarkRefused is returned when boot control declines to commit the slot.
var ErrMarkRefused = errors.New("error marking booted successfully")

// BlockVerifier re-reads the ranges listed in a care map.
type BlockVerifier interface {
	Verify(ctx context.Context, cm *caremap.CareMap) error
}

// Result describes a finished run.
type Result struct {
	ID      string
	Slot    uint32
	Marked  bootctl.BoolResult
	Outcome Outcome
	Err     error
	Elapsed time.Duration

	// BlocksVerified is false when the care map was absent.
	BlocksVerified bool
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithCareMapPath overrides caremap.DefaultPath.
func WithCareMapPath(path string) Option {
	return func(v *Verifier) { v.careMapPath = path }
}

// WithBlockVerifier replaces the blockcheck verifier.
func WithBlockVerifier(bv BlockVerifier) Option {
	return func(v *Verifier) { v.blocks = bv }
}

// WithClock sets the clock used to time a run.
func WithClock(clk clock.PassiveClock) Option {
	return func(v *Verifier) { v.clock = clk }
}

// Verifier runs the slot verification state machine. A Verifier is single
// use: create a new one for every boot.
type Verifier struct {
	boot        bootctl.Client
	props       props.Store
	blocks      BlockVerifier
	careMapPath string
	clock       clock.PassiveClock
	logger      log.Logger

	fsm    *fsm.FSM
	result Result
}

// New returns a Verifier talking to boot control through client and
// reading boot properties from store.
func New(client bootctl.Client, store props.Store, opts ...Option) *Verifier {
	v := &Verifier{
		boot:        client,
		props:       store,
		careMapPath: caremap.DefaultPath,
		clock:       clock.RealClock{},
		logger:      log.WithName("update-verifier"),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.blocks == nil {
		v.blocks = blockcheck.New(store)
	}

	events := fsm.Events{
		{Name: EventCheck, Src: []string{StateStart}, Dst: StateCheckingSlot},
		{Name: EventSkip, Src: []string{StateCheckingSlot}, Dst: StateAlreadySuccessful},
		{Name: EventVerify, Src: []string{StateCheckingSlot}, Dst: StateNeedsVerification},
		{Name: EventCheckVerity, Src: []string{StateNeedsVerification}, Dst: StateCheckingVerity},
		{Name: EventVerifyBlocks, Src: []string{StateCheckingVerity}, Dst: StateVerifyingBlocks},
		{Name: EventCommit, Src: []string{StateVerifyingBlocks}, Dst: StateCommitting},
		{Name: EventDone, Src: []string{StateCommitting}, Dst: StateCommitted},

		{Name: EventFail, Src: []string{
			StateStart, StateCheckingSlot, StateNeedsVerification,
			StateCheckingVerity, StateVerifyingBlocks, StateCommitting,
		}, Dst: StateFailed},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.LogTransitions(v.logger),

		"enter_" + StateCheckingSlot:    fsmutil.WrapAction(v.checkSlot),
		"enter_" + StateCheckingVerity:  fsmutil.WrapAction(v.checkVerity),
		"enter_" + StateVerifyingBlocks: fsmutil.WrapAction(v.verifyBlocks),
		"enter_" + StateCommitting:      fsmutil.WrapAction(v.commit),
		"enter_" + StateFailed:          fsmutil.WrapEvent(v.enterFailed),
	}

	v.fsm = fsm.NewFSM(StateStart, events, callbacks)
	return v
}

// Current returns the current state.
func (v *Verifier) Current() string { return v.fsm.Current() }

// Run drives the machine to a terminal state. The returned error is the
// cause of a failed outcome.
func (v *Verifier) Run(ctx context.Context) (*Result, error) {
	start := v.clock.Now()
	v.result.ID = uuid.NewString()
	defer func() {
		v.result.Elapsed = v.clock.Since(start)
		metrics.VerifyTotal.WithLabelValues(string(v.result.Outcome)).Inc()
		v.logger.Info("Leaving update verifier", "outcome", v.result.Outcome,
			"elapsed", v.result.Elapsed.String())
	}()

	for event := EventCheck; event != ""; event = v.next() {
		if err := v.fsm.Event(ctx, event); err != nil {
			v.fail(ctx, err)
			return &v.result, err
		}
	}
	v.result.Outcome = Outcome(v.fsm.Current())
	return &v.result, nil
}

// next picks the event leaving the current state, or "" in a terminal state.
func (v *Verifier) next() string {
	switch v.fsm.Current() {
	case StateCheckingSlot:
		// Only a slot reported as successful is skipped; FALSE and
		// INVALID_SLOT both go through verification.
		if v.result.Marked == bootctl.True {
			return EventSkip
		}
		return EventVerify
	case StateNeedsVerification:
		return EventCheckVerity
	case StateCheckingVerity:
		return EventVerifyBlocks
	case StateVerifyingBlocks:
		return EventCommit
	case StateCommitting:
		return EventDone
	default:
		return ""
	}
}

func (v *Verifier) fail(ctx context.Context, cause error) {
	v.result.Outcome = OutcomeFailed
	v.result.Err = cause
	if err := v.fsm.Event(ctx, EventFail, cause); err != nil {
		v.logger.Error(err, "Failed to enter failed state", "from", v.fsm.Current())
	}
}

func (v *Verifier) checkSlot(ctx context.Context) error {
	slot, err := v.boot.GetCurrentSlot(ctx)
	if err != nil {
		return fmt.Errorf("get current slot: %w", err)
	}
	marked, err := v.boot.IsSlotMarkedSuccessful(ctx, slot)
	if err != nil {
		return fmt.Errorf("query slot %d: %w", slot, err)
	}
	v.result.Slot, v.result.Marked = slot, marked
	v.logger.Info("Booting slot", "slot", slot, "isSlotMarkedSuccessful", int32(marked))
	return nil
}

func (v *Verifier) checkVerity(context.Context) error {
	return verity.Check(v.props)
}

func (v *Verifier) verifyBlocks(ctx context.Context) error {
	cm, err := caremap.Load(v.careMapPath)
	if err != nil {
		return fmt.Errorf("failed to verify all blocks in care map file: %w", err)
	}
	if cm.Missing {
		v.logger.Warn("Care map not found, skipping block verification", "path", v.careMapPath)
		return nil
	}
	if err := v.blocks.Verify(ctx, cm); err != nil {
		return fmt.Errorf("failed to verify all blocks in care map file: %w", err)
	}
	v.result.BlocksVerified = true
	return nil
}

func (v *Verifier) commit(ctx context.Context) error {
	cr, err := v.boot.MarkBootSuccessful(ctx)
	if err != nil {
		return fmt.Errorf("mark boot successful: %w", err)
	}
	if !cr.Success {
		return fmt.Errorf("%w: %s", ErrMarkRefused, cr.Message)
	}
	v.logger.Info("Marked slot as booted successfully", "slot", v.result.Slot)
	return nil
}

func (v *Verifier) enterFailed(_ context.Context, e *fsm.Event) error {
	var cause error
	if len(e.Args) > 0 {
		cause, _ = e.Args[0].(error)
	}
	v.logger.Error(cause, "Slot verification failed", "from", e.Src, "slot", v.result.Slot)
	return nil
}
