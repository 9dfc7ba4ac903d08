// Package executor runs the update executor as a child process and applies
// the control lines it writes to the status channel.
package executor

import (
	"bufio"
	"errors"
	"io"

	"github.com/autopeer-io/otarecovery/internal/recovery/command"
	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

// DefaultVerificationShare is the part of the progress bar already spent on
// signature verification before the executor starts.
const DefaultVerificationShare = 0.25

// Outcome is what one executor run leaves behind besides its result.
type Outcome struct {
	// WipeCache is set when the child asked for a cache wipe after install.
	WipeCache bool
	// RetryRequested is set when the child sent retry_update.
	RetryRequested bool
	Exit           ExitStatus
}

// Engine drives a Launcher and interprets the control protocol.
type Engine struct {
	launcher          Launcher
	verificationShare float64
}

type Option func(*Engine)

// WithVerificationShare overrides DefaultVerificationShare.
func WithVerificationShare(share float64) Option {
	return func(e *Engine) { e.verificationShare = share }
}

func NewEngine(l Launcher, opts ...Option) *Engine {
	e := &Engine{launcher: l, verificationShare: DefaultVerificationShare}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run starts cmd and blocks until the child closes the status channel and
// exits. The error is tagged core.Retry when the child requested a retry,
// core.Error when it could not be started or did not exit cleanly.
func (e *Engine) Run(s *core.Session, cmd *command.UpdateCommand) (*Outcome, error) {
	args := cmd.Args()
	if len(args) == 0 {
		return &Outcome{}, core.Fail(core.Error, "empty update command")
	}
	logger := log.WithValues("executor", args[0])
	logger.Info("Starting update executor", "args", args, "statusFD", cmd.StatusFD)

	proc, err := e.launcher.Start(args)
	if err != nil {
		return &Outcome{}, core.Wrap(core.Error, err)
	}

	out := &Outcome{}
	e.consume(s, proc.Status(), out)

	var waitErr error
	out.Exit, waitErr = proc.Wait()

	// A retry request wins over however the child ended.
	switch {
	case out.RetryRequested:
		if waitErr != nil {
			logger.Info("Update executor requested a retry", "waitError", waitErr.Error())
			return out, core.Fail(core.Retry, "executor requested retry (wait: %v)", waitErr)
		}
		logger.Info("Update executor requested a retry", "exit", out.Exit.String())
		return out, core.Fail(core.Retry, "executor requested retry (%s)", out.Exit)
	case waitErr != nil:
		return out, core.Wrap(core.Error, waitErr)
	case !out.Exit.Success():
		logger.Error(nil, "Update executor failed", "exit", out.Exit.String())
		return out, core.Fail(core.Error, "error in %s (%s)", args[0], out.Exit)
	}
	return out, nil
}

// consume applies events in emission order until EOF.
func (e *Engine) consume(s *core.Session, r io.Reader, out *Outcome) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if ev, ok := ParseLine(line); ok {
				e.Apply(s, ev, out)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Error(err, "Failed to read executor status channel")
			}
			return
		}
	}
}

// Apply performs one event against the session and records flags in out.
func (e *Engine) Apply(s *core.Session, ev Event, out *Outcome) {
	ui := s.UI
	switch ev := ev.(type) {
	case Progress:
		if ui != nil {
			ui.ShowProgress(ev.Fraction*(1-e.verificationShare), ev.Seconds)
		}
	case SetProgress:
		if ui != nil {
			ui.SetProgress(ev.Fraction)
		}
	case UIPrint:
		if ui != nil {
			text := ev.Text
			if text == "" {
				text = "\n"
			}
			ui.PrintOnScreenOnly(text)
		}
	case WipeCache:
		out.WipeCache = true
	case ClearDisplay:
		if ui != nil {
			ui.SetBackground(core.BackgroundNone)
		}
	case EnableReboot:
		if ui != nil {
			ui.SetEnableReboot(ev.Enabled)
		}
	case RetryRequested:
		out.RetryRequested = true
	case LogLine:
		s.Log.Append(ev.Text)
	case Unknown:
		log.Warn("Unknown executor command", "line", ev.Raw)
	}
}
