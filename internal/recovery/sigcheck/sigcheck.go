// Package sigcheck adapts an external signature-verification oracle to the
// install flow. The cryptography lives in the oracle; this package only
// feeds it the mapped package bytes and reports a trust decision.
package sigcheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

// Oracle decides whether data carries a trusted signature.
type Oracle interface {
	Verify(ctx context.Context, data []byte) (bool, error)
}

// OracleFunc lets a plain function act as an Oracle.
type OracleFunc func(ctx context.Context, data []byte) (bool, error)

func (f OracleFunc) Verify(ctx context.Context, data []byte) (bool, error) { return f(ctx, data) }

// Adapter runs an Oracle and reports timing to the session UI.
type Adapter struct {
	oracle Oracle
	clock  clock.PassiveClock
}

func NewAdapter(oracle Oracle, clk clock.PassiveClock) *Adapter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Adapter{oracle: oracle, clock: clk}
}

// Verify returns true only when the oracle accepts data. Oracle errors are
// logged and count as rejection.
func (a *Adapter) Verify(ctx context.Context, s *core.Session, data []byte) bool {
	if s != nil && s.UI != nil {
		s.UI.Print("Verifying update package...")
	}
	start := a.clock.Now()
	ok, err := a.oracle.Verify(ctx, data)
	elapsed := a.clock.Since(start)

	result := 0
	if !ok || err != nil {
		result = 1
	}
	if s != nil && s.UI != nil {
		s.UI.Print("Update package verification took %.1f s (result %d).", elapsed.Seconds(), result)
	}
	if err != nil {
		log.Error(err, "Signature oracle failed", "bytes", len(data))
		return false
	}
	if !ok {
		log.Warn("Signature verification rejected package", "bytes", len(data))
	}
	return ok
}

// CommandOracle pipes the package to an external verifier on stdin. Exit
// status 0 means trusted, 1 means rejected, anything else is an error.
type CommandOracle struct {
	Path string
	Args []string
}

func (c *CommandOracle) Verify(ctx context.Context, data []byte) (bool, error) {
	if c.Path == "" {
		return false, errors.New("no signature verifier configured")
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("run %s: %w (stderr: %q)", c.Path, err, stderr.String())
}

// Insecure accepts every package. Only for development images.
type Insecure struct{}

func (Insecure) Verify(context.Context, []byte) (bool, error) { return true, nil }
