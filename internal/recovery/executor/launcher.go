package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// ChildStatusFD is the descriptor number the exec launcher hands the child
// for control lines: the first entry of ExtraFiles after stdin/out/err.
const ChildStatusFD = 3

// ExitStatus describes how the child terminated.
type ExitStatus struct {
	// Exited is false when the child was killed by a signal.
	Exited bool
	Code   int
	Signal syscall.Signal
}

// Success reports a normal exit with status 0.
func (s ExitStatus) Success() bool { return s.Exited && s.Code == 0 }

func (s ExitStatus) String() string {
	if !s.Exited {
		return fmt.Sprintf("killed by signal %d (%s)", int(s.Signal), s.Signal)
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Process is a started update executor.
type Process interface {
	// Status streams the child's control lines until it closes its end.
	Status() io.Reader
	// Wait reaps the child and releases the status stream.
	Wait() (ExitStatus, error)
}

// Launcher starts an update executor with a status channel attached.
type Launcher interface {
	Start(args []string) (Process, error)
}

// ExecLauncher starts real child processes.
type ExecLauncher struct {
	// Stdout and Stderr receive the child's console output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
}

func (l *ExecLauncher) Start(args []string) (Process, error) {
	if len(args) == 0 {
		return nil, errors.New("empty update command")
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create status pipe: %w", err)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = l.Dir
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	cmd.ExtraFiles = []*os.File{w}

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("start %s: %w", args[0], err)
	}
	// The child holds its own copy. Keeping ours open would stop the read
	// side from ever seeing EOF.
	w.Close()

	return &execProcess{cmd: cmd, status: r}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	status *os.File
}

func (p *execProcess) Status() io.Reader { return p.status }

func (p *execProcess) Wait() (ExitStatus, error) {
	defer p.status.Close()

	err := p.cmd.Wait()
	if err == nil {
		return ExitStatus{Exited: true}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ExitStatus{}, fmt.Errorf("wait for %s: %w", p.cmd.Path, err)
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return ExitStatus{Exited: true, Code: exitErr.ExitCode()}, nil
	}
	if ws.Signaled() {
		return ExitStatus{Signal: ws.Signal()}, nil
	}
	return ExitStatus{Exited: ws.Exited(), Code: ws.ExitStatus()}, nil
}
