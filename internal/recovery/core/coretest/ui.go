// Package coretest provides a recording UI for tests.
package coretest

import (
	"fmt"
	"sync"

	"github.com/autopeer-io/otarecovery/internal/recovery/core"
)

// Call is one recorded UI invocation.
type Call struct {
	Method string
	Text   string
	Float  float64
	Int    int
	Bool   bool
}

// RecordingUI records every call in order.
type RecordingUI struct {
	mu    sync.Mutex
	calls []Call
}

var _ core.UI = (*RecordingUI)(nil)

func (r *RecordingUI) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *RecordingUI) Print(format string, args ...any) {
	r.record(Call{Method: "Print", Text: fmt.Sprintf(format, args...)})
}

func (r *RecordingUI) PrintOnScreenOnly(text string) {
	r.record(Call{Method: "PrintOnScreenOnly", Text: text})
}

func (r *RecordingUI) ShowProgress(fraction float64, seconds int) {
	r.record(Call{Method: "ShowProgress", Float: fraction, Int: seconds})
}

func (r *RecordingUI) SetProgress(fraction float64) {
	r.record(Call{Method: "SetProgress", Float: fraction})
}

func (r *RecordingUI) SetBackground(bg core.Background) {
	r.record(Call{Method: "SetBackground", Int: int(bg)})
}

func (r *RecordingUI) SetEnableReboot(enabled bool) {
	r.record(Call{Method: "SetEnableReboot", Bool: enabled})
}

// Calls returns a copy of the recorded calls.
func (r *RecordingUI) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Method filters recorded calls by method name.
func (r *RecordingUI) Method(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Method == name {
			out = append(out, c)
		}
	}
	return out
}

// Printed returns the text of every Print call.
func (r *RecordingUI) Printed() []string {
	var out []string
	for _, c := range r.Method("Print") {
		out = append(out, c.Text)
	}
	return out
}
