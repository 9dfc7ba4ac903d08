package verity

import (
	"errors"
	"testing"

	"github.com/autopeer-io/otarecovery/internal/device/props"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		store   props.Map
		wantErr error
		unexp   bool
	}{
		{"enforcing", props.Map{props.BootVerityMode: "enforcing"}, nil, false},
		{"eio", props.Map{props.BootVerityMode: "eio"}, ErrEIOMode, false},
		{"EIO upper case", props.Map{props.BootVerityMode: "EIO"}, ErrEIOMode, false},
		{"missing", props.Map{}, ErrModeUnavailable, false},
		{"logging", props.Map{props.BootVerityMode: "logging"}, nil, true},
		{"enforcing is case sensitive", props.Map{props.BootVerityMode: "Enforcing"}, nil, true},
		{"empty", props.Map{props.BootVerityMode: ""}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.store)
			if tt.unexp {
				var ue *UnexpectedModeError
				if !errors.As(err, &ue) {
					t.Fatalf("Check() = %v, want *UnexpectedModeError", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("Check() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
