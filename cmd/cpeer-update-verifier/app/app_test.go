package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/autopeer-io/otarecovery/internal/bootctl"
	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/report"
	"github.com/autopeer-io/otarecovery/internal/verify/verity"
	"github.com/autopeer-io/otarecovery/pkg/app"
)

func newHAL(t *testing.T, active uint32) *bootctl.FileHAL {
	t.Helper()
	h, err := bootctl.NewFileHAL(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.SetActiveSlot(active); err != nil {
		t.Fatal(err)
	}
	return h
}

func TestVerifySlotCommitsThenSkips(t *testing.T) {
	ctx := context.Background()
	hal := newHAL(t, 1)
	store := props.Map{props.BootVerityMode: verity.ModeEnforcing, props.BootSlotSuffix: "_b"}
	careMap := filepath.Join(t.TempDir(), "care_map.txt") // absent

	for i := 0; i < 2; i++ {
		if err := verifySlot(ctx, hal, store, careMap, report.New("dev-1")); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	marked, err := hal.IsSlotMarkedSuccessful(ctx, 1)
	if err != nil || marked != bootctl.True {
		t.Errorf("slot 1 marked = %v, %v", marked, err)
	}
}

func TestVerifySlotFailureExitsNonZero(t *testing.T) {
	ctx := context.Background()
	hal := newHAL(t, 1)
	store := props.Map{props.BootVerityMode: "eio"}

	err := verifySlot(ctx, hal, store, filepath.Join(t.TempDir(), "care_map.txt"), report.New("dev-1"))
	var exitErr *app.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("err = %v, want ExitError with code 1", err)
	}
	if !errors.Is(err, verity.ErrEIOMode) {
		t.Errorf("err = %v, want ErrEIOMode in chain", err)
	}
	marked, _ := hal.IsSlotMarkedSuccessful(ctx, 1)
	if marked != bootctl.False {
		t.Errorf("slot 1 marked = %v after failed verification", marked)
	}
}

func TestCommand(t *testing.T) {
	cmd := NewApp().Command()
	if cmd.Use != commandName {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"care-map", "grpc.addr", "grpc.network", "device.prop-files", "mqtt.broker", "metrics-textfile"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
	if err := cmd.Args(cmd, []string{"extra"}); err == nil {
		t.Error("positional arguments accepted")
	}
}
