package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/autopeer-io/otarecovery/internal/bootctl"
	"github.com/autopeer-io/otarecovery/pkg/options"
)

func newHAL(t *testing.T) *bootctl.FileHAL {
	t.Helper()
	h, err := bootctl.NewFileHAL(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(NewRouter(newHAL(t)))
	defer srv.Close()

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusOK, "ok"},
		{"/metrics", http.StatusOK, "ota_verify_blocks_read_total"},
		{"/v1/slots", http.StatusOK, `"suffix":"_b"`},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			var body bytes.Buffer
			if _, err := body.ReadFrom(resp.Body); err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if !strings.Contains(body.String(), tt.contains) {
				t.Errorf("body %q does not contain %q", body.String(), tt.contains)
			}
		})
	}
}

func TestSlotsJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(newHAL(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/slots", nil))

	var slots []bootctl.Slot
	if err := json.Unmarshal(rec.Body.Bytes(), &slots); err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 || !slots[0].Current || !slots[0].Successful || slots[1].Successful {
		t.Errorf("slots = %+v", slots)
	}
}

func TestGRPCServer(t *testing.T) {
	opts := options.NewGrpcOptions()
	opts.Addr = "127.0.0.1:0"
	hal := newHAL(t)
	if err := hal.SetActiveSlot(1); err != nil {
		t.Fatal(err)
	}

	s := NewGRPCServer(opts, hal)
	lis, err := s.Listen()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	c, err := bootctl.Dial(lis.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if cur, err := c.GetCurrentSlot(ctx); err != nil || cur != 1 {
		t.Fatalf("GetCurrentSlot() = %d, %v", cur, err)
	}
	if res, err := c.MarkBootSuccessful(ctx); err != nil || !res.Success {
		t.Fatalf("MarkBootSuccessful() = %+v, %v", res, err)
	}
	if marked, err := c.IsSlotMarkedSuccessful(ctx, 1); err != nil || marked != bootctl.True {
		t.Errorf("IsSlotMarkedSuccessful(1) = %v, %v", marked, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListenRemovesStaleSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "bctl")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "s.sock")
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	opts := &options.GrpcOptions{Network: "unix", Addr: sock, Timeout: time.Second}
	lis, err := NewGRPCServer(opts, newHAL(t)).Listen()
	if err != nil {
		t.Fatalf("Listen() = %v", err)
	}
	lis.Close()
}

func TestManagerSkipsDisabledHTTP(t *testing.T) {
	cfg := &Config{GrpcOptions: options.NewGrpcOptions(), HttpOptions: &options.HttpOptions{}}
	if n := len(NewManager(cfg, newHAL(t)).servers); n != 1 {
		t.Errorf("servers = %d, want 1", n)
	}
	cfg.HttpOptions = options.NewHttpOptions()
	if n := len(NewManager(cfg, newHAL(t)).servers); n != 2 {
		t.Errorf("servers = %d, want 2", n)
	}
}
