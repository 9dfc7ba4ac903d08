package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWriteTextfile(t *testing.T) {
	InstallTotal.WithLabelValues("success").Inc()
	VerifyBlocksRead.Add(8)

	path := filepath.Join(t.TempDir(), "ota.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ota_install_total", "ota_verify_blocks_read_total"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("textfile missing %s:\n%s", name, data)
		}
	}
	if err := WriteTextfile(""); err != nil {
		t.Errorf("WriteTextfile(\"\") error = %v", err)
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(VerifyTotal.WithLabelValues("committed"))
	VerifyTotal.WithLabelValues("committed").Inc()
	if got := testutil.ToFloat64(VerifyTotal.WithLabelValues("committed")); got != before+1 {
		t.Errorf("ota_verify_total{committed} = %v, want %v", got, before+1)
	}
}
