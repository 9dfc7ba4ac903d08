package pkgaccess

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess/pkgtest"
)

func TestMapOpenFind(t *testing.T) {
	path := pkgtest.WriteZip(t, t.TempDir(), "ota.zip",
		pkgtest.Text("META-INF/com/android/metadata", "ota-type=AB\n"),
		pkgtest.Entry{Name: "payload.bin", Data: []byte("CrAU"), Store: true},
	)

	pkg, err := Map(path)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	defer pkg.Close()

	fi, _ := os.Stat(path)
	if got := len(pkg.Bytes()); int64(got) != fi.Size() {
		t.Fatalf("len(Bytes()) = %d, want %d", got, fi.Size())
	}

	if f := pkg.Find("payload.bin"); f != nil {
		t.Fatal("Find() before OpenArchive should return nil")
	}
	if err := pkg.OpenArchive(); err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}

	meta := pkg.Find("META-INF/com/android/metadata")
	if meta == nil {
		t.Fatal("metadata entry not found")
	}
	data, err := ReadEntry(meta)
	if err != nil {
		t.Fatalf("ReadEntry() error = %v", err)
	}
	if string(data) != "ota-type=AB\n" {
		t.Errorf("ReadEntry() = %q", data)
	}
	if pkg.Find("missing") != nil {
		t.Error("Find(missing) != nil")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	path := pkgtest.WriteZip(t, t.TempDir(), "ota.zip", pkgtest.Text("a", "b"))
	pkg, err := Map(path)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if err := pkg.OpenArchive(); err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}

	if err := pkg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pkg.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if pkg.Bytes() != nil {
		t.Error("Bytes() after Close should be nil")
	}
	if pkg.Find("a") != nil {
		t.Error("Find() after Close should be nil")
	}
	if err := pkg.OpenArchive(); !errors.Is(err, ErrClosed) {
		t.Errorf("OpenArchive() after Close = %v, want ErrClosed", err)
	}
}

func TestMapFailures(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.zip")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.zip")},
		{"empty file", empty},
		{"directory", dir},
		{"block map", "@/cache/recovery/block.map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if pkg, err := Map(tt.path); err == nil {
				pkg.Close()
				t.Fatalf("Map(%q) succeeded, want error", tt.path)
			}
		})
	}
}

func TestOpenArchiveRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.zip")
	if err := os.WriteFile(path, []byte("definitely not a zip file"), 0o644); err != nil {
		t.Fatal(err)
	}
	pkg, err := Map(path)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	defer pkg.Close()

	if err := pkg.OpenArchive(); err == nil {
		t.Fatal("OpenArchive() on garbage succeeded")
	}
}
