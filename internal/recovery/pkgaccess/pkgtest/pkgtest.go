// Package pkgtest builds update package fixtures for tests.
package pkgtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Entry is one file written into a fixture archive.
type Entry struct {
	Name string
	Data []byte
	// Store writes the entry uncompressed, as payload.bin must be.
	Store bool
	Mode  os.FileMode
}

// Text is shorthand for a deflated text entry.
func Text(name, content string) Entry {
	return Entry{Name: name, Data: []byte(content)}
}

// WriteZip writes entries to dir/name and returns the path.
func WriteZip(t testing.TB, dir, name string, entries ...Entry) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		if e.Store {
			hdr.Method = zip.Store
		}
		if e.Mode != 0 {
			hdr.SetMode(e.Mode)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("create entry %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("write entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}
