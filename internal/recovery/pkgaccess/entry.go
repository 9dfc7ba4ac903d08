package pkgaccess

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// ReadEntry decompresses f fully into memory. Truncated data or a CRC
// mismatch is reported as an error.
func ReadEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return data, nil
}

// ExtractTo copies the decompressed entry to w.
func ExtractTo(f *zip.File, w io.Writer) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, fmt.Errorf("extract entry %s: %w", f.Name, err)
	}
	return n, nil
}
