// Package pkgaccess maps an update package into memory and opens it as a zip
// archive. The mapping and the archive handle share one lifetime.
package pkgaccess

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sys/unix"
)

var (
	// ErrClosed is returned when the package is used after Close.
	ErrClosed = errors.New("update package already released")
	// ErrBlockMap is returned for '@'-prefixed block map references.
	ErrBlockMap = errors.New("block map packages are not supported")
)

// Package is one memory-mapped update package.
type Package struct {
	path    string
	data    []byte
	archive *zip.Reader
	closed  bool
}

// Map memory-maps the file at path read-only.
func Map(path string) (*Package, error) {
	if strings.HasPrefix(path, "@") {
		return nil, fmt.Errorf("map %s: %w", path, ErrBlockMap)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat package: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("package %s is not a regular file", path)
	}
	size := fi.Size()
	if size == 0 {
		return nil, fmt.Errorf("package %s is empty", path)
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("package %s too large to map (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &Package{path: path, data: data}, nil
}

func (p *Package) Path() string { return p.path }

// Bytes returns the mapped contents. The slice is invalid after Close.
func (p *Package) Bytes() []byte {
	if p.closed {
		return nil
	}
	return p.data
}

// OpenArchive parses the zip central directory from the mapped bytes.
func (p *Package) OpenArchive() error {
	if p.closed {
		return ErrClosed
	}
	zr, err := zip.NewReader(bytes.NewReader(p.data), int64(len(p.data)))
	if err != nil {
		return fmt.Errorf("open archive %s: %w", p.path, err)
	}
	p.archive = zr
	return nil
}

// Find looks up an archive entry by exact name. It returns nil when the
// entry is absent or the archive is not open.
func (p *Package) Find(name string) *zip.File {
	if p.closed || p.archive == nil {
		return nil
	}
	for _, f := range p.archive.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Close drops the archive handle and unmaps the file. Safe to call twice.
func (p *Package) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.archive = nil
	data := p.data
	p.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap %s: %w", p.path, err)
	}
	return nil
}
