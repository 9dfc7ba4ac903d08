// Package props binds the device property store.
package props

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// Property names read by the installer and the verifier.
const (
	ProductDevice     = "ro.product.device"
	SerialNo          = "ro.serialno"
	BuildIncremental  = "ro.build.version.incremental"
	BuildFingerprint  = "ro.build.fingerprint"
	BuildDateUTC      = "ro.build.date.utc"
	BootVerityMode    = "ro.boot.veritymode"
	BootSlotSuffix    = "ro.boot.slot_suffix"
	bootPrefix        = "ro.boot."
	cmdlineBootPrefix = "androidboot."
)

// DefaultCmdline is the kernel command line read for androidboot.* values.
const DefaultCmdline = "/proc/cmdline"

// Store is a read-only view of device properties.
type Store interface {
	// Get returns the value and whether the property exists.
	Get(key string) (string, bool)
}

// Map is an in-memory Store.
type Map map[string]string

func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// GetOr returns the property value or def when missing or empty.
func GetOr(s Store, key, def string) string {
	if v, ok := s.Get(key); ok && v != "" {
		return v
	}
	return def
}

// FileStore loads properties from build.prop style files and the kernel
// command line. Later files override earlier ones.
type FileStore struct {
	PropFiles   []string
	CmdlinePath string

	once   sync.Once
	values Map
	err    error
}

// NewFileStore returns a lazily loaded store over files.
func NewFileStore(cmdline string, files ...string) *FileStore {
	if cmdline == "" {
		cmdline = DefaultCmdline
	}
	return &FileStore{PropFiles: files, CmdlinePath: cmdline}
}

func (s *FileStore) Get(key string) (string, bool) {
	if err := s.Load(); err != nil && s.values == nil {
		return "", false
	}
	return s.values.Get(key)
}

// Load reads all sources once. Missing files are skipped; other read errors
// are returned but whatever parsed is still served.
func (s *FileStore) Load() error {
	s.once.Do(func() {
		s.values = Map{}
		var errs []error
		for _, path := range s.PropFiles {
			if err := s.loadFile(path, parsePropFile); err != nil {
				errs = append(errs, err)
			}
		}
		if s.CmdlinePath != "" {
			if err := s.loadFile(s.CmdlinePath, parseCmdline); err != nil {
				errs = append(errs, err)
			}
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

func (s *FileStore) loadFile(path string, parse func(io.Reader, Map) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := parse(f, s.values); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func parsePropFile(r io.Reader, into Map) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		into[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return sc.Err()
}

// parseCmdline maps androidboot.X=Y kernel arguments to ro.boot.X.
func parseCmdline(r io.Reader, into Map) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, arg := range strings.Fields(string(data)) {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || !strings.HasPrefix(key, cmdlineBootPrefix) {
			continue
		}
		name := strings.TrimPrefix(key, cmdlineBootPrefix)
		if _, exists := into[bootPrefix+name]; exists {
			continue
		}
		into[bootPrefix+name] = value
	}
	return nil
}
