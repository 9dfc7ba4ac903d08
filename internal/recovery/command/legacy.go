package command

import (
	"fmt"
	"os"
	"strconv"

	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

const (
	// BinaryEntry is the embedded update executable of a legacy package.
	BinaryEntry = "META-INF/com/google/android/update-binary"
	// DefaultBinaryPath is where the embedded executable is extracted.
	DefaultBinaryPath = "/tmp/update_binary"
	// APIVersion is the interface version passed as the first argument.
	APIVersion = "3"
)

// Legacy extracts the package's own update binary and runs it.
type Legacy struct {
	BinaryPath string
}

func (b *Legacy) binaryPath() string {
	if b.BinaryPath == "" {
		return DefaultBinaryPath
	}
	return b.BinaryPath
}

func (b *Legacy) Build(s *core.Session, pkg *pkgaccess.Package, statusFD int) (*UpdateCommand, error) {
	entry := pkg.Find(BinaryEntry)
	if entry == nil {
		return nil, core.Fail(core.Corrupt, "package has no %s", BinaryEntry)
	}

	bin := b.binaryPath()
	if err := os.Remove(bin); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to remove stale update binary", "path", bin, "err", err)
	}
	f, err := os.OpenFile(bin, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return nil, core.Wrap(core.Error, fmt.Errorf("create %s: %w", bin, err))
	}
	_, copyErr := pkgaccess.ExtractTo(entry, f)
	closeErr := f.Close()
	if copyErr != nil {
		return nil, core.Wrap(core.Error, fmt.Errorf("extract %s: %w", BinaryEntry, copyErr))
	}
	if closeErr != nil {
		return nil, core.Wrap(core.Error, fmt.Errorf("close %s: %w", bin, closeErr))
	}
	// umask may have masked the execute bits away.
	if err := os.Chmod(bin, 0o755); err != nil {
		return nil, core.Wrap(core.Error, fmt.Errorf("chmod %s: %w", bin, err))
	}

	args := []string{bin, APIVersion, strconv.Itoa(statusFD), pkg.Path()}
	if s != nil && s.RetryCount > 0 {
		args = append(args, "retry")
	}
	return New(statusFD, args...), nil
}
