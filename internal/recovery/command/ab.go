package command

import (
	"fmt"

	"github.com/klauspost/compress/zip"

	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/recovery/compat"
	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/internal/recovery/metadata"
	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess"
)

const (
	PropertiesEntry = "payload_properties.txt"
	PayloadEntry    = "payload.bin"
	// DefaultSideloadPath is the system update executor for A/B packages.
	DefaultSideloadPath = "/sbin/update_engine_sideload"
)

// AB points the system update executor at the stored payload inside the
// package. Nothing is extracted.
type AB struct {
	Props        props.Store
	SideloadPath string
}

func (b *AB) Build(s *core.Session, pkg *pkgaccess.Package, statusFD int) (*UpdateCommand, error) {
	meta, err := metadata.Read(pkg)
	if err != nil {
		return nil, core.Wrap(core.Corrupt, err)
	}
	if err := compat.Check(meta, compat.IdentityFrom(b.Props)); err != nil {
		return nil, err
	}

	propsEntry := pkg.Find(PropertiesEntry)
	if propsEntry == nil {
		return nil, core.Fail(core.Corrupt, "can't find %s", PropertiesEntry)
	}
	headers, err := pkgaccess.ReadEntry(propsEntry)
	if err != nil {
		return nil, core.Fail(core.Corrupt, "can't extract %s: %w", PropertiesEntry, err)
	}

	payload := pkg.Find(PayloadEntry)
	if payload == nil {
		return nil, core.Fail(core.Corrupt, "can't find %s", PayloadEntry)
	}
	// The executor reads the payload straight from the package file.
	if payload.Method != zip.Store {
		return nil, core.Fail(core.Corrupt, "%s is compressed (method %d)", PayloadEntry, payload.Method)
	}
	offset, err := payload.DataOffset()
	if err != nil {
		return nil, core.Fail(core.Corrupt, "locate %s: %w", PayloadEntry, err)
	}

	sideload := b.SideloadPath
	if sideload == "" {
		sideload = DefaultSideloadPath
	}
	return New(statusFD,
		sideload,
		fmt.Sprintf("--payload=file://%s", pkg.Path()),
		fmt.Sprintf("--offset=%d", offset),
		"--headers="+string(headers),
		fmt.Sprintf("--status_fd=%d", statusFD),
	), nil
}
