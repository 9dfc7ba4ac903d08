// Package compat decides whether an A/B package may be applied to this
// device. It guards against cross-device flashing and silent downgrades.
package compat

import (
	"fmt"
	"math"
	"strconv"

	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/internal/recovery/metadata"
)

// Reason names the check that rejected a package.
type Reason string

const (
	ReasonDevice           Reason = "device"
	ReasonSerial           Reason = "serialno"
	ReasonNotAB            Reason = "ota-type"
	ReasonIncremental      Reason = "pre-build-incremental"
	ReasonFingerprint      Reason = "pre-build"
	ReasonDowngrade        Reason = "downgrade"
	ReasonDowngradeNoBuild Reason = "downgrade-without-pre-build"
)

// MismatchError describes a failed compatibility check. Package is what the
// package metadata asks for, Device is what the running device has or accepts.
type MismatchError struct {
	Reason  Reason
	Package string
	Device  string
}

func (e *MismatchError) Error() string {
	switch e.Reason {
	case ReasonDevice:
		return fmt.Sprintf("package is for product %q but expected %q", e.Package, e.Device)
	case ReasonSerial:
		return fmt.Sprintf("package is for serial %q", e.Package)
	case ReasonNotAB:
		return fmt.Sprintf("package is not A/B (ota-type %q)", e.Package)
	case ReasonIncremental, ReasonFingerprint:
		return fmt.Sprintf("package is for source build %q but expected %q", e.Package, e.Device)
	case ReasonDowngrade:
		return fmt.Sprintf("update package is older than the current build, expected a build newer than timestamp %s but package has timestamp %s and downgrade not allowed", e.Device, e.Package)
	case ReasonDowngradeNoBuild:
		return "downgrade package must have a pre-build version set"
	default:
		return fmt.Sprintf("package mismatch (%s): package %q, device %q", e.Reason, e.Package, e.Device)
	}
}

// Identity is a snapshot of the device properties the checker reads.
type Identity struct {
	Device      string
	Serial      string
	Incremental string
	Fingerprint string
	// BuildTimestamp is math.MaxInt64 when the build date is unreadable,
	// which makes every package look older than the running build.
	BuildTimestamp int64
}

// IdentityFrom snapshots the identity properties from s.
func IdentityFrom(s props.Store) Identity {
	id := Identity{
		Device:         props.GetOr(s, props.ProductDevice, ""),
		Serial:         props.GetOr(s, props.SerialNo, ""),
		Incremental:    props.GetOr(s, props.BuildIncremental, ""),
		Fingerprint:    props.GetOr(s, props.BuildFingerprint, ""),
		BuildTimestamp: math.MaxInt64,
	}
	if v, ok := s.Get(props.BuildDateUTC); ok {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			id.BuildTimestamp = ts
		}
	}
	return id
}

// Check runs the compatibility sequence and stops at the first failure. The
// returned error wraps a *MismatchError tagged core.Error.
func Check(meta *metadata.Metadata, id Identity) error {
	mismatch := func(r Reason, pkg, dev string) error {
		return core.Wrap(core.Error, &MismatchError{Reason: r, Package: pkg, Device: dev})
	}

	pkgDevice := meta.Get(metadata.KeyPreDevice)
	if pkgDevice == "" || pkgDevice != id.Device {
		return mismatch(ReasonDevice, pkgDevice, id.Device)
	}

	if serial := meta.Get(metadata.KeySerialNo); serial != "" && serial != id.Serial {
		return mismatch(ReasonSerial, serial, id.Serial)
	}

	if otaType := meta.Get(metadata.KeyOTAType); otaType != "AB" {
		return mismatch(ReasonNotAB, otaType, "AB")
	}

	if incr := meta.Get(metadata.KeyPreBuildIncremental); incr != "" && incr != id.Incremental {
		return mismatch(ReasonIncremental, incr, id.Incremental)
	}

	preBuild := meta.Get(metadata.KeyPreBuild)
	if preBuild != "" && preBuild != id.Fingerprint {
		return mismatch(ReasonFingerprint, preBuild, id.Fingerprint)
	}

	postTimestamp, err := strconv.ParseInt(meta.Get(metadata.KeyPostTimestamp), 10, 64)
	if err != nil {
		postTimestamp = 0
	}
	if postTimestamp < id.BuildTimestamp {
		if meta.Get(metadata.KeyOTADowngrade) != "yes" {
			return mismatch(ReasonDowngrade,
				strconv.FormatInt(postTimestamp, 10), strconv.FormatInt(id.BuildTimestamp, 10))
		}
		if preBuild == "" {
			return mismatch(ReasonDowngradeNoBuild, "", id.Fingerprint)
		}
	}
	return nil
}
