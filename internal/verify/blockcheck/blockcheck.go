// Package blockcheck re-reads the care-map block ranges of the booted slot
// so dm-verity sees every block once before the slot is committed.
package blockcheck

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/pkg/metrics"
	"github.com/autopeer-io/otarecovery/internal/verify/caremap"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

// BlockSize is the unit of the care-map ranges.
const BlockSize = 4096

// Verifier reads partitions named by a care map.
type Verifier struct {
	props props.Store
}

// New returns a Verifier resolving the slot suffix through store.
func New(store props.Store) *Verifier {
	return &Verifier{props: store}
}

// DevicePath appends ro.boot.slot_suffix to prefix. A missing suffix is
// treated as empty.
func (v *Verifier) DevicePath(prefix string) string {
	return prefix + props.GetOr(v.props, props.BootSlotSuffix, "")
}

// Verify reads every entry of cm in order and stops at the first failure.
func (v *Verifier) Verify(ctx context.Context, cm *caremap.CareMap) error {
	for _, e := range cm.Entries {
		if err := v.ReadBlocks(ctx, e.DevicePrefix, e.RangeSpec); err != nil {
			return err
		}
	}
	return nil
}

// ReadBlocks parses rangeStr and reads each range from the slot's device,
// discarding the data. It returns the first open, parse or read error.
func (v *Verifier) ReadBlocks(ctx context.Context, prefix, rangeStr string) error {
	dev := v.DevicePath(prefix)
	f, err := os.Open(dev)
	if err != nil {
		return fmt.Errorf("error reading partition %s: %w", dev, err)
	}
	defer f.Close()

	ranges, err := caremap.ParseRanges(rangeStr)
	if err != nil {
		return fmt.Errorf("care map ranges for %s: %w", dev, err)
	}

	var blocks uint64
	for _, r := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}
		size := int64(r.Blocks()) * BlockSize
		section := io.NewSectionReader(f, int64(r.Start)*BlockSize, size)
		if _, err := io.CopyN(io.Discard, section, size); err != nil {
			return fmt.Errorf("failed to read blocks %d to %d on %s: %w", r.Start, r.End, dev, err)
		}
		blocks += r.Blocks()
		metrics.VerifyBlocksRead.Add(float64(r.Blocks()))
	}

	log.Info("Finished reading blocks", "blocks", blocks, "device", dev)
	return nil
}
