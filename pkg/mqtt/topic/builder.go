package topic

import (
	"fmt"
)

// Topic segments shared by devices and the fleet backend. Changing them
// breaks every subscriber.
const (
	// SuffixResult carries one AttemptReport per finished install or
	// verification (Edge -> Cloud).
	// Structure: {root}/ota/result/{deviceID}
	SuffixResult = "ota/result"

	// SuffixStatus carries the retained online/offline presence of the
	// installer daemon (Edge -> Cloud).
	// Structure: {root}/ota/status/{deviceID}
	SuffixStatus = "ota/status"

	// Wildcard is the single-level wildcard "+".
	Wildcard = "+"
)

// Builder constructs topic strings under a root namespace.
type Builder struct {
	// root is the base namespace for all topics (e.g., "fleet/v1").
	root string
}

// NewBuilder creates a Builder for the given root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Result is where a device publishes attempt reports.
func (b *Builder) Result(deviceID string) string {
	return b.build(SuffixResult, deviceID)
}

// ResultWildcard subscribes to the reports of every device.
func (b *Builder) ResultWildcard() string {
	return b.build(SuffixResult, Wildcard)
}

// Status is the presence topic of a device.
func (b *Builder) Status(deviceID string) string {
	return b.build(SuffixStatus, deviceID)
}

// build returns {root}/{suffix}/{id}.
func (b *Builder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
