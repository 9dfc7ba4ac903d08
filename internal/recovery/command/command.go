// Package command builds the argument vector that starts the update
// executor for a package. Builders encode the status descriptor number into
// the command but never touch the channel itself.
package command

import (
	"fmt"
	"strings"

	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess"
)

// Scheme selects the update strategy.
type Scheme string

const (
	SchemeLegacy Scheme = "legacy"
	SchemeAB     Scheme = "ab"
	// SchemeAuto picks A/B when the package carries a payload, legacy otherwise.
	SchemeAuto Scheme = "auto"
)

// Schemes lists the accepted --scheme values.
var Schemes = []Scheme{SchemeLegacy, SchemeAB, SchemeAuto}

// UpdateCommand is the immutable argv of one executor run.
type UpdateCommand struct {
	args []string
	// StatusFD is the descriptor number the child writes control lines to.
	StatusFD int
}

// New returns a command running args with the child-visible status
// descriptor statusFD.
func New(statusFD int, args ...string) *UpdateCommand {
	return &UpdateCommand{args: append([]string(nil), args...), StatusFD: statusFD}
}

// Args returns a copy of the argument vector; Args()[0] is the executable.
func (c *UpdateCommand) Args() []string {
	return append([]string(nil), c.args...)
}

func (c *UpdateCommand) String() string {
	return strings.Join(c.args, " ")
}

// Builder produces the update command for an opened package.
type Builder interface {
	Build(s *core.Session, pkg *pkgaccess.Package, statusFD int) (*UpdateCommand, error)
}

// Auto dispatches to AB or Legacy by the presence of the payload entry.
type Auto struct {
	AB     Builder
	Legacy Builder
}

func (a *Auto) Build(s *core.Session, pkg *pkgaccess.Package, statusFD int) (*UpdateCommand, error) {
	if pkg.Find(PayloadEntry) != nil {
		return a.AB.Build(s, pkg, statusFD)
	}
	return a.Legacy.Build(s, pkg, statusFD)
}

// NewBuilder returns the builder for scheme. Empty paths select the defaults.
func NewBuilder(scheme Scheme, store props.Store, binaryPath, sideloadPath string) Builder {
	legacy := &Legacy{BinaryPath: binaryPath}
	ab := &AB{Props: store, SideloadPath: sideloadPath}
	switch scheme {
	case SchemeLegacy:
		return legacy
	case SchemeAB:
		return ab
	default:
		return &Auto{AB: ab, Legacy: legacy}
	}
}

// ParseScheme validates a scheme name.
func ParseScheme(name string) (Scheme, error) {
	for _, s := range Schemes {
		if strings.EqualFold(name, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown update scheme %q, want one of %v", name, Schemes)
}
