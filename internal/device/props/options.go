package props

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/otarecovery/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options locate the property sources and name the device in reports.
type Options struct {
	// ID names the device in report topics and archive keys. Empty means
	// ro.serialno.
	ID string `json:"id" mapstructure:"id"`

	// PropFiles are read in order; later files override earlier ones.
	PropFiles []string `json:"prop-files" mapstructure:"prop-files"`

	// Cmdline supplies androidboot.* values as ro.boot.*.
	Cmdline string `json:"cmdline" mapstructure:"cmdline"`
}

func NewOptions() *Options {
	return &Options{
		PropFiles: []string{"/default.prop", "/system/build.prop", "/vendor/build.prop"},
		Cmdline:   DefaultCmdline,
	}
}

func (o *Options) Validate() []error {
	if len(o.PropFiles) == 0 && o.Cmdline == "" {
		return []error{errors.New("device.prop-files or device.cmdline is required")}
	}
	return nil
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.ID, "device.id", o.ID, "Device identifier used in reports. Defaults to ro.serialno.")
	fs.StringSliceVar(&o.PropFiles, "device.prop-files", o.PropFiles, "Property files, later files override earlier ones.")
	fs.StringVar(&o.Cmdline, "device.cmdline", o.Cmdline, "Kernel command line providing androidboot.* properties.")
}

// Store loads the configured sources. Missing files are skipped; a read
// error is returned with whatever did parse still served.
func (o *Options) Store() (*FileStore, error) {
	s := NewFileStore(o.Cmdline, o.PropFiles...)
	return s, s.Load()
}

// DeviceID returns ID, falling back to ro.serialno and then "unknown".
func (o *Options) DeviceID(s Store) string {
	if o.ID != "" {
		return o.ID
	}
	return GetOr(s, SerialNo, "unknown")
}
