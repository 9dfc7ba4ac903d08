package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*GrpcOptions)(nil)

// GrpcOptions describe the boot-control endpoint. The daemon listens on it
// and the CLI and verifier dial it.
type GrpcOptions struct {
	// Network is "tcp" or "unix".
	Network string `json:"network" mapstructure:"network"`

	// Address is host:port for tcp and a socket path for unix.
	Addr string `json:"addr" mapstructure:"addr"`

	// Timeout bounds each client call.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewGrpcOptions listens on loopback only.
func NewGrpcOptions() *GrpcOptions {
	return &GrpcOptions{
		Network: "tcp",
		Addr:    "127.0.0.1:8091",
		Timeout: 10 * time.Second,
	}
}

// Target is the grpc.NewClient target for Addr.
func (o *GrpcOptions) Target() string {
	if o.Network == "unix" {
		return "unix://" + o.Addr
	}
	return o.Addr
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *GrpcOptions) Validate() []error {
	var errs []error

	switch o.Network {
	case "unix":
		if o.Addr == "" {
			errs = append(errs, errors.New("grpc.addr must be a socket path for the unix network"))
		}
	case "tcp":
		if err := ValidateAddress(o.Addr); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, errors.New("grpc.network must be tcp or unix"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("grpc.timeout must be positive"))
	}

	return errs
}

// AddFlags adds flags for the boot-control endpoint to the specified FlagSet.
func (o *GrpcOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Network, "grpc.network", o.Network, "Network of the boot-control endpoint (tcp or unix).")
	fs.StringVar(&o.Addr, "grpc.addr", o.Addr, "Boot-control endpoint: host:port, or a socket path for unix.")
	fs.DurationVar(&o.Timeout, "grpc.timeout", o.Timeout, "Timeout for each boot-control call.")
}
