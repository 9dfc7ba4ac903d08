package options

import (
	"errors"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/otarecovery/internal/bootctl"
	"github.com/autopeer-io/otarecovery/internal/bootctl/daemon"
	"github.com/autopeer-io/otarecovery/pkg/app"
	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/options"
)

// ServeOptions configure the boot-control daemon.
type ServeOptions struct {
	StateFile string `json:"state-file" mapstructure:"state-file"`

	GrpcOptions *options.GrpcOptions `json:"grpc" mapstructure:"grpc"`
	HttpOptions *options.HttpOptions `json:"http" mapstructure:"http"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*ServeOptions)(nil)
	_ app.LoggerOptions       = (*ServeOptions)(nil)
)

func NewServeOptions() *ServeOptions {
	return &ServeOptions{
		StateFile:   bootctl.DefaultStateFile,
		GrpcOptions: options.NewGrpcOptions(),
		HttpOptions: options.NewHttpOptions(),
		Log:         log.NewOptions(),
	}
}

func (o *ServeOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fss.FlagSet("serve").StringVar(&o.StateFile, "state-file", o.StateFile, "JSON file holding the slot state of the development HAL.")
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ServeOptions) Complete() error {
	return nil
}

func (o *ServeOptions) Validate() error {
	errs := []error{}
	if o.StateFile == "" {
		errs = append(errs, errors.New("--state-file must not be empty"))
	}
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ServeOptions) LogOptions() *log.Options { return o.Log }

// Config returns the daemon configuration.
func (o *ServeOptions) Config() *daemon.Config {
	return &daemon.Config{
		HttpOptions: o.HttpOptions,
		GrpcOptions: o.GrpcOptions,
	}
}

// ClientOptions are used by the commands talking to a running daemon.
type ClientOptions struct {
	GrpcOptions *options.GrpcOptions `json:"grpc" mapstructure:"grpc"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*ClientOptions)(nil)
	_ app.LoggerOptions       = (*ClientOptions)(nil)
)

func NewClientOptions() *ClientOptions {
	logOpts := log.NewOptions()
	logOpts.Level = "warn"
	return &ClientOptions{
		GrpcOptions: options.NewGrpcOptions(),
		Log:         logOpts,
	}
}

func (o *ClientOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ClientOptions) Complete() error {
	return nil
}

func (o *ClientOptions) Validate() error {
	errs := o.GrpcOptions.Validate()
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ClientOptions) LogOptions() *log.Options { return o.Log }

// SetActiveOptions switch the running slot of the development HAL directly
// on its state file.
type SetActiveOptions struct {
	StateFile string `json:"state-file" mapstructure:"state-file"`
	Slot      uint32 `json:"slot" mapstructure:"slot"`

	Log *log.Options `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*SetActiveOptions)(nil)
	_ app.LoggerOptions       = (*SetActiveOptions)(nil)
)

func NewSetActiveOptions() *SetActiveOptions {
	return &SetActiveOptions{
		StateFile: bootctl.DefaultStateFile,
		Log:       log.NewOptions(),
	}
}

func (o *SetActiveOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("set-active")
	fs.StringVar(&o.StateFile, "state-file", o.StateFile, "JSON file holding the slot state of the development HAL.")
	fs.Uint32Var(&o.Slot, "slot", o.Slot, "Slot to boot next. Its success flag is cleared.")
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *SetActiveOptions) Complete() error {
	return nil
}

func (o *SetActiveOptions) Validate() error {
	errs := []error{}
	if o.StateFile == "" {
		errs = append(errs, errors.New("--state-file must not be empty"))
	}
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *SetActiveOptions) LogOptions() *log.Options { return o.Log }
