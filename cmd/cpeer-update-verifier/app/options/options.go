package options

import (
	"errors"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/verify/caremap"
	"github.com/autopeer-io/otarecovery/pkg/app"
	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/options"
)

// VerifierOptions configure one verification run.
type VerifierOptions struct {
	CareMap         string `json:"care-map" mapstructure:"care-map"`
	MetricsTextfile string `json:"metrics-textfile" mapstructure:"metrics-textfile"`

	BootControl *options.GrpcOptions `json:"grpc" mapstructure:"grpc"`
	Device      *props.Options       `json:"device" mapstructure:"device"`
	Mqtt        *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*VerifierOptions)(nil)
	_ app.LoggerOptions       = (*VerifierOptions)(nil)
)

func NewVerifierOptions() *VerifierOptions {
	return &VerifierOptions{
		CareMap:     caremap.DefaultPath,
		BootControl: options.NewGrpcOptions(),
		Device:      props.NewOptions(),
		Mqtt:        options.NewMqttOptions(),
		Log:         log.NewOptions(),
	}
}

func (o *VerifierOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("verifier")
	fs.StringVar(&o.CareMap, "care-map", o.CareMap, "Care map listing the block ranges to re-read.")
	fs.StringVar(&o.MetricsTextfile, "metrics-textfile", o.MetricsTextfile, "Write verification metrics to this node-exporter textfile when set.")
	o.BootControl.AddFlags(fss.FlagSet("boot control"))
	o.Device.AddFlags(fss.FlagSet("device"))
	o.Mqtt.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *VerifierOptions) Complete() error {
	return nil
}

func (o *VerifierOptions) Validate() error {
	errs := []error{}
	if o.CareMap == "" {
		errs = append(errs, errors.New("--care-map must not be empty"))
	}
	errs = append(errs, o.BootControl.Validate()...)
	errs = append(errs, o.Device.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *VerifierOptions) LogOptions() *log.Options { return o.Log }
