package options

import (
	"errors"
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/recovery/command"
	"github.com/autopeer-io/otarecovery/internal/recovery/install"
	"github.com/autopeer-io/otarecovery/pkg/app"
	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/options"
)

// CommonOptions are shared by install and watch.
type CommonOptions struct {
	LogFile           string `json:"log-file" mapstructure:"log-file"`
	UncryptStatusFile string `json:"uncrypt-status-file" mapstructure:"uncrypt-status-file"`
	Scheme            string `json:"scheme" mapstructure:"scheme"`
	UpdateBinary      string `json:"update-binary" mapstructure:"update-binary"`
	Sideload          string `json:"sideload" mapstructure:"sideload"`
	MaxRetries        int    `json:"max-retries" mapstructure:"max-retries"`
	MetricsTextfile   string `json:"metrics-textfile" mapstructure:"metrics-textfile"`

	// SignatureVerifier is run with the package on stdin: exit 0 trusts it,
	// exit 1 rejects it.
	SignatureVerifier     string `json:"signature-verifier" mapstructure:"signature-verifier"`
	InsecureSkipSignature bool   `json:"insecure-skip-signature" mapstructure:"insecure-skip-signature"`

	Device *props.Options       `json:"device" mapstructure:"device"`
	Mqtt   *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	S3     *options.S3Options   `json:"s3" mapstructure:"s3"`
	Log    *log.Options         `json:"log" mapstructure:"log"`
}

func newCommonOptions() CommonOptions {
	logOpts := log.NewOptions()
	logOpts.OutputPaths = append(logOpts.OutputPaths, "/tmp/recovery.log")
	return CommonOptions{
		LogFile:           install.DefaultLogFile,
		UncryptStatusFile: install.DefaultUncryptStatusFile,
		Scheme:            string(command.SchemeAuto),
		UpdateBinary:      command.DefaultBinaryPath,
		Sideload:          command.DefaultSideloadPath,
		MaxRetries:        install.DefaultMaxRetries,
		Device:            props.NewOptions(),
		Mqtt:              options.NewMqttOptions(),
		S3:                options.NewS3Options(),
		Log:               logOpts,
	}
}

func (o *CommonOptions) addFlags(fss *cliflag.NamedFlagSets) {
	fs := fss.FlagSet("installer")
	fs.StringVar(&o.LogFile, "log-file", o.LogFile, "Where the install log record is persisted.")
	fs.StringVar(&o.UncryptStatusFile, "uncrypt-status-file", o.UncryptStatusFile, "Status file of the block-map preparation step, appended to the log when present.")
	fs.StringVar(&o.Scheme, "scheme", o.Scheme, fmt.Sprintf("Update scheme, one of %v.", command.Schemes))
	fs.StringVar(&o.UpdateBinary, "update-binary", o.UpdateBinary, "Extraction path of the package's embedded update binary.")
	fs.StringVar(&o.Sideload, "sideload", o.Sideload, "System update executor for A/B packages.")
	fs.IntVar(&o.MaxRetries, "max-retries", o.MaxRetries, "How many times a retry request from the executor is honored.")
	fs.StringVar(&o.MetricsTextfile, "metrics-textfile", o.MetricsTextfile, "Write install metrics to this node-exporter textfile when set.")
	fs.StringVar(&o.SignatureVerifier, "signature-verifier", o.SignatureVerifier, "Command that decides whether a package signature is trusted.")
	fs.BoolVar(&o.InsecureSkipSignature, "insecure-skip-signature", o.InsecureSkipSignature, "Accept unsigned packages. Development images only.")

	o.Device.AddFlags(fss.FlagSet("device"))
	o.Mqtt.AddFlags(fss.FlagSet("mqtt"))
	o.S3.AddFlags(fss.FlagSet("s3"))
	o.Log.AddFlags(fss.FlagSet("log"))
}

func (o *CommonOptions) validate() []error {
	var errs []error
	if _, err := command.ParseScheme(o.Scheme); err != nil {
		errs = append(errs, err)
	}
	if o.MaxRetries < 0 {
		errs = append(errs, errors.New("--max-retries must not be negative"))
	}
	if o.SignatureVerifier == "" && !o.InsecureSkipSignature {
		errs = append(errs, errors.New("--signature-verifier is required unless --insecure-skip-signature is set"))
	}
	if o.LogFile == "" {
		errs = append(errs, errors.New("--log-file must not be empty"))
	}
	errs = append(errs, o.Device.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.S3.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errs
}

// LogOptions hands the log section to the app framework.
func (o *CommonOptions) LogOptions() *log.Options { return o.Log }

// InstallOptions drive a single install of --update-package.
type InstallOptions struct {
	CommonOptions `mapstructure:",squash"`

	UpdatePackage string `json:"update-package" mapstructure:"update-package"`
	RetryCount    int    `json:"retry-count" mapstructure:"retry-count"`
}

var (
	_ app.NamedFlagSetOptions = (*InstallOptions)(nil)
	_ app.LoggerOptions       = (*InstallOptions)(nil)
)

func NewInstallOptions() *InstallOptions {
	return &InstallOptions{CommonOptions: newCommonOptions()}
}

func (o *InstallOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("install")
	fs.StringVar(&o.UpdatePackage, "update-package", o.UpdatePackage, "Package to install. A leading '@' names a block map.")
	fs.IntVar(&o.RetryCount, "retry-count", o.RetryCount, "Retry count of this attempt, as recorded by a previous run.")
	o.addFlags(&fss)
	return fss
}

func (o *InstallOptions) Complete() error {
	return nil
}

func (o *InstallOptions) Validate() error {
	errs := o.validate()
	if o.UpdatePackage == "" {
		errs = append(errs, errors.New("--update-package is required"))
	}
	if o.RetryCount < 0 {
		errs = append(errs, errors.New("--retry-count must not be negative"))
	}
	return utilerrors.NewAggregate(errs)
}

// WatchOptions drive the spool directory daemon.
type WatchOptions struct {
	CommonOptions `mapstructure:",squash"`

	SpoolDir string        `json:"spool-dir" mapstructure:"spool-dir"`
	Settle   time.Duration `json:"settle" mapstructure:"settle"`
}

var (
	_ app.NamedFlagSetOptions = (*WatchOptions)(nil)
	_ app.LoggerOptions       = (*WatchOptions)(nil)
)

func NewWatchOptions() *WatchOptions {
	return &WatchOptions{
		CommonOptions: newCommonOptions(),
		SpoolDir:      "/data/ota_package/spool",
		Settle:        2 * time.Second,
	}
}

func (o *WatchOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("watch")
	fs.StringVar(&o.SpoolDir, "spool-dir", o.SpoolDir, "Directory watched for *.zip packages.")
	fs.DurationVar(&o.Settle, "settle", o.Settle, "Quiet period after the last write before a package is installed.")
	o.addFlags(&fss)
	return fss
}

func (o *WatchOptions) Complete() error {
	return nil
}

func (o *WatchOptions) Validate() error {
	errs := o.validate()
	if o.SpoolDir == "" {
		errs = append(errs, errors.New("--spool-dir is required"))
	}
	if o.Settle <= 0 {
		errs = append(errs, errors.New("--settle must be positive"))
	}
	return utilerrors.NewAggregate(errs)
}
