package log

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Time formats of the timestamp field.
const (
	TimeFormatISO8601 = "iso8601"
	// TimeFormatElapsed prints seconds since the logger was built.
	TimeFormatElapsed = "elapsed"
)

// Options configures the process-wide logger.
type Options struct {
	// Name is added as the logger name on every entry.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Level is the minimum level: debug, info, warn or error.
	Level string `json:"level,omitempty" mapstructure:"level"`

	// Format is either "json" or "console".
	Format string `json:"format,omitempty" mapstructure:"format"`

	// TimeFormat is TimeFormatISO8601 or TimeFormatElapsed.
	TimeFormat string `json:"time-format,omitempty" mapstructure:"time-format"`

	// EnableColor colors levels in console format.
	EnableColor bool `json:"enable-color,omitempty" mapstructure:"enable-color"`

	// DisableCaller drops the file:line annotation.
	DisableCaller bool `json:"disable-caller,omitempty" mapstructure:"disable-caller"`

	// CallerSkip increases the number of callers skipped by caller annotation.
	CallerSkip int `json:"caller-skip,omitempty" mapstructure:"caller-skip"`

	// OutputPaths lists sinks ("stdout", "stderr" or file paths).
	// Recovery binaries add their last_log file here.
	OutputPaths []string `json:"output-paths,omitempty" mapstructure:"output-paths"`

	// ErrorOutputPaths lists sinks for internal logger errors.
	ErrorOutputPaths []string `json:"error-output-paths,omitempty" mapstructure:"error-output-paths"`
}

// NewOptions returns options with recovery defaults: console output on stderr,
// since stdout of the installer is inherited by the update executor.
func NewOptions() *Options {
	return &Options{
		Level:            "info",
		Format:           "console",
		TimeFormat:       TimeFormatISO8601,
		EnableColor:      false,
		CallerSkip:       2, // 2 is correct for the package-level helpers.
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// Validate checks level and format.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		errs = append(errs, fmt.Errorf("--log.level: unsupported level %q", o.Level))
	}
	if o.Format != "console" && o.Format != "json" {
		errs = append(errs, fmt.Errorf("--log.format: must be 'console' or 'json', got %q", o.Format))
	}
	if o.TimeFormat != "" && o.TimeFormat != TimeFormatISO8601 && o.TimeFormat != TimeFormatElapsed {
		errs = append(errs, fmt.Errorf("--log.time-format: must be %q or %q, got %q", TimeFormatISO8601, TimeFormatElapsed, o.TimeFormat))
	}
	return errs
}

// AddFlags binds command-line flags to the Options fields.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "log.name", o.Name, "An optional name for the logger.")
	fs.StringVar(&o.Format, "log.format", o.Format, "The log output format ('json' or 'console').")
	fs.StringVar(&o.TimeFormat, "log.time-format", o.TimeFormat, "Timestamp format: 'iso8601', or 'elapsed' for seconds since start.")
	fs.BoolVar(&o.EnableColor, "log.enable-color", o.EnableColor, "Enable colorized output for the console format.")
	fs.IntVar(&o.CallerSkip, "log.caller-skip", o.CallerSkip, "The number of caller frames to skip.")

	usage := "The minimum log level to output (e.g., 'debug', 'info', 'warn', 'error')."
	fs.StringVar(&o.Level, "log.level", o.Level, usage)

	usage = "Disable the caller field in logs (file and line number)."
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, usage)

	usage = "A list of log output paths (e.g., 'stderr', '/tmp/recovery.log')."
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, usage)

	usage = "A list of paths for internal logger errors."
	fs.StringSliceVar(&o.ErrorOutputPaths, "log.error-output-paths", o.ErrorOutputPaths, usage)
}
