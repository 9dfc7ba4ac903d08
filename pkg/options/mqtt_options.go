package options

import (
	"errors"
	"math"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/otarecovery/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions configure the outcome reporter's broker session. An empty
// Broker disables MQTT reporting.
type MqttOptions struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	// ClientID defaults to "ota-<binary>-<deviceID>" when empty.
	ClientID string `json:"client-id" mapstructure:"client-id"`

	KeepAlive         time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout    time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	ReconnectInterval time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval"`
	SessionExpiry     uint32        `json:"session-expiry" mapstructure:"session-expiry"`
	CleanStart        bool          `json:"clean-start" mapstructure:"clean-start"`

	// InsecureSkipVerify is for test brokers with self-signed certificates.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// TopicRoot prefixes every topic: {TopicRoot}/ota/result/{deviceID}.
	TopicRoot string `json:"topic-root" mapstructure:"topic-root"`
}

func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		KeepAlive:         60 * time.Second,
		ConnectTimeout:    5 * time.Second,
		ReconnectInterval: 3 * time.Second,
		SessionExpiry:     60,
		CleanStart:        true,
		TopicRoot:         "fleet/v1",
	}
}

// Enabled reports whether a broker was configured.
func (o *MqttOptions) Enabled() bool { return o != nil && o.Broker != "" }

// Validate checks the session settings. Disabled options are always valid.
func (o *MqttOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	var errs []error
	if err := o.ToClientConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.KeepAlive < time.Second || o.KeepAlive.Seconds() > math.MaxUint16 {
		errs = append(errs, errors.New("mqtt.keep-alive must be between 1s and 65535s"))
	}
	if o.TopicRoot == "" {
		errs = append(errs, errors.New("mqtt.topic-root must not be empty"))
	}
	return errs
}

func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "Broker URL, e.g. tcp://broker:1883 or mqtts://broker:8883. Empty disables outcome reporting.")
	fs.StringVar(&o.Username, "mqtt.username", o.Username, "Broker username.")
	fs.StringVar(&o.Password, "mqtt.password", o.Password, "Broker password.")
	fs.StringVar(&o.ClientID, "mqtt.client-id", o.ClientID, "MQTT client ID. Derived from the device ID when empty.")
	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "Keep alive interval, whole seconds.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Timeout of a single connection attempt.")
	fs.DurationVar(&o.ReconnectInterval, "mqtt.reconnect-interval", o.ReconnectInterval, "Delay between connection attempts.")
	fs.Uint32Var(&o.SessionExpiry, "mqtt.session-expiry", o.SessionExpiry, "Session expiry interval in seconds.")
	fs.BoolVar(&o.CleanStart, "mqtt.clean-start", o.CleanStart, "Discard any previous session on connect.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "Skip broker certificate verification.")
	fs.StringVar(&o.TopicRoot, "mqtt.topic-root", o.TopicRoot, "Root namespace of the report topics.")
}

// ToClientConfig converts the options for mqtt.NewClient.
func (o *MqttOptions) ToClientConfig() *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		ClientID:           o.ClientID,
		Username:           o.Username,
		Password:           o.Password,
		KeepAlive:          uint16(o.KeepAlive / time.Second),
		ConnectTimeout:     o.ConnectTimeout,
		ReconnectInterval:  o.ReconnectInterval,
		SessionExpiry:      o.SessionExpiry,
		CleanStart:         o.CleanStart,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
}
