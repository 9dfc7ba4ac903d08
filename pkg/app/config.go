package app

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFlagName = "config"
	// EnvPrefix namespaces environment overrides: OTA_MQTT_BROKER sets --mqtt.broker.
	EnvPrefix = "OTA"
)

func addConfigFlag(name string, fs *pflag.FlagSet) {
	fs.StringP(configFlagName, "c", "", fmt.Sprintf("Read %s configuration from the specified YAML file. Flags given on the command line win.", name))
}

// loadConfig layers the config file and OTA_* environment variables under
// the parsed flags and decodes the result into opts through its
// mapstructure tags.
func loadConfig(fs *pflag.FlagSet, opts any) error {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if f := fs.Lookup(configFlagName); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file %s: %w", f.Value.String(), err)
		}
	}

	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}
