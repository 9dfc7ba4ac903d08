package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"
)

type sectionOptions struct {
	Broker  string        `mapstructure:"broker"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type testOptions struct {
	Package  string          `mapstructure:"update-package"`
	Retry    int             `mapstructure:"retry-count"`
	Section  *sectionOptions `mapstructure:"mqtt"`
	complete bool
}

func newTestOptions() *testOptions {
	return &testOptions{Retry: 0, Section: &sectionOptions{Timeout: 5 * time.Second}}
}

func (o *testOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("install")
	fs.StringVar(&o.Package, "update-package", o.Package, "package")
	fs.IntVar(&o.Retry, "retry-count", o.Retry, "retry")
	ms := fss.FlagSet("mqtt")
	ms.StringVar(&o.Section.Broker, "mqtt.broker", o.Section.Broker, "broker")
	ms.DurationVar(&o.Section.Timeout, "mqtt.timeout", o.Section.Timeout, "timeout")
	return fss
}

func (o *testOptions) Complete() error {
	o.complete = true
	return nil
}

func (o *testOptions) Validate() error {
	var errs []error
	if o.Package == "" {
		errs = append(errs, errors.New("update-package is required"))
	}
	return utilerrors.NewAggregate(errs)
}

func TestRunDecodesFlagsConfigAndEnv(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "installer.yaml")
	if err := os.WriteFile(cfg, []byte("retry-count: 2\nmqtt:\n  broker: tcp://from-file:1883\n  timeout: 9s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OTA_MQTT_TIMEOUT", "7s")

	opts := newTestOptions()
	var ran bool
	a := NewApp("installer", "test", WithOptions(opts), WithDefaultValidArgs(), WithRunFunc(func() error {
		ran = true
		return nil
	}))
	cmd := a.Command()
	cmd.SetArgs([]string{"--config", cfg, "--update-package", "/data/update.zip", "--mqtt.broker", "tcp://from-flag:1883"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !ran || !opts.complete {
		t.Fatalf("ran = %v, complete = %v", ran, opts.complete)
	}
	if opts.Package != "/data/update.zip" {
		t.Errorf("Package = %q", opts.Package)
	}
	if opts.Retry != 2 {
		t.Errorf("Retry = %d, want value from config file", opts.Retry)
	}
	if opts.Section.Broker != "tcp://from-flag:1883" {
		t.Errorf("Broker = %q, want flag to win over config file", opts.Section.Broker)
	}
	if opts.Section.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want environment to win over config file", opts.Section.Timeout)
	}
}

func TestRunValidates(t *testing.T) {
	var ran bool
	a := NewApp("installer", "test", WithOptions(newTestOptions()), WithRunFunc(func() error {
		ran = true
		return nil
	}))
	a.Command().SetArgs(nil)
	if err := a.Command().Execute(); err == nil || ran {
		t.Fatalf("Execute() error = %v, ran = %v", err, ran)
	}
}

func TestDefaultValidArgs(t *testing.T) {
	a := NewApp("verifier", "test", WithNoConfig(), WithDefaultValidArgs(), WithRunFunc(func() error { return nil }))
	a.Command().SetArgs([]string{"unexpected"})
	if err := a.Command().Execute(); err == nil {
		t.Fatal("positional argument accepted")
	}
	if a.Command().Flags().Lookup(configFlagName) != nil {
		t.Error("--config registered despite WithNoConfig")
	}
}

func TestSubCommandsAndExitError(t *testing.T) {
	sub := NewApp("install", "sub", WithNoConfig(), WithRunFunc(func() error {
		return &ExitError{Code: 3}
	}))
	root := NewApp("cpeer-installer", "root", WithSubCommands(sub))
	root.Command().SetArgs([]string{"install"})

	err := root.Command().Execute()
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != 3 {
		t.Fatalf("Execute() error = %v, want ExitError code 3", err)
	}
	if exit.Error() != "exit status 3" {
		t.Errorf("Error() = %q", exit.Error())
	}
}
