package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/otarecovery/cmd/cpeer-installer/app/options"
	"github.com/autopeer-io/otarecovery/internal/recovery/command"
	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/internal/recovery/executor"
	"github.com/autopeer-io/otarecovery/internal/recovery/install"
	"github.com/autopeer-io/otarecovery/internal/recovery/sigcheck"
	"github.com/autopeer-io/otarecovery/internal/recovery/ui"
	"github.com/autopeer-io/otarecovery/internal/report"
	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/mqtt"
	"github.com/autopeer-io/otarecovery/pkg/mqtt/topic"
)

// brokerWait bounds how long a one-shot run waits for the broker.
const brokerWait = 10 * time.Second

// deps is everything an install run needs, built from CommonOptions.
type deps struct {
	installer *install.Installer
	console   *ui.Console
	deviceID  string
	mqtt      mqtt.Client
	topics    *topic.Builder
}

func newDeps(ctx context.Context, o *options.CommonOptions, presenceTopic bool) (*deps, error) {
	store, err := o.Device.Store()
	if err != nil {
		log.Warn("Some device properties could not be read", "error", err.Error())
	}
	deviceID := o.Device.DeviceID(store)
	rt := &deps{console: ui.NewConsole(os.Stdout), deviceID: deviceID}

	var reportOpts []report.Option
	if o.Mqtt.Enabled() {
		cfg := o.Mqtt.ToClientConfig()
		if cfg.ClientID == "" {
			cfg.ClientID = "ota-installer-" + deviceID
		}
		rt.topics = topic.NewBuilder(o.Mqtt.TopicRoot)
		if presenceTopic {
			cfg.WillTopic = rt.topics.Status(deviceID)
			cfg.WillPayload = []byte("offline")
			cfg.WillQoS = 1
			cfg.WillRetain = true
		}
		client, err := mqtt.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		if err := client.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start mqtt client: %w", err)
		}
		rt.mqtt = client
		reportOpts = append(reportOpts, report.WithPublisher(client, rt.topics))
	}
	if o.S3.Enabled() {
		archiver, err := report.NewMinIO(o.S3)
		if err != nil {
			rt.close()
			return nil, err
		}
		reportOpts = append(reportOpts, report.WithArchiver(archiver))
	}

	scheme, _ := command.ParseScheme(o.Scheme) // validated
	var oracle sigcheck.Oracle = &sigcheck.CommandOracle{Path: o.SignatureVerifier}
	if o.InsecureSkipSignature {
		log.Warn("Package signature verification is disabled")
		oracle = sigcheck.Insecure{}
	}

	rt.installer = install.New(
		install.Config{LogFile: o.LogFile, UncryptStatusFile: o.UncryptStatusFile},
		sigcheck.NewAdapter(oracle, clock.RealClock{}),
		command.NewBuilder(scheme, store, o.UpdateBinary, o.Sideload),
		executor.NewEngine(&executor.ExecLauncher{Stdout: os.Stdout, Stderr: os.Stderr}),
		install.WithObservers(report.New(deviceID, reportOpts...)),
	)
	return rt, nil
}

// awaitBroker gives the reporter a connected session when possible. A
// missing broker never blocks the install.
func (rt *deps) awaitBroker(ctx context.Context) {
	if rt.mqtt == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, brokerWait)
	defer cancel()
	if err := rt.mqtt.AwaitConnection(wctx); err != nil {
		log.Warn("MQTT broker not reachable, reports may be lost", "error", err.Error())
	}
}

func (rt *deps) close() {
	if rt.mqtt != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rt.mqtt.Disconnect(ctx)
	}
}

// exitCode maps an install result to the process exit status.
func exitCode(r core.Result) int {
	switch r {
	case core.Success:
		return 0
	case core.Corrupt:
		return 2
	case core.Retry:
		return 3
	default:
		return 1
	}
}
